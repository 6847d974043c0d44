package newsstore

import (
	"math"
	"time"
)

// Document is a single news article held by the store.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// Metadata holds structured information about a news document.
type Metadata struct {
	Title       string
	PublishedAt time.Time
	URL         string
	Source      string // publisher display name
	SourceKey   string // stable publisher id, may differ from Source
	Category    string
	Currencies  []string // ticker symbols, order irrelevant
	VoteUp      int
	VoteDown    int
	VoteScore   float64 // derived, see ComputeVoteScore
}

// SearchResult pairs a document with a relevance score. Score scales differ
// between stages (similarity is in [-1,1], BM25 is unbounded, fused scores
// are neither); only within-stage ordering is meaningful.
type SearchResult struct {
	Document Document
	Score    float64
}

// Stats summarizes the corpus held by a store.
type Stats struct {
	Documents       int
	OldestPublished time.Time
	NewestPublished time.Time
	Sources         []string
	Categories      []string
}

// ComputeVoteScore turns raw up/down counts into a confidence-dampened score
// in [-1, 1]. The raw ratio (up-down)/(up+down) is scaled by a confidence
// factor 1 - e^(-(up+down)/k), so a document with a single vote cannot
// outrank one with the same ratio over thousands of votes. With zero votes
// the score is exactly 0.
func ComputeVoteScore(up, down int, k float64) float64 {
	total := up + down
	if total <= 0 {
		return 0
	}
	if k <= 0 {
		k = 1
	}
	raw := float64(up-down) / float64(total)
	confidence := 1 - math.Exp(-float64(total)/k)
	return raw * confidence
}

// normalize scales vec to unit L2 length in place and reports whether the
// vector had non-zero magnitude.
func normalize(vec []float32) bool {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return false
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return true
}

// dot computes the dot product of two equal-length vectors. On unit vectors
// this equals cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
