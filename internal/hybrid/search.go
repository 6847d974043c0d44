// Package hybrid combines semantic and keyword retrieval over the document
// store. Semantic search produces the candidate universe; BM25 runs over
// those same candidates, and the two rankings are fused into one list.
package hybrid

import (
	"context"
	"fmt"
	"sort"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/lexical"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

// Fusion selects how the semantic and keyword rankings are merged.
type Fusion int

const (
	// FusionWeighted max-normalizes each ranking and combines with
	// SemanticWeight. Default.
	FusionWeighted Fusion = iota
	// FusionRRF sums reciprocal ranks across the two lists.
	FusionRRF
)

const (
	// DefaultSemanticWeight is the semantic share in weighted fusion.
	DefaultSemanticWeight = 0.7
	// DefaultCandidateMultiplier widens the semantic fetch so keyword
	// scoring has a universe to rerank.
	DefaultCandidateMultiplier = 3
	// rrfK dampens the contribution of lower ranks.
	rrfK = 60
)

// Options control a single hybrid search call.
type Options struct {
	TopK                int
	Filter              *newsstore.Filter
	SimilarityThreshold float64
	Fusion              Fusion
	SemanticWeight      float64 // 0 means DefaultSemanticWeight
	CandidateMultiplier int     // 0 means DefaultCandidateMultiplier
	ExpandQuery         bool
}

// Searcher runs hybrid retrieval against a store.
type Searcher struct {
	store    newsstore.Store
	embedder embeddings.Embedder
}

// NewSearcher returns a Searcher over the given store and embedder.
func NewSearcher(store newsstore.Store, embedder embeddings.Embedder) *Searcher {
	return &Searcher{store: store, embedder: embedder}
}

// Search embeds the query, fetches a widened semantic candidate set, scores
// the same candidates with BM25, fuses the two rankings, and returns the
// top opts.TopK results.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]newsstore.SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	multiplier := opts.CandidateMultiplier
	if multiplier <= 0 {
		multiplier = DefaultCandidateMultiplier
	}
	weight := opts.SemanticWeight
	if weight <= 0 {
		weight = DefaultSemanticWeight
	}

	if opts.ExpandQuery {
		query = ExpandQuery(query)
	}

	queryVec, err := embeddings.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	semantic, err := s.store.Search(ctx, queryVec, opts.TopK*multiplier, opts.Filter, opts.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(semantic) == 0 {
		return nil, nil
	}

	candidates := make([]newsstore.Document, len(semantic))
	for i, r := range semantic {
		candidates[i] = r.Document
	}
	keyword := lexical.Rank(query, candidates, lexical.DefaultK1, lexical.DefaultB)

	var fused []newsstore.SearchResult
	switch opts.Fusion {
	case FusionRRF:
		fused = fuseRRF(semantic, keyword)
	default:
		fused = fuseWeighted(semantic, keyword, weight)
	}

	if len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}
	return fused, nil
}

// fuseWeighted normalizes each ranking by its own maximum score and sums
// the weighted contributions per document. Documents keep the position of
// their first appearance for tie-breaking, so a keyword-empty call
// preserves the semantic order.
func fuseWeighted(semantic, keyword []newsstore.SearchResult, semanticWeight float64) []newsstore.SearchResult {
	combined := make(map[string]float64)
	docs := make(map[string]newsstore.Document)
	var order []string

	accumulate := func(results []newsstore.SearchResult, weight float64) {
		if len(results) == 0 {
			return
		}
		max := results[0].Score
		for _, r := range results[1:] {
			if r.Score > max {
				max = r.Score
			}
		}
		if max <= 0 {
			return
		}
		for _, r := range results {
			if _, ok := docs[r.Document.ID]; !ok {
				docs[r.Document.ID] = r.Document
				order = append(order, r.Document.ID)
			}
			combined[r.Document.ID] += weight * r.Score / max
		}
	}
	accumulate(semantic, semanticWeight)
	accumulate(keyword, 1-semanticWeight)

	return sortFused(order, docs, combined)
}

// fuseRRF assigns 1/(k+rank+1) per list, summed per document id.
func fuseRRF(semantic, keyword []newsstore.SearchResult) []newsstore.SearchResult {
	combined := make(map[string]float64)
	docs := make(map[string]newsstore.Document)
	var order []string

	accumulate := func(results []newsstore.SearchResult) {
		for rank, r := range results {
			if _, ok := docs[r.Document.ID]; !ok {
				docs[r.Document.ID] = r.Document
				order = append(order, r.Document.ID)
			}
			combined[r.Document.ID] += 1.0 / float64(rrfK+rank+1)
		}
	}
	accumulate(semantic)
	accumulate(keyword)

	return sortFused(order, docs, combined)
}

func sortFused(order []string, docs map[string]newsstore.Document, scores map[string]float64) []newsstore.SearchResult {
	results := make([]newsstore.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, newsstore.SearchResult{Document: docs[id], Score: scores[id]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
