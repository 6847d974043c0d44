// Package rerank adjusts a fused candidate list with recency, source
// credibility, source diversity, and an optional LLM relevance pass. Every
// signal toggles independently; with all signals off the input passes
// through unchanged.
package rerank

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/coinwatch/newsrag/internal/llm"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

const (
	// DefaultHalfLife halves a document's score for every week of age.
	DefaultHalfLife = 7 * 24 * time.Hour
	// DefaultMaxPerSource caps results per source under diversity.
	DefaultMaxPerSource = 2
	// llmJudgeLimit keeps the relevance pass to small candidate counts.
	llmJudgeLimit = 10
)

// credibility is a static per-source multiplier table. Unknown sources get
// defaultCredibility.
var credibility = map[string]float64{
	"coindesk":         1.0,
	"cointelegraph":    0.95,
	"the block":        0.95,
	"decrypt":          0.9,
	"bitcoin magazine": 0.85,
	"cryptoslate":      0.8,
	"cryptopotato":     0.75,
	"newsbtc":          0.7,
}

const defaultCredibility = 0.75

// Options select which signals run. Zero-valued Options is a pass-through.
type Options struct {
	TimeDecay         bool
	HalfLife          time.Duration // 0 means DefaultHalfLife
	SourceCredibility bool
	Diversity         bool
	MaxPerSource      int // 0 means DefaultMaxPerSource
	LLMJudge          bool
	TopK              int // 0 means keep all
}

// Reranker applies the configured signals. The provider is only needed
// when LLMJudge is enabled.
type Reranker struct {
	provider llm.Provider
	now      func() time.Time
}

// New returns a Reranker. provider may be nil if the LLM pass is never
// enabled.
func New(provider llm.Provider) *Reranker {
	return &Reranker{provider: provider, now: time.Now}
}

// Rerank applies the enabled signals in order: time decay, source
// credibility, LLM judge, diversity, then truncation to TopK. The input
// slice is not modified.
func (r *Reranker) Rerank(ctx context.Context, query string, results []newsstore.SearchResult, opts Options) []newsstore.SearchResult {
	if len(results) == 0 {
		return results
	}

	out := make([]newsstore.SearchResult, len(results))
	copy(out, results)

	if opts.TimeDecay {
		halfLife := opts.HalfLife
		if halfLife <= 0 {
			halfLife = DefaultHalfLife
		}
		out = applyTimeDecay(out, r.now(), halfLife)
	}
	if opts.SourceCredibility {
		out = applyCredibility(out)
	}
	if opts.LLMJudge && r.provider != nil && len(out) <= llmJudgeLimit {
		out = r.applyJudge(ctx, query, out)
	}
	if opts.Diversity {
		maxPerSource := opts.MaxPerSource
		if maxPerSource <= 0 {
			maxPerSource = DefaultMaxPerSource
		}
		out = diversify(out, maxPerSource)
	}
	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out
}

// applyTimeDecay multiplies scores by 0.5^(age/halfLife). Documents with
// no publication date keep their score.
func applyTimeDecay(results []newsstore.SearchResult, now time.Time, halfLife time.Duration) []newsstore.SearchResult {
	for i := range results {
		published := results[i].Document.Metadata.PublishedAt
		if published.IsZero() {
			continue
		}
		age := now.Sub(published)
		if age <= 0 {
			continue
		}
		results[i].Score *= math.Pow(0.5, age.Hours()/halfLife.Hours())
	}
	return resort(results)
}

func applyCredibility(results []newsstore.SearchResult) []newsstore.SearchResult {
	for i := range results {
		source := strings.ToLower(results[i].Document.Metadata.Source)
		weight, ok := credibility[source]
		if !ok {
			weight = defaultCredibility
		}
		results[i].Score *= weight
	}
	return resort(results)
}

// diversify caps results per source while preserving relative order.
// Overflow results are appended after all sources are within the cap, still
// in score order among themselves.
func diversify(results []newsstore.SearchResult, maxPerSource int) []newsstore.SearchResult {
	counts := make(map[string]int)
	kept := make([]newsstore.SearchResult, 0, len(results))
	var overflow []newsstore.SearchResult
	for _, r := range results {
		source := strings.ToLower(r.Document.Metadata.Source)
		if counts[source] >= maxPerSource {
			overflow = append(overflow, r)
			continue
		}
		counts[source]++
		kept = append(kept, r)
	}
	return append(kept, overflow...)
}

func resort(results []newsstore.SearchResult) []newsstore.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
