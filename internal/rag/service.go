// Package rag wires retrieval, ranking, personalisation, and answer
// generation into one query service. Every stage past retrieval degrades
// rather than fails: a slow or broken provider costs quality, not
// availability.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/hybrid"
	"github.com/coinwatch/newsrag/internal/llm"
	"github.com/coinwatch/newsrag/internal/newsstore"
	"github.com/coinwatch/newsrag/internal/personalize"
	"github.com/coinwatch/newsrag/internal/rerank"
	"github.com/coinwatch/newsrag/internal/timeline"
)

const (
	defaultTopK = 5
	// contextDocs bounds how many documents feed answer generation.
	contextDocs = 5
	// contextSnippetLen bounds per-document context size.
	contextSnippetLen = 600
	// DefaultProviderTimeout caps each LLM or embedding provider call.
	DefaultProviderTimeout = 30 * time.Second

	emptyAnswer = "I couldn't find any relevant news articles for your query. Try broadening your search or asking about a different time period."
)

// Deps are the collaborators a Service needs. Provider and Cache may be
// nil; everything else is required.
type Deps struct {
	Store        newsstore.Store
	Embedder     embeddings.Embedder
	Provider     llm.Provider
	Personalizer *personalize.Engine
	Cache        *Cache
	// ProviderTimeout caps individual provider calls. 0 means
	// DefaultProviderTimeout.
	ProviderTimeout time.Duration
}

// Service answers questions over the news corpus.
type Service struct {
	store           newsstore.Store
	embedder        embeddings.Embedder
	provider        llm.Provider
	searcher        *hybrid.Searcher
	reranker        *rerank.Reranker
	personalizer    *personalize.Engine
	extractor       *timeline.Extractor
	cache           *Cache
	providerTimeout time.Duration
}

// NewService assembles a Service from its dependencies.
func NewService(deps Deps) *Service {
	timeout := deps.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	s := &Service{
		store:           deps.Store,
		embedder:        deps.Embedder,
		provider:        deps.Provider,
		searcher:        hybrid.NewSearcher(deps.Store, deps.Embedder),
		reranker:        rerank.New(deps.Provider),
		personalizer:    deps.Personalizer,
		cache:           deps.Cache,
		providerTimeout: timeout,
	}
	if deps.Provider != nil {
		s.extractor = timeline.NewExtractor(deps.Provider)
	}
	return s
}

// AskOptions tune one Ask call. Filter values arrive resolved from the
// caller; the service does not parse natural-language dates or tickers.
type AskOptions struct {
	UserID              string
	TopK                int
	Filter              *newsstore.Filter
	SimilarityThreshold float64
	Fusion              hybrid.Fusion
	SemanticWeight      float64
	ExpandQuery         bool
	UseHyDE             bool
	UseRerank           bool
	Rerank              rerank.Options
	UseCache            bool
}

// FastOptions favor latency: no HyDE, no LLM judging, cache on.
func FastOptions() AskOptions {
	return AskOptions{
		TopK:      defaultTopK,
		UseRerank: true,
		Rerank: rerank.Options{
			TimeDecay:         true,
			SourceCredibility: true,
			Diversity:         true,
		},
		UseCache: true,
	}
}

// CompleteOptions favor quality: HyDE, full reranking with the LLM judge,
// query expansion.
func CompleteOptions() AskOptions {
	opts := FastOptions()
	opts.UseHyDE = true
	opts.ExpandQuery = true
	opts.Rerank.LLMJudge = true
	return opts
}

// Source is a citation in an answer.
type Source struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"publishedAt"`
	Source      string  `json:"source"`
	VoteScore   float64 `json:"voteScore"`
}

// Answer is the result of one Ask call.
type Answer struct {
	Answer         string        `json:"answer"`
	Sources        []Source      `json:"sources"`
	CacheHit       bool          `json:"cacheHit"`
	DocsSearched   int           `json:"docsSearched"`
	ProcessingTime time.Duration `json:"processingTime"`
}

// Ask retrieves, ranks, and answers. A query with no matching documents
// returns a friendly empty answer, not an error; only a total retrieval
// failure surfaces as one.
func (s *Service) Ask(ctx context.Context, query string, opts AskOptions) (*Answer, error) {
	start := time.Now()
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	if opts.UseCache && s.cache != nil {
		if entry, ok := s.cache.Get(ctx, query); ok {
			return &Answer{
				Answer:         entry.Answer,
				Sources:        toSources(entry.Sources),
				CacheHit:       true,
				ProcessingTime: time.Since(start),
			}, nil
		}
	}

	if opts.UserID != "" && s.personalizer != nil {
		s.personalizer.RecordQuery(opts.UserID, query)
	}

	searchQuery := query
	if opts.UseHyDE && s.provider != nil {
		if hypothetical, err := s.hypotheticalDocument(ctx, query); err != nil {
			log.Printf("hypothetical document generation skipped: %v", err)
		} else {
			searchQuery = hypothetical
		}
	}

	results, err := s.searcher.Search(ctx, searchQuery, hybrid.Options{
		TopK:                opts.TopK * 2,
		Filter:              opts.Filter,
		SimilarityThreshold: opts.SimilarityThreshold,
		Fusion:              opts.Fusion,
		SemanticWeight:      opts.SemanticWeight,
		ExpandQuery:         opts.ExpandQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	searched := len(results)
	if searched == 0 {
		return &Answer{Answer: emptyAnswer, Sources: []Source{}, ProcessingTime: time.Since(start)}, nil
	}

	if opts.UseRerank {
		rerankOpts := opts.Rerank
		rerankOpts.TopK = opts.TopK
		rctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		results = s.reranker.Rerank(rctx, query, results, rerankOpts)
		cancel()
	}

	if opts.UserID != "" && s.personalizer != nil {
		results, _ = s.personalizer.PersonalizeRanking(opts.UserID, results)
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	answer := s.generateAnswer(ctx, query, opts.UserID, results)

	if opts.UseCache && s.cache != nil {
		s.cache.Set(ctx, query, CachedAnswer{Query: query, Answer: answer, Sources: results})
	}

	return &Answer{
		Answer:         answer,
		Sources:        toSources(results),
		DocsSearched:   searched,
		ProcessingTime: time.Since(start),
	}, nil
}

// SearchNews runs hybrid retrieval with optional reranking and
// personalisation, returning ranked documents without answer generation.
func (s *Service) SearchNews(ctx context.Context, query string, opts AskOptions) ([]newsstore.SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	results, err := s.searcher.Search(ctx, query, hybrid.Options{
		TopK:                opts.TopK * 2,
		Filter:              opts.Filter,
		SimilarityThreshold: opts.SimilarityThreshold,
		Fusion:              opts.Fusion,
		SemanticWeight:      opts.SemanticWeight,
		ExpandQuery:         opts.ExpandQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	if opts.UseRerank {
		rerankOpts := opts.Rerank
		rerankOpts.TopK = opts.TopK
		rctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		results = s.reranker.Rerank(rctx, query, results, rerankOpts)
		cancel()
	}
	if opts.UserID != "" && s.personalizer != nil {
		results, _ = s.personalizer.PersonalizeRanking(opts.UserID, results)
	}
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// TimelineOptions bound a BuildTimeline call.
type TimelineOptions struct {
	Start         time.Time
	End           time.Time
	MinImportance float64
	MaxEvents     int
	MaxDocuments  int
}

// BuildTimeline retrieves documents about the topic, extracts events, and
// assembles them into a clustered timeline. Without a text-generation
// provider the timeline is empty.
func (s *Service) BuildTimeline(ctx context.Context, topic string, opts TimelineOptions) (*timeline.Timeline, error) {
	maxDocs := opts.MaxDocuments
	if maxDocs <= 0 {
		maxDocs = 20
	}
	results, err := s.searcher.Search(ctx, topic, hybrid.Options{TopK: maxDocs, ExpandQuery: true})
	if err != nil {
		return nil, fmt.Errorf("retrieving timeline documents: %w", err)
	}

	var raw []timeline.RawEvent
	if s.extractor != nil && len(results) > 0 {
		docs := make([]newsstore.Document, len(results))
		for i, r := range results {
			docs[i] = r.Document
		}
		xctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		raw, err = s.extractor.Extract(xctx, topic, docs)
		cancel()
		if err != nil {
			log.Printf("event extraction skipped: %v", err)
			raw = nil
		}
	}

	tl := timeline.Assemble(topic, raw, timeline.Options{
		Start:         opts.Start,
		End:           opts.End,
		MinImportance: opts.MinImportance,
		MaxEvents:     opts.MaxEvents,
	})
	return &tl, nil
}

// hypotheticalDocument writes a short fake news article answering the
// query, used as a richer embedding target than the raw question.
func (s *Service) hypotheticalDocument(ctx context.Context, query string) (string, error) {
	hctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	resp, err := s.provider.Complete(hctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You write short hypothetical crypto news snippets."},
			{Role: llm.RoleUser, Content: "Write a three-sentence news snippet that would answer this question:\n\n" + query},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty hypothetical document")
	}
	return resp.Content, nil
}

// generateAnswer produces the final answer text. Provider failures fall
// back to an extractive summary of the top documents.
func (s *Service) generateAnswer(ctx context.Context, query, userID string, results []newsstore.SearchResult) string {
	if s.provider == nil {
		return extractiveAnswer(results)
	}

	top := results
	if len(top) > contextDocs {
		top = top[:contextDocs]
	}
	var sb strings.Builder
	for i, r := range top {
		snippet := r.Document.Content
		if len(snippet) > contextSnippetLen {
			snippet = snippet[:contextSnippetLen]
		}
		published := "unknown date"
		if !r.Document.Metadata.PublishedAt.IsZero() {
			published = r.Document.Metadata.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "[%d] %q (%s, %s)\n%s\n\n", i+1, r.Document.Metadata.Title,
			r.Document.Metadata.Source, published, snippet)
	}

	system := "You answer questions about cryptocurrency news using only the provided articles. Cite articles by their [number]. Say so when the articles do not cover the question."
	if userID != "" && s.personalizer != nil {
		if modifier := s.personalizer.SystemPromptModifier(userID); modifier != "" {
			system += " " + modifier
		}
	}

	gctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	resp, err := s.provider.Complete(gctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Articles:\n%sQuestion: %s", sb.String(), query)},
		},
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		log.Printf("answer generation degraded to extractive summary: %v", err)
		return extractiveAnswer(results)
	}
	return resp.Content
}

// extractiveAnswer lists the top headlines when no provider is available.
func extractiveAnswer(results []newsstore.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Here are the most relevant articles I found:\n")
	for i, r := range results {
		if i >= contextDocs {
			break
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", r.Document.Metadata.Title, r.Document.Metadata.Source)
	}
	return sb.String()
}

func toSources(results []newsstore.SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		var published string
		if !r.Document.Metadata.PublishedAt.IsZero() {
			published = r.Document.Metadata.PublishedAt.Format(time.RFC3339)
		}
		sources[i] = Source{
			Title:       r.Document.Metadata.Title,
			URL:         r.Document.Metadata.URL,
			PublishedAt: published,
			Source:      r.Document.Metadata.Source,
			VoteScore:   r.Document.Metadata.VoteScore,
		}
	}
	return sources
}

// Stats aggregates corpus, user, and cache counters.
type Stats struct {
	Store newsstore.Stats `json:"store"`
	Users int             `json:"users"`
	Cache *CacheStats     `json:"cache,omitempty"`
}

// Stats reports service-wide counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	storeStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Store: storeStats}
	if s.personalizer != nil {
		stats.Users = s.personalizer.TotalUsers()
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		stats.Cache = &cs
	}
	return stats, nil
}

// Reset clears per-user state. Tests use it between cases.
func (s *Service) Reset() {
	if s.personalizer != nil {
		s.personalizer.Reset()
	}
}
