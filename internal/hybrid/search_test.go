package hybrid

import (
	"context"
	"strings"
	"testing"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

// fixedStore returns a canned semantic ranking regardless of the query.
type fixedStore struct {
	newsstore.Store
	results []newsstore.SearchResult
	gotTopK int
}

func (s *fixedStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter *newsstore.Filter, threshold float64) ([]newsstore.SearchResult, error) {
	s.gotTopK = topK
	if topK > len(s.results) {
		topK = len(s.results)
	}
	return s.results[:topK], nil
}

func result(id, title, content string, score float64) newsstore.SearchResult {
	return newsstore.SearchResult{
		Document: newsstore.Document{
			ID:       id,
			Content:  content,
			Metadata: newsstore.Metadata{Title: title},
		},
		Score: score,
	}
}

func TestExpandQuery(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"btc price", "btc price bitcoin"},
		{"ethereum upgrade", "ethereum upgrade eth ether"},
		{"market outlook", "market outlook"},
		{"btc bitcoin", "btc bitcoin"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExpandQuery(tc.in); got != tc.want {
			t.Errorf("ExpandQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExpandQueryDeterministic(t *testing.T) {
	first := ExpandQuery("btc eth sol regulation")
	for i := 0; i < 5; i++ {
		if got := ExpandQuery("btc eth sol regulation"); got != first {
			t.Fatalf("run %d: %q differs from %q", i, got, first)
		}
	}
}

func TestSearchWidensCandidateFetch(t *testing.T) {
	store := &fixedStore{results: []newsstore.SearchResult{
		result("a", "Bitcoin news", "bitcoin story", 0.9),
	}}
	s := NewSearcher(store, embeddings.NewFallbackEmbedder(32))
	if _, err := s.Search(context.Background(), "bitcoin", Options{TopK: 5}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.gotTopK != 15 {
		t.Errorf("store queried with topK %d, want 15", store.gotTopK)
	}
}

func TestSearchNoCandidates(t *testing.T) {
	s := NewSearcher(&fixedStore{}, embeddings.NewFallbackEmbedder(32))
	results, err := s.Search(context.Background(), "anything", Options{TopK: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("got %v, want nil", results)
	}
}

func TestWeightedFusionSingleSignalPreservesOrder(t *testing.T) {
	// Keyword scoring finds nothing (no term overlap), so the fused order
	// must equal the semantic order.
	store := &fixedStore{results: []newsstore.SearchResult{
		result("first", "Alpha", "alpha story", 0.9),
		result("second", "Beta", "beta story", 0.8),
		result("third", "Gamma", "gamma story", 0.7),
	}}
	s := NewSearcher(store, embeddings.NewFallbackEmbedder(32))
	results, err := s.Search(context.Background(), "unrelated query terms", Options{TopK: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Document.ID != want {
			t.Errorf("position %d is %q, want %q", i, results[i].Document.ID, want)
		}
	}
}

func TestWeightedFusionBoostsKeywordMatch(t *testing.T) {
	// "match" trails semantically but is the only keyword hit. Its fused
	// score is 0.7*(0.8/0.9) + 0.3*1.0 > 0.7*1.0 for the semantic leader.
	store := &fixedStore{results: []newsstore.SearchResult{
		result("leader", "General market", "broad market overview", 0.9),
		result("match", "Ripple lawsuit", "ripple lawsuit verdict announced", 0.8),
	}}
	s := NewSearcher(store, embeddings.NewFallbackEmbedder(32))
	results, err := s.Search(context.Background(), "ripple lawsuit", Options{TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Document.ID != "match" {
		t.Errorf("got top %q, want match", results[0].Document.ID)
	}
}

func TestRRFFusion(t *testing.T) {
	semantic := []newsstore.SearchResult{
		result("a", "", "", 0.9),
		result("b", "", "", 0.8),
	}
	keyword := []newsstore.SearchResult{
		result("b", "", "", 3.0),
		result("a", "", "", 1.0),
	}
	fused := fuseRRF(semantic, keyword)
	if len(fused) != 2 {
		t.Fatalf("got %d results, want 2", len(fused))
	}
	// Both appear at ranks 0 and 1 across the two lists, so scores tie and
	// first appearance (semantic order) wins.
	if fused[0].Document.ID != "a" {
		t.Errorf("got top %q, want a", fused[0].Document.ID)
	}
	want := 1.0/61 + 1.0/62
	if diff := fused[0].Score - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("score = %v, want %v", fused[0].Score, want)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	var canned []newsstore.SearchResult
	for _, id := range strings.Split("a b c d e f", " ") {
		canned = append(canned, result(id, "", "", 0.5))
	}
	store := &fixedStore{results: canned}
	s := NewSearcher(store, embeddings.NewFallbackEmbedder(32))
	results, err := s.Search(context.Background(), "query", Options{TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}
