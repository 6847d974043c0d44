package newsstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// entry is a stored document plus the monotonic sequence number assigned at
// add time. The sequence is the documented tie-break order for search.
type entry struct {
	doc Document
	seq uint64
}

// MemoryStore is the in-process Store backend. Reads are concurrent; writes
// take the exclusive lock, so an in-flight search always sees a consistent
// snapshot of the corpus.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]*entry
	nextSeq uint64
	dims    int // fixed by the first stored embedding
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*entry)}
}

func (s *MemoryStore) Add(_ context.Context, doc Document) error {
	emb, err := prepareEmbedding(doc.Embedding)
	if err != nil {
		return fmt.Errorf("add %s: %w", doc.ID, err)
	}
	doc.Embedding = emb

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(doc)
	return nil
}

func (s *MemoryStore) AddBatch(_ context.Context, docs []Document) (added, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		emb, err := prepareEmbedding(doc.Embedding)
		if err != nil {
			skipped++
			continue
		}
		doc.Embedding = emb
		s.insertLocked(doc)
		added++
	}
	if skipped > 0 {
		log.Printf("newsstore: skipped %d document(s) with missing or zero embeddings", skipped)
	}
	return added, skipped, nil
}

// insertLocked stores doc, preserving the original sequence number when a
// document is re-added so tie order stays stable across updates.
func (s *MemoryStore) insertLocked(doc Document) {
	if prev, ok := s.docs[doc.ID]; ok {
		prev.doc = doc
		return
	}
	if s.dims == 0 {
		s.dims = len(doc.Embedding)
	}
	s.docs[doc.ID] = &entry{doc: doc, seq: s.nextSeq}
	s.nextSeq++
}

func (s *MemoryStore) Get(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return e.doc, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	query := make([]float32, len(queryEmbedding))
	copy(query, queryEmbedding)
	if !normalize(query) {
		return nil, fmt.Errorf("search: query: %w", ErrNoEmbedding)
	}

	s.mu.RLock()
	if s.dims != 0 && len(query) != s.dims {
		dims := s.dims
		s.mu.RUnlock()
		return nil, fmt.Errorf("search: query has %d dimensions, store has %d: %w", len(query), dims, ErrDimensionMismatch)
	}
	preds := filter.predicates()

	type scored struct {
		doc   Document
		seq   uint64
		score float64
	}
	// Candidates are copied by value while the read lock is held; a
	// concurrent vote or re-add must never show through an in-flight
	// result set.
	var matched []scored
	for _, e := range s.docs {
		if !matchAll(preds, &e.doc) {
			continue
		}
		// A candidate whose embedding is missing or of the wrong length is
		// corrupt; it is skipped, never fails the whole search.
		if len(e.doc.Embedding) != len(query) {
			continue
		}
		score := dot(query, e.doc.Embedding)
		if score >= threshold {
			matched = append(matched, scored{doc: e.doc, seq: e.seq, score: score})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].seq < matched[j].seq
	})
	if len(matched) > topK {
		matched = matched[:topK]
	}

	results := make([]SearchResult, len(matched))
	for i, m := range matched {
		results[i] = SearchResult{Document: m.doc, Score: m.score}
	}
	return results, nil
}

func (s *MemoryStore) RecordVote(_ context.Context, id string, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if up {
		e.doc.Metadata.VoteUp++
	} else {
		e.doc.Metadata.VoteDown++
	}
	e.doc.Metadata.VoteScore = ComputeVoteScore(e.doc.Metadata.VoteUp, e.doc.Metadata.VoteDown, 1)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Documents: len(s.docs)}
	sources := make(map[string]bool)
	categories := make(map[string]bool)
	var oldest, newest time.Time

	for _, e := range s.docs {
		m := e.doc.Metadata
		if m.Source != "" {
			sources[m.Source] = true
		}
		if m.Category != "" {
			categories[m.Category] = true
		}
		if !m.PublishedAt.IsZero() {
			if oldest.IsZero() || m.PublishedAt.Before(oldest) {
				oldest = m.PublishedAt
			}
			if newest.IsZero() || m.PublishedAt.After(newest) {
				newest = m.PublishedAt
			}
		}
	}

	stats.OldestPublished = oldest
	stats.NewestPublished = newest
	stats.Sources = sortedKeys(sources)
	stats.Categories = sortedKeys(categories)
	return stats, nil
}

// Healthy reports the in-process backend as always available.
func (s *MemoryStore) Healthy(context.Context) bool { return true }

// prepareEmbedding copies and unit-normalizes an embedding, rejecting
// missing or zero-magnitude vectors.
func prepareEmbedding(embedding []float32) ([]float32, error) {
	if len(embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	emb := make([]float32, len(embedding))
	copy(emb, embedding)
	if !normalize(emb) {
		return nil, ErrNoEmbedding
	}
	return emb, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
