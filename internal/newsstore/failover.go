package newsstore

import (
	"context"
	"log"
	"sync"
	"time"
)

// HealthChecker is implemented by backends that can be probed for
// availability without performing real work.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// FailoverStore is a two-tier Store: a primary backend fronted by a
// fallback. Backend selection happens through a lazily evaluated,
// time-cached health probe rather than exception-driven control flow; a
// connectivity failure mid-call additionally retries the operation on the
// fallback, so callers never see which tier answered.
type FailoverStore struct {
	primary  Store
	fallback Store
	probeTTL time.Duration

	mu        sync.Mutex
	healthy   bool
	lastProbe time.Time
}

// NewFailoverStore wraps primary with fallback. The primary's health is
// re-probed at most once per probeTTL.
func NewFailoverStore(primary, fallback Store, probeTTL time.Duration) *FailoverStore {
	if probeTTL <= 0 {
		probeTTL = 30 * time.Second
	}
	return &FailoverStore{primary: primary, fallback: fallback, probeTTL: probeTTL}
}

// active picks the backend for this call based on the cached probe.
func (s *FailoverStore) active(ctx context.Context) Store {
	checker, ok := s.primary.(HealthChecker)
	if !ok {
		return s.primary
	}

	s.mu.Lock()
	if time.Since(s.lastProbe) < s.probeTTL {
		healthy := s.healthy
		s.mu.Unlock()
		if healthy {
			return s.primary
		}
		return s.fallback
	}
	s.mu.Unlock()

	healthy := checker.Healthy(ctx)

	s.mu.Lock()
	s.healthy = healthy
	s.lastProbe = time.Now()
	s.mu.Unlock()

	if healthy {
		return s.primary
	}
	log.Printf("newsstore: primary backend unavailable, using fallback")
	return s.fallback
}

// markUnhealthy records a mid-call connectivity failure so subsequent calls
// skip the primary until the probe window expires.
func (s *FailoverStore) markUnhealthy() {
	s.mu.Lock()
	s.healthy = false
	s.lastProbe = time.Now()
	s.mu.Unlock()
}

func (s *FailoverStore) Add(ctx context.Context, doc Document) error {
	backend := s.active(ctx)
	err := backend.Add(ctx, doc)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.Add(ctx, doc)
	}
	return err
}

func (s *FailoverStore) AddBatch(ctx context.Context, docs []Document) (int, int, error) {
	backend := s.active(ctx)
	added, skipped, err := backend.AddBatch(ctx, docs)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.AddBatch(ctx, docs)
	}
	return added, skipped, err
}

func (s *FailoverStore) Get(ctx context.Context, id string) (Document, error) {
	backend := s.active(ctx)
	doc, err := backend.Get(ctx, id)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.Get(ctx, id)
	}
	return doc, err
}

func (s *FailoverStore) Delete(ctx context.Context, id string) (bool, error) {
	backend := s.active(ctx)
	deleted, err := backend.Delete(ctx, id)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.Delete(ctx, id)
	}
	return deleted, err
}

func (s *FailoverStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error) {
	backend := s.active(ctx)
	results, err := backend.Search(ctx, queryEmbedding, topK, filter, threshold)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.Search(ctx, queryEmbedding, topK, filter, threshold)
	}
	return results, err
}

func (s *FailoverStore) RecordVote(ctx context.Context, id string, up bool) error {
	backend := s.active(ctx)
	err := backend.RecordVote(ctx, id, up)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.RecordVote(ctx, id, up)
	}
	return err
}

func (s *FailoverStore) Stats(ctx context.Context) (Stats, error) {
	backend := s.active(ctx)
	stats, err := backend.Stats(ctx)
	if backend == s.primary && IsConnectivityError(err) {
		s.markUnhealthy()
		return s.fallback.Stats(ctx)
	}
	return stats, err
}
