package newsstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyStore simulates a remote backend whose availability can be toggled.
type flakyStore struct {
	*MemoryStore
	healthy  bool
	failNext bool
}

func (f *flakyStore) Healthy(context.Context) bool { return f.healthy }

func (f *flakyStore) Search(ctx context.Context, emb []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error) {
	if f.failNext {
		f.failNext = false
		return nil, &connectivityError{err: errors.New("connection refused")}
	}
	return f.MemoryStore.Search(ctx, emb, topK, filter, threshold)
}

func TestFailoverStore_UsesPrimaryWhenHealthy(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: NewMemoryStore(), healthy: true}
	fallback := NewMemoryStore()

	if err := primary.Add(ctx, newDoc("on-primary", []float32{1, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store := NewFailoverStore(primary, fallback, time.Minute)
	results, err := store.Search(ctx, []float32{1, 0}, 10, nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "on-primary" {
		t.Errorf("expected primary's document, got %v", results)
	}
}

func TestFailoverStore_ProbeFailureDegradesToFallback(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: NewMemoryStore(), healthy: false}
	fallback := NewMemoryStore()

	if err := fallback.Add(ctx, newDoc("on-fallback", []float32{1, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store := NewFailoverStore(primary, fallback, time.Minute)
	results, err := store.Search(ctx, []float32{1, 0}, 10, nil, 0)
	if err != nil {
		t.Fatalf("Search should not surface connectivity failure: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "on-fallback" {
		t.Errorf("expected fallback's document, got %v", results)
	}
}

func TestFailoverStore_MidCallFailureRetriesOnFallback(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: NewMemoryStore(), healthy: true, failNext: true}
	fallback := NewMemoryStore()

	if err := fallback.Add(ctx, newDoc("on-fallback", []float32{1, 0})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store := NewFailoverStore(primary, fallback, time.Minute)
	results, err := store.Search(ctx, []float32{1, 0}, 10, nil, 0)
	if err != nil {
		t.Fatalf("Search should degrade, not fail: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "on-fallback" {
		t.Errorf("expected fallback's document after mid-call failure, got %v", results)
	}

	// The failure is remembered: the next call goes straight to the
	// fallback without re-probing inside the TTL window.
	primary.failNext = false
	results, err = store.Search(ctx, []float32{1, 0}, 10, nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "on-fallback" {
		t.Errorf("expected cached unhealthy state to route to fallback, got %v", results)
	}
}

func TestFailoverStore_BusinessErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: NewMemoryStore(), healthy: true}
	fallback := NewMemoryStore()

	store := NewFailoverStore(primary, fallback, time.Minute)
	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound (not a failover)", err)
	}
}
