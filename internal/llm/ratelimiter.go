package llm

import (
	"context"
	"sync"
	"time"
)

// retryInterval is how often an exhausted bucket is re-checked.
const retryInterval = 100 * time.Millisecond

// RateLimitedProvider enforces a requests-per-minute budget in front of
// another Provider. Shared provider quotas are easy to blow through when
// answer generation, HyDE, judging, and event extraction all hit the same
// key; the bucket keeps the process as a whole under the limit.
type RateLimitedProvider struct {
	inner Provider
	rpm   int

	mu       sync.Mutex
	tokens   int
	lastFill time.Time
}

// NewRateLimitedProvider wraps inner with a token bucket allowing at most
// rpm requests per minute. The bucket starts full.
func NewRateLimitedProvider(inner Provider, rpm int) Provider {
	return &RateLimitedProvider{
		inner:    inner,
		rpm:      rpm,
		tokens:   rpm,
		lastFill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string { return r.inner.Name() }

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, req)
}

// acquire blocks until a token is available or ctx is done.
func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	for {
		if r.takeToken() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (r *RateLimitedProvider) takeToken() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(r.lastFill).Seconds() * float64(r.rpm) / 60.0)
	if refill > 0 {
		r.tokens += refill
		if r.tokens > r.rpm {
			r.tokens = r.rpm
		}
		r.lastFill = now
	}

	if r.tokens == 0 {
		return false
	}
	r.tokens--
	return true
}
