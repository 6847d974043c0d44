package newsstore

import (
	"context"
	"errors"
)

// Store is the document store contract. Implementations must be swappable
// with identical externally observable behavior; callers never learn which
// backend is active.
type Store interface {
	// Add stores a single document, normalizing its embedding to unit
	// length first. Documents with a missing or zero embedding are rejected
	// with ErrNoEmbedding.
	Add(ctx context.Context, doc Document) error

	// AddBatch stores many documents. Documents with a missing or zero
	// embedding are skipped with a warning rather than failing the batch;
	// the skipped count is returned.
	AddBatch(ctx context.Context, docs []Document) (added, skipped int, err error)

	// Get retrieves a document by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Delete removes a document by id and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Search ranks every document passing filter by cosine similarity to
	// queryEmbedding (normalized first), keeps results with
	// score >= threshold and returns the top topK by descending score.
	// Ties are broken by insertion order.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter *Filter, threshold float64) ([]SearchResult, error)

	// RecordVote registers an up or down vote and recomputes the
	// document's vote score.
	RecordVote(ctx context.Context, id string, up bool) error

	// Stats summarizes the stored corpus.
	Stats(ctx context.Context) (Stats, error)
}

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrNoEmbedding indicates a document has a missing or zero-length
	// embedding where the store requires one.
	ErrNoEmbedding = errors.New("document has no usable embedding")

	// ErrDimensionMismatch indicates a query vector whose length does not
	// match the store's embedding dimensionality. This is a configuration
	// mistake, not a runtime condition, and is never silently degraded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnavailable indicates no backend could service the request.
	ErrUnavailable = errors.New("store temporarily unavailable")
)
