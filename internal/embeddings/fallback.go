package embeddings

import (
	"context"
	"math"
)

// FallbackEmbedder produces deterministic embeddings without any external
// provider. It is the degraded-mode and offline-testing embedder: vectors
// carry no semantic meaning, but the same text always maps to the same unit
// vector, and texts sharing characters land near each other, which is
// enough for the retrieval pipeline to operate end to end.
type FallbackEmbedder struct {
	dims int
}

// NewFallbackEmbedder creates a deterministic embedder with the given
// dimensionality.
func NewFallbackEmbedder(dims int) *FallbackEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &FallbackEmbedder{dims: dims}
}

func (f *FallbackEmbedder) Name() string    { return "fallback-deterministic" }
func (f *FallbackEmbedder) Dimensions() int { return f.dims }

func (f *FallbackEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = f.vector(text)
	}
	return results, nil
}

// vector hashes each character with its position into a fixed slot, then
// L2-normalizes. Shared character runs contribute to the same slots, so
// overlapping texts produce correlated vectors.
func (f *FallbackEmbedder) vector(text string) []float32 {
	vec := make([]float32, f.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % f.dims
		vec[idx] += 1.0
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Empty text still yields a valid unit vector.
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
