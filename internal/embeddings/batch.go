package embeddings

import (
	"context"
	"log"
	"time"
)

// BatchOptions controls EmbedAll's batching behavior.
type BatchOptions struct {
	// BatchSize is the maximum texts per provider call.
	BatchSize int
	// Pacing is the delay between batches, for external rate limits.
	Pacing time.Duration
}

// DefaultBatchOptions paces generously enough for free-tier API limits.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{BatchSize: 50, Pacing: 200 * time.Millisecond}
}

// BatchResult reports the outcome of EmbedAll. Embeddings is index-aligned
// with the input texts; failed items hold a nil vector and their indices
// are listed in Failed.
type BatchResult struct {
	Embeddings [][]float32
	Failed     []int
}

// EmbedAll embeds texts in bounded batches with inter-batch pacing. A batch
// failure does not abort sibling items: the batch is retried one item at a
// time, and only the items that still fail are reported as failed.
func EmbedAll(ctx context.Context, e Embedder, texts []string, opts BatchOptions) (BatchResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchOptions().BatchSize
	}

	result := BatchResult{Embeddings: make([][]float32, len(texts))}

	for start := 0; start < len(texts); start += opts.BatchSize {
		if start > 0 && opts.Pacing > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.Pacing):
			}
		}

		end := start + opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := e.Embed(ctx, batch)
		if err == nil && len(vecs) == len(batch) {
			for i, v := range vecs {
				result.Embeddings[start+i] = v
			}
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		// Isolate the failure: retry each item on its own so one bad text
		// cannot take down its siblings.
		log.Printf("embeddings: batch of %d failed (%v), retrying per item", len(batch), err)
		for i, text := range batch {
			single, err := e.Embed(ctx, []string{text})
			if err != nil || len(single) == 0 {
				result.Failed = append(result.Failed, start+i)
				continue
			}
			result.Embeddings[start+i] = single[0]
		}
	}

	return result, nil
}
