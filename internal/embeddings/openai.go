package embeddings

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// embedBatchLimit caps texts per embedding request; the API rejects
// oversized inputs.
const embedBatchLimit = 100

// OpenAIModel identifies an OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
)

var modelDimensions = map[OpenAIModel]int{
	ModelTextEmbedding3Small: 1536,
	ModelTextEmbedding3Large: 3072,
}

func (m OpenAIModel) dimensions() int {
	if d, ok := modelDimensions[m]; ok {
		return d
	}
	return modelDimensions[ModelTextEmbedding3Small]
}

// OpenAIEmbedder embeds article and query text through OpenAI's API. An
// empty model falls back to text-embedding-3-small.
type OpenAIEmbedder struct {
	client *openai.Client
	model  OpenAIModel
}

// NewOpenAIEmbedder creates an embedder for the given model.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel) *OpenAIEmbedder {
	if strings.TrimSpace(string(model)) == "" {
		model = ModelTextEmbedding3Small
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return "openai/" + string(e.model)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.model.dimensions()
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchLimit {
		end := start + embedBatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding %d texts: %w", len(batch), err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		for _, item := range resp.Data {
			vectors = append(vectors, item.Embedding)
		}
	}
	return vectors, nil
}
