package embed

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"spaceradar/internal/model"
)

// OpenAI embeds text through an OpenAI-compatible embeddings endpoint.
// Determinism holds as long as the remote model/version is pinned; the
// model name is part of the cache key for exactly that reason.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI embedder.
func NewOpenAI(cfg model.EmbeddingConfig, apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for the openai embedder")
	}

	clientConfig := openai.DefaultConfig(apiKey)

	modelName := cfg.Model
	if modelName == "" {
		modelName = string(openai.SmallEmbedding3)
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  modelName,
	}, nil
}

// Name returns the provider-qualified model identity.
func (o *OpenAI) Name() string {
	return "openai/" + o.model
}

// Embed requests embeddings for the batch. Vectors come back in request
// order; the clusterer assumes unit length, so they are re-normalized
// before returning.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: requested %d, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		v := make([]float32, len(item.Embedding))
		copy(v, item.Embedding)
		normalize(v)
		vectors[item.Index] = v
	}

	return vectors, nil
}
