// Package embed maps article text to unit-normalized dense vectors for
// cosine-similarity clustering. Vectors are recomputed fresh every run
// from the index contents and are never persisted as pipeline state
// (the layered cache is a pure memoization, see Cached).
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"spaceradar/internal/model"
)

// Embedder produces one unit-norm vector per input text. For identical
// text and the same model/version the vector must be deterministic
// across runs. An empty batch yields an empty result, not an error.
type Embedder interface {
	// Name identifies the model/version; it namespaces cache keys.
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the embedder selected by configuration.
func New(cfg model.EmbeddingConfig, apiKey string) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return NewLocal(cfg.Model, cfg.Dimensions), nil
	case "openai":
		return NewOpenAI(cfg, apiKey)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: local, openai)", cfg.Provider)
	}
}

// PrepareText builds the embedding input for an article: title and body
// joined, the same composition every run.
func PrepareText(a model.Article) string {
	return a.Title + "\n" + a.Text
}

// normalize scales v to unit length in place. A zero vector is left as
// is; its cosine similarity to anything is zero.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
