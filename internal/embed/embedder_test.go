package embed

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"spaceradar/internal/model"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestLocalEmbedUnitNorm(t *testing.T) {
	l := NewLocal("hash-v1", 256)

	vecs, err := l.Embed(context.Background(), []string{
		"NASA confirms water plumes on Europa",
		"Mars lander passes thermal testing",
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	for i, v := range vecs {
		if len(v) != 256 {
			t.Errorf("vector %d has dim %d", i, len(v))
		}
		if n := vectorNorm(v); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector %d norm = %v, want 1", i, n)
		}
	}
}

func TestLocalEmbedDeterministic(t *testing.T) {
	l := NewLocal("hash-v1", 256)
	text := "The orbiter detected towering plumes of water vapor."

	a, err := l.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatal(err)
	}

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestLocalEmbedDistinguishesTexts(t *testing.T) {
	l := NewLocal("hash-v1", 256)

	vecs, err := l.Embed(context.Background(), []string{
		"Water plumes rise from the icy surface of Europa near the south pole region.",
		"The quarterly budget review covered staffing levels and office relocations.",
	})
	if err != nil {
		t.Fatal(err)
	}

	var dot float64
	for i := range vecs[0] {
		dot += float64(vecs[0][i]) * float64(vecs[1][i])
	}
	if dot > 0.5 {
		t.Errorf("unrelated texts too similar: cosine = %v", dot)
	}
}

func TestLocalEmbedEmptyBatch(t *testing.T) {
	l := NewLocal("hash-v1", 256)
	vecs, err := l.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(empty): %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("got %d vectors for empty batch", len(vecs))
	}
}

func TestLocalEmbedEmptyText(t *testing.T) {
	l := NewLocal("hash-v1", 8)
	vecs, err := l.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	// No tokens means the zero vector, which cosines to 0 everywhere.
	if n := vectorNorm(vecs[0]); n != 0 {
		t.Errorf("empty text norm = %v, want 0", n)
	}
}

func TestNewFactory(t *testing.T) {
	e, err := New(model.EmbeddingConfig{Provider: "local", Model: "hash-v1", Dimensions: 64}, "")
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	if e.Name() != "local/hash-v1" {
		t.Errorf("name = %s", e.Name())
	}

	if _, err := New(model.EmbeddingConfig{Provider: "word2vec"}, ""); err == nil {
		t.Error("unknown provider did not error")
	}

	if _, err := New(model.EmbeddingConfig{Provider: "openai"}, ""); err == nil {
		t.Error("openai without API key did not error")
	}
}

func TestPrepareText(t *testing.T) {
	got := PrepareText(model.Article{Title: "Headline", Text: "Body."})
	if got != "Headline\nBody." {
		t.Errorf("PrepareText = %q", got)
	}
}

// countingEmbedder records how many texts it was actually asked for.
type countingEmbedder struct {
	inner Embedder
	calls []int
	fail  bool
}

func (c *countingEmbedder) Name() string { return c.inner.Name() }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, len(texts))
	if c.fail {
		return nil, errors.New("embedder down")
	}
	return c.inner.Embed(ctx, texts)
}

type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (m *mapCache) Get(key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *mapCache) Clear() error {
	m.data = make(map[string][]byte)
	return nil
}

func TestCachedEmbedServesHits(t *testing.T) {
	counting := &countingEmbedder{inner: NewLocal("hash-v1", 64)}
	cached := NewCached(counting, newMapCache(), time.Hour)

	texts := []string{"first article text", "second article text"}

	first, err := cached.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	second, err := cached.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}

	if len(counting.calls) != 1 || counting.calls[0] != 2 {
		t.Errorf("inner calls = %v, want one call for both texts", counting.calls)
	}
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("cached vector differs at [%d][%d]", i, j)
			}
		}
	}
}

func TestCachedEmbedBatchesOnlyMisses(t *testing.T) {
	counting := &countingEmbedder{inner: NewLocal("hash-v1", 64)}
	cached := NewCached(counting, newMapCache(), time.Hour)

	if _, err := cached.Embed(context.Background(), []string{"already cached"}); err != nil {
		t.Fatal(err)
	}

	vecs, err := cached.Embed(context.Background(), []string{"already cached", "new text"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if len(counting.calls) != 2 || counting.calls[1] != 1 {
		t.Errorf("inner calls = %v, want second call with only the miss", counting.calls)
	}
}

func TestCachedEmbedPropagatesErrors(t *testing.T) {
	counting := &countingEmbedder{inner: NewLocal("hash-v1", 64), fail: true}
	cached := NewCached(counting, newMapCache(), time.Hour)

	if _, err := cached.Embed(context.Background(), []string{"anything"}); err == nil {
		t.Error("inner failure not propagated")
	}
}
