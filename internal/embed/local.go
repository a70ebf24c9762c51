package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// Local is a deterministic feature-hashing embedder. It needs no model
// server: unigrams and bigrams are hashed into a fixed-dimension signed
// bag-of-words vector, then unit-normalized. Far weaker than a learned
// sentence encoder, but byte-for-byte reproducible anywhere, which makes
// it the default for offline runs and for tests.
type Local struct {
	name string
	dim  int
}

// NewLocal creates a Local embedder with the given dimension.
func NewLocal(name string, dim int) *Local {
	if name == "" {
		name = "hash-v1"
	}
	if dim <= 0 {
		dim = 256
	}
	return &Local{name: name, dim: dim}
}

// Name identifies the hashing scheme; bump it if tokenization changes.
func (l *Local) Name() string {
	return "local/" + l.name
}

// Embed hashes each text into a unit-norm vector. Empty input yields an
// empty result set.
func (l *Local) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = l.embedOne(text)
	}
	return vectors, nil
}

func (l *Local) embedOne(text string) []float32 {
	v := make([]float32, l.dim)

	tokens := tokenize(text)
	for i, tok := range tokens {
		addFeature(v, tok)
		if i+1 < len(tokens) {
			addFeature(v, tok+" "+tokens[i+1])
		}
	}

	normalize(v)
	return v
}

// addFeature hashes one feature into its bucket; the top hash bit picks
// the sign so collisions tend to cancel instead of piling up.
func addFeature(v []float32, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(len(v)))
	if sum&(1<<63) != 0 {
		v[idx]--
	} else {
		v[idx]++
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
