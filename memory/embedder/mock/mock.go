// Package mock provides a deterministic embedder for tests and
// offline runs. It hashes the text and expands the hash into a
// unit-length pseudo-random vector, so identical texts always embed
// identically while different texts land far apart.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/forgeline/pursuit/memory"
)

// Embedder implements memory.Embedder without a model.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder. Dimensions defaults to 384 to match
// all-MiniLM-L6-v2 when zero.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Embedder{dimensions: dimensions}
}

// Embed expands an FNV-64 hash of the text into a normalized vector
// via a linear congruential generator.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return memory.Normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
