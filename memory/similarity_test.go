package memory_test

import (
	"math"
	"testing"

	"github.com/forgeline/pursuit/memory"
)

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{5, 5, 5, 5},
	}
	for _, v := range vectors {
		if sim := memory.CosineSimilarity(v, v); math.Abs(sim-1) > 1e-6 {
			t.Errorf("CosineSimilarity(v, v) = %f, want 1", sim)
		}
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.2, -1.4, 3.3}
	b := []float32{-0.9, 0.1, 0.5}
	if memory.CosineSimilarity(a, b) != memory.CosineSimilarity(b, a) {
		t.Error("cosine similarity should be symmetric")
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if sim := memory.CosineSimilarity(a, b); math.Abs(sim) > 1e-6 {
		t.Errorf("orthogonal vectors should score 0, got %f", sim)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 1}
	b := []float32{-1, -1}
	if sim := memory.CosineSimilarity(a, b); math.Abs(sim+1) > 1e-6 {
		t.Errorf("opposite vectors should score -1, got %f", sim)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	if sim := memory.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); sim != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", sim)
	}
	if sim := memory.CosineSimilarity([]float32{0, 0}, []float32{1, 1}); sim != 0 {
		t.Errorf("zero vector should score 0, got %f", sim)
	}
	if sim := memory.CosineSimilarity(nil, nil); sim != 0 {
		t.Errorf("empty vectors should score 0, got %f", sim)
	}
}

func TestNormalize(t *testing.T) {
	v := memory.Normalize([]float32{3, 4})
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("normalized vector has squared norm %f, want 1", norm)
	}

	zero := memory.Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be returned unchanged")
	}
}
