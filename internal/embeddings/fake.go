package embeddings

import "context"

// Fake is a deterministic, in-process Embedder for tests: it never makes a
// network call, and maps distinct texts to distinct, stable vectors so
// that nearest-neighbor search behaves predictably (the same text always
// embeds to the same vector, and a query's embedding is nearest to the
// vector for the identical text — the identity-like mapping spec.md's S6
// scenario assumes of "any reasonable embedding model").
type Fake struct {
	Dimension int
}

// NewFake returns a Fake embedder producing vectors of the given dimension.
func NewFake(dimension int) *Fake {
	return &Fake{Dimension: dimension}
}

func (f *Fake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

// vector derives a stable pseudo-embedding from text: each dimension is a
// rolling hash seeded by the text and the dimension index, so identical
// texts always produce identical vectors and distinct texts are, with
// overwhelming probability, distinct vectors.
func (f *Fake) vector(text string) []float32 {
	dim := f.Dimension
	if dim <= 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	var h uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		h = (h ^ uint32(text[i])) * 16777619
	}
	for d := 0; d < dim; d++ {
		h = (h ^ uint32(d)) * 16777619
		vec[d] = float32(int32(h)%1000) / 1000.0
	}
	return vec
}
