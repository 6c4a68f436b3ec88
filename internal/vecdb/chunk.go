package vecdb

import "github.com/google/uuid"

// Chunk is a piece of text with an assigned id, an optional embedding, and
// free-form metadata that must include a "doc_id" entry referencing the
// owning document.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// NewChunk constructs a Chunk with a freshly assigned id. metadata must
// carry a "doc_id" key naming the document this chunk belongs to; that
// invariant is enforced by Library.AddChunks, not here, since the chunk
// can be constructed before its owning document is known to the caller.
func NewChunk(text string, metadata map[string]any) *Chunk {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Chunk{
		ID:       uuid.NewString(),
		Text:     text,
		Metadata: metadata,
	}
}

// DocID returns the "doc_id" metadata entry, or "" if absent.
func (c *Chunk) DocID() string {
	v, _ := c.Metadata["doc_id"].(string)
	return v
}

// Clone returns a shallow copy of c, safe to hand to a caller that must
// not observe later in-place mutation (e.g. from a concurrent UpdateChunk).
func (c *Chunk) Clone() *Chunk {
	metaCopy := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		metaCopy[k] = v
	}
	embCopy := append([]float32(nil), c.Embedding...)
	return &Chunk{
		ID:        c.ID,
		Text:      c.Text,
		Embedding: embCopy,
		Metadata:  metaCopy,
	}
}
