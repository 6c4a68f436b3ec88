package vecdb

import (
	"context"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/google/uuid"
)

// Document is an ordered set of chunks keyed by chunk id, plus a name
// (unique within its owning library) and free-form metadata.
type Document struct {
	ID       string
	Name     string
	Metadata map[string]any

	chunks     []*Chunk
	chunkIDIdx *NameIndex

	// pending holds chunks attached to this document before it was ever
	// inserted into a Library (e.g. via NewDocumentWithChunks). They are
	// not yet reflected in chunkIDIdx; Library.AddDocument drains them
	// through AddChunks so they go through the same atomic-insertion and
	// vector-index wiring as any other chunk batch.
	pending []*Chunk
}

// NewDocument constructs an empty Document.
func NewDocument(name string, metadata map[string]any) *Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Document{
		ID:         uuid.NewString(),
		Name:       name,
		Metadata:   metadata,
		chunkIDIdx: NewNameIndex(),
	}
}

// NewDocumentWithChunks constructs a Document preloaded with chunks that
// have not yet been inserted anywhere. Library.AddDocument will pass them
// through AddChunks (atomic group insertion, vector index included) once
// the document itself is registered.
func NewDocumentWithChunks(name string, metadata map[string]any, chunks []*Chunk) *Document {
	doc := NewDocument(name, metadata)
	doc.pending = chunks
	return doc
}

// AddChunk appends c to the document. Fails with Duplicate if c.ID is
// already indexed.
func (d *Document) AddChunk(c *Chunk) error {
	if err := d.chunkIDIdx.Add("Document.AddChunk", c.ID, len(d.chunks)); err != nil {
		return err
	}
	d.chunks = append(d.chunks, c)
	return nil
}

// GetChunk returns the chunk with the given id, or NotFound.
func (d *Document) GetChunk(id string) (*Chunk, error) {
	pos, err := d.chunkIDIdx.Search("Document.GetChunk", id)
	if err != nil {
		return nil, err
	}
	return d.chunks[pos], nil
}

// GetChunks returns every chunk currently in the document, in order.
func (d *Document) GetChunks() []*Chunk {
	return d.chunks
}

// UpdateChunkText mutates a chunk's text in place. If the chunk already
// carried an embedding, it is re-embedded via embedder and the stored
// vector replaced; the chunk id never changes.
func (d *Document) UpdateChunkText(ctx context.Context, embedder embeddings.Embedder, chunkID, text string) (*Chunk, error) {
	pos, err := d.chunkIDIdx.Search("Document.UpdateChunkText", chunkID)
	if err != nil {
		return nil, err
	}
	chunk := d.chunks[pos]
	chunk.Text = text
	if chunk.Embedding != nil {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, apperr.Internalf("Document.UpdateChunkText", chunkID, "re-embed chunk: %w", err)
		}
		chunk.Embedding = vectors[0]
	}
	return chunk, nil
}

// RemoveChunk deletes the chunk with the given id and rebuilds the local
// chunk index to restore the position invariant.
func (d *Document) RemoveChunk(id string) error {
	pos, err := d.chunkIDIdx.Search("Document.RemoveChunk", id)
	if err != nil {
		return err
	}
	d.chunks = append(d.chunks[:pos], d.chunks[pos+1:]...)
	d.chunkIDIdx.Remove(id, len(d.chunks), func(i int) string { return d.chunks[i].ID })
	return nil
}
