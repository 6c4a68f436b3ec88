package vecdb

import (
	"context"
	"testing"

	"github.com/fabfab/vectordb/internal/embeddings"
)

func TestDocumentAddChunkDuplicate(t *testing.T) {
	doc := NewDocument("doc1", nil)
	chunk := NewChunk("hello", map[string]any{"doc_id": doc.ID})
	if err := doc.AddChunk(chunk); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := doc.AddChunk(chunk); err == nil {
		t.Fatal("expected Duplicate error on re-adding the same chunk id")
	}
}

func TestDocumentRemoveChunkRebuildsPositions(t *testing.T) {
	doc := NewDocument("doc1", nil)
	a := NewChunk("a", map[string]any{"doc_id": doc.ID})
	b := NewChunk("b", map[string]any{"doc_id": doc.ID})
	c := NewChunk("c", map[string]any{"doc_id": doc.ID})
	for _, chunk := range []*Chunk{a, b, c} {
		if err := doc.AddChunk(chunk); err != nil {
			t.Fatalf("AddChunk: %v", err)
		}
	}

	if err := doc.RemoveChunk(a.ID); err != nil {
		t.Fatalf("RemoveChunk: %v", err)
	}

	got, err := doc.GetChunk(c.ID)
	if err != nil {
		t.Fatalf("GetChunk after removal: %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("expected to resolve chunk c, got %+v", got)
	}
	if _, err := doc.GetChunk(a.ID); err == nil {
		t.Fatal("expected NotFound for removed chunk")
	}
}

func TestDocumentUpdateChunkTextReembedsOnlyIfEmbedded(t *testing.T) {
	ctx := context.Background()
	embedder := embeddings.NewFake(4)

	doc := NewDocument("doc1", nil)
	unembedded := NewChunk("original", map[string]any{"doc_id": doc.ID})
	if err := doc.AddChunk(unembedded); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	updated, err := doc.UpdateChunkText(ctx, embedder, unembedded.ID, "changed")
	if err != nil {
		t.Fatalf("UpdateChunkText: %v", err)
	}
	if updated.Embedding != nil {
		t.Fatal("expected no embedding assigned for a chunk that never had one")
	}

	embedded := NewChunk("original two", map[string]any{"doc_id": doc.ID})
	embedded.Embedding = []float32{1, 2, 3, 4}
	if err := doc.AddChunk(embedded); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	updated2, err := doc.UpdateChunkText(ctx, embedder, embedded.ID, "changed two")
	if err != nil {
		t.Fatalf("UpdateChunkText: %v", err)
	}
	if updated2.Embedding == nil {
		t.Fatal("expected re-embedding for a chunk that already had an embedding")
	}
}

func TestNewDocumentWithChunksDefersIndexing(t *testing.T) {
	chunks := []*Chunk{NewChunk("a", nil), NewChunk("b", nil)}
	doc := NewDocumentWithChunks("doc1", nil, chunks)
	if len(doc.GetChunks()) != 0 {
		t.Fatal("expected pending chunks not yet reflected in GetChunks")
	}
	if len(doc.pending) != 2 {
		t.Fatalf("expected 2 pending chunks, got %d", len(doc.pending))
	}
}
