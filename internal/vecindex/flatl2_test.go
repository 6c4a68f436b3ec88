package vecindex

import (
	"context"
	"testing"

	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/vecdb"
)

func TestFlatL2SearchRefusedBeforeBuild(t *testing.T) {
	idx := NewFlatL2()
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunk := vecdb.NewChunk("hello world", map[string]any{"doc_id": "d1"})
	if err := idx.Add(ctx, embedder, []*vecdb.Chunk{chunk}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := idx.Search(ctx, embedder, "hello world", 1); err == nil {
		t.Fatal("expected Search to fail before Build")
	}
}

func TestFlatL2SearchFindsExactMatch(t *testing.T) {
	idx := NewFlatL2()
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunks := []*vecdb.Chunk{
		vecdb.NewChunk("apples are red", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("the sky is blue", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("oceans are deep", map[string]any{"doc_id": "d1"}),
	}
	if err := idx.Add(ctx, embedder, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	results, err := idx.Search(ctx, embedder, "the sky is blue", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != chunks[1].ID {
		t.Fatalf("expected nearest match to be chunk %q, got %+v", chunks[1].ID, results)
	}
}

func TestFlatL2RemoveExcludesFromSearch(t *testing.T) {
	idx := NewFlatL2()
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunks := []*vecdb.Chunk{
		vecdb.NewChunk("chunk one", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("chunk two", map[string]any{"doc_id": "d1"}),
	}
	if err := idx.Add(ctx, embedder, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Remove(chunks[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := idx.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := idx.GetChunks()
	if len(got) != 1 || got[0].ID != chunks[1].ID {
		t.Fatalf("expected only chunk two to remain, got %+v", got)
	}

	results, err := idx.Search(ctx, embedder, "chunk one", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != chunks[1].ID {
		t.Fatalf("expected search to return only chunk two, got %+v", results)
	}
}

func TestFlatL2UpdateReembeds(t *testing.T) {
	idx := NewFlatL2()
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunk := vecdb.NewChunk("original text", map[string]any{"doc_id": "d1"})
	if err := idx.Add(ctx, embedder, []*vecdb.Chunk{chunk}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	originalEmbedding := append([]float32(nil), chunk.Embedding...)

	if err := idx.Update(ctx, embedder, chunk.ID, "a totally different sentence"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := idx.GetChunks()[0]
	if got.Text != "a totally different sentence" {
		t.Fatalf("expected text updated, got %q", got.Text)
	}
	same := true
	for i := range originalEmbedding {
		if got.Embedding[i] != originalEmbedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected embedding to change after text update")
	}
}
