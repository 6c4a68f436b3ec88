package vecindex

import (
	"context"
	"math/rand"
	"testing"

	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/vecdb"
)

func TestLSHRequiresBuildIsFalse(t *testing.T) {
	idx := NewLSH(0, 0, nil)
	if idx.RequiresBuild() {
		t.Fatal("LSH must be searchable without a build step")
	}
}

func TestLSHBuildIsNoop(t *testing.T) {
	idx := NewLSH(0, 0, nil)
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestLSHHashIsStableForIdenticalVector(t *testing.T) {
	idx := NewLSH(8, 8, rand.New(rand.NewSource(1)))
	vec := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	if idx.hash(vec) != idx.hash(vec) {
		t.Fatal("hashing the same vector twice must produce the same bucket key")
	}
}

func TestLSHSearchFindsExactMatchInOwnBucket(t *testing.T) {
	idx := NewLSH(8, 8, rand.New(rand.NewSource(5)))
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

	results, err := idx.Search(ctx, embedder, "the sky is blue", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != chunks[1].ID {
		t.Fatalf("expected exact match for identical text, got %+v", results)
	}
}

func TestLSHSearchFallsBackToNearestBucketsWhenOwnIsEmpty(t *testing.T) {
	idx := NewLSH(8, 8, rand.New(rand.NewSource(9)))
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunks := []*vecdb.Chunk{
		vecdb.NewChunk("alpha chunk", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("beta chunk", map[string]any{"doc_id": "d1"}),
	}
	if err := idx.Add(ctx, embedder, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := idx.Search(ctx, embedder, "a query that hashes elsewhere", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected fallback search to still return neighbors from nearby buckets")
	}
}

func TestLSHRemoveEmptiesBucketAndDropsOrderEntry(t *testing.T) {
	idx := NewLSH(8, 8, rand.New(rand.NewSource(2)))
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunk := vecdb.NewChunk("solo chunk", map[string]any{"doc_id": "d1"})
	if err := idx.Add(ctx, embedder, []*vecdb.Chunk{chunk}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Remove(chunk.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(idx.buckets) != 0 || len(idx.bucketOrder) != 0 {
		t.Fatalf("expected bucket bookkeeping emptied after removing sole member, got buckets=%v order=%v", idx.buckets, idx.bucketOrder)
	}
}

func TestLSHUpdateMovesChunkToNewBucket(t *testing.T) {
	idx := NewLSH(8, 8, rand.New(rand.NewSource(4)))
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunk := vecdb.NewChunk("original text here", map[string]any{"doc_id": "d1"})
	if err := idx.Add(ctx, embedder, []*vecdb.Chunk{chunk}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	oldKey := idx.hash(chunk.Embedding)

	if err := idx.Update(ctx, embedder, chunk.ID, "a wildly different sentence entirely"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if ids, ok := idx.buckets[oldKey]; ok {
		for _, id := range ids {
			if id == chunk.ID {
				t.Fatal("expected chunk removed from its old bucket after update")
			}
		}
	}
	newKey := idx.hash(chunk.Embedding)
	found := false
	for _, id := range idx.buckets[newKey] {
		if id == chunk.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected chunk present in its new bucket after update")
	}
}
