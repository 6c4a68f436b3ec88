package vecindex

import (
	"context"
	"math/rand"
	"testing"

	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/vecdb"
)

func TestIVFDefaultsAppliedForZeroValues(t *testing.T) {
	idx := NewIVF(0, 0, nil)
	if idx.nClusters != defaultIVFClusters {
		t.Fatalf("expected default n_clusters %d, got %d", defaultIVFClusters, idx.nClusters)
	}
	if idx.nIter != defaultIVFIters {
		t.Fatalf("expected default n_iter %d, got %d", defaultIVFIters, idx.nIter)
	}
}

func TestIVFSearchRefusedBeforeBuild(t *testing.T) {
	idx := NewIVF(2, 10, rand.New(rand.NewSource(1)))
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

func TestIVFBuildClustersAllEmbeddings(t *testing.T) {
	idx := NewIVF(2, 20, rand.New(rand.NewSource(42)))
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	var chunks []*vecdb.Chunk
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		chunks = append(chunks, vecdb.NewChunk(text, map[string]any{"doc_id": "d1"}))
	}
	if err := idx.Add(ctx, embedder, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	total := 0
	for _, members := range idx.clusters {
		total += len(members)
	}
	if total != len(chunks) {
		t.Fatalf("expected every embedding assigned to exactly one cluster, got %d of %d", total, len(chunks))
	}
}

func TestIVFSearchFindsExactMatchWithinItsCluster(t *testing.T) {
	idx := NewIVF(2, 20, rand.New(rand.NewSource(7)))
	embedder := embeddings.NewFake(8)
	ctx := context.Background()

	chunks := []*vecdb.Chunk{
		vecdb.NewChunk("apples are red", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("the sky is blue", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("oceans are deep", map[string]any{"doc_id": "d1"}),
		vecdb.NewChunk("grass is green", map[string]any{"doc_id": "d1"}),
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
		t.Fatalf("expected exact match for identical text, got %+v", results)
	}
}

func TestIVFRemoveBetweenBuildsDropsFromGetChunks(t *testing.T) {
	idx := NewIVF(2, 10, rand.New(rand.NewSource(3)))
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
	got := idx.GetChunks()
	if len(got) != 1 || got[0].ID != chunks[1].ID {
		t.Fatalf("expected only chunk two to remain, got %+v", got)
	}
}
