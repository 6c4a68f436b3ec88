// Package vecindex implements the three interchangeable vector search
// strategies behind vecdb.Index: flat_l2 (exhaustive exact), ivf
// (k-means-clustered, approximate), and lsh (random-hyperplane hashing).
package vecindex

import (
	"context"
	"sync"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/knn"
	"github.com/fabfab/vectordb/internal/vecdb"
)

// FlatL2 stores every embedding in insertion order and searches the full
// vector space on every query: exact, deterministic, O(n*d) per search.
type FlatL2 struct {
	mu sync.RWMutex

	chunks     []*vecdb.Chunk
	embeddings [][]float32
	chunkIdx   *vecdb.NameIndex

	// snapshot is the matrix captured by Build. Until the first Build,
	// search is refused (RequiresBuild); after it, search runs the kNN core
	// over the live embedding set, so later mutations are searchable at once.
	snapshot [][]float32
	built    bool
}

// NewFlatL2 returns an empty FlatL2 index.
func NewFlatL2() *FlatL2 {
	return &FlatL2{chunkIdx: vecdb.NewNameIndex()}
}

func (f *FlatL2) RequiresBuild() bool { return true }

// TracksDirty is false: once built, flat_l2 always searches its live
// embedding set, so a later mutation never invalidates it the way ivf's
// clustering goes stale.
func (f *FlatL2) TracksDirty() bool { return false }

func (f *FlatL2) Add(ctx context.Context, embedder embeddings.Embedder, chunks []*vecdb.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return addEmbedded(ctx, embedder, chunks, func(c *vecdb.Chunk) error {
		if err := f.chunkIdx.Add("FlatL2.Add", c.ID, len(f.chunks)); err != nil {
			return err
		}
		f.chunks = append(f.chunks, c)
		f.embeddings = append(f.embeddings, c.Embedding)
		return nil
	})
}

func (f *FlatL2) Remove(chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, err := f.chunkIdx.Search("FlatL2.Remove", chunkID)
	if err != nil {
		return err
	}
	f.chunks = append(f.chunks[:pos], f.chunks[pos+1:]...)
	f.embeddings = append(f.embeddings[:pos], f.embeddings[pos+1:]...)
	f.chunkIdx.Remove(chunkID, len(f.chunks), func(i int) string { return f.chunks[i].ID })
	return nil
}

func (f *FlatL2) Update(ctx context.Context, embedder embeddings.Embedder, chunkID, newText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, err := f.chunkIdx.Search("FlatL2.Update", chunkID)
	if err != nil {
		return err
	}
	vectors, err := embedder.Embed(ctx, []string{newText})
	if err != nil {
		return apperr.Internalf("FlatL2.Update", chunkID, "re-embed chunk: %w", err)
	}
	f.chunks[pos].Text = newText
	f.chunks[pos].Embedding = vectors[0]
	f.embeddings[pos] = vectors[0]
	return nil
}

// Build snapshots the current embedding matrix and enables search.
func (f *FlatL2) Build(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = append([][]float32(nil), f.embeddings...)
	f.built = true
	return nil
}

func (f *FlatL2) Search(ctx context.Context, embedder embeddings.Embedder, queryText string, k int) ([]*vecdb.Chunk, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.built {
		return nil, apperr.Internalf("FlatL2.Search", "", "build() has not been called")
	}
	vectors, err := embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, apperr.Internalf("FlatL2.Search", "", "embed query: %w", err)
	}
	positions := knn.Search(vectors[0], f.embeddings, k)
	results := make([]*vecdb.Chunk, len(positions))
	for i, pos := range positions {
		results[i] = f.chunks[pos]
	}
	return results, nil
}

func (f *FlatL2) GetChunks() []*vecdb.Chunk {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*vecdb.Chunk(nil), f.chunks...)
}

// addEmbedded is shared by every strategy's Add: it embeds (in one batched
// call) any chunk missing a vector, then installs each chunk via install.
func addEmbedded(ctx context.Context, embedder embeddings.Embedder, chunks []*vecdb.Chunk, install func(*vecdb.Chunk) error) error {
	var toEmbed []*vecdb.Chunk
	for _, c := range chunks {
		if c.Embedding == nil {
			toEmbed = append(toEmbed, c)
		}
	}
	if len(toEmbed) > 0 {
		texts := make([]string, len(toEmbed))
		for i, c := range toEmbed {
			texts[i] = c.Text
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return apperr.Internalf("VectorIndex.Add", "", "embed batch: %w", err)
		}
		for i, c := range toEmbed {
			c.Embedding = vectors[i]
		}
	}
	for _, c := range chunks {
		if err := install(c); err != nil {
			return err
		}
	}
	return nil
}
