package vecindex

import (
	"context"
	"math/rand"
	"sync"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/knn"
	"github.com/fabfab/vectordb/internal/vecdb"
)

const (
	defaultIVFClusters = 2
	defaultIVFIters    = 100
)

// IVF is an inverted-file index: k-means partitions the embedding space at
// Build time, and search probes only the single nearest cluster.
// Approximate by construction; mutations between builds touch only the
// raw embedding list, so recall after an unbuilt mutation reflects the
// last build's clustering until BuildIndex runs again.
type IVF struct {
	mu sync.RWMutex

	nClusters int
	nIter     int

	chunks     []*vecdb.Chunk
	embeddings [][]float32
	chunkIdx   *vecdb.NameIndex

	clusterCenters [][]float32
	clusters       map[int][]int // cluster id -> positions into embeddings/chunks, assigned at last build and shifted by Remove
	rng            *rand.Rand
}

// NewIVF returns an IVF index with the given cluster count and k-means
// iteration budget, matching spec.md's defaults of n_clusters=2,
// n_iter=100 when zero values are passed.
func NewIVF(nClusters, nIter int, rng *rand.Rand) *IVF {
	if nClusters <= 0 {
		nClusters = defaultIVFClusters
	}
	if nIter <= 0 {
		nIter = defaultIVFIters
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &IVF{
		nClusters: nClusters,
		nIter:     nIter,
		chunkIdx:  vecdb.NewNameIndex(),
		rng:       rng,
	}
}

func (idx *IVF) RequiresBuild() bool { return true }

// TracksDirty is true: a mutation after Build changes the raw embedding
// list without re-clustering, so the library moves Ready -> Dirty until
// BuildIndex runs again.
func (idx *IVF) TracksDirty() bool { return true }

func (idx *IVF) Add(ctx context.Context, embedder embeddings.Embedder, chunks []*vecdb.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return addEmbedded(ctx, embedder, chunks, func(c *vecdb.Chunk) error {
		if err := idx.chunkIdx.Add("IVF.Add", c.ID, len(idx.chunks)); err != nil {
			return err
		}
		idx.chunks = append(idx.chunks, c)
		idx.embeddings = append(idx.embeddings, c.Embedding)
		return nil
	})
}

func (idx *IVF) Remove(chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	pos, err := idx.chunkIdx.Search("IVF.Remove", chunkID)
	if err != nil {
		return err
	}
	idx.chunks = append(idx.chunks[:pos], idx.chunks[pos+1:]...)
	idx.embeddings = append(idx.embeddings[:pos], idx.embeddings[pos+1:]...)
	idx.chunkIdx.Remove(chunkID, len(idx.chunks), func(i int) string { return idx.chunks[i].ID })
	for c, members := range idx.clusters {
		kept := members[:0]
		for _, m := range members {
			switch {
			case m < pos:
				kept = append(kept, m)
			case m > pos:
				kept = append(kept, m-1)
			}
		}
		idx.clusters[c] = kept
	}
	return nil
}

func (idx *IVF) Update(ctx context.Context, embedder embeddings.Embedder, chunkID, newText string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	pos, err := idx.chunkIdx.Search("IVF.Update", chunkID)
	if err != nil {
		return err
	}
	vectors, err := embedder.Embed(ctx, []string{newText})
	if err != nil {
		return apperr.Internalf("IVF.Update", chunkID, "re-embed chunk: %w", err)
	}
	idx.chunks[pos].Text = newText
	idx.chunks[pos].Embedding = vectors[0]
	idx.embeddings[pos] = vectors[0]
	return nil
}

// Build runs k-means over the current embedding set and materializes
// cluster assignments. Initialization samples each cluster center
// coordinate uniformly in [min_i, max_i] across the embedding set; each
// iteration assigns every embedding to its nearest center (ties broken by
// lowest cluster index) then recomputes centers as the mean of their
// assignees, leaving centers with no assignees unchanged.
func (idx *IVF) Build(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.embeddings) == 0 {
		idx.clusterCenters = nil
		idx.clusters = map[int][]int{}
		return nil
	}

	centers := idx.initializeCenters()
	var assignments []int
	for iter := 0; iter < idx.nIter; iter++ {
		assignments = idx.assignClusters(centers)
		centers = idx.updateCenters(centers, assignments)
	}

	idx.clusterCenters = centers
	idx.clusters = make(map[int][]int, idx.nClusters)
	for c := 0; c < idx.nClusters; c++ {
		idx.clusters[c] = nil
	}
	for pos, c := range assignments {
		idx.clusters[c] = append(idx.clusters[c], pos)
	}
	return nil
}

func (idx *IVF) initializeCenters() [][]float32 {
	dim := len(idx.embeddings[0])
	mins := make([]float32, dim)
	maxs := make([]float32, dim)
	copy(mins, idx.embeddings[0])
	copy(maxs, idx.embeddings[0])
	for _, emb := range idx.embeddings[1:] {
		for d := 0; d < dim; d++ {
			if emb[d] < mins[d] {
				mins[d] = emb[d]
			}
			if emb[d] > maxs[d] {
				maxs[d] = emb[d]
			}
		}
	}

	centers := make([][]float32, idx.nClusters)
	for c := 0; c < idx.nClusters; c++ {
		center := make([]float32, dim)
		for d := 0; d < dim; d++ {
			center[d] = mins[d] + float32(idx.rng.Float64())*(maxs[d]-mins[d])
		}
		centers[c] = center
	}
	return centers
}

func (idx *IVF) assignClusters(centers [][]float32) []int {
	assignments := make([]int, len(idx.embeddings))
	for i, emb := range idx.embeddings {
		best := 0
		bestDist := knn.SquaredL2(emb, centers[0])
		for c := 1; c < len(centers); c++ {
			d := knn.SquaredL2(emb, centers[c])
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		assignments[i] = best
	}
	return assignments
}

func (idx *IVF) updateCenters(previous [][]float32, assignments []int) [][]float32 {
	dim := len(idx.embeddings[0])
	sums := make([][]float32, idx.nClusters)
	counts := make([]int, idx.nClusters)
	for c := range sums {
		sums[c] = make([]float32, dim)
	}
	for i, emb := range idx.embeddings {
		c := assignments[i]
		counts[c]++
		for d := 0; d < dim; d++ {
			sums[c][d] += emb[d]
		}
	}

	newCenters := make([][]float32, idx.nClusters)
	for c := 0; c < idx.nClusters; c++ {
		if counts[c] == 0 {
			newCenters[c] = previous[c]
			continue
		}
		center := make([]float32, dim)
		for d := 0; d < dim; d++ {
			center[d] = sums[c][d] / float32(counts[c])
		}
		newCenters[c] = center
	}
	return newCenters
}

// Search picks the single nearest cluster center to the query, then runs
// the kNN core over that cluster's members only.
func (idx *IVF) Search(ctx context.Context, embedder embeddings.Embedder, queryText string, k int) ([]*vecdb.Chunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.clusterCenters == nil {
		return nil, apperr.Internalf("IVF.Search", "", "build() has not been called")
	}
	vectors, err := embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, apperr.Internalf("IVF.Search", "", "embed query: %w", err)
	}
	query := vectors[0]

	best := 0
	bestDist := knn.SquaredL2(query, idx.clusterCenters[0])
	for c := 1; c < len(idx.clusterCenters); c++ {
		d := knn.SquaredL2(query, idx.clusterCenters[c])
		if d < bestDist {
			bestDist = d
			best = c
		}
	}

	members := idx.clusters[best]
	candidates := make([][]float32, len(members))
	for i, pos := range members {
		candidates[i] = idx.embeddings[pos]
	}

	neighbors := knn.Search(query, candidates, k)
	results := make([]*vecdb.Chunk, len(neighbors))
	for i, n := range neighbors {
		results[i] = idx.chunks[members[n]]
	}
	return results, nil
}

func (idx *IVF) GetChunks() []*vecdb.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*vecdb.Chunk(nil), idx.chunks...)
}
