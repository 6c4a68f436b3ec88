package vecindex

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/knn"
	"github.com/fabfab/vectordb/internal/vecdb"
)

const (
	defaultLSHPlanes = 20
	defaultLSHDim    = 1024
)

// LSH buckets embeddings by the sign pattern of their dot product against a
// fixed set of random hyperplanes. Hyperplanes are sampled once at
// construction, so Build is a no-op and the index is searchable
// incrementally, unlike flat_l2 and ivf.
type LSH struct {
	mu sync.RWMutex

	nPlanes int
	planes  [][]float32

	chunks     []*vecdb.Chunk
	embeddings [][]float32
	chunkIdx   *vecdb.NameIndex

	buckets     map[string][]string // hash -> chunk ids, in insertion order
	bucketOrder []string            // first-seen order of hash keys, for tie-breaking
}

// NewLSH returns an LSH index with nPlanes hyperplanes of the given
// dimension, each coordinate an i.i.d. draw from the standard normal
// distribution. Matches spec.md's defaults of n_planes=20, dim=1024 when
// zero values are passed.
func NewLSH(nPlanes, dim int, rng *rand.Rand) *LSH {
	if nPlanes <= 0 {
		nPlanes = defaultLSHPlanes
	}
	if dim <= 0 {
		dim = defaultLSHDim
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	planes := make([][]float32, nPlanes)
	for i := range planes {
		plane := make([]float32, dim)
		for d := 0; d < dim; d++ {
			plane[d] = float32(rng.NormFloat64())
		}
		planes[i] = plane
	}
	return &LSH{
		nPlanes:  nPlanes,
		planes:   planes,
		chunkIdx: vecdb.NewNameIndex(),
		buckets:  make(map[string][]string),
	}
}

func (l *LSH) RequiresBuild() bool { return false }

// TracksDirty is false: bucket membership is maintained incrementally on
// every mutation, so there is nothing for a rebuild to catch up on.
func (l *LSH) TracksDirty() bool { return false }

// Build is a no-op: buckets are maintained incrementally on every mutation.
func (l *LSH) Build(ctx context.Context) error { return nil }

func (l *LSH) hash(vec []float32) string {
	var b strings.Builder
	b.Grow(l.nPlanes)
	for _, plane := range l.planes {
		var dot float32
		n := len(vec)
		if len(plane) < n {
			n = len(plane)
		}
		for d := 0; d < n; d++ {
			dot += vec[d] * plane[d]
		}
		if dot > 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (l *LSH) bucketFor(key string, chunkID string) {
	if _, ok := l.buckets[key]; !ok {
		l.bucketOrder = append(l.bucketOrder, key)
	}
	l.buckets[key] = append(l.buckets[key], chunkID)
}

func (l *LSH) unbucket(key, chunkID string) {
	ids := l.buckets[key]
	for i, id := range ids {
		if id == chunkID {
			l.buckets[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(l.buckets[key]) == 0 {
		delete(l.buckets, key)
		for i, k := range l.bucketOrder {
			if k == key {
				l.bucketOrder = append(l.bucketOrder[:i], l.bucketOrder[i+1:]...)
				break
			}
		}
	}
}

func (l *LSH) Add(ctx context.Context, embedder embeddings.Embedder, chunks []*vecdb.Chunk) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return addEmbedded(ctx, embedder, chunks, func(c *vecdb.Chunk) error {
		if err := l.chunkIdx.Add("LSH.Add", c.ID, len(l.chunks)); err != nil {
			return err
		}
		l.chunks = append(l.chunks, c)
		l.embeddings = append(l.embeddings, c.Embedding)
		l.bucketFor(l.hash(c.Embedding), c.ID)
		return nil
	})
}

func (l *LSH) Remove(chunkID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, err := l.chunkIdx.Search("LSH.Remove", chunkID)
	if err != nil {
		return err
	}
	l.unbucket(l.hash(l.embeddings[pos]), chunkID)
	l.chunks = append(l.chunks[:pos], l.chunks[pos+1:]...)
	l.embeddings = append(l.embeddings[:pos], l.embeddings[pos+1:]...)
	l.chunkIdx.Remove(chunkID, len(l.chunks), func(i int) string { return l.chunks[i].ID })
	return nil
}

func (l *LSH) Update(ctx context.Context, embedder embeddings.Embedder, chunkID, newText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, err := l.chunkIdx.Search("LSH.Update", chunkID)
	if err != nil {
		return err
	}
	vectors, err := embedder.Embed(ctx, []string{newText})
	if err != nil {
		return apperr.Internalf("LSH.Update", chunkID, "re-embed chunk: %w", err)
	}
	oldKey := l.hash(l.embeddings[pos])
	l.unbucket(oldKey, chunkID)

	l.chunks[pos].Text = newText
	l.chunks[pos].Embedding = vectors[0]
	l.embeddings[pos] = vectors[0]

	l.bucketFor(l.hash(vectors[0]), chunkID)
	return nil
}

func hamming(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Search probes the query's own bucket if it holds any members. Otherwise
// it falls back to the union of the 2 nearest-Hamming-distance buckets,
// ties broken by bucket insertion order, and runs the kNN core over the
// union.
func (l *LSH) Search(ctx context.Context, embedder embeddings.Embedder, queryText string, k int) ([]*vecdb.Chunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	vectors, err := embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, apperr.Internalf("LSH.Search", "", "embed query: %w", err)
	}
	query := vectors[0]
	key := l.hash(query)

	var candidateIDs []string
	if ids, ok := l.buckets[key]; ok && len(ids) > 0 {
		candidateIDs = ids
	} else {
		type scoredBucket struct {
			key  string
			dist int
			seq  int
		}
		scored := make([]scoredBucket, len(l.bucketOrder))
		for i, bk := range l.bucketOrder {
			scored[i] = scoredBucket{key: bk, dist: hamming(key, bk), seq: i}
		}
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].dist != scored[j].dist {
				return scored[i].dist < scored[j].dist
			}
			return scored[i].seq < scored[j].seq
		})
		take := 2
		if take > len(scored) {
			take = len(scored)
		}
		for _, sb := range scored[:take] {
			candidateIDs = append(candidateIDs, l.buckets[sb.key]...)
		}
	}

	candidates := make([][]float32, len(candidateIDs))
	resolved := make([]*vecdb.Chunk, len(candidateIDs))
	for i, id := range candidateIDs {
		pos, err := l.chunkIdx.Search("LSH.Search", id)
		if err != nil {
			return nil, err
		}
		candidates[i] = l.embeddings[pos]
		resolved[i] = l.chunks[pos]
	}

	neighbors := knn.Search(query, candidates, k)
	results := make([]*vecdb.Chunk, len(neighbors))
	for i, n := range neighbors {
		results[i] = resolved[n]
	}
	return results, nil
}

func (l *LSH) GetChunks() []*vecdb.Chunk {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*vecdb.Chunk(nil), l.chunks...)
}
