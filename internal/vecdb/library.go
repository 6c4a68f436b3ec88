package vecdb

import (
	"context"
	"sync"

	"github.com/fabfab/vectordb/internal/apperr"
	"github.com/fabfab/vectordb/internal/embeddings"
)

// Index is the uniform contract every vector search strategy (flat_l2,
// ivf, lsh) satisfies. It lives in package vecindex; Library only depends
// on this local interface to avoid an import cycle (vecindex.Index
// operates on *vecdb.Chunk).
type Index interface {
	Add(ctx context.Context, embedder embeddings.Embedder, chunks []*Chunk) error
	Remove(chunkID string) error
	Update(ctx context.Context, embedder embeddings.Embedder, chunkID, newText string) error
	Build(ctx context.Context) error
	Search(ctx context.Context, embedder embeddings.Embedder, queryText string, k int) ([]*Chunk, error)
	GetChunks() []*Chunk
	RequiresBuild() bool
	// TracksDirty reports whether mutations after a build move the library
	// from Ready to Dirty (true only for ivf: its clustering goes stale).
	// flat_l2 and lsh keep serving Ready off their live state and never
	// go Dirty, even though flat_l2 still gates its very first search on
	// RequiresBuild.
	TracksDirty() bool
}

// Library owns its documents and a single vector index, and exposes the
// only public mutation API over chunks: every cross-reference (doc
// name/id -> position, chunk id -> doc id) is updated here so the two
// views never drift apart.
type Library struct {
	Name     string
	Metadata map[string]any

	mu sync.RWMutex

	documents    []*Document
	docNameIdx   *NameIndex
	docIDIdx     *NameIndex
	chunkToDocID map[string]string

	index     Index
	embedder  embeddings.Embedder
	dirty     bool
	everBuilt bool
}

// State names the library's search-readiness state machine (spec.md §4.5).
type State int

const (
	Uninitialized State = iota
	Empty
	Ready
	Dirty
)

// IndexState reports the library's current position in the readiness
// state machine.
func (l *Library) IndexState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.index == nil:
		return Uninitialized
	case l.dirty:
		return Dirty
	case l.everBuilt:
		return Ready
	default:
		return Empty
	}
}

// NewLibrary constructs an empty Library. embedder is the remote
// embedding provider used for every chunk/query that needs one; it is
// fixed for the library's lifetime.
func NewLibrary(name string, metadata map[string]any, embedder embeddings.Embedder) *Library {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Library{
		Name:         name,
		Metadata:     metadata,
		docNameIdx:   NewNameIndex(),
		docIDIdx:     NewNameIndex(),
		chunkToDocID: make(map[string]string),
		embedder:     embedder,
	}
}

// AddVectorSearchIndex attaches idx as this library's vector index. This
// is the Uninitialized -> Empty transition of the readiness state
// machine; idx is expected to start out empty.
func (l *Library) AddVectorSearchIndex(idx Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index = idx
	l.dirty = false
	l.everBuilt = false
}

// HasIndex reports whether a vector index has been attached.
func (l *Library) HasIndex() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index != nil
}

// AddDocument appends doc to the library. Fails with Duplicate if
// doc.Name already exists. If doc arrives preloaded with chunks (e.g.
// constructed and populated by the caller before insertion), those chunks
// are inserted via AddChunks under the same atomicity rules.
func (l *Library) AddDocument(ctx context.Context, doc *Document) error {
	l.mu.Lock()
	preloaded := doc.pending
	doc.pending = nil
	if err := l.addDocumentLocked(doc); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	if len(preloaded) > 0 {
		return l.AddChunks(ctx, preloaded)
	}
	return nil
}

func (l *Library) addDocumentLocked(doc *Document) error {
	if err := l.docNameIdx.Add("Library.AddDocument", doc.Name, len(l.documents)); err != nil {
		return err
	}
	// doc.ID is a freshly generated uuid, so this can't actually collide;
	// guard it anyway and undo the name-index insert if it ever does.
	if err := l.docIDIdx.Add("Library.AddDocument", doc.ID, len(l.documents)); err != nil {
		l.docNameIdx.Remove(doc.Name, len(l.documents), func(i int) string { return l.documents[i].Name })
		return err
	}
	l.documents = append(l.documents, doc)
	return nil
}

// GetDocument resolves a document by exactly one of name or id.
// InvalidArgument if both or neither are provided; NotFound otherwise.
func (l *Library) GetDocument(name, id string) (*Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getDocumentLocked(name, id)
}

func (l *Library) getDocumentLocked(name, id string) (*Document, error) {
	if name != "" && id != "" {
		return nil, apperr.InvalidArgumentf("Library.GetDocument", "", "only one of name or id may be provided")
	}
	if name == "" && id == "" {
		return nil, apperr.InvalidArgumentf("Library.GetDocument", "", "one of name or id must be provided")
	}
	if id != "" {
		pos, err := l.docIDIdx.Search("Library.GetDocument", id)
		if err != nil {
			return nil, err
		}
		return l.documents[pos], nil
	}
	pos, err := l.docNameIdx.Search("Library.GetDocument", name)
	if err != nil {
		return nil, err
	}
	return l.documents[pos], nil
}

// GetDocuments returns every document in the library, in order.
func (l *Library) GetDocuments() []*Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Document(nil), l.documents...)
}

// RemoveDocument deletes the document with the given id, cascading the
// removal of every chunk it owns (and therefore their presence in the
// vector index), then rebuilds both the name and id document indices.
func (l *Library) RemoveDocument(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.docIDIdx.Search("Library.RemoveDocument", id)
	if err != nil {
		return err
	}
	doc := l.documents[pos]

	for _, chunk := range append([]*Chunk(nil), doc.GetChunks()...) {
		if err := l.removeChunkLocked(chunk.ID); err != nil {
			return err
		}
	}

	l.documents = append(l.documents[:pos], l.documents[pos+1:]...)
	l.docNameIdx.Remove(doc.Name, len(l.documents), func(i int) string { return l.documents[i].Name })
	l.docIDIdx.Remove(doc.ID, len(l.documents), func(i int) string { return l.documents[i].ID })
	return nil
}

// AddChunks is an atomic group insertion: every chunk's "doc_id" metadata
// is resolved to its owning document and the chunk appended there. On the
// first failure (unknown doc_id, or a duplicate chunk id), every chunk
// already added during this call is rolled back before the original error
// is returned — so either every chunk in the batch lands, or none do.
func (l *Library) AddChunks(ctx context.Context, chunks []*Chunk) error {
	l.mu.Lock()

	added := make([]*Chunk, 0, len(chunks))
	var failure error

	for _, chunk := range chunks {
		docID := chunk.DocID()
		doc, err := l.getDocumentLocked("", docID)
		if err != nil {
			failure = apperr.NotFoundf("Library.AddChunks", docID, "document %q does not exist", docID)
			break
		}
		if _, exists := l.chunkToDocID[chunk.ID]; exists {
			failure = apperr.Duplicatef("Library.AddChunks", chunk.ID, "chunk %q already exists", chunk.ID)
			break
		}
		if err := doc.AddChunk(chunk); err != nil {
			failure = apperr.Duplicatef("Library.AddChunks", chunk.ID, "chunk %q already exists", chunk.ID)
			break
		}
		l.chunkToDocID[chunk.ID] = doc.ID
		added = append(added, chunk)
	}

	if failure != nil {
		for _, chunk := range added {
			_ = l.removeChunkLocked(chunk.ID)
		}
		l.mu.Unlock()
		return failure
	}

	if l.index == nil || len(added) == 0 {
		l.mu.Unlock()
		return nil
	}
	if err := l.index.Add(ctx, l.embedder, added); err != nil {
		for _, chunk := range added {
			_ = l.removeChunkLocked(chunk.ID)
		}
		l.mu.Unlock()
		return apperr.Internalf("Library.AddChunks", "", "embed batch: %w", err)
	}

	l.markDirtyLocked()
	l.mu.Unlock()
	return nil
}

// GetChunk resolves a chunk by id via the chunk-to-document map.
// NotFound if the chunk is unknown.
func (l *Library) GetChunk(chunkID string) (*Chunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getChunkLocked(chunkID)
}

func (l *Library) getChunkLocked(chunkID string) (*Chunk, error) {
	docID, ok := l.chunkToDocID[chunkID]
	if !ok {
		return nil, apperr.NotFoundf("Library.GetChunk", chunkID, "chunk %q not found", chunkID)
	}
	doc, err := l.getDocumentLocked("", docID)
	if err != nil {
		return nil, err
	}
	return doc.GetChunk(chunkID)
}

// GetChunks returns every chunk in the library. If a vector index is
// attached, it is the source of truth (one copy of its chunk list);
// otherwise every document is walked.
func (l *Library) GetChunks() []*Chunk {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.index != nil {
		return l.index.GetChunks()
	}
	var chunks []*Chunk
	for _, doc := range l.documents {
		chunks = append(chunks, doc.GetChunks()...)
	}
	return chunks
}

// UpdateChunk re-texts a chunk (and re-embeds it, if it already had an
// embedding) and propagates the change to the vector index so both views
// stay in sync.
func (l *Library) UpdateChunk(ctx context.Context, chunkID, text string) (*Chunk, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	docID, ok := l.chunkToDocID[chunkID]
	if !ok {
		return nil, apperr.NotFoundf("Library.UpdateChunk", chunkID, "chunk %q not found", chunkID)
	}
	doc, err := l.getDocumentLocked("", docID)
	if err != nil {
		return nil, err
	}
	chunk, err := doc.UpdateChunkText(ctx, l.embedder, chunkID, text)
	if err != nil {
		return nil, err
	}

	if l.index != nil {
		if err := l.index.Update(ctx, l.embedder, chunkID, text); err != nil {
			return nil, apperr.Internalf("Library.UpdateChunk", chunkID, "update vector index: %w", err)
		}
		l.markDirtyLocked()
	}

	return chunk, nil
}

// RemoveChunk deletes a chunk from its owning document and from the
// vector index.
func (l *Library) RemoveChunk(chunkID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeChunkLocked(chunkID)
}

func (l *Library) removeChunkLocked(chunkID string) error {
	docID, ok := l.chunkToDocID[chunkID]
	if !ok {
		return apperr.NotFoundf("Library.RemoveChunk", chunkID, "chunk %q not found", chunkID)
	}
	delete(l.chunkToDocID, chunkID)

	doc, err := l.getDocumentLocked("", docID)
	if err != nil {
		return err
	}
	if err := doc.RemoveChunk(chunkID); err != nil {
		return err
	}

	if l.index != nil {
		if err := l.index.Remove(chunkID); err != nil {
			// The chunk may never have reached the index (e.g. rollback of a
			// chunk whose index.Add step hadn't run yet); that's not a failure
			// of RemoveChunk itself.
			if kind, ok := apperr.KindOf(err); !ok || kind != apperr.NotFound {
				return apperr.Internalf("Library.RemoveChunk", chunkID, "remove from vector index: %w", err)
			}
		}
		l.markDirtyLocked()
	}
	return nil
}

// BuildIndex materializes whatever auxiliary structure the attached
// strategy requires (may be a no-op for incremental strategies like lsh).
func (l *Library) BuildIndex(ctx context.Context) error {
	l.mu.Lock()
	index := l.index
	l.mu.Unlock()

	if index == nil {
		return apperr.Internalf("Library.BuildIndex", l.Name, "no vector index attached")
	}
	if err := index.Build(ctx); err != nil {
		return apperr.Internalf("Library.BuildIndex", l.Name, "build index: %w", err)
	}

	l.mu.Lock()
	l.dirty = false
	l.everBuilt = true
	l.mu.Unlock()
	return nil
}

// Search passes a query through to the vector index and returns chunks,
// not positions. Fails with Internal if the strategy requires a prior
// Build that hasn't happened yet.
func (l *Library) Search(ctx context.Context, query string, k int) ([]*Chunk, error) {
	l.mu.RLock()
	index := l.index
	neverBuilt := index != nil && index.RequiresBuild() && !l.everBuilt
	l.mu.RUnlock()

	if index == nil {
		return nil, apperr.Internalf("Library.Search", l.Name, "no vector index attached")
	}
	if neverBuilt {
		return nil, apperr.Internalf("Library.Search", l.Name, "index requires build() before search")
	}
	return index.Search(ctx, l.embedder, query, k)
}

// markDirtyLocked transitions Ready -> Dirty for strategies whose built
// structure goes stale on mutation (TracksDirty, i.e. ivf); the others
// (flat_l2, lsh) stay Ready -> Ready. Before the first build it does
// nothing, so a library that was never built stays Empty.
func (l *Library) markDirtyLocked() {
	if l.everBuilt && l.index != nil && l.index.TracksDirty() {
		l.dirty = true
	}
}

// everBuilt and dirty jointly track the readiness state machine from
// spec.md §4.5: Uninitialized (index == nil) -> Empty (index attached,
// never built) -> Ready (built) -> Dirty (mutated since build, only for
// strategies where TracksDirty()) -> Ready (rebuilt).
