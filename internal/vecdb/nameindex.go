package vecdb

import "github.com/fabfab/vectordb/internal/apperr"

// NameIndex is a bidirectional map from an external identifier to a
// position in a sibling positional sequence. Lookup is O(1); removal
// rebuilds the whole map, which is O(n) but keeps retrieval O(1) — the
// right tradeoff for a read-heavy workload.
type NameIndex struct {
	index map[string]int
}

// NewNameIndex returns an empty NameIndex.
func NewNameIndex() *NameIndex {
	return &NameIndex{index: make(map[string]int)}
}

// Add records that id lives at position pos. It fails with Duplicate if id
// is already indexed.
func (n *NameIndex) Add(op, id string, pos int) error {
	if _, ok := n.index[id]; ok {
		return apperr.Duplicatef(op, id, "identifier %q already indexed", id)
	}
	n.index[id] = pos
	return nil
}

// Search returns the position of id, or NotFound.
func (n *NameIndex) Search(op, id string) (int, error) {
	pos, ok := n.index[id]
	if !ok {
		return 0, apperr.NotFoundf(op, id, "identifier %q not found", id)
	}
	return pos, nil
}

// Has reports whether id is indexed, without erroring.
func (n *NameIndex) Has(id string) bool {
	_, ok := n.index[id]
	return ok
}

// Len returns the number of indexed identifiers.
func (n *NameIndex) Len() int {
	return len(n.index)
}

// Remove deletes id from the index, then rebuilds the whole map from
// sequence using keyOf to derive each remaining element's identifier. The
// caller must have already removed the corresponding element from
// sequence before calling Remove, so the rebuild reflects the post-removal
// state.
func (n *NameIndex) Remove(id string, length int, keyOf func(i int) string) {
	delete(n.index, id)
	n.Rebuild(length, keyOf)
}

// Rebuild discards the current map and recomputes it from scratch over a
// sequence of the given length, using keyOf(i) to obtain the identifier of the
// element at position i. Idempotent.
func (n *NameIndex) Rebuild(length int, keyOf func(i int) string) {
	rebuilt := make(map[string]int, length)
	for i := 0; i < length; i++ {
		rebuilt[keyOf(i)] = i
	}
	n.index = rebuilt
}
