package mesh

import (
	"fmt"
	"iter"
	"slices"
)

// Index is the sparse set of existing blocks, mapping each GlobalID to the
// application's LocalID. Iteration order is unspecified.
type Index struct {
	blocks map[GlobalID]LocalID
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{blocks: make(map[GlobalID]LocalID)}
}

// Get returns the handle of id, or InvalidLocalID when the block is absent.
func (x *Index) Get(id GlobalID) LocalID {
	if h, ok := x.blocks[id]; ok {
		return h
	}
	return InvalidLocalID
}

// Has reports whether id exists.
func (x *Index) Has(id GlobalID) bool {
	_, ok := x.blocks[id]
	return ok
}

// Set replaces the handle of an existing block.
func (x *Index) Set(id GlobalID, h LocalID) error {
	if _, ok := x.blocks[id]; !ok {
		return fmt.Errorf("set %d: %w", id, ErrBlockNotFound)
	}
	x.blocks[id] = h
	return nil
}

// Len returns the number of existing blocks.
func (x *Index) Len() int { return len(x.blocks) }

// All yields every (GlobalID, LocalID) pair. Each call starts a fresh pass.
func (x *Index) All() iter.Seq2[GlobalID, LocalID] {
	return func(yield func(GlobalID, LocalID) bool) {
		for id, h := range x.blocks {
			if !yield(id, h) {
				return
			}
		}
	}
}

// ForEach calls fn for every existing block.
func (x *Index) ForEach(fn func(id GlobalID, h LocalID)) {
	for id, h := range x.blocks {
		fn(id, h)
	}
}

// IDs returns the existing identifiers in ascending order.
func (x *Index) IDs() []GlobalID {
	ids := make([]GlobalID, 0, len(x.blocks))
	for id := range x.blocks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (x *Index) insert(id GlobalID, h LocalID) {
	x.blocks[id] = h
}

func (x *Index) remove(id GlobalID) bool {
	if _, ok := x.blocks[id]; !ok {
		return false
	}
	delete(x.blocks, id)
	return true
}

func (x *Index) reset() {
	clear(x.blocks)
}
