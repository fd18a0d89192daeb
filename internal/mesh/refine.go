package mesh

import "fmt"

// Refine replaces the existing block id with its 8 children, then refines
// any coarser neighbor needed to keep adjacent blocks within one level of
// each other. Each cascaded refinement invokes the refine hook separately.
// The cascade terminates because every step moves one level coarser.
func (m *Mesh) Refine(id GlobalID) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	h, ok := m.index.blocks[id]
	if !ok {
		return fmt.Errorf("refine %d: %w", id, ErrBlockNotFound)
	}
	c := m.codec.decode(id)
	if c.Level == m.layout.MaxLevel {
		return fmt.Errorf("refine %d at level %d: %w", id, c.Level, ErrAtMaxLevel)
	}

	nbrs := m.codec.Neighbors(id)
	var children [8]GlobalID
	copy(children[:], m.codec.Children(id))

	handles := m.cb.RefineBlock(id, h, children)
	for n, ch := range handles {
		if ch == InvalidLocalID {
			return fmt.Errorf("refine %d child %d: %w", id, n, ErrInvalidHandle)
		}
	}

	m.index.remove(id)
	for n, child := range children {
		m.index.insert(child, handles[n])
	}

	for _, nbr := range nbrs {
		parent := m.codec.Parent(nbr)
		if parent == nbr || !m.index.Has(parent) {
			continue
		}
		m.log.Debug("balance cascade", "trigger", id, "refine", parent)
		if err := m.Refine(parent); err != nil {
			return fmt.Errorf("balance after refining %d: %w", id, err)
		}
	}
	return nil
}

// Coarsen replaces the sibling group containing id with its parent. It is
// rejected, leaving the mesh untouched, when id does not exist, sits on the
// base level, any sibling is missing, or a block surrounding the group is
// refined so that coarsening would leave a two-level jump.
func (m *Mesh) Coarsen(id GlobalID) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if !m.index.Has(id) {
		return fmt.Errorf("coarsen %d: %w", id, ErrBlockNotFound)
	}
	if c := m.codec.decode(id); c.Level == 0 {
		return fmt.Errorf("coarsen %d: %w", id, ErrAtBaseLevel)
	}

	for _, nbr := range m.codec.SiblingNeighbors(id) {
		for _, child := range m.codec.Children(nbr) {
			if m.index.Has(child) {
				return fmt.Errorf("coarsen %d: neighbor %d is refined: %w", id, nbr, ErrNeighborTooFine)
			}
		}
	}

	siblings := m.codec.Siblings(id)
	var handles [8]LocalID
	for s, sib := range siblings {
		h, ok := m.index.blocks[sib]
		if !ok {
			return fmt.Errorf("coarsen %d: sibling %d: %w", id, sib, ErrIncompleteSiblings)
		}
		handles[s] = h
	}

	parent := m.codec.Parent(id)
	h := m.cb.CoarsenBlock(siblings, handles, parent)
	if h == InvalidLocalID {
		return fmt.Errorf("coarsen %d into %d: %w", id, parent, ErrInvalidHandle)
	}

	for _, sib := range siblings {
		if !m.index.remove(sib) {
			m.log.Error("sibling vanished during coarsen", "id", id, "sibling", sib)
			return fmt.Errorf("coarsen %d: remove sibling %d: %w", id, sib, ErrCorruptIndex)
		}
	}
	m.index.insert(parent, h)
	return nil
}
