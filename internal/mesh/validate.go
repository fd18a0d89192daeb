package mesh

import (
	"errors"
	"fmt"
)

// CheckBlock reports whether id exists or, recursively, all of its children
// pass CheckBlock. An absent block whose subtree was never created passes
// vacuously, so this cannot detect holes; use Verify for that.
func (m *Mesh) CheckBlock(id GlobalID) bool {
	if m.index.Has(id) {
		return true
	}
	if m.codec == nil {
		return false
	}
	ok := true
	for _, child := range m.codec.Children(id) {
		if !m.CheckBlock(child) {
			ok = false
		}
	}
	return ok
}

// CheckMesh runs CheckBlock over the sibling group of every existing block.
func (m *Mesh) CheckMesh() bool {
	if !m.initialized {
		return false
	}
	for id := range m.index.All() {
		for _, sib := range m.codec.Siblings(id) {
			if sib == InvalidGlobalID {
				continue
			}
			if !m.CheckBlock(sib) {
				return false
			}
		}
	}
	return true
}

// maxViolations bounds how many individual violations Verify reports.
const maxViolations = 32

// Verify checks the structural invariants CheckMesh leaves out: no existing
// block has an existing ancestor, the existing blocks tile the whole domain,
// and adjacent blocks differ by at most one level. All violations found are
// joined into the returned error.
func (m *Mesh) Verify() error { return m.verify(true) }

// VerifySparse is Verify without the coverage check, for meshes whose
// initial population left holes.
func (m *Mesh) VerifySparse() error { return m.verify(false) }

func (m *Mesh) verify(coverage bool) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	var errs []error
	report := func(err error) {
		if len(errs) < maxViolations {
			errs = append(errs, err)
		}
	}

	finest := m.layout.MaxLevel
	var volume, overlaps uint64
	for id := range m.index.All() {
		c := m.codec.decode(id)
		volume += uint64(1) << (3 * (finest - c.Level))

		for l := int64(c.Level) - 1; l >= 0; l-- {
			anc, _ := m.codec.Ancestor(id, uint32(l))
			if m.index.Has(anc) {
				overlaps++
				report(fmt.Errorf("block %d inside %d: %w", id, anc, ErrOverlap))
				break
			}
		}

		if c.Level < 2 {
			continue
		}
		for _, nbr := range m.codec.Neighbors(id) {
			for l := int64(c.Level) - 2; l >= 0; l-- {
				anc, _ := m.codec.Ancestor(nbr, uint32(l))
				if m.index.Has(anc) {
					report(fmt.Errorf("block %d (level %d) touches %d (level %d): %w",
						id, c.Level, anc, l, ErrUnbalanced))
					break
				}
			}
		}
	}

	n0 := m.codec.AxisCounts(0)
	domain := n0[0] * n0[1] * n0[2] << (3 * finest)
	if coverage && overlaps == 0 && volume != domain {
		report(fmt.Errorf("covered %d of %d finest cells: %w", volume, domain, ErrCoverageGap))
	}
	return errors.Join(errs...)
}
