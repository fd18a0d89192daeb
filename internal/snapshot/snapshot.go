// Package snapshot turns the block set of a mesh into a self-contained
// document for persistence: the identifier list, bounding box, refinement
// depth, physical limits, and node-coordinate arrays of the base grid.
package snapshot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
)

const (
	// TypeAMR labels an adaptively refined block mesh.
	TypeAMR = "amr"
	// GeometryCartesian labels axis-aligned cartesian coordinates.
	GeometryCartesian = "cartesian"
)

// maxAxisCells bounds the node arrays written for one axis.
const maxAxisCells = 1 << 24

// Source is what a snapshot is built from. *mesh.Mesh satisfies it.
type Source interface {
	Layout() mesh.Layout
	Limits() mesh.Limits
	IDs() []mesh.GlobalID
}

// Snapshot is one persisted mesh state. The mesh is a single unpartitioned
// domain, so the ghost arrays are always empty.
type Snapshot struct {
	ID                 uuid.UUID       `cbor:"id"`
	Name               string          `cbor:"name"`
	Type               string          `cbor:"type"`
	Geometry           string          `cbor:"geometry"`
	MaxRefinementLevel uint32          `cbor:"max_refinement_level"`
	BBox               [6]uint32       `cbor:"bbox"`
	Limits             mesh.Limits     `cbor:"limits"`
	IDs                []mesh.GlobalID `cbor:"ids"`
	DomainSizes        [2]uint64       `cbor:"domain_sizes"`
	GhostLocalIDs      []uint64        `cbor:"ghost_local_ids"`
	GhostDomains       []uint64        `cbor:"ghost_domains"`
	NodeCoordsX        []float32       `cbor:"node_crds_x"`
	NodeCoordsY        []float32       `cbor:"node_crds_y"`
	NodeCoordsZ        []float32       `cbor:"node_crds_z"`
}

// Build captures src under name.
func Build(name string, src Source) (*Snapshot, error) {
	layout := src.Layout()
	limits := src.Limits()
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}

	var cells [3]uint64
	for a := range 3 {
		cells[a] = uint64(layout.BaseBlocks[a]) * uint64(layout.BlockCells[a])
		switch {
		case cells[a] == 0:
			return nil, fmt.Errorf("snapshot %s: axis %d has no cells: %w", name, a, mesh.ErrInvalidLayout)
		case cells[a] > maxAxisCells:
			return nil, fmt.Errorf("snapshot %s: axis %d has %d cells: %w", name, a, cells[a], ErrTooLarge)
		}
	}

	ids := src.IDs()
	s := &Snapshot{
		ID:                 uuid.New(),
		Name:               name,
		Type:               TypeAMR,
		Geometry:           GeometryCartesian,
		MaxRefinementLevel: layout.MaxLevel,
		Limits:             limits,
		IDs:                ids,
		DomainSizes:        [2]uint64{uint64(len(ids)), 0},
		GhostLocalIDs:      []uint64{},
		GhostDomains:       []uint64{},
	}
	for a := range 3 {
		s.BBox[a] = layout.BaseBlocks[a]
		s.BBox[a+3] = layout.BlockCells[a]
	}
	s.NodeCoordsX = nodeCoords(limits.Min[0], limits.Max[0], cells[0])
	s.NodeCoordsY = nodeCoords(limits.Min[1], limits.Max[1], cells[1])
	s.NodeCoordsZ = nodeCoords(limits.Min[2], limits.Max[2], cells[2])
	return s, nil
}

// nodeCoords spaces cells+1 nodes uniformly over [lo,hi] using the base-grid
// cell size. Refined regions get no extra nodes.
func nodeCoords(lo, hi float64, cells uint64) []float32 {
	d := (hi - lo) / float64(cells)
	out := make([]float32, cells+1)
	for i := range out {
		out[i] = float32(lo + float64(i)*d)
	}
	return out
}

// Layout reconstructs the bounding box.
func (s *Snapshot) Layout() mesh.Layout {
	return mesh.Layout{
		BaseBlocks: [3]uint32{s.BBox[0], s.BBox[1], s.BBox[2]},
		BlockCells: [3]uint32{s.BBox[3], s.BBox[4], s.BBox[5]},
		MaxLevel:   s.MaxRefinementLevel,
	}
}
