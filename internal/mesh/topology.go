package mesh

import "fmt"

// Locate returns the existing block containing the point (x,y,z). A point
// lies in exactly one leaf, which is found at the coarsest level where the
// point's cell still exists. Points on the upper bound of an axis belong to
// the last cell on that axis. NaN coordinates lie outside every domain.
func (m *Mesh) Locate(x, y, z float64) (GlobalID, error) {
	if !m.initialized {
		return InvalidGlobalID, ErrNotInitialized
	}
	p := [3]float64{x, y, z}
	for a := range 3 {
		if !(p[a] >= m.limits.Min[a] && p[a] <= m.limits.Max[a]) {
			return InvalidGlobalID, fmt.Errorf("(%g,%g,%g): %w", x, y, z, ErrOutsideDomain)
		}
	}

	for level := uint32(0); level <= m.layout.MaxLevel; level++ {
		n := m.codec.AxisCounts(level)
		var idx [3]uint64
		for a := range 3 {
			d := (m.limits.Max[a] - m.limits.Min[a]) / float64(n[a])
			idx[a] = uint64((p[a] - m.limits.Min[a]) / d)
			if idx[a] >= n[a] {
				idx[a] = n[a] - 1
			}
		}
		id := m.codec.encode(level, idx[0], idx[1], idx[2])
		if m.index.Has(id) {
			return id, nil
		}
	}
	return InvalidGlobalID, fmt.Errorf("(%g,%g,%g): %w", x, y, z, ErrBlockNotFound)
}

// BlockSize returns the physical extent of a block on each axis.
func (m *Mesh) BlockSize(id GlobalID) ([3]float64, error) {
	if !m.initialized {
		return [3]float64{}, ErrNotInitialized
	}
	c, err := m.codec.Decode(id)
	if err != nil {
		return [3]float64{}, err
	}
	return m.cellSize(c.Level), nil
}

func (m *Mesh) cellSize(level uint32) [3]float64 {
	n := m.codec.AxisCounts(level)
	var size [3]float64
	for a := range 3 {
		size[a] = (m.limits.Max[a] - m.limits.Min[a]) / float64(n[a])
	}
	return size
}

// BlockCoordinates returns the minimum corner of an existing block.
func (m *Mesh) BlockCoordinates(id GlobalID) ([3]float64, error) {
	if !m.initialized {
		return [3]float64{}, ErrNotInitialized
	}
	if !m.index.Has(id) {
		return [3]float64{}, fmt.Errorf("coordinates of %d: %w", id, ErrBlockNotFound)
	}
	c := m.codec.decode(id)
	size := m.cellSize(c.Level)
	ijk := [3]uint32{c.I, c.J, c.K}
	var coords [3]float64
	for a := range 3 {
		coords[a] = m.limits.Min[a] + float64(ijk[a])*size[a]
	}
	return coords, nil
}

// AdjacentBlocks returns the existing blocks that share a face, edge or
// corner with the existing block id. Under 2:1 balance these sit one level
// coarser, at the same level, or one level finer.
func (m *Mesh) AdjacentBlocks(id GlobalID) ([]GlobalID, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	if !m.index.Has(id) {
		return nil, fmt.Errorf("adjacent blocks of %d: %w", id, ErrBlockNotFound)
	}
	self := m.codec.decode(id)

	seen := make(map[GlobalID]struct{})
	var out []GlobalID
	add := func(n GlobalID) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	for _, n := range m.codec.Neighbors(id) {
		if m.index.Has(n) {
			add(n)
			continue
		}
		if p := m.codec.Parent(n); p != n && m.index.Has(p) {
			add(p)
			continue
		}
		for _, child := range m.codec.Children(n) {
			if m.index.Has(child) && touches(self, m.codec.decode(child)) {
				add(child)
			}
		}
	}
	return out, nil
}

// touches reports whether a block one level finer than self is adjacent to it.
func touches(self, fine Coord) bool {
	near := func(s, f uint32) bool {
		lo := int64(s) * 2
		return int64(f) >= lo-1 && int64(f) <= lo+2
	}
	return near(self.I, fine.I) && near(self.J, fine.J) && near(self.K, fine.K)
}
