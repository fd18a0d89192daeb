package mesh

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// GlobalID names a block across all refinement levels.
type GlobalID uint64

// LocalID is an opaque handle owned by the embedding application.
type LocalID uint64

const (
	// InvalidGlobalID is returned when no block matches a query.
	InvalidGlobalID = GlobalID(math.MaxUint64)
	// InvalidLocalID marks a block without an assigned handle.
	InvalidLocalID = LocalID(math.MaxUint64)
)

// Coord is a block position: refinement level plus per-level (i,j,k) indices.
type Coord struct {
	Level   uint32
	I, J, K uint32
}

// childOffsets is the canonical child/sibling order. Callback argument
// arrays are positional, so this order must never change.
var childOffsets = [8][3]uint32{
	{0, 0, 0},
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 0},
	{0, 0, 1},
	{1, 0, 1},
	{0, 1, 1},
	{1, 1, 1},
}

// Codec maps between Coord and GlobalID and derives related identifiers.
// It holds only the immutable per-level offset table and is safe for
// concurrent use.
type Codec struct {
	base     [3]uint64
	maxLevel uint32
	offsets  []GlobalID
	total    uint64
}

// NewCodec builds the offset table for a base grid of nx0*ny0*nz0 blocks
// refined up to maxLevel.
func NewCodec(nx0, ny0, nz0, maxLevel uint32) (*Codec, error) {
	if nx0 == 0 || ny0 == 0 || nz0 == 0 {
		return nil, fmt.Errorf("base grid %dx%dx%d: %w", nx0, ny0, nz0, ErrInvalidLayout)
	}
	// Axis counts are uint32 indices, so 2^maxLevel*base must fit.
	if maxLevel > 31 {
		return nil, fmt.Errorf("max level %d: %w", maxLevel, ErrInvalidLayout)
	}

	c := &Codec{
		base:     [3]uint64{uint64(nx0), uint64(ny0), uint64(nz0)},
		maxLevel: maxLevel,
		offsets:  make([]GlobalID, maxLevel+1),
	}
	for _, n := range c.base {
		if n<<maxLevel > math.MaxUint32 {
			return nil, fmt.Errorf("axis count %d at level %d: %w", n, maxLevel, ErrInvalidLayout)
		}
	}

	n0 := c.base[0] * c.base[1] * c.base[2]
	var acc uint64
	for r := uint32(0); r <= maxLevel; r++ {
		c.offsets[r] = GlobalID(acc)
		if 3*r >= 64 {
			return nil, fmt.Errorf("level %d block count overflows: %w", r, ErrInvalidLayout)
		}
		hi, count := bits.Mul64(n0, uint64(1)<<(3*r))
		if hi != 0 {
			return nil, fmt.Errorf("level %d block count overflows: %w", r, ErrInvalidLayout)
		}
		var carry uint64
		acc, carry = bits.Add64(acc, count, 0)
		if carry != 0 || acc == uint64(InvalidGlobalID) {
			return nil, fmt.Errorf("identifier space overflows at level %d: %w", r, ErrInvalidLayout)
		}
	}
	c.total = acc
	return c, nil
}

// MaxLevel returns the finest allowed refinement level.
func (c *Codec) MaxLevel() uint32 { return c.maxLevel }

// Offsets returns a copy of the per-level offset table.
func (c *Codec) Offsets() []GlobalID {
	out := make([]GlobalID, len(c.offsets))
	copy(out, c.offsets)
	return out
}

// Total returns the number of addressable identifiers over all levels.
func (c *Codec) Total() uint64 { return c.total }

// Contains reports whether id falls inside the identifier space.
func (c *Codec) Contains(id GlobalID) bool { return uint64(id) < c.total }

// AxisCounts returns the number of blocks along each axis at level.
func (c *Codec) AxisCounts(level uint32) [3]uint64 {
	return [3]uint64{c.base[0] << level, c.base[1] << level, c.base[2] << level}
}

// Encode returns the identifier of the block at coord. Indices outside the
// level's grid are rejected rather than aliased onto another block.
func (c *Codec) Encode(coord Coord) (GlobalID, error) {
	if coord.Level > c.maxLevel {
		return InvalidGlobalID, fmt.Errorf("level %d > %d: %w", coord.Level, c.maxLevel, ErrOutOfRange)
	}
	n := c.AxisCounts(coord.Level)
	if uint64(coord.I) >= n[0] || uint64(coord.J) >= n[1] || uint64(coord.K) >= n[2] {
		return InvalidGlobalID, fmt.Errorf("indices (%d,%d,%d) at level %d: %w",
			coord.I, coord.J, coord.K, coord.Level, ErrOutOfRange)
	}
	return c.encode(coord.Level, uint64(coord.I), uint64(coord.J), uint64(coord.K)), nil
}

func (c *Codec) encode(level uint32, i, j, k uint64) GlobalID {
	n := c.AxisCounts(level)
	return c.offsets[level] + GlobalID(k*n[1]*n[0]+j*n[0]+i)
}

// Decode is the inverse of Encode.
func (c *Codec) Decode(id GlobalID) (Coord, error) {
	if !c.Contains(id) {
		return Coord{}, fmt.Errorf("id %d: %w", id, ErrOutOfRange)
	}
	return c.decode(id), nil
}

func (c *Codec) decode(id GlobalID) Coord {
	// Greatest level whose offset is <= id.
	level := sort.Search(len(c.offsets), func(r int) bool { return c.offsets[r] > id }) - 1
	n := c.AxisCounts(uint32(level))

	index := uint64(id - c.offsets[level])
	k := index / (n[1] * n[0])
	index -= k * n[1] * n[0]
	j := index / n[0]
	i := index - j*n[0]
	return Coord{Level: uint32(level), I: uint32(i), J: uint32(j), K: uint32(k)}
}

// Level returns the refinement level of id, or false if id is not addressable.
func (c *Codec) Level(id GlobalID) (uint32, bool) {
	if !c.Contains(id) {
		return 0, false
	}
	return c.decode(id).Level, true
}

// Parent returns the identifier one level coarser containing id. A level-0
// block is its own parent. InvalidGlobalID is returned for an unaddressable id.
func (c *Codec) Parent(id GlobalID) GlobalID {
	if !c.Contains(id) {
		return InvalidGlobalID
	}
	p := c.decode(id)
	if p.Level == 0 {
		return id
	}
	return c.encode(p.Level-1, uint64(p.I/2), uint64(p.J/2), uint64(p.K/2))
}

// Children returns the 8 identifiers one level finer, in canonical order,
// or nil when id is already at the maximum level.
func (c *Codec) Children(id GlobalID) []GlobalID {
	if !c.Contains(id) {
		return nil
	}
	p := c.decode(id)
	if p.Level+1 > c.maxLevel {
		return nil
	}
	children := c.octet(p.Level+1, uint64(p.I)*2, uint64(p.J)*2, uint64(p.K)*2)
	return children[:]
}

// Siblings returns the aligned 2x2x2 group containing id, id included, in
// canonical order. On the base level an odd axis count can leave part of the
// group outside the grid; those positions hold InvalidGlobalID.
func (c *Codec) Siblings(id GlobalID) [8]GlobalID {
	var ids [8]GlobalID
	for s := range ids {
		ids[s] = InvalidGlobalID
	}
	if !c.Contains(id) {
		return ids
	}
	p := c.decode(id)
	if p.Level > 0 {
		return c.octet(p.Level, uint64(p.I&^1), uint64(p.J&^1), uint64(p.K&^1))
	}
	n := c.AxisCounts(0)
	for s, off := range childOffsets {
		i, j, k := uint64(p.I&^1+off[0]), uint64(p.J&^1+off[1]), uint64(p.K&^1+off[2])
		if i < n[0] && j < n[1] && k < n[2] {
			ids[s] = c.encode(0, i, j, k)
		}
	}
	return ids
}

func (c *Codec) octet(level uint32, i, j, k uint64) [8]GlobalID {
	var ids [8]GlobalID
	for n, off := range childOffsets {
		ids[n] = c.encode(level, i+uint64(off[0]), j+uint64(off[1]), k+uint64(off[2]))
	}
	return ids
}

// Neighbors returns the up to 26 same-level blocks sharing a face, edge or
// corner with id. Cells outside the domain are dropped; there is no wraparound.
func (c *Codec) Neighbors(id GlobalID) []GlobalID {
	if !c.Contains(id) {
		return nil
	}
	p := c.decode(id)
	out := make([]GlobalID, 0, 26)
	c.ring(p.Level, int64(p.I), int64(p.J), int64(p.K), -1, 1, func(di, dj, dk int64) bool {
		return di == 0 && dj == 0 && dk == 0
	}, &out)
	return out
}

// SiblingNeighbors returns the up to 56 same-level blocks surrounding the
// sibling group of id.
func (c *Codec) SiblingNeighbors(id GlobalID) []GlobalID {
	if !c.Contains(id) {
		return nil
	}
	p := c.decode(id)
	out := make([]GlobalID, 0, 56)
	inGroup := func(d int64) bool { return d == 0 || d == 1 }
	c.ring(p.Level, int64(p.I&^1), int64(p.J&^1), int64(p.K&^1), -1, 2, func(di, dj, dk int64) bool {
		return inGroup(di) && inGroup(dj) && inGroup(dk)
	}, &out)
	return out
}

// ring appends every in-domain cell at offsets [lo,hi]^3 from (i,j,k) that
// skip does not exclude.
func (c *Codec) ring(level uint32, i, j, k, lo, hi int64, skip func(di, dj, dk int64) bool, out *[]GlobalID) {
	n := c.AxisCounts(level)
	inside := func(v int64, axis int) bool { return v >= 0 && uint64(v) < n[axis] }
	for dk := lo; dk <= hi; dk++ {
		if !inside(k+dk, 2) {
			continue
		}
		for dj := lo; dj <= hi; dj++ {
			if !inside(j+dj, 1) {
				continue
			}
			for di := lo; di <= hi; di++ {
				if !inside(i+di, 0) || skip(di, dj, dk) {
					continue
				}
				*out = append(*out, c.encode(level, uint64(i+di), uint64(j+dj), uint64(k+dk)))
			}
		}
	}
}

// Ancestor returns the block containing id at the coarser level, or false
// when level is finer than id's own.
func (c *Codec) Ancestor(id GlobalID, level uint32) (GlobalID, bool) {
	if !c.Contains(id) {
		return InvalidGlobalID, false
	}
	p := c.decode(id)
	if level > p.Level {
		return InvalidGlobalID, false
	}
	shift := p.Level - level
	return c.encode(level, uint64(p.I>>shift), uint64(p.J>>shift), uint64(p.K>>shift)), true
}
