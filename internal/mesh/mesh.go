package mesh

import (
	"fmt"
	"log/slog"
)

// Layout is the base bounding box: block counts of the level-0 grid, cell
// subdivisions inside each block, and the finest allowed level. Cell counts
// only matter to persistence.
type Layout struct {
	BaseBlocks [3]uint32 `json:"base_blocks"`
	BlockCells [3]uint32 `json:"block_cells"`
	MaxLevel   uint32    `json:"max_level"`
}

// Limits are the physical bounds of the domain on each axis.
type Limits struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Validate checks that every axis has a positive extent.
func (l Limits) Validate() error {
	for a := range 3 {
		if !(l.Min[a] < l.Max[a]) {
			return fmt.Errorf("axis %d [%g,%g]: %w", a, l.Min[a], l.Max[a], ErrInvalidLimits)
		}
	}
	return nil
}

// Population decides which blocks of the uniform initial level exist.
type Population func(c Coord) bool

// Mesh is an adaptively refined octree block mesh. Topology is derived from
// identifiers alone; only the set of existing blocks is stored.
//
// Mesh is not safe for concurrent mutation. Initialize, Finalize, Refine and
// Coarsen must be serialized by the caller; read-only queries may run
// concurrently with each other but not with a mutation.
type Mesh struct {
	layout      Layout
	limits      Limits
	codec       *Codec
	index       *Index
	cb          Callbacks
	log         *slog.Logger
	initialized bool
}

// New creates an uninitialized mesh. All four callbacks are mandatory.
func New(layout Layout, cb Callbacks, log *slog.Logger) (*Mesh, error) {
	if err := validateCallbacks(cb); err != nil {
		return nil, err
	}
	for a, n := range layout.BaseBlocks {
		if n == 0 {
			return nil, fmt.Errorf("base blocks on axis %d: %w", a, ErrInvalidLayout)
		}
	}
	for a, n := range layout.BlockCells {
		if n == 0 {
			return nil, fmt.Errorf("block cells on axis %d: %w", a, ErrInvalidLayout)
		}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Mesh{
		layout: layout,
		index:  NewIndex(),
		cb:     cb,
		log:    log,
	}, nil
}

// RegisterCallbacks replaces the lifecycle hooks.
func (m *Mesh) RegisterCallbacks(cb Callbacks) error {
	if err := validateCallbacks(cb); err != nil {
		return err
	}
	m.cb = cb
	return nil
}

// Initialize builds the offset table and populates the mesh uniformly at
// level, asking pop which blocks exist (nil means all of them). A second call
// on an initialized mesh is a no-op and keeps the original limits and level.
func (m *Mesh) Initialize(limits Limits, level uint32, pop Population) error {
	if m.initialized {
		return nil
	}
	if level > m.layout.MaxLevel {
		return fmt.Errorf("initial level %d > %d: %w", level, m.layout.MaxLevel, ErrLevelTooHigh)
	}
	if err := limits.Validate(); err != nil {
		return err
	}

	b := m.layout.BaseBlocks
	codec, err := NewCodec(b[0], b[1], b[2], m.layout.MaxLevel)
	if err != nil {
		return err
	}

	index := NewIndex()
	n := codec.AxisCounts(level)
	for k := uint64(0); k < n[2]; k++ {
		for j := uint64(0); j < n[1]; j++ {
			for i := uint64(0); i < n[0]; i++ {
				c := Coord{Level: level, I: uint32(i), J: uint32(j), K: uint32(k)}
				if pop != nil && !pop(c) {
					continue
				}
				id := codec.encode(level, i, j, k)
				h := m.cb.CreateBlock(id)
				if h == InvalidLocalID {
					m.rollbackCreate(index)
					return fmt.Errorf("create block %d: %w", id, ErrInvalidHandle)
				}
				index.insert(id, h)
			}
		}
	}

	m.codec = codec
	m.index = index
	m.limits = limits
	m.initialized = true
	m.log.Info("mesh initialized",
		"baseBlocks", b,
		"maxLevel", m.layout.MaxLevel,
		"initialLevel", level,
		"blocks", index.Len(),
	)
	return nil
}

// rollbackCreate releases blocks created before Initialize failed.
func (m *Mesh) rollbackCreate(index *Index) {
	index.ForEach(func(id GlobalID, h LocalID) {
		if !m.cb.DeleteBlock(id, h) {
			m.log.Warn("delete during initialize rollback failed", "id", id)
		}
	})
}

// Finalize invokes the delete hook for every existing block, then empties the
// mesh. A failing hook does not stop the sweep; failures are counted and
// reported as ErrDeleteFailed.
func (m *Mesh) Finalize() error {
	failed := 0
	m.index.ForEach(func(id GlobalID, h LocalID) {
		if !m.cb.DeleteBlock(id, h) {
			failed++
			m.log.Warn("delete block failed", "id", id, "handle", h)
		}
	})
	total := m.index.Len()
	m.index.reset()
	m.initialized = false

	if failed > 0 {
		return fmt.Errorf("%d of %d blocks: %w", failed, total, ErrDeleteFailed)
	}
	return nil
}

// Initialized reports whether Initialize has succeeded and Finalize has not
// run since.
func (m *Mesh) Initialized() bool { return m.initialized }

// Layout returns the bounding box the mesh was created with.
func (m *Mesh) Layout() Layout { return m.layout }

// Limits returns the physical domain bounds.
func (m *Mesh) Limits() Limits { return m.limits }

// Codec returns the identifier arithmetic, or nil before Initialize.
func (m *Mesh) Codec() *Codec { return m.codec }

// Size returns the number of existing blocks.
func (m *Mesh) Size() int { return m.index.Len() }

// Get returns the handle of id, or InvalidLocalID if the block is absent.
func (m *Mesh) Get(id GlobalID) LocalID { return m.index.Get(id) }

// Has reports whether the block exists.
func (m *Mesh) Has(id GlobalID) bool { return m.index.Has(id) }

// Set replaces the handle of an existing block.
func (m *Mesh) Set(id GlobalID, h LocalID) error { return m.index.Set(id, h) }

// Index exposes the block set for enumeration.
func (m *Mesh) Index() *Index { return m.index }

// IDs returns the existing identifiers in ascending order.
func (m *Mesh) IDs() []GlobalID { return m.index.IDs() }
