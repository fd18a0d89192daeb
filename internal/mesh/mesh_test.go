package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a callback set that hands out sequential handles and keeps
// track of which ones are alive.
type recorder struct {
	next     LocalID
	live     map[LocalID]GlobalID
	refines  []GlobalID
	coarsens []GlobalID
	failOn   map[GlobalID]bool
}

func newRecorder() *recorder {
	return &recorder{live: make(map[LocalID]GlobalID), failOn: make(map[GlobalID]bool)}
}

func (r *recorder) alloc(id GlobalID) LocalID {
	h := r.next
	r.next++
	r.live[h] = id
	return h
}

func (r *recorder) CreateBlock(id GlobalID) LocalID { return r.alloc(id) }

func (r *recorder) DeleteBlock(id GlobalID, h LocalID) bool {
	if r.failOn[id] {
		return false
	}
	if r.live[h] != id {
		return false
	}
	delete(r.live, h)
	return true
}

func (r *recorder) RefineBlock(parent GlobalID, h LocalID, children [8]GlobalID) [8]LocalID {
	r.refines = append(r.refines, parent)
	delete(r.live, h)
	var out [8]LocalID
	for n, c := range children {
		out[n] = r.alloc(c)
	}
	return out
}

func (r *recorder) CoarsenBlock(siblings [8]GlobalID, handles [8]LocalID, parent GlobalID) LocalID {
	r.coarsens = append(r.coarsens, parent)
	for _, h := range handles {
		delete(r.live, h)
	}
	return r.alloc(parent)
}

var unitCube = Limits{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}

func newTestMesh(t *testing.T, base uint32, maxLevel uint32) (*Mesh, *recorder) {
	t.Helper()
	rec := newRecorder()
	m, err := New(Layout{
		BaseBlocks: [3]uint32{base, base, base},
		BlockCells: [3]uint32{4, 4, 4},
		MaxLevel:   maxLevel,
	}, rec, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize(unitCube, 0, nil))
	return m, rec
}

func mustEncode(t *testing.T, m *Mesh, level, i, j, k uint32) GlobalID {
	t.Helper()
	id, err := m.Codec().Encode(Coord{Level: level, I: i, J: j, K: k})
	require.NoError(t, err)
	return id
}

func TestNewRequiresCallbacks(t *testing.T) {
	layout := Layout{BaseBlocks: [3]uint32{1, 1, 1}, BlockCells: [3]uint32{1, 1, 1}}

	_, err := New(layout, nil, nil)
	assert.ErrorIs(t, err, ErrMissingCallback)

	rec := newRecorder()
	partial := CallbackFuncs{Create: rec.CreateBlock, Delete: rec.DeleteBlock, Refine: rec.RefineBlock}
	_, err = New(layout, partial, nil)
	assert.ErrorIs(t, err, ErrMissingCallback)

	var typedNil *recorder
	_, err = New(layout, typedNil, nil)
	assert.ErrorIs(t, err, ErrMissingCallback)

	partial.Coarsen = rec.CoarsenBlock
	m, err := New(layout, &partial, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.RegisterCallbacks(CallbackFuncs{}), ErrMissingCallback)
}

func TestInitialize(t *testing.T) {
	m, rec := newTestMesh(t, 2, 1)

	assert.True(t, m.Initialized())
	assert.Equal(t, 8, m.Size())
	assert.Len(t, rec.live, 8)
	for id, h := range m.Index().All() {
		assert.Equal(t, id, rec.live[h])
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	m, _ := newTestMesh(t, 2, 2)

	other := Limits{Min: [3]float64{-5, -5, -5}, Max: [3]float64{5, 5, 5}}
	require.NoError(t, m.Initialize(other, 2, nil))
	assert.Equal(t, unitCube, m.Limits())
	assert.Equal(t, 8, m.Size())
}

func TestInitializeRejects(t *testing.T) {
	layout := Layout{BaseBlocks: [3]uint32{2, 2, 2}, BlockCells: [3]uint32{1, 1, 1}, MaxLevel: 1}

	m, err := New(layout, newRecorder(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Initialize(unitCube, 2, nil), ErrLevelTooHigh)
	assert.ErrorIs(t, m.Initialize(Limits{Max: [3]float64{1, 0, 1}}, 0, nil), ErrInvalidLimits)
	assert.False(t, m.Initialized())
}

func TestInitializeWithPopulation(t *testing.T) {
	layout := Layout{BaseBlocks: [3]uint32{2, 2, 2}, BlockCells: [3]uint32{1, 1, 1}, MaxLevel: 2}
	m, err := New(layout, newRecorder(), nil)
	require.NoError(t, err)

	evenI := func(c Coord) bool { return c.I%2 == 0 }
	require.NoError(t, m.Initialize(unitCube, 1, evenI))
	assert.Equal(t, 32, m.Size())
	for id := range m.Index().All() {
		c, err := m.Codec().Decode(id)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), c.Level)
		assert.Zero(t, c.I%2)
	}
}

func TestInitializeRejectsInvalidCreateHandle(t *testing.T) {
	rec := newRecorder()
	created := 0
	cb := CallbackFuncs{
		Create: func(id GlobalID) LocalID {
			created++
			if created == 3 {
				return InvalidLocalID
			}
			return rec.CreateBlock(id)
		},
		Delete:  rec.DeleteBlock,
		Refine:  rec.RefineBlock,
		Coarsen: rec.CoarsenBlock,
	}
	m, err := New(Layout{BaseBlocks: [3]uint32{2, 2, 2}, BlockCells: [3]uint32{1, 1, 1}}, cb, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Initialize(unitCube, 0, nil), ErrInvalidHandle)
	assert.False(t, m.Initialized())
	assert.Empty(t, rec.live, "blocks created before the failure are released")
}

func TestGetSet(t *testing.T) {
	m, _ := newTestMesh(t, 2, 1)
	id := mustEncode(t, m, 0, 1, 1, 0)

	require.NoError(t, m.Set(id, 42))
	assert.Equal(t, LocalID(42), m.Get(id))

	absent := mustEncode(t, m, 1, 0, 0, 0)
	assert.Equal(t, InvalidLocalID, m.Get(absent))
	assert.ErrorIs(t, m.Set(absent, 1), ErrBlockNotFound)
}

func TestFinalize(t *testing.T) {
	m, rec := newTestMesh(t, 2, 1)

	require.NoError(t, m.Finalize())
	assert.Empty(t, rec.live)
	assert.Zero(t, m.Size())
	assert.False(t, m.Initialized())
}

func TestFinalizeContinuesPastFailures(t *testing.T) {
	m, rec := newTestMesh(t, 2, 1)
	rec.failOn[mustEncode(t, m, 0, 0, 0, 0)] = true
	rec.failOn[mustEncode(t, m, 0, 1, 1, 1)] = true

	err := m.Finalize()
	assert.ErrorIs(t, err, ErrDeleteFailed)
	assert.Len(t, rec.live, 2, "every other block was still deleted")
	assert.Zero(t, m.Size())
}

func TestMeshBeforeInitialize(t *testing.T) {
	m, err := New(Layout{BaseBlocks: [3]uint32{1, 1, 1}, BlockCells: [3]uint32{1, 1, 1}}, newRecorder(), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Refine(0), ErrNotInitialized)
	assert.ErrorIs(t, m.Coarsen(0), ErrNotInitialized)
	_, err = m.Locate(0, 0, 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, m.Verify(), ErrNotInitialized)
	assert.False(t, m.CheckMesh())
}
