package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	m, _ := newTestMesh(t, 2, 2)

	id, err := m.Locate(0.75, 0.25, 0.6)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, m, 0, 1, 0, 1), id)

	require.NoError(t, m.Refine(mustEncode(t, m, 0, 0, 0, 0)))
	id, err = m.Locate(0.3, 0.1, 0.4)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, m, 1, 1, 0, 1), id)
}

func TestLocateOnMinimumBoundary(t *testing.T) {
	m, _ := newTestMesh(t, 2, 2)

	id, err := m.Locate(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, m, 0, 0, 0, 0), id)

	require.NoError(t, m.Refine(id))
	require.NoError(t, m.Refine(mustEncode(t, m, 1, 0, 0, 0)))
	id, err = m.Locate(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, m, 2, 0, 0, 0), id)
}

func TestLocateOnMaximumBoundary(t *testing.T) {
	m, _ := newTestMesh(t, 2, 1)

	id, err := m.Locate(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, m, 0, 1, 1, 1), id)
}

func TestLocateChecksEachAxis(t *testing.T) {
	rec := newRecorder()
	m, err := New(Layout{BaseBlocks: [3]uint32{1, 1, 1}, BlockCells: [3]uint32{1, 1, 1}}, rec, nil)
	require.NoError(t, err)
	limits := Limits{Min: [3]float64{0, 10, 20}, Max: [3]float64{1, 11, 21}}
	require.NoError(t, m.Initialize(limits, 0, nil))

	_, err = m.Locate(0.5, 10.5, 20.5)
	require.NoError(t, err)

	outside := [][3]float64{
		{-0.1, 10.5, 20.5},
		{0.5, 0.5, 20.5},
		{0.5, 10.5, 0.5},
		{0.5, 11.5, 20.5},
		{0.5, 10.5, 21.5},
		{math.NaN(), 10.5, 20.5},
		{0.5, math.NaN(), 20.5},
		{0.5, 10.5, math.Inf(1)},
	}
	for _, p := range outside {
		_, err := m.Locate(p[0], p[1], p[2])
		assert.ErrorIs(t, err, ErrOutsideDomain, "%v", p)
	}
}

func TestLocateInHole(t *testing.T) {
	layout := Layout{BaseBlocks: [3]uint32{2, 1, 1}, BlockCells: [3]uint32{1, 1, 1}}
	m, err := New(layout, newRecorder(), nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize(unitCube, 0, func(c Coord) bool { return c.I == 0 }))

	_, err = m.Locate(0.9, 0.5, 0.5)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockGeometry(t *testing.T) {
	rec := newRecorder()
	layout := Layout{BaseBlocks: [3]uint32{2, 4, 1}, BlockCells: [3]uint32{1, 1, 1}, MaxLevel: 2}
	m, err := New(layout, rec, nil)
	require.NoError(t, err)
	limits := Limits{Min: [3]float64{-1, 0, 0}, Max: [3]float64{1, 8, 2}}
	require.NoError(t, m.Initialize(limits, 0, nil))

	base := mustEncode(t, m, 0, 1, 2, 0)
	size, err := m.BlockSize(base)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 2}, size)

	coords, err := m.BlockCoordinates(base)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0, 4, 0}, coords)

	require.NoError(t, m.Refine(base))
	child := m.Codec().Children(base)[7]
	size, err = m.BlockSize(child)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0.5, 1, 1}, size)
	coords, err = m.BlockCoordinates(child)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0.5, 5, 1}, coords)

	_, err = m.BlockCoordinates(base)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestAdjacentBlocks(t *testing.T) {
	m, _ := newTestMesh(t, 2, 2)
	origin := mustEncode(t, m, 0, 0, 0, 0)

	adj, err := m.AdjacentBlocks(origin)
	require.NoError(t, err)
	assert.Len(t, adj, 7)

	require.NoError(t, m.Refine(mustEncode(t, m, 0, 1, 0, 0)))
	adj, err = m.AdjacentBlocks(origin)
	require.NoError(t, err)
	// 6 level-0 blocks plus the 4 children of (1,0,0) on the shared face.
	assert.Len(t, adj, 10)

	fine := mustEncode(t, m, 1, 2, 0, 0)
	adj, err = m.AdjacentBlocks(fine)
	require.NoError(t, err)
	assert.Contains(t, adj, origin)
	assert.NotContains(t, adj, mustEncode(t, m, 0, 0, 1, 0))
	assert.Contains(t, adj, mustEncode(t, m, 1, 3, 1, 1))

	_, err = m.AdjacentBlocks(mustEncode(t, m, 0, 1, 0, 0))
	assert.ErrorIs(t, err, ErrBlockNotFound)
}
