package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/amr-mesh/internal/config"
	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
	"github.com/OCharnyshevich/amr-mesh/internal/snapshot"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	cfg := config.DefaultConfig()
	require.NoError(t, s.LoadConfig(cfg), "missing file leaves cfg unchanged")
	assert.Equal(t, config.DefaultConfig(), cfg)

	cfg.MaxLevel = 6
	cfg.Coarsen = []config.Point{{X: 0.5, Y: 0.5, Z: 0.5}}
	require.NoError(t, s.SaveConfig(cfg))

	loaded := config.DefaultConfig()
	require.NoError(t, s.LoadConfig(loaded))
	assert.Equal(t, cfg, loaded)
	assert.NoFileExists(t, filepath.Join(s.Dir(), "config.json.tmp"))
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "config.json"), []byte("{"), 0o644))
	assert.ErrorContains(t, s.LoadConfig(config.DefaultConfig()), "parse config")
}

func testSnapshot(name string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID:                 uuid.New(),
		Name:               name,
		Type:               snapshot.TypeAMR,
		Geometry:           snapshot.GeometryCartesian,
		MaxRefinementLevel: 1,
		BBox:               [6]uint32{1, 1, 1, 2, 2, 2},
		Limits:             mesh.Limits{Max: [3]float64{1, 1, 1}},
		IDs:                []mesh.GlobalID{0, 2, 3},
		DomainSizes:        [2]uint64{3, 0},
		GhostLocalIDs:      []uint64{},
		GhostDomains:       []uint64{},
		NodeCoordsX:        []float32{0, 1},
		NodeCoordsY:        []float32{0, 1},
		NodeCoordsZ:        []float32{0, 1},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	snap := testSnapshot("run-1")

	path, err := s.SaveSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "snapshots", "run-1.amrs"), path)

	loaded, err := s.LoadSnapshot("run-1")
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestListSnapshots(t *testing.T) {
	s := newTestStorage(t)
	for _, name := range []string{"b", "a"} {
		_, err := s.SaveSnapshot(testSnapshot(name))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "snapshots", "notes.txt"), nil, 0o644))

	names, err := s.ListSnapshots()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestSnapshotRejectsBadNames(t *testing.T) {
	s := newTestStorage(t)
	for _, name := range []string{"", "..", "../x", `a\b`} {
		_, err := s.SaveSnapshot(testSnapshot(name))
		assert.Error(t, err, "%q", name)
		_, err = s.LoadSnapshot(name)
		assert.Error(t, err, "%q", name)
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	found, err := ReadConfig(filepath.Join(t.TempDir(), "absent.json"), cfg)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"run-1", true},
		{"amr_mesh.v2", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		if err := validName(tt.name); (err == nil) != tt.valid {
			t.Errorf("validName(%q) = %v, want valid=%t", tt.name, err, tt.valid)
		}
	}
}
