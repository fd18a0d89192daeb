// Package session runs one mesh from a configuration: it owns the mesh and
// its block storage, serializes edits, and persists snapshots.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OCharnyshevich/amr-mesh/internal/config"
	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
	"github.com/OCharnyshevich/amr-mesh/internal/mesh/gen"
	"github.com/OCharnyshevich/amr-mesh/internal/snapshot"
	"github.com/OCharnyshevich/amr-mesh/internal/storage"
)

// ErrNoStorage is returned by Save when the session has no storage.
var ErrNoStorage = errors.New("session has no storage")

// Session is a mesh together with its block storage. Its methods are safe
// for concurrent use.
type Session struct {
	mu      sync.RWMutex
	id      uuid.UUID
	cfg     *config.Config
	log     *slog.Logger
	mesh    *mesh.Mesh
	blocks  *blocks
	store   *storage.Storage
	metrics *Metrics
}

// New builds and initializes the mesh described by cfg. store may be nil,
// in which case Save fails. Collectors are registered with reg under a
// "session" label, so several sessions can share one registry; a nil reg
// disables registration.
func New(cfg *config.Config, store *storage.Storage, reg prometheus.Registerer, log *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var pop mesh.Population
	switch cfg.Population {
	case config.PopulationRandom:
		pop = gen.Random(cfg.Seed, cfg.OmitFraction)
	case config.PopulationNoise:
		pop = gen.Noise(cfg.Seed, cfg.NoiseScale, cfg.NoiseThreshold)
	case config.PopulationSphere:
		pop = gen.Sphere(cfg.BaseBlocks, cfg.SphereCentre, cfg.SphereRadius)
	default:
		pop = gen.Full()
	}

	id := uuid.New()
	log = log.With("session", id)
	if reg != nil {
		reg = prometheus.WrapRegistererWith(prometheus.Labels{"session": id.String()}, reg)
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	b := newBlocks(metrics)

	m, err := mesh.New(cfg.Layout(), b, log)
	if err != nil {
		metrics.Unregister()
		return nil, err
	}
	if err := m.Initialize(cfg.Limits(), cfg.InitialLevel, pop); err != nil {
		metrics.Unregister()
		return nil, err
	}
	metrics.Blocks.Set(float64(m.Size()))

	log.Info("session started",
		"population", cfg.Population,
		"seed", cfg.Seed,
		"blocks", m.Size(),
	)
	return &Session{
		id:      id,
		cfg:     cfg,
		log:     log,
		mesh:    m,
		blocks:  b,
		store:   store,
		metrics: metrics,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Size returns the number of blocks in the mesh.
func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh.Size()
}

// IDs returns the identifiers of all blocks in ascending order.
func (s *Session) IDs() []mesh.GlobalID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh.IDs()
}

// Refine splits block id.
func (s *Session) Refine(id mesh.GlobalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refine(id)
}

// Coarsen merges the sibling group of id into its parent.
func (s *Session) Coarsen(id mesh.GlobalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coarsen(id)
}

// RefineAt refines the block containing the given point and returns its
// identifier.
func (s *Session) RefineAt(x, y, z float64) (mesh.GlobalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.mesh.Locate(x, y, z)
	if err != nil {
		s.metrics.observe("refine", err)
		return mesh.InvalidGlobalID, err
	}
	return id, s.refine(id)
}

// CoarsenAt coarsens the sibling group of the block containing the point.
func (s *Session) CoarsenAt(x, y, z float64) (mesh.GlobalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.mesh.Locate(x, y, z)
	if err != nil {
		s.metrics.observe("coarsen", err)
		return mesh.InvalidGlobalID, err
	}
	return id, s.coarsen(id)
}

func (s *Session) refine(id mesh.GlobalID) error {
	timer := prometheus.NewTimer(s.metrics.Duration.WithLabelValues("refine"))
	defer timer.ObserveDuration()

	err := s.mesh.Refine(id)
	s.metrics.observe("refine", err)
	s.metrics.Blocks.Set(float64(s.mesh.Size()))
	return err
}

func (s *Session) coarsen(id mesh.GlobalID) error {
	timer := prometheus.NewTimer(s.metrics.Duration.WithLabelValues("coarsen"))
	defer timer.ObserveDuration()

	err := s.mesh.Coarsen(id)
	s.metrics.observe("coarsen", err)
	s.metrics.Blocks.Set(float64(s.mesh.Size()))
	return err
}

// ApplyEdits runs the scripted refinements and coarsenings of the config in
// order and returns how many took effect. Edits the mesh declines are logged
// and skipped; any other failure stops the run.
func (s *Session) ApplyEdits() (int, error) {
	applied := 0
	apply := func(op string, p config.Point, edit func(x, y, z float64) (mesh.GlobalID, error)) error {
		id, err := edit(p.X, p.Y, p.Z)
		skipped, err := s.declined(op, p, id, err)
		if err == nil && !skipped {
			applied++
		}
		return err
	}
	for _, p := range s.cfg.Refine {
		if err := apply("refine", p, s.RefineAt); err != nil {
			return applied, err
		}
	}
	for _, p := range s.cfg.Coarsen {
		if err := apply("coarsen", p, s.CoarsenAt); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

// declined classifies the outcome of a scripted edit.
func (s *Session) declined(op string, p config.Point, id mesh.GlobalID, err error) (bool, error) {
	switch {
	case err == nil:
		s.log.Debug("edit applied", "op", op, "block", id)
		return false, nil
	case errors.Is(err, mesh.ErrOutsideDomain),
		errors.Is(err, mesh.ErrBlockNotFound),
		errors.Is(err, mesh.ErrAtMaxLevel),
		errors.Is(err, mesh.ErrAtBaseLevel),
		errors.Is(err, mesh.ErrNeighborTooFine),
		errors.Is(err, mesh.ErrIncompleteSiblings):
		s.log.Info("edit skipped", "op", op, "x", p.X, "y", p.Y, "z", p.Z, "reason", err)
		return true, nil
	default:
		return false, fmt.Errorf("%s at (%g,%g,%g): %w", op, p.X, p.Y, p.Z, err)
	}
}

// Locate returns the block containing the point.
func (s *Session) Locate(x, y, z float64) (mesh.GlobalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh.Locate(x, y, z)
}

// Adjacent returns the blocks sharing a face, edge or corner with id.
func (s *Session) Adjacent(id mesh.GlobalID) ([]mesh.GlobalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh.AdjacentBlocks(id)
}

// Verify checks the mesh invariants and that every block owns exactly the
// handle the session allocated for it.
func (s *Session) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.mesh.CheckMesh() {
		return errors.New("mesh consistency check failed")
	}
	verify := s.mesh.Verify
	if s.cfg.Population != config.PopulationFull {
		verify = s.mesh.VerifySparse
	}
	errs := []error{verify()}
	if n := len(s.blocks.live); n != s.mesh.Size() {
		errs = append(errs, fmt.Errorf("%d live handles for %d blocks", n, s.mesh.Size()))
	}
	for id, h := range s.mesh.Index().All() {
		if got, ok := s.blocks.live[h]; !ok || got != id {
			errs = append(errs, fmt.Errorf("block %d holds stale handle %d", id, h))
			break
		}
	}
	return errors.Join(errs...)
}

// Snapshot captures the current block set under the configured name.
func (s *Session) Snapshot() (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot.Build(s.cfg.SnapshotName, s.mesh)
}

// Save writes a snapshot to storage and returns its path.
func (s *Session) Save() (string, error) {
	if s.store == nil {
		return "", ErrNoStorage
	}
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	return s.store.SaveSnapshot(snap)
}

// Close releases every block and unregisters the session's collectors.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mesh.Finalize()
	s.metrics.Blocks.Set(0)
	s.metrics.Unregister()
	s.log.Info("session closed")
	return err
}
