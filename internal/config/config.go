package config

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
)

// Population strategy names.
const (
	PopulationFull   = "full"
	PopulationRandom = "random"
	PopulationNoise  = "noise"
	PopulationSphere = "sphere"
)

// Point is a physical position used by scripted edits.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Config holds the mesh run configuration.
type Config struct {
	BaseBlocks   [3]uint32  `json:"base_blocks"`
	BlockCells   [3]uint32  `json:"block_cells"`
	MaxLevel     uint32     `json:"max_level"`
	InitialLevel uint32     `json:"initial_level"`
	Min          [3]float64 `json:"min"`
	Max          [3]float64 `json:"max"`

	Population     string     `json:"population"` // "full", "random", "noise" or "sphere"
	Seed           int64      `json:"seed"`
	OmitFraction   float64    `json:"omit_fraction"`   // random: probability a block is left out
	NoiseScale     float64    `json:"noise_scale"`     // noise: field frequency per block
	NoiseThreshold float64    `json:"noise_threshold"` // noise: keep blocks above this value
	SphereCentre   [3]float64 `json:"sphere_centre"`   // sphere: fractions of the domain extent
	SphereRadius   float64    `json:"sphere_radius"`

	// Scripted edits, applied in order after initialization.
	Refine  []Point `json:"refine"`
	Coarsen []Point `json:"coarsen"`

	SnapshotName string `json:"snapshot_name"`
	MetricsAddr  string `json:"metrics_addr"` // empty disables the metrics endpoint
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseBlocks:     [3]uint32{2, 2, 2},
		BlockCells:     [3]uint32{4, 4, 4},
		MaxLevel:       3,
		Max:            [3]float64{1, 1, 1},
		Population:     PopulationFull,
		OmitFraction:   0.4,
		NoiseScale:     0.35,
		NoiseThreshold: -0.2,
		SphereCentre:   [3]float64{0.5, 0.5, 0.5},
		SphereRadius:   0.4,
		SnapshotName:   "amr_mesh",
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	cfg.BaseBlocks = fromFile.BaseBlocks
	cfg.BlockCells = fromFile.BlockCells
	cfg.Min = fromFile.Min
	cfg.Max = fromFile.Max
	cfg.OmitFraction = fromFile.OmitFraction
	cfg.NoiseScale = fromFile.NoiseScale
	cfg.NoiseThreshold = fromFile.NoiseThreshold
	cfg.SphereCentre = fromFile.SphereCentre
	cfg.SphereRadius = fromFile.SphereRadius
	cfg.Refine = fromFile.Refine
	cfg.Coarsen = fromFile.Coarsen

	if !explicitFlags["max-level"] {
		cfg.MaxLevel = fromFile.MaxLevel
	}
	if !explicitFlags["initial-level"] {
		cfg.InitialLevel = fromFile.InitialLevel
	}
	if !explicitFlags["population"] {
		cfg.Population = fromFile.Population
	}
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["snapshot"] {
		cfg.SnapshotName = fromFile.SnapshotName
	}
	if !explicitFlags["metrics-addr"] {
		cfg.MetricsAddr = fromFile.MetricsAddr
	}
}

// Layout returns the mesh bounding box described by cfg.
func (c *Config) Layout() mesh.Layout {
	return mesh.Layout{BaseBlocks: c.BaseBlocks, BlockCells: c.BlockCells, MaxLevel: c.MaxLevel}
}

// Limits returns the physical domain described by cfg.
func (c *Config) Limits() mesh.Limits {
	return mesh.Limits{Min: c.Min, Max: c.Max}
}

// Validate reports every problem with cfg at once.
func (c *Config) Validate() error {
	var errs []error
	for a := range 3 {
		if c.BaseBlocks[a] == 0 {
			errs = append(errs, fmt.Errorf("base_blocks[%d] must be positive", a))
		}
		if c.BlockCells[a] == 0 {
			errs = append(errs, fmt.Errorf("block_cells[%d] must be positive", a))
		}
	}
	if c.InitialLevel > c.MaxLevel {
		errs = append(errs, fmt.Errorf("initial_level %d exceeds max_level %d", c.InitialLevel, c.MaxLevel))
	}
	if err := c.Limits().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Population {
	case PopulationFull, PopulationNoise:
	case PopulationRandom:
		if c.OmitFraction < 0 || c.OmitFraction > 1 {
			errs = append(errs, fmt.Errorf("omit_fraction %g outside [0,1]", c.OmitFraction))
		}
	case PopulationSphere:
		if c.SphereRadius <= 0 {
			errs = append(errs, fmt.Errorf("sphere_radius %g must be positive", c.SphereRadius))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown population %q", c.Population))
	}
	if c.SnapshotName == "" {
		errs = append(errs, errors.New("snapshot_name is empty"))
	}
	return errors.Join(errs...)
}
