package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OCharnyshevich/amr-mesh/internal/config"
	"github.com/OCharnyshevich/amr-mesh/internal/snapshot"
)

const snapshotExt = ".amrs"

// Storage handles file-based persistence for config and mesh snapshots.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "snapshots"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the storage root.
func (s *Storage) Dir() string { return s.dir }

// LoadConfig reads config.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.json")
	found, err := ReadConfig(path, cfg)
	if err != nil {
		return err
	}
	if found {
		s.log.Info("loaded config from file", "path", path)
	}
	return nil
}

// ReadConfig decodes the JSON config at path into cfg and reports whether
// the file existed.
func ReadConfig(path string, cfg *config.Config) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return true, fmt.Errorf("parse config: %w", err)
	}
	return true, nil
}

// SaveConfig writes cfg to config.json atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.atomicWrite(filepath.Join(s.dir, "config.json"), append(data, '\n'))
}

// SaveSnapshot writes snap to snapshots/<name>.amrs atomically and returns the path.
func (s *Storage) SaveSnapshot(snap *snapshot.Snapshot) (string, error) {
	if err := validName(snap.Name); err != nil {
		return "", err
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return "", err
	}
	path := s.snapshotPath(snap.Name)
	if err := s.atomicWrite(path, data); err != nil {
		return "", err
	}
	s.log.Info("saved snapshot", "path", path, "blocks", len(snap.IDs), "id", snap.ID)
	return path, nil
}

// LoadSnapshot reads snapshots/<name>.amrs.
func (s *Storage) LoadSnapshot(name string) (*snapshot.Snapshot, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.snapshotPath(name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	return snap, nil
}

// ListSnapshots returns the names of stored snapshots, sorted.
func (s *Storage) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "snapshots"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), snapshotExt))
	}
	slices.Sort(names)
	return names, nil
}

func (s *Storage) snapshotPath(name string) string {
	return filepath.Join(s.dir, "snapshots", name+snapshotExt)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}

// atomicWrite writes data to path using a temp file + rename.
func (s *Storage) atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
