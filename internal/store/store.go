// Package store persists the pod settings overrides between daemon runs.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"

	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/podconfig"
)

// ErrCorrupt is returned when the stored record cannot be decoded.
var ErrCorrupt = errors.New("corrupt settings record")

// Record is one saved version of the overrides.
type Record struct {
	Revision  string              `yaml:"revision"`
	UpdatedAt time.Time           `yaml:"updated_at"`
	Overrides podconfig.Overrides `yaml:"overrides"`
}

// Store loads and saves the current record.
type Store interface {
	// Load returns the saved record, or the zero Record if nothing was saved yet.
	Load() (Record, error)
	// Save replaces the saved record.
	Save(Record) error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// FileMode keeps the settings file private to the daemon user.
const FileMode fs.FileMode = 0o600

// FileStore keeps the record in a YAML file, replaced atomically on Save.
type FileStore struct {
	ops  filesys.FileOps
	path string
}

// NewFileStore returns a store for path.
func NewFileStore(ops filesys.FileOps, path string) *FileStore {
	return &FileStore{ops: ops, path: path}
}

// Load reads the record. A missing file is an empty record.
func (s *FileStore) Load() (Record, error) {
	b, err := s.ops.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("store: no saved settings, starting from defaults", "path", s.path)
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("reading settings: %w", err)
	}

	var r Record
	if len(bytes.TrimSpace(b)) == 0 {
		return r, nil
	}
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return r, nil
}

// Save writes the record.
func (s *FileStore) Save(r Record) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.ops.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := filesys.AtomicWrite(s.ops, s.path, b, FileMode); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	log.Debug("store: settings saved", "path", s.path, "revision", r.Revision)
	return nil
}

// MemoryStore keeps the record in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rec   Record
	saves atomic.Int64
}

// NewMemoryStore returns a store holding r.
func NewMemoryStore(r Record) *MemoryStore {
	return &MemoryStore{rec: r}
}

// Load returns the record.
func (s *MemoryStore) Load() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecord(s.rec), nil
}

// Save replaces the record.
func (s *MemoryStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = copyRecord(r)
	s.saves.Inc()
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int64 { return s.saves.Load() }

// copyRecord detaches the overrides pointers from the caller's.
func copyRecord(r Record) Record {
	r.Overrides = podconfig.Overrides{}.Merge(r.Overrides)
	return r
}
