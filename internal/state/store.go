package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"platter/internal/disk"
	"platter/internal/logging"
)

// DiskRole is one persisted disk assignment.
type DiskRole struct {
	ID   string    `json:"id"`
	Role disk.Role `json:"role"`
}

// PoolConfig is the durable record of the configured pool. PoolConfigured
// flips to true only after a configure request completes end to end.
type PoolConfig struct {
	StorageConfig  []DiskRole `json:"storageConfig"`
	PoolConfigured bool       `json:"poolConfigured"`
}

// Specs converts the persisted roles back into disk specs. Format flags are
// not persisted; a stored disk is always already prepared.
func (p PoolConfig) Specs() []disk.Spec {
	specs := make([]disk.Spec, 0, len(p.StorageConfig))
	for _, role := range p.StorageConfig {
		specs = append(specs, disk.Spec{ID: role.ID, Role: role.Role})
	}
	return specs
}

// RoleOf returns the persisted role for a disk name, or RoleNone.
func (p PoolConfig) RoleOf(id string) disk.Role {
	for _, role := range p.StorageConfig {
		if role.ID == id {
			return role.Role
		}
	}
	return disk.RoleNone
}

// Store provides thread-safe access to the persisted pool configuration.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	current PoolConfig
}

// NewStore loads the pool configuration at path. A missing file yields an
// unconfigured pool rather than an error; a corrupt file is reported.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "state"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns a copy of the persisted configuration.
func (s *Store) Current() PoolConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Configured reports whether a pool configure has completed on this host.
func (s *Store) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.PoolConfigured
}

// Replace persists cfg, overwriting any previous configuration. The write
// is atomic so a crash never leaves a partial state file.
func (s *Store) Replace(cfg PoolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(cfg); err != nil {
		return fmt.Errorf("persist pool state: %w", err)
	}
	s.current = cfg

	s.logger.Info("pool state persisted",
		logging.Int("disk_count", len(cfg.StorageConfig)),
		logging.Bool("configured", cfg.PoolConfigured),
		logging.String(logging.FieldPath, s.path),
	)
	return nil
}

func (s *Store) snapshotLocked() PoolConfig {
	cp := PoolConfig{PoolConfigured: s.current.PoolConfigured}
	if len(s.current.StorageConfig) > 0 {
		cp.StorageConfig = make([]DiskRole, len(s.current.StorageConfig))
		copy(cp.StorageConfig, s.current.StorageConfig)
	}
	return cp
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read pool state: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var cfg PoolConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse pool state: %w", err)
	}
	s.current = cfg

	s.logger.Debug("loaded pool state",
		logging.Int("disk_count", len(cfg.StorageConfig)),
		logging.Bool("configured", cfg.PoolConfigured),
	)
	return nil
}

func (s *Store) save(cfg PoolConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pool state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
