package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file-location configuration.
type Paths struct {
	StateDir          string `toml:"state_dir"`
	LogDir            string `toml:"log_dir"`
	MountBase         string `toml:"mount_base"`
	PoolMount         string `toml:"pool_mount"`
	FstabPath         string `toml:"fstab_path"`
	SnapraidConfig    string `toml:"snapraid_config"`
	SambaSharesConfig string `toml:"samba_shares_config"`
}

// Pool contains union-pool and share presentation settings.
type Pool struct {
	ShareGroup      string   `toml:"share_group"`
	ShareMode       string   `toml:"share_mode"`
	ShareCategories []string `toml:"share_categories"`
}

// Snapraid contains settings for the parity tool of the parity_pool backend.
type Snapraid struct {
	Binary       string `toml:"binary"`
	ScrubPercent int    `toml:"scrub_percent"`
	ScrubAgeDays int    `toml:"scrub_age_days"`
}

// Mergerfs contains settings for the union filesystem.
type Mergerfs struct {
	Binary  string `toml:"binary"`
	Options string `toml:"options"`
}

// Array contains settings for the kernel_array backend's management tool.
// Device is the array device prefix; the driver exposes data disk N as
// <device>N with its filesystem on partition 1.
type Array struct {
	Binary string `toml:"binary"`
	Device string `toml:"device"`
}

// Operations contains supervision timing knobs, in seconds.
type Operations struct {
	CommandTimeout          int `toml:"command_timeout"`
	SyncTimeout             int `toml:"sync_timeout"`
	ScrubTimeout            int `toml:"scrub_timeout"`
	CheckTimeout            int `toml:"check_timeout"`
	ProgressEstimateSeconds int `toml:"progress_estimate_seconds"`
}

// Schedule contains cron expressions for unattended maintenance runs.
type Schedule struct {
	Enabled   bool   `toml:"enabled"`
	SyncCron  string `toml:"sync_cron"`
	ScrubCron string `toml:"scrub_cron"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for platter.
//
// Configuration sections by subsystem:
//   - Paths: state directory, mount layout, and generated-file locations
//   - Pool: share group and share presentation mode
//   - Snapraid: parity tool binary and scrub tuning
//   - Mergerfs: union filesystem binary and mount options
//   - Array: kernel array management tool
//   - Operations: per-command and per-operation timeouts
//   - Schedule: cron expressions for automatic sync and scrub
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pool       Pool       `toml:"pool"`
	Snapraid   Snapraid   `toml:"snapraid"`
	Mergerfs   Mergerfs   `toml:"mergerfs"`
	Array      Array      `toml:"array"`
	Operations Operations `toml:"operations"`
	Schedule   Schedule   `toml:"schedule"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/platter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("platter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at startup.
// Mount points are created later, during pool configuration.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PoolStatePath returns the persisted pool-configuration file location.
func (c *Config) PoolStatePath() string {
	return filepath.Join(c.Paths.StateDir, "pool.json")
}

// BackendPath returns the backend-selection file location.
func (c *Config) BackendPath() string {
	return filepath.Join(c.Paths.StateDir, "backend.conf")
}

// JournalPath returns the operation-history database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "platterd.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "platterd.lock")
}

// PidPath returns the daemon pid file location.
func (c *Config) PidPath() string {
	return filepath.Join(c.Paths.StateDir, "platterd.pid")
}

// PartedBinary returns the partitioning executable name.
func (c *Config) PartedBinary() string { return "parted" }

// PartprobeBinary returns the partition-table reload executable name.
func (c *Config) PartprobeBinary() string { return "partprobe" }

// MkfsBinary returns the filesystem creation executable name.
func (c *Config) MkfsBinary() string { return "mkfs.ext4" }

// MountBinary returns the mount executable name.
func (c *Config) MountBinary() string { return "mount" }

// UmountBinary returns the unmount executable name.
func (c *Config) UmountBinary() string { return "umount" }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
