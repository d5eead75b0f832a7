package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"platter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in unique temp directories per test.
// Every generated-file path points into the temp tree so tests never touch
// the host's /etc or /var.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MountBase = filepath.Join(base, "mnt")
	cfg.Paths.PoolMount = filepath.Join(base, "pool")
	cfg.Paths.FstabPath = filepath.Join(base, "fstab")
	cfg.Paths.SnapraidConfig = filepath.Join(base, "snapraid.conf")
	cfg.Paths.SambaSharesConfig = filepath.Join(base, "platter-shares.conf")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     cfg,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithShareMode sets the share presentation mode and categories.
func WithShareMode(mode string, categories ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pool.ShareMode = mode
		b.cfg.Pool.ShareCategories = categories
	}
}

// WithSchedule enables scheduled maintenance with the provided cron
// expressions.
func WithSchedule(syncCron, scrubCron string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.Enabled = true
		b.cfg.Schedule.SyncCron = syncCron
		b.cfg.Schedule.ScrubCron = scrubCron
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every external tool platter
// shells out to is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{
				"snapraid", "mergerfs", "nmdctl",
				"parted", "partprobe", "mkfs.ext4",
				"mount", "umount",
			}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
