package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platter/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for absent file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Pool.ShareMode != "individual" {
		t.Fatalf("share_mode default = %q", cfg.Pool.ShareMode)
	}
	if cfg.Snapraid.Binary != "snapraid" {
		t.Fatalf("snapraid binary default = %q", cfg.Snapraid.Binary)
	}
	if cfg.Operations.SyncTimeout != 86400 {
		t.Fatalf("sync timeout default = %d", cfg.Operations.SyncTimeout)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
mount_base = "` + filepath.Join(dir, "mnt") + `"
pool_mount = "` + filepath.Join(dir, "pool") + `"
fstab_path = "` + filepath.Join(dir, "fstab") + `"

[pool]
share_mode = "Categories"
share_categories = ["Media", "media", " backups ", ""]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Pool.ShareMode != "categories" {
		t.Fatalf("share_mode = %q", cfg.Pool.ShareMode)
	}
	if len(cfg.Pool.ShareCategories) != 2 || cfg.Pool.ShareCategories[0] != "media" || cfg.Pool.ShareCategories[1] != "backups" {
		t.Fatalf("share_categories = %v", cfg.Pool.ShareCategories)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownShareMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[pool]\nshare_mode = \"mirror\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "share_mode") {
		t.Fatalf("expected share_mode error, got %v", err)
	}
}

func TestLoadRejectsCategoriesWithoutList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[pool]\nshare_mode = \"categories\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "share_categories") {
		t.Fatalf("expected share_categories error, got %v", err)
	}
}

func TestLoadValidatesCronWhenScheduleEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[schedule]\nenabled = true\nsync_cron = \"not a cron\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "sync_cron") {
		t.Fatalf("expected sync_cron error, got %v", err)
	}
}

func TestScheduleDisabledSkipsCronValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[schedule]\nenabled = false\nscrub_cron = \"garbage\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("disabled schedule should not validate cron, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if cfg.Mergerfs.Binary != "mergerfs" {
		t.Fatalf("unexpected mergerfs binary %q", cfg.Mergerfs.Binary)
	}
}

func TestTimeoutsFallBackWhenNonPositive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[operations]\ncommand_timeout = -5\nscrub_timeout = 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Operations.CommandTimeout != 600 || cfg.Operations.ScrubTimeout != 21600 {
		t.Fatalf("timeouts not defaulted: %+v", cfg.Operations)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = "/var/lib/platter"
	if got := cfg.PoolStatePath(); got != "/var/lib/platter/pool.json" {
		t.Fatalf("PoolStatePath = %q", got)
	}
	if got := cfg.BackendPath(); got != "/var/lib/platter/backend.conf" {
		t.Fatalf("BackendPath = %q", got)
	}
	if got := cfg.SocketPath(); got != "/var/lib/platter/platterd.sock" {
		t.Fatalf("SocketPath = %q", got)
	}
}
