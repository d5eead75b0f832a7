package pool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"platter/internal/config"
	"platter/internal/disk"
	"platter/internal/logging"
	"platter/internal/pool"
	"platter/internal/services"
)

type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.mu.Lock()
	f.commands = append(f.commands, services.CommandLine(binary, args))
	f.mu.Unlock()
	return f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MountBase = filepath.Join(dir, "mnt")
	cfg.Paths.PoolMount = filepath.Join(dir, "pool")
	cfg.Paths.FstabPath = filepath.Join(dir, "fstab")
	return cfg
}

func testAssignment(cfg *config.Config) disk.Assignment {
	return disk.BuildAssignment([]disk.Spec{
		{ID: "sda", Role: disk.RoleData, Format: true},
		{ID: "sdb", Role: disk.RoleData, Format: true},
		{ID: "sdc", Role: disk.RoleParity, Format: true},
	}, cfg.Paths.MountBase)
}

func TestMountAllRunsMountPerEntry(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(runner))
	a := testAssignment(cfg)

	if err := m.MountAll(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"mount -t ext4 /dev/sda1 " + filepath.Join(cfg.Paths.MountBase, "disk1"),
		"mount -t ext4 /dev/sdb1 " + filepath.Join(cfg.Paths.MountBase, "disk2"),
		"mount -t ext4 /dev/sdc1 " + filepath.Join(cfg.Paths.MountBase, "parity1"),
	}
	if len(runner.commands) != len(want) {
		t.Fatalf("commands = %v", runner.commands)
	}
	for i, command := range want {
		if runner.commands[i] != command {
			t.Fatalf("command %d = %q, want %q", i, runner.commands[i], command)
		}
	}

	for _, entry := range a.All() {
		if _, err := os.Stat(entry.MountPoint); err != nil {
			t.Fatalf("mount point not created: %v", err)
		}
	}
}

func TestMountUnionCommandShape(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(runner))
	a := testAssignment(cfg)

	if err := m.MountUnion(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.commands) != 1 {
		t.Fatalf("commands = %v", runner.commands)
	}
	sources := filepath.Join(cfg.Paths.MountBase, "disk1") + ":" + filepath.Join(cfg.Paths.MountBase, "disk2")
	want := "mergerfs " + sources + " " + cfg.Paths.PoolMount + " -o " + cfg.Mergerfs.Options
	if runner.commands[0] != want {
		t.Fatalf("command = %q, want %q", runner.commands[0], want)
	}

	if _, err := os.Stat(cfg.Paths.PoolMount); err != nil {
		t.Fatalf("pool mount not created: %v", err)
	}
}

func TestMountFailureIsConfigurationError(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{err: errors.New("mount: unknown filesystem")}
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(runner))

	err := m.MountAll(context.Background(), testAssignment(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApplyPermissionsSetsGroupAndSetgid(t *testing.T) {
	cfg := testConfig(t)
	m := pool.New(cfg, logging.NewNop(),
		pool.WithGroupLookup(func(string) (int, error) { return os.Getgid(), nil }))
	a := testAssignment(cfg)

	for _, entry := range a.All() {
		if err := os.MkdirAll(entry.MountPoint, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(cfg.Paths.PoolMount, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := m.ApplyPermissions(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	check := []string{cfg.Paths.PoolMount}
	for _, entry := range a.All() {
		check = append(check, entry.MountPoint)
	}
	for _, path := range check {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode()&os.ModeSetgid == 0 {
			t.Fatalf("setgid not set on %s: %v", path, info.Mode())
		}
		if info.Mode().Perm() != 0o775 {
			t.Fatalf("mode on %s = %o, want 775", path, info.Mode().Perm())
		}
	}
}

func TestApplyPermissionsUnknownGroup(t *testing.T) {
	cfg := testConfig(t)
	m := pool.New(cfg, logging.NewNop(),
		pool.WithGroupLookup(func(name string) (int, error) {
			return 0, errors.New("group not found")
		}))

	err := m.ApplyPermissions(testAssignment(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPersistFstabWritesManagedBlock(t *testing.T) {
	cfg := testConfig(t)
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(&fakeRunner{}))

	if err := m.PersistFstab(testAssignment(cfg), disk.BackendParityPool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(cfg.Paths.FstabPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "# >>> platter managed block >>>") {
		t.Fatalf("sentinel missing:\n%s", content)
	}
	if !strings.Contains(content, "fuse.mergerfs") {
		t.Fatalf("union entry missing:\n%s", content)
	}
	if !strings.Contains(content, "/dev/sdc1") {
		t.Fatalf("parity entry missing:\n%s", content)
	}
}

func TestPersistFstabKernelArrayWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(&fakeRunner{}))

	if err := m.PersistFstab(testAssignment(cfg), disk.BackendKernelArray); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.FstabPath); !os.IsNotExist(err) {
		t.Fatalf("expected no fstab written, got %v", err)
	}
}

func TestUnmountAllIsBestEffort(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{err: errors.New("not mounted")}
	m := pool.New(cfg, logging.NewNop(), pool.WithRunner(runner))
	a := testAssignment(cfg)

	m.UnmountAll(context.Background(), a)

	if len(runner.commands) != 4 {
		t.Fatalf("expected 4 unmount attempts, got %v", runner.commands)
	}
	if !strings.HasPrefix(runner.commands[0], "umount "+cfg.Paths.PoolMount) {
		t.Fatalf("pool mount not unmounted first: %v", runner.commands)
	}
}
