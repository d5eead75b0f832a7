package appliance_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"platter/internal/appliance"
	"platter/internal/config"
	"platter/internal/disk"
	"platter/internal/logging"
	"platter/internal/services"
	"platter/internal/state"
	"platter/internal/supervisor"
	"platter/internal/testsupport"
)

type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	failOn   string
	lines    map[string][]string
	gate     chan struct{}
	gateOn   string
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	rendered := services.CommandLine(binary, args)
	f.mu.Lock()
	f.commands = append(f.commands, rendered)
	failOn := f.failOn
	gate, gateOn := f.gate, f.gateOn
	var emit []string
	for substr, lines := range f.lines {
		if strings.Contains(rendered, substr) {
			emit = append(emit, lines...)
		}
	}
	f.mu.Unlock()

	if gate != nil && gateOn != "" && strings.Contains(rendered, gateOn) {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if onLine != nil {
		for _, line := range emit {
			onLine(line)
		}
	}
	if failOn != "" && strings.Contains(rendered, failOn) {
		return errors.New("simulated failure")
	}
	return nil
}

func (f *fakeRunner) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeRunner) has(substr string) bool {
	for _, command := range f.recorded() {
		if strings.Contains(command, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	cfg    *config.Config
	runner *fakeRunner
	store  *state.Store
	set    *supervisor.Set
	app    *appliance.Appliance
}

func newFixture(t *testing.T, backend disk.Backend, opts ...appliance.Option) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testsupport.NewConfig(t), backend, supervisor.NewSet(logging.NewNop()), opts...)
}

func newFixtureWithConfig(t *testing.T, cfg *config.Config, backend disk.Backend, set *supervisor.Set, opts ...appliance.Option) *fixture {
	t.Helper()

	runner := &fakeRunner{}
	store := testsupport.MustOpenState(t, cfg)

	all := append([]appliance.Option{
		appliance.WithRunner(runner),
		appliance.WithGroupLookup(func(string) (int, error) { return os.Getgid(), nil }),
	}, opts...)
	app := appliance.New(context.Background(), cfg, backend, store, set, logging.NewNop(), all...)

	return &fixture{cfg: cfg, runner: runner, store: store, set: set, app: app}
}

// withScan injects a canned disk scan that counts invocations.
func withScan(counter *int, disks []disk.Physical) appliance.Option {
	return appliance.WithInventory(func() ([]disk.Physical, error) {
		*counter++
		return disks, nil
	})
}

// seedConfigured persists a minimal pool configuration so operations that
// require one can start.
func (f *fixture) seedConfigured(t *testing.T, roles ...state.DiskRole) {
	t.Helper()
	if len(roles) == 0 {
		roles = []state.DiskRole{
			{ID: "sdb", Role: disk.RoleData},
			{ID: "sdc", Role: disk.RoleParity},
		}
	}
	if err := f.store.Replace(state.PoolConfig{StorageConfig: roles, PoolConfigured: true}); err != nil {
		t.Fatalf("seed pool state: %v", err)
	}
}

func waitForState(t *testing.T, tracker *supervisor.Tracker, want string) supervisor.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status := tracker.Snapshot()
		if status.State == want {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("tracker %s never reached state %s (now %s)", tracker.Kind(), want, tracker.Snapshot().State)
	return supervisor.Status{}
}

func TestSubmitConfiguresPoolEndToEnd(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)

	result, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData, Format: true},
		{ID: "sdc", Role: disk.RoleParity, Format: true},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %#v", result.Warnings)
	}
	if len(result.MountPoints) != 2 {
		t.Fatalf("expected 2 mount points, got %#v", result.MountPoints)
	}
	for _, mp := range result.MountPoints {
		if _, statErr := os.Stat(mp); statErr != nil {
			t.Fatalf("mount point %s missing: %v", mp, statErr)
		}
	}

	conf := testsupport.ReadFile(t, f.cfg.Paths.SnapraidConfig)
	if !strings.Contains(conf, "parity ") || !strings.Contains(conf, "disk d1 ") {
		t.Fatalf("parity config incomplete:\n%s", conf)
	}

	fstabText := testsupport.ReadFile(t, f.cfg.Paths.FstabPath)
	if !strings.Contains(fstabText, "platter managed block") {
		t.Fatalf("fstab missing managed block:\n%s", fstabText)
	}

	shares := testsupport.ReadFile(t, f.cfg.Paths.SambaSharesConfig)
	if !strings.Contains(shares, "[Disk1]") {
		t.Fatalf("share config missing Disk1 section:\n%s", shares)
	}

	if !f.store.Configured() {
		t.Fatal("pool should be marked configured")
	}
	roles := f.store.Current().StorageConfig
	if len(roles) != 2 || roles[0].ID != "sdb" || roles[1].Role != disk.RoleParity {
		t.Fatalf("unexpected persisted roles: %#v", roles)
	}

	if !result.SyncStarted || result.SyncRunID == "" {
		t.Fatalf("initial sync should start, got %#v", result)
	}
	waitForState(t, f.set.Sync(), supervisor.StateCompleted)
	if !f.runner.has("snapraid") || !f.runner.has("sync") {
		t.Fatalf("sync command not recorded: %#v", f.runner.recorded())
	}
}

func TestSubmitContinuesPastFailingDisk(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)
	f.runner.failOn = "-L data2"

	result, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData, Format: true},
		{ID: "sdc", Role: disk.RoleData, Format: true},
		{ID: "sdd", Role: disk.RoleData, Format: true},
		{ID: "sde", Role: disk.RoleParity, Format: true},
	})
	if err != nil {
		t.Fatalf("submit should succeed with warnings, got: %v", err)
	}

	if len(result.Warnings) != 1 || result.Warnings[0].Disk != "sdc" {
		t.Fatalf("expected one warning for sdc, got %#v", result.Warnings)
	}

	// Survivors keep the ordinals assigned before the failure.
	joined := strings.Join(result.MountPoints, " ")
	if strings.Contains(joined, "disk2") {
		t.Fatalf("failed disk should not be mounted: %#v", result.MountPoints)
	}
	if !strings.Contains(joined, "disk1") || !strings.Contains(joined, "disk3") {
		t.Fatalf("surviving disks missing from mounts: %#v", result.MountPoints)
	}

	conf := testsupport.ReadFile(t, f.cfg.Paths.SnapraidConfig)
	if strings.Contains(conf, "disk d2 ") {
		t.Fatalf("parity config should not reference the failed disk:\n%s", conf)
	}

	for _, role := range f.store.Current().StorageConfig {
		if role.ID == "sdc" {
			t.Fatalf("failed disk persisted in pool state: %#v", f.store.Current())
		}
	}
	waitForState(t, f.set.Sync(), supervisor.StateCompleted)
}

func TestSubmitRejectsWrongBackend(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)

	_, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData},
	})
	if !errors.Is(err, services.ErrBackendMismatch) {
		t.Fatalf("expected backend mismatch, got %v", err)
	}
	if len(f.runner.recorded()) != 0 {
		t.Fatalf("no commands should run on mismatch: %#v", f.runner.recorded())
	}
}

func TestSubmitValidatesPlanBeforeTouchingDisks(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)

	_, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData, Format: true},
		{ID: "sdb", Role: disk.RoleParity, Format: true},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.runner.recorded()) != 0 {
		t.Fatalf("no commands should run on invalid plan: %#v", f.runner.recorded())
	}
	if f.store.Configured() {
		t.Fatal("pool must stay unconfigured after a rejected plan")
	}
}

func TestSubmitWithoutParitySkipsSyncAndParityConfig(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)

	result, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData, Format: true},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.SyncStarted {
		t.Fatal("sync should not start without a parity disk")
	}
	if _, statErr := os.Stat(f.cfg.Paths.SnapraidConfig); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("parity config should not exist, stat: %v", statErr)
	}
	if !f.store.Configured() {
		t.Fatal("pool should still be configured")
	}
}

func TestSubmitFailsWhenEveryDataDiskFails(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)
	f.runner.failOn = "parted"

	_, err := f.app.SubmitPoolConfiguration(context.Background(), []disk.Spec{
		{ID: "sdb", Role: disk.RoleData, Format: true},
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if f.store.Configured() {
		t.Fatal("pool must stay unconfigured")
	}
}
