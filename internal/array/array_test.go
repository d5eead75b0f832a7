package array_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"platter/internal/array"
	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/services"
	"platter/internal/supervisor"
)

type fakeRunner struct {
	mu          sync.Mutex
	commands    []string
	failOn      string
	statusLines []string
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	rendered := services.CommandLine(binary, args)
	f.mu.Lock()
	f.commands = append(f.commands, rendered)
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(rendered, f.failOn) {
		return errors.New("simulated failure")
	}
	if len(args) > 0 && args[0] == "status" && onLine != nil {
		for _, line := range f.statusLines {
			onLine(line)
		}
	}
	return nil
}

func (f *fakeRunner) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MountBase = filepath.Join(dir, "mnt")
	cfg.Paths.PoolMount = filepath.Join(dir, "pool")
	cfg.Paths.SambaSharesConfig = filepath.Join(dir, "shares.conf")
	return cfg
}

func startTracker(t *testing.T) (*supervisor.Tracker, context.Context) {
	t.Helper()
	tracker := supervisor.NewTracker(supervisor.KindConfigure, logging.NewNop())
	ctx, err := tracker.TryStart(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("start tracker: %v", err)
	}
	return tracker, ctx
}

func TestConfigureRunsFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))
	tracker, ctx := startTracker(t)

	req := array.Request{DataDisks: []string{"sda", "sdb"}, ParityDisk: "sdc", ShareMode: "individual"}
	err := mgr.Configure(ctx, tracker, req)
	tracker.Finish(err)
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	want := []string{
		"parted -s /dev/sda mklabel gpt",
		"parted -s -a optimal /dev/sda mkpart primary 0% 100%",
		"partprobe /dev/sda",
		"parted -s /dev/sdb mklabel gpt",
		"parted -s -a optimal /dev/sdb mkpart primary 0% 100%",
		"partprobe /dev/sdb",
		"parted -s /dev/sdc mklabel gpt",
		"parted -s -a optimal /dev/sdc mkpart primary 0% 100%",
		"partprobe /dev/sdc",
		"nmdctl create -p sdc -d sda,sdb",
		"nmdctl start",
		"mkfs.ext4 -F -L array1 /dev/nmd1p1",
		"mkfs.ext4 -F -L array2 /dev/nmd2p1",
		"nmdctl mount",
		"nmdctl check",
	}
	got := runner.recorded()
	if len(got) != len(want) {
		t.Fatalf("expected %d commands, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}

	data, err := os.ReadFile(cfg.Paths.SambaSharesConfig)
	if err != nil {
		t.Fatalf("share config not written: %v", err)
	}
	for _, section := range []string{"[Disk1]", "[Disk2]"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("share config missing %s", section)
		}
	}

	status := tracker.Snapshot()
	if status.State != supervisor.StateCompleted || status.Progress != 100 {
		t.Fatalf("unexpected terminal status: %+v", status)
	}
	if status.Step != array.StepInitialCheck {
		t.Fatalf("expected final step %q, got %q", array.StepInitialCheck, status.Step)
	}
}

func TestConfigureStopsAtFilesystemCreateFailure(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{failOn: "mkfs.ext4"}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))
	tracker, ctx := startTracker(t)

	req := array.Request{DataDisks: []string{"sda", "sdb"}, ParityDisk: "sdc"}
	err := mgr.Configure(ctx, tracker, req)
	tracker.Finish(err)

	if err == nil {
		t.Fatal("expected configure to fail")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	status := tracker.Snapshot()
	if status.Step != array.StepFilesystemCreate {
		t.Fatalf("expected step %q, got %q", array.StepFilesystemCreate, status.Step)
	}
	if status.Running {
		t.Fatal("tracker still running after failure")
	}
	if status.Error == "" {
		t.Fatal("expected error text in status")
	}

	for _, cmd := range runner.recorded() {
		if cmd == "nmdctl mount" {
			t.Fatal("mount attempted after filesystem-create failure")
		}
	}
	if _, err := os.Stat(cfg.Paths.SambaSharesConfig); !os.IsNotExist(err) {
		t.Fatal("share config written after filesystem-create failure")
	}
}

func TestConfigureProgressReflectsCompletedSteps(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{failOn: "create"}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))
	tracker, ctx := startTracker(t)

	req := array.Request{DataDisks: []string{"sda", "sdb"}, ParityDisk: "sdc"}
	err := mgr.Configure(ctx, tracker, req)
	tracker.Finish(err)
	if err == nil {
		t.Fatal("expected configure to fail")
	}

	// The partition step completed, one of seven equal slices.
	status := tracker.Snapshot()
	if status.Progress != 100/7 {
		t.Fatalf("progress = %d, want %d", status.Progress, 100/7)
	}
	if status.Step != array.StepArrayCreate {
		t.Fatalf("expected step %q, got %q", array.StepArrayCreate, status.Step)
	}
}

func TestConfigureMergedShareMode(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))
	tracker, ctx := startTracker(t)

	req := array.Request{DataDisks: []string{"sda"}, ParityDisk: "sdb", ShareMode: "merged"}
	err := mgr.Configure(ctx, tracker, req)
	tracker.Finish(err)
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	data, err := os.ReadFile(cfg.Paths.SambaSharesConfig)
	if err != nil {
		t.Fatalf("share config not written: %v", err)
	}
	if !strings.Contains(string(data), "[Pool]") {
		t.Error("merged mode should produce a single Pool share")
	}
	if !strings.Contains(string(data), cfg.Paths.PoolMount) {
		t.Error("Pool share should point at the pool mount")
	}
}

func TestStatusCombinesArrayReportAndUsage(t *testing.T) {
	cfg := testConfig(t)
	for _, dir := range []string{"disk1", "disk2"} {
		if err := os.MkdirAll(filepath.Join(cfg.Paths.MountBase, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{statusLines: []string{
		"State: STARTED",
		"Parity: valid",
		"Parity disk: sdc",
		"Data disks: sda sdb",
	}}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))

	status, err := mgr.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	if !status.Started || !status.ParityValid || status.ParityDisk != "sdc" {
		t.Fatalf("unexpected array report: %+v", status)
	}
	if len(status.Disks) != 2 {
		t.Fatalf("expected two disk usage entries, got %d", len(status.Disks))
	}
	first := status.Disks[0]
	if first.Disk != "sda" || !strings.HasSuffix(first.MountPoint, "disk1") {
		t.Fatalf("unexpected first usage entry: %+v", first)
	}
	if first.TotalBytes == 0 {
		t.Error("expected non-zero filesystem size for an existing mount point")
	}
}

func TestStatusSurfacesClientError(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{failOn: "status"}
	mgr := array.New(cfg, logging.NewNop(), array.WithRunner(runner))

	if _, err := mgr.Status(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
