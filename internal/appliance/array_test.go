package appliance_test

import (
	"context"
	"errors"
	"testing"

	"platter/internal/array"
	"platter/internal/disk"
	"platter/internal/services"
	"platter/internal/state"
	"platter/internal/supervisor"
)

func TestStartArrayConfigurePersistsStateAfterPipeline(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)
	f.runner.lines = map[string][]string{"nmdctl status": {"State: STARTED", "Parity: valid"}}

	runID, err := f.app.StartArrayConfigure(context.Background(), array.Request{
		DataDisks:  []string{"sdb", "sdc"},
		ParityDisk: "sdd",
	})
	if err != nil {
		t.Fatalf("start configure: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	status := waitForState(t, f.set.Configure(), supervisor.StateCompleted)
	if status.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", status.Progress)
	}

	if !f.store.Configured() {
		t.Fatal("pool should be configured after the pipeline")
	}
	roles := f.store.Current().StorageConfig
	if len(roles) != 3 || roles[2].Role != disk.RoleParity || roles[2].ID != "sdd" {
		t.Fatalf("unexpected persisted roles: %#v", roles)
	}

	for _, want := range []string{
		"nmdctl create -p sdd -d sdb,sdc",
		"nmdctl start",
		"nmdctl mount",
		"nmdctl check",
	} {
		if !f.runner.has(want) {
			t.Fatalf("missing command %q in %#v", want, f.runner.recorded())
		}
	}
}

func TestStartArrayConfigureDoesNotPersistOnFailure(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)
	f.runner.failOn = "nmdctl create"

	if _, err := f.app.StartArrayConfigure(context.Background(), array.Request{
		DataDisks:  []string{"sdb"},
		ParityDisk: "sdc",
	}); err != nil {
		t.Fatalf("start configure: %v", err)
	}

	status := waitForState(t, f.set.Configure(), supervisor.StateFailed)
	if status.Step != array.StepArrayCreate {
		t.Fatalf("expected failure in %s, got %q", array.StepArrayCreate, status.Step)
	}
	if f.store.Configured() {
		t.Fatal("pool must stay unconfigured after a failed pipeline")
	}
}

func TestStartArrayConfigureValidatesRequest(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)

	_, err := f.app.StartArrayConfigure(context.Background(), array.Request{
		DataDisks: []string{"sdb"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing parity, got %v", err)
	}

	_, err = f.app.StartArrayConfigure(context.Background(), array.Request{
		DataDisks:  []string{"sdb"},
		ParityDisk: "sdc",
		ShareMode:  "sideways",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for share mode, got %v", err)
	}
}

func TestStartArrayConfigureRejectsWrongBackend(t *testing.T) {
	f := newFixture(t, disk.BackendParityPool)

	_, err := f.app.StartArrayConfigure(context.Background(), array.Request{
		DataDisks:  []string{"sdb"},
		ParityDisk: "sdc",
	})
	if !errors.Is(err, services.ErrBackendMismatch) {
		t.Fatalf("expected backend mismatch, got %v", err)
	}
}

func TestArrayStatusRequiresConfiguration(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)

	_, err := f.app.ArrayStatus(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArrayStatusReportsParsedState(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)
	f.seedConfigured(t,
		state.DiskRole{ID: "sdb", Role: disk.RoleData},
		state.DiskRole{ID: "sdc", Role: disk.RoleParity},
	)
	f.runner.lines = map[string][]string{
		"nmdctl status": {"State: STARTED", "Parity: valid", "Parity disk: sdc"},
	}

	status, err := f.app.ArrayStatus(context.Background())
	if err != nil {
		t.Fatalf("array status: %v", err)
	}
	if !status.Started || !status.ParityValid || status.ParityDisk != "sdc" {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestStartParityCheckTracksProgress(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)
	f.seedConfigured(t,
		state.DiskRole{ID: "sdb", Role: disk.RoleData},
		state.DiskRole{ID: "sdc", Role: disk.RoleParity},
	)
	f.runner.lines = map[string][]string{"nmdctl check": {"checking 30%", "checking 80%", "check completed"}}

	runID, err := f.app.StartParityCheck(context.Background())
	if err != nil {
		t.Fatalf("start check: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	status := waitForState(t, f.set.Check(), supervisor.StateCompleted)
	if status.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", status.Progress)
	}
}

func TestStartAndStopArrayPassThrough(t *testing.T) {
	f := newFixture(t, disk.BackendKernelArray)

	if err := f.app.StartArray(context.Background()); err != nil {
		t.Fatalf("start array: %v", err)
	}
	if err := f.app.StopArray(context.Background()); err != nil {
		t.Fatalf("stop array: %v", err)
	}
	if !f.runner.has("nmdctl start") || !f.runner.has("nmdctl stop") {
		t.Fatalf("missing passthrough commands: %#v", f.runner.recorded())
	}

	other := newFixture(t, disk.BackendParityPool)
	if err := other.app.StartArray(context.Background()); !errors.Is(err, services.ErrBackendMismatch) {
		t.Fatalf("expected backend mismatch, got %v", err)
	}
}

func TestDiskInventoryMergesPersistedRoles(t *testing.T) {
	scans := 0
	f := newFixture(t, disk.BackendParityPool, withScan(&scans, []disk.Physical{
		{Name: "sda", SizeBytes: 500e9},
		{Name: "sdb", SizeBytes: 4e12},
	}))
	f.seedConfigured(t, state.DiskRole{ID: "sdb", Role: disk.RoleData})

	infos, err := f.app.DiskInventory()
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 disks, got %#v", infos)
	}
	if infos[0].Role != disk.RoleNone || infos[1].Role != disk.RoleData {
		t.Fatalf("unexpected roles: %#v", infos)
	}
}

func TestDiskInventoryCachesUntilInvalidated(t *testing.T) {
	scans := 0
	f := newFixture(t, disk.BackendParityPool, withScan(&scans, []disk.Physical{{Name: "sda"}}))

	if _, err := f.app.DiskInventory(); err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if _, err := f.app.DiskInventory(); err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if scans != 1 {
		t.Fatalf("expected a single scan, got %d", scans)
	}

	f.app.InvalidateInventory()
	if _, err := f.app.DiskInventory(); err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if scans != 2 {
		t.Fatalf("expected rescan after invalidation, got %d", scans)
	}
}
