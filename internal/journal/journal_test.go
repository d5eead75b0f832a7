package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"platter/internal/config"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/supervisor"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *journal.Store {
	t.Helper()
	store, err := journal.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordStartCreatesRunningRow(t *testing.T) {
	store := openStore(t, testConfig(t))

	started := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	store.RecordStart(supervisor.KindSync, "run-1", started)

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.RunID != "run-1" || run.Kind != supervisor.KindSync {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.State != supervisor.StateRunning || run.FinishedAt != nil {
		t.Fatalf("expected running state: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("started at = %v, want %v", run.StartedAt, started)
	}
}

func TestRecordFinishUpdatesTerminalState(t *testing.T) {
	store := openStore(t, testConfig(t))

	started := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Minute)
	exitCode := 1
	store.RecordStart(supervisor.KindScrub, "run-2", started)
	store.RecordFinish(supervisor.Status{
		Kind:       supervisor.KindScrub,
		RunID:      "run-2",
		State:      supervisor.StateFailed,
		Progress:   55,
		StatusText: "Scrubbing...",
		Error:      "exit status 1 (exit code 1)",
		ExitCode:   &exitCode,
		FinishedAt: &finished,
	})

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.State != supervisor.StateFailed || run.Progress != 55 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.ExitCode == nil || *run.ExitCode != 1 {
		t.Fatalf("exit code not stored: %+v", run)
	}
	if run.FinishedAt == nil || !run.FinishedAt.Equal(finished) {
		t.Fatalf("finished at not stored: %+v", run)
	}
	if run.Error == "" || run.StatusText != "Scrubbing..." {
		t.Fatalf("text fields not stored: %+v", run)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openStore(t, testConfig(t))

	base := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	store.RecordStart(supervisor.KindSync, "older", base)
	store.RecordStart(supervisor.KindScrub, "newer", base.Add(time.Hour))

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "newer" || runs[1].RunID != "older" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := openStore(t, testConfig(t))

	base := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.RecordStart(supervisor.KindSync, string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
	}

	runs, err := store.Recent(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
}

func TestRunsSurviveReopen(t *testing.T) {
	cfg := testConfig(t)

	store, err := journal.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	store.RecordStart(supervisor.KindCheck, "run-3", time.Now().UTC())
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openStore(t, cfg)
	runs, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-3" {
		t.Fatalf("runs lost across reopen: %+v", runs)
	}
}
