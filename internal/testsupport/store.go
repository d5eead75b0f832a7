package testsupport

import (
	"testing"

	"platter/internal/config"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/state"
)

// MustOpenJournal opens an operation journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenState opens a pool-configuration store for tests.
func MustOpenState(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.NewStore(cfg.PoolStatePath(), logging.NewNop())
	if err != nil {
		t.Fatalf("state.NewStore: %v", err)
	}
	return store
}

// SeedBackend writes a backend-selection file for tests.
func SeedBackend(t testing.TB, cfg *config.Config, backend string) {
	t.Helper()

	WriteFile(t, cfg.BackendPath(), "backend="+backend+"\n")
}
