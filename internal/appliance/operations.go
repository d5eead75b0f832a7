package appliance

import (
	"context"

	"github.com/google/uuid"

	"platter/internal/disk"
	"platter/internal/logging"
	"platter/internal/supervisor"
)

// StartSync starts a background parity sync and returns its run ID. A
// sync already in flight is a conflict; the caller decides whether that
// matters.
func (a *Appliance) StartSync(ctx context.Context) (string, error) {
	if err := a.requireBackend(disk.BackendParityPool, "sync"); err != nil {
		return "", err
	}
	if err := a.requireConfigured("sync"); err != nil {
		return "", err
	}
	if err := a.preflightBinaries("sync", a.cfg.Snapraid.Binary); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if err := a.trackers.Sync().Run(a.base, runID, a.runSync); err != nil {
		return "", err
	}
	return runID, nil
}

// SyncStatus returns the current sync snapshot.
func (a *Appliance) SyncStatus() supervisor.Status {
	return a.trackers.Sync().Snapshot()
}

// RunScrub verifies a slice of synced data and blocks until the tool
// exits. The scrub tracker makes progress visible to status pollers and
// rejects overlapping scrubs; the tool's own timeout bounds the run.
func (a *Appliance) RunScrub(ctx context.Context) (supervisor.Status, error) {
	if err := a.requireBackend(disk.BackendParityPool, "scrub"); err != nil {
		return supervisor.Status{}, err
	}
	if err := a.requireConfigured("scrub"); err != nil {
		return supervisor.Status{}, err
	}
	if err := a.preflightBinaries("scrub", a.cfg.Snapraid.Binary); err != nil {
		return supervisor.Status{}, err
	}

	tracker := a.trackers.Scrub()
	runCtx, err := tracker.TryStart(ctx, uuid.NewString())
	if err != nil {
		return tracker.Snapshot(), err
	}

	runErr := a.parity.Scrub(runCtx, tracker.Observe)
	tracker.Finish(runErr)

	status := tracker.Snapshot()
	if status.State == supervisor.StateFailed && runErr != nil {
		return status, runErr
	}
	return status, nil
}

// ScrubStatus returns the current scrub snapshot.
func (a *Appliance) ScrubStatus() supervisor.Status {
	return a.trackers.Scrub().Snapshot()
}

// runSync drives one supervised parity sync.
func (a *Appliance) runSync(ctx context.Context, observe func(string)) error {
	logging.WithContext(ctx, a.logger).Info("parity sync starting")
	return a.parity.Sync(ctx, observe)
}
