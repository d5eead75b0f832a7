package appliance

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"platter/internal/confgen"
	"platter/internal/disk"
	"platter/internal/fileutil"
	"platter/internal/logging"
	"platter/internal/prepare"
	"platter/internal/services"
	"platter/internal/state"
)

// SubmitResult reports what a pool submission did. Steps and warnings come
// straight from the preparation run; a submission with warnings still
// succeeds as long as at least one data disk made it through.
type SubmitResult struct {
	Steps       []prepare.StepLog `json:"steps,omitempty"`
	Warnings    []prepare.Warning `json:"warnings,omitempty"`
	MountPoints []string          `json:"mountPoints,omitempty"`
	SyncStarted bool              `json:"syncStarted"`
	SyncRunID   string            `json:"syncRunId,omitempty"`
}

// SubmitPoolConfiguration runs the parity-pool configure sequence end to
// end: validate the plan, prepare flagged disks, generate the parity and
// share configs, mount members and the union, persist fstab entries, and
// finally record the configuration. The initial parity sync starts in the
// background once everything else is in place.
//
// Disks whose preparation fails are dropped from the pool with a warning;
// the remaining disks continue. Resubmitting the same plan is safe since
// ordinals and mount points derive from input order alone.
func (a *Appliance) SubmitPoolConfiguration(ctx context.Context, specs []disk.Spec) (SubmitResult, error) {
	var out SubmitResult

	if err := a.requireBackend(disk.BackendParityPool, "pool submit"); err != nil {
		return out, err
	}
	if err := disk.ValidatePlan(specs, a.backend); err != nil {
		return out, err
	}

	assignment := disk.BuildAssignment(specs, a.cfg.Paths.MountBase)
	a.logger.Info("pool submission accepted",
		logging.Int("data_disks", len(assignment.Data)),
		logging.Int("parity_disks", len(assignment.Parity)),
		logging.Int("cache_disks", len(assignment.Cache)))

	// Mount points may be leftovers from an earlier configuration.
	a.pool.UnmountAll(ctx, assignment)

	prepResult, err := a.preparer.Run(ctx, assignment.All(), nil)
	out.Steps = prepResult.Steps
	out.Warnings = prepResult.Warnings
	if err != nil {
		return out, services.Wrap(services.ErrConfiguration, "appliance", "pool submit", "preparation aborted", err)
	}

	usable, dropped := pruneFailed(assignment, prepResult.Warnings)
	if len(dropped) > 0 {
		logging.WarnWithContext(a.logger, "disks dropped from pool after failed preparation", "pool_disks_dropped",
			logging.String(logging.FieldDisk, strings.Join(dropped, ",")),
			logging.String(logging.FieldErrorHint, "inspect the disks and resubmit to include them"),
			logging.String(logging.FieldImpact, "pool configured without the failed disks"))
	}
	if len(usable.Data) == 0 {
		return out, services.Wrap(services.ErrConfiguration, "appliance", "pool submit", "no data disks available after preparation", nil)
	}

	if len(usable.Parity) > 0 {
		if err := a.writeManagedFile(a.cfg.Paths.SnapraidConfig, confgen.SnapraidConf(usable)); err != nil {
			return out, services.Wrap(services.ErrConfiguration, "appliance", "pool submit", "write parity config", err)
		}
	} else {
		a.logger.Info("no parity disk in plan, skipping parity config")
	}

	if err := a.pool.MountAll(ctx, usable); err != nil {
		return out, err
	}
	if err := a.pool.MountUnion(ctx, usable); err != nil {
		return out, err
	}
	if err := a.pool.ApplyPermissions(usable); err != nil {
		return out, err
	}
	if err := a.pool.PersistFstab(usable, a.backend); err != nil {
		return out, err
	}

	shares := confgen.SharePlan(usable, a.cfg.Pool.ShareMode, a.cfg.Pool.ShareCategories, a.cfg.Paths.PoolMount)
	if len(shares) > 0 {
		if err := a.writeManagedFile(a.cfg.Paths.SambaSharesConfig, confgen.SambaShares(shares)); err != nil {
			return out, services.Wrap(services.ErrConfiguration, "appliance", "pool submit", "write share config", err)
		}
	}

	if err := a.store.Replace(state.PoolConfig{
		StorageConfig:  persistedRoles(usable),
		PoolConfigured: true,
	}); err != nil {
		return out, services.Wrap(services.ErrConfiguration, "appliance", "pool submit", "persist pool state", err)
	}

	for _, entry := range usable.All() {
		out.MountPoints = append(out.MountPoints, entry.MountPoint)
	}

	if len(usable.Parity) > 0 {
		runID := uuid.NewString()
		startErr := a.preflightBinaries("pool submit", a.cfg.Snapraid.Binary)
		if startErr == nil {
			startErr = a.trackers.Sync().Run(a.base, runID, a.runSync)
		}
		if startErr != nil {
			logging.WarnWithContext(a.logger, "initial sync not started", "initial_sync_skipped",
				logging.String(logging.FieldErrorHint, "start it manually once the running operation finishes"),
				logging.String(logging.FieldImpact, "new data is unprotected until the first sync"),
				logging.Error(startErr))
		} else {
			out.SyncStarted = true
			out.SyncRunID = runID
		}
	}

	a.logger.Info("pool configured",
		logging.Int("mount_points", len(out.MountPoints)),
		logging.Bool("sync_started", out.SyncStarted))
	return out, nil
}

// writeManagedFile backs up any existing file at path and atomically
// replaces it.
func (a *Appliance) writeManagedFile(path, content string) error {
	if _, err := fileutil.BackupFile(path); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return err
	}
	a.logger.Info("wrote managed config",
		logging.String(logging.FieldPath, path),
		logging.Int("bytes", len(content)))
	return nil
}

// pruneFailed removes entries whose disks accumulated preparation warnings,
// preserving the ordinals and mount points assigned to the survivors.
func pruneFailed(a disk.Assignment, warnings []prepare.Warning) (disk.Assignment, []string) {
	if len(warnings) == 0 {
		return a, nil
	}
	failed := make(map[string]struct{}, len(warnings))
	for _, w := range warnings {
		failed[w.Disk] = struct{}{}
	}

	keep := func(entries []disk.Entry) []disk.Entry {
		kept := entries[:0:0]
		for _, entry := range entries {
			if _, bad := failed[entry.Spec.ID]; !bad {
				kept = append(kept, entry)
			}
		}
		return kept
	}

	pruned := disk.Assignment{
		Data:   keep(a.Data),
		Parity: keep(a.Parity),
		Cache:  keep(a.Cache),
	}

	dropped := make([]string, 0, len(failed))
	for _, entry := range a.All() {
		if _, bad := failed[entry.Spec.ID]; bad {
			dropped = append(dropped, entry.Spec.ID)
		}
	}
	return pruned, dropped
}

// persistedRoles flattens an assignment into the durable role records.
func persistedRoles(a disk.Assignment) []state.DiskRole {
	entries := a.All()
	roles := make([]state.DiskRole, 0, len(entries))
	for _, entry := range entries {
		roles = append(roles, state.DiskRole{ID: entry.Spec.ID, Role: entry.Spec.Role})
	}
	return roles
}
