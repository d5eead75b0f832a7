package appliance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"platter/internal/array"
	"platter/internal/confgen"
	"platter/internal/disk"
	"platter/internal/services"
	"platter/internal/state"
	"platter/internal/supervisor"
)

// StartArrayConfigure validates the request and launches the array
// configure pipeline in the background, returning its run ID. The pool
// configuration is persisted only after the pipeline completes end to end.
func (a *Appliance) StartArrayConfigure(ctx context.Context, req array.Request) (string, error) {
	if err := a.requireBackend(disk.BackendKernelArray, "array configure"); err != nil {
		return "", err
	}
	if err := disk.ValidatePlan(configureSpecs(req), a.backend); err != nil {
		return "", err
	}
	if err := validateShareMode(req.ShareMode); err != nil {
		return "", err
	}
	if err := a.preflightBinaries("array configure",
		a.cfg.PartedBinary(), a.cfg.PartprobeBinary(), a.cfg.MkfsBinary(), a.cfg.Array.Binary); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	err := a.trackers.Configure().Run(a.base, runID, func(runCtx context.Context, _ func(string)) error {
		if err := a.array.Configure(runCtx, a.trackers.Configure(), req); err != nil {
			return err
		}
		if err := a.store.Replace(state.PoolConfig{
			StorageConfig:  configureRoles(req),
			PoolConfigured: true,
		}); err != nil {
			return services.Wrap(services.ErrConfiguration, "appliance", "array configure", "persist pool state", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// ArrayConfigureProgress returns the configure pipeline snapshot.
func (a *Appliance) ArrayConfigureProgress() supervisor.Status {
	return a.trackers.Configure().Snapshot()
}

// StartArray starts the configured array synchronously.
func (a *Appliance) StartArray(ctx context.Context) error {
	if err := a.requireBackend(disk.BackendKernelArray, "array start"); err != nil {
		return err
	}
	return a.array.Start(ctx)
}

// StopArray stops the array synchronously.
func (a *Appliance) StopArray(ctx context.Context) error {
	if err := a.requireBackend(disk.BackendKernelArray, "array stop"); err != nil {
		return err
	}
	return a.array.Stop(ctx)
}

// ArrayStatus reports array state and per-disk usage. It requires the
// kernel-array backend and a completed configuration.
func (a *Appliance) ArrayStatus(ctx context.Context) (array.Status, error) {
	if err := a.requireBackend(disk.BackendKernelArray, "array status"); err != nil {
		return array.Status{}, err
	}
	if !a.store.Configured() {
		return array.Status{}, services.Wrap(services.ErrNotFound, "appliance", "array status", "array not configured", nil)
	}
	return a.array.Status(ctx)
}

// StartParityCheck starts a background array parity check and returns its
// run ID.
func (a *Appliance) StartParityCheck(ctx context.Context) (string, error) {
	if err := a.requireBackend(disk.BackendKernelArray, "check"); err != nil {
		return "", err
	}
	if err := a.requireConfigured("check"); err != nil {
		return "", err
	}
	if err := a.preflightBinaries("check", a.cfg.Array.Binary); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if err := a.trackers.Check().Run(a.base, runID, a.runParityCheck); err != nil {
		return "", err
	}
	return runID, nil
}

// ParityCheckStatus returns the current parity-check snapshot.
func (a *Appliance) ParityCheckStatus() supervisor.Status {
	return a.trackers.Check().Snapshot()
}

// runParityCheck drives one supervised array parity check.
func (a *Appliance) runParityCheck(ctx context.Context, observe func(string)) error {
	return a.array.Check(ctx, observe)
}

// configureSpecs maps an array request onto the disk plan shape the
// validator understands.
func configureSpecs(req array.Request) []disk.Spec {
	specs := make([]disk.Spec, 0, len(req.DataDisks)+1)
	for _, id := range req.DataDisks {
		specs = append(specs, disk.Spec{ID: id, Role: disk.RoleData})
	}
	if req.ParityDisk != "" {
		specs = append(specs, disk.Spec{ID: req.ParityDisk, Role: disk.RoleParity})
	}
	return specs
}

// configureRoles flattens the request into durable role records.
func configureRoles(req array.Request) []state.DiskRole {
	roles := make([]state.DiskRole, 0, len(req.DataDisks)+1)
	for _, id := range req.DataDisks {
		roles = append(roles, state.DiskRole{ID: id, Role: disk.RoleData})
	}
	if req.ParityDisk != "" {
		roles = append(roles, state.DiskRole{ID: req.ParityDisk, Role: disk.RoleParity})
	}
	return roles
}

func validateShareMode(mode string) error {
	switch mode {
	case "", confgen.ShareModeIndividual, confgen.ShareModeMerged, confgen.ShareModeCategories:
		return nil
	default:
		return services.Wrap(services.ErrValidation, "appliance", "array configure", fmt.Sprintf("unknown share mode %q", mode), nil)
	}
}
