package array

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/confgen"
	"platter/internal/disk"
	"platter/internal/fileutil"
	"platter/internal/logging"
	"platter/internal/services"
	"platter/internal/services/nonraid"
	"platter/internal/supervisor"
)

// Configure pipeline steps, in execution order.
const (
	StepPartition        = "partition"
	StepArrayCreate      = "array-create"
	StepArrayStart       = "array-start"
	StepFilesystemCreate = "filesystem-create"
	StepMount            = "mount"
	StepShareConfig      = "share-config"
	StepInitialCheck     = "initial-check"
)

var stepOrder = []string{
	StepPartition,
	StepArrayCreate,
	StepArrayStart,
	StepFilesystemCreate,
	StepMount,
	StepShareConfig,
	StepInitialCheck,
}

// Request names the member disks and share presentation for a configure
// run. Callers validate it before starting the pipeline.
type Request struct {
	DataDisks  []string `json:"dataDisks"`
	ParityDisk string   `json:"parityDisk"`
	ShareMode  string   `json:"shareMode,omitempty"`
}

// Option configures the manager.
type Option func(*Manager)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(m *Manager) {
		if runner != nil {
			m.runner = runner
		}
	}
}

// Manager owns the kernel-array backend operations.
type Manager struct {
	cfg     *config.Config
	client  *nonraid.Client
	runner  services.Runner
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs an array manager from the configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		runner:  services.NewCommandRunner(),
		timeout: time.Duration(cfg.Operations.CommandTimeout) * time.Second,
		logger:  logging.NewComponentLogger(logger, "array"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.client = nonraid.New(cfg, logger, nonraid.WithRunner(m.runner))
	return m
}

// Configure executes the pipeline under t, which must already be running.
// Each step maps its own 0-100 progress into one slice of the overall
// percentage. The first failing step stops the pipeline; the tracker keeps
// the step name for the poller.
func (m *Manager) Configure(ctx context.Context, t *supervisor.Tracker, req Request) error {
	steps := []struct {
		name string
		fn   func(context.Context, *supervisor.Tracker, int, Request) error
	}{
		{StepPartition, m.partitionDisks},
		{StepArrayCreate, m.createArray},
		{StepArrayStart, m.startArray},
		{StepFilesystemCreate, m.createFilesystems},
		{StepMount, m.mountArray},
		{StepShareConfig, m.writeShareConfig},
		{StepInitialCheck, m.initialCheck},
	}

	logger := logging.WithContext(ctx, m.logger)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.SetStep(step.name)
		logger.Info("configure step starting",
			logging.String(logging.FieldStep, step.name))
		if err := step.fn(ctx, t, i, req); err != nil {
			return err
		}
		t.SetProgress(stepSpan(i, 100))
		logger.Info("configure step finished",
			logging.String(logging.FieldStep, step.name))
	}
	return nil
}

// Start brings an already-created array online.
func (m *Manager) Start(ctx context.Context) error {
	return m.client.Start(ctx)
}

// Stop takes the array offline.
func (m *Manager) Stop(ctx context.Context) error {
	return m.client.Stop(ctx)
}

// Check runs a parity check, streaming output lines to onLine.
func (m *Manager) Check(ctx context.Context, onLine func(string)) error {
	return m.client.Check(ctx, onLine)
}

// stepSpan maps one step's own progress into the overall percentage,
// giving every step an equal slice.
func stepSpan(stepIndex, sub int) int {
	if sub < 0 {
		sub = 0
	}
	if sub > 100 {
		sub = 100
	}
	return (stepIndex*100 + sub) / len(stepOrder)
}

func (m *Manager) partitionDisks(ctx context.Context, t *supervisor.Tracker, stepIndex int, req Request) error {
	members := append(append([]string{}, req.DataDisks...), req.ParityDisk)
	parted := m.cfg.PartedBinary()
	for n, id := range members {
		device := "/dev/" + id
		commands := [][]string{
			{parted, "-s", device, "mklabel", "gpt"},
			{parted, "-s", "-a", "optimal", device, "mkpart", "primary", "0%", "100%"},
			{m.cfg.PartprobeBinary(), device},
		}
		for _, argv := range commands {
			if err := m.runCommand(ctx, StepPartition, argv); err != nil {
				return err
			}
		}
		t.SetProgress(stepSpan(stepIndex, (n+1)*100/len(members)))
	}
	return nil
}

func (m *Manager) createArray(ctx context.Context, _ *supervisor.Tracker, _ int, req Request) error {
	return m.client.Create(ctx, req.DataDisks, req.ParityDisk, m.lineLogger(StepArrayCreate))
}

func (m *Manager) startArray(ctx context.Context, _ *supervisor.Tracker, _ int, _ Request) error {
	return m.client.Start(ctx)
}

func (m *Manager) createFilesystems(ctx context.Context, t *supervisor.Tracker, stepIndex int, req Request) error {
	mkfs := m.cfg.MkfsBinary()
	for n := range req.DataDisks {
		ordinal := n + 1
		argv := []string{mkfs, "-F", "-L", fmt.Sprintf("array%d", ordinal), m.dataDevice(ordinal)}
		if err := m.runCommand(ctx, StepFilesystemCreate, argv); err != nil {
			return err
		}
		t.SetProgress(stepSpan(stepIndex, ordinal*100/len(req.DataDisks)))
	}
	return nil
}

func (m *Manager) mountArray(ctx context.Context, _ *supervisor.Tracker, _ int, _ Request) error {
	return m.client.Mount(ctx)
}

func (m *Manager) writeShareConfig(_ context.Context, _ *supervisor.Tracker, _ int, req Request) error {
	specs := make([]disk.Spec, 0, len(req.DataDisks))
	for _, id := range req.DataDisks {
		specs = append(specs, disk.Spec{ID: id, Role: disk.RoleData})
	}
	assignment := disk.BuildAssignment(specs, m.cfg.Paths.MountBase)

	mode := req.ShareMode
	if mode == "" {
		mode = m.cfg.Pool.ShareMode
	}
	shares := confgen.SharePlan(assignment, mode, m.cfg.Pool.ShareCategories, m.cfg.Paths.PoolMount)
	text := confgen.SambaShares(shares)

	path := m.cfg.Paths.SambaSharesConfig
	if _, err := fileutil.BackupFile(path); err != nil {
		return services.Wrap(services.ErrConfiguration, "array", StepShareConfig, "back up existing share config", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "array", StepShareConfig, "write share config", err)
	}

	m.logger.Info("share config written",
		logging.String(logging.FieldPath, path),
		logging.Int("share_count", len(shares)))
	return nil
}

func (m *Manager) initialCheck(ctx context.Context, t *supervisor.Tracker, stepIndex int, _ Request) error {
	return m.client.Check(ctx, func(line string) {
		if update, ok := supervisor.ParseLine(line); ok && update.Percent >= 0 {
			t.SetProgress(stepSpan(stepIndex, update.Percent))
		}
	})
}

// dataDevice returns the filesystem partition for the Nth data disk. The
// kernel driver exposes data disk N as <prefix>N; partition naming follows
// the trailing-digit rule.
func (m *Manager) dataDevice(ordinal int) string {
	prefix := strings.TrimPrefix(m.cfg.Array.Device, "/dev/")
	return "/dev/" + disk.PartitionName(fmt.Sprintf("%s%d", prefix, ordinal))
}

func (m *Manager) runCommand(ctx context.Context, step string, argv []string) error {
	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	rendered := services.CommandLine(argv[0], argv[1:])
	m.logger.Debug("running command",
		logging.String(logging.FieldStep, step),
		logging.String(logging.FieldCommand, rendered))

	if err := m.runner.Run(runCtx, argv[0], argv[1:], m.lineLogger(step)); err != nil {
		return services.Wrap(services.ErrExternalTool, "array", step, rendered, err)
	}
	return nil
}

func (m *Manager) lineLogger(step string) func(string) {
	return func(line string) {
		m.logger.Debug("command output",
			logging.String(logging.FieldStep, step),
			logging.String("line", line))
	}
}
