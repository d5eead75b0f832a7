package prepare

import (
	"context"
	"log/slog"
	"time"

	"platter/internal/config"
	"platter/internal/disk"
	"platter/internal/logging"
	"platter/internal/services"
)

// Step names recorded in step logs and warnings.
const (
	StepLabel     = "mklabel"
	StepPartition = "mkpart"
	StepProbe     = "partprobe"
	StepFormat    = "mkfs"
)

// StepLog records one executed command and its outcome.
type StepLog struct {
	Disk    string `json:"disk"`
	Step    string `json:"step"`
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
}

// Warning records a per-disk failure that did not stop the run.
type Warning struct {
	Disk  string `json:"disk"`
	Step  string `json:"step"`
	Error string `json:"error"`
}

// Result is the full step log of a preparation run plus any warnings
// accumulated along the way.
type Result struct {
	Steps    []StepLog `json:"steps"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Policy controls how a preparation run reacts to a failing disk.
type Policy struct {
	// ContinueOnError records the failure as a warning and moves on to the
	// next disk. When false the run aborts on the first failing step.
	ContinueOnError bool
}

// Option configures the preparer.
type Option func(*Preparer)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(p *Preparer) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// Preparer executes the per-disk partition and format sequence.
type Preparer struct {
	parted    string
	partprobe string
	mkfs      string
	timeout   time.Duration
	policy    Policy
	runner    services.Runner
	logger    *slog.Logger
}

// New constructs a preparer using the configured tool names and the
// per-command timeout.
func New(cfg *config.Config, logger *slog.Logger, policy Policy, opts ...Option) *Preparer {
	p := &Preparer{
		parted:    cfg.PartedBinary(),
		partprobe: cfg.PartprobeBinary(),
		mkfs:      cfg.MkfsBinary(),
		timeout:   time.Duration(cfg.Operations.CommandTimeout) * time.Second,
		policy:    policy,
		runner:    services.NewCommandRunner(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type stepCommand struct {
	step   string
	binary string
	args   []string
}

// Run prepares every entry flagged for formatting, in input order. Entries
// with Format=false are skipped untouched since they may hold data. The
// optional progress callback reports disks finished out of the formatted
// total. Context cancellation aborts between commands and is returned as
// the run error regardless of policy.
func (p *Preparer) Run(ctx context.Context, entries []disk.Entry, progress func(done, total int)) (Result, error) {
	var result Result

	total := 0
	for _, entry := range entries {
		if entry.Spec.Format {
			total++
		}
	}

	done := 0
	for _, entry := range entries {
		if !entry.Spec.Format {
			p.logger.Debug("skipping disk without format flag",
				logging.String(logging.FieldDisk, entry.Spec.ID))
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := p.prepareDisk(ctx, entry, &result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if !p.policy.ContinueOnError {
				return result, err
			}
		}

		done++
		if progress != nil {
			progress(done, total)
		}
	}
	return result, nil
}

// prepareDisk walks the command sequence for one disk, stopping at the
// first failure and recording it as a warning.
func (p *Preparer) prepareDisk(ctx context.Context, entry disk.Entry, result *Result) error {
	p.logger.Info("preparing disk",
		logging.String(logging.FieldDisk, entry.Spec.ID),
		logging.String("role", string(entry.Spec.Role)),
		logging.String("partition", entry.Partition))

	for _, cmd := range p.diskSteps(entry) {
		rendered := services.CommandLine(cmd.binary, cmd.args)
		err := p.runStep(ctx, cmd)

		log := StepLog{Disk: entry.Spec.ID, Step: cmd.step, Command: rendered}
		if err != nil {
			log.Error = err.Error()
		}
		result.Steps = append(result.Steps, log)

		if err != nil {
			result.Warnings = append(result.Warnings, Warning{
				Disk:  entry.Spec.ID,
				Step:  cmd.step,
				Error: err.Error(),
			})
			logging.WarnWithContext(p.logger, "disk preparation step failed", "prepare_step_failed",
				logging.String(logging.FieldDisk, entry.Spec.ID),
				logging.String(logging.FieldStep, cmd.step),
				logging.String(logging.FieldCommand, rendered),
				logging.Alert("disk_skipped"),
				logging.String(logging.FieldErrorHint, "inspect the disk and resubmit the pool configuration"),
				logging.String(logging.FieldImpact, "disk left unprepared, remaining disks continue"))
			return services.Wrap(services.ErrExternalTool, "prepare", cmd.step, rendered, err)
		}
	}

	p.logger.Info("disk prepared",
		logging.String(logging.FieldDisk, entry.Spec.ID),
		logging.String("label", entry.Label()))
	return nil
}

func (p *Preparer) diskSteps(entry disk.Entry) []stepCommand {
	return []stepCommand{
		{StepLabel, p.parted, []string{"-s", entry.Device, "mklabel", "gpt"}},
		{StepPartition, p.parted, []string{"-s", "-a", "optimal", entry.Device, "mkpart", "primary", "ext4", "0%", "100%"}},
		{StepProbe, p.partprobe, []string{entry.Device}},
		{StepFormat, p.mkfs, []string{"-F", "-L", entry.Label(), entry.Partition}},
	}
}

func (p *Preparer) runStep(ctx context.Context, cmd stepCommand) error {
	stepCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.runner.Run(stepCtx, cmd.binary, cmd.args, func(line string) {
		p.logger.Debug(line,
			logging.String(logging.FieldComponent, "prepare"),
			logging.String(logging.FieldCommand, cmd.binary))
	})
}
