package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"platter/internal/logging"
	"platter/internal/services"
)

// Operation kinds tracked by the daemon.
const (
	KindSync      = "sync"
	KindScrub     = "scrub"
	KindCheck     = "check"
	KindConfigure = "configure"
)

// Tracker states.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// estimateCeiling caps synthetic progress so a stalled subprocess can never
// look nearly finished on the ramp alone.
const estimateCeiling = 89

// Status is a point-in-time copy of one operation's progress.
type Status struct {
	Kind       string     `json:"kind"`
	RunID      string     `json:"runId,omitempty"`
	State      string     `json:"state"`
	Running    bool       `json:"running"`
	Progress   int        `json:"progress"`
	StatusText string     `json:"statusText,omitempty"`
	Step       string     `json:"step,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
	ExitCode   *int       `json:"exitCode,omitempty"`
}

// Recorder persists tracker transitions. Implementations are called from
// the goroutine driving the operation and must be safe for concurrent use
// across trackers.
type Recorder interface {
	RecordStart(kind, runID string, startedAt time.Time)
	RecordFinish(status Status)
}

// Option configures a tracker.
type Option func(*Tracker)

// WithEstimateWindow sets how long the synthetic progress ramp takes to
// reach its ceiling when the subprocess reports no percentages.
func WithEstimateWindow(window time.Duration) Option {
	return func(t *Tracker) {
		if window > 0 {
			t.estimateWindow = window
		}
	}
}

// WithRecorder attaches a transition recorder.
func WithRecorder(recorder Recorder) Option {
	return func(t *Tracker) {
		if recorder != nil {
			t.recorder = recorder
		}
	}
}

// WithClock overrides the time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker is the state machine for one operation kind: idle, running, then
// completed or failed. Terminal and idle states are overwritten by the next
// TryStart; a second start while running is a conflict.
type Tracker struct {
	kind           string
	logger         *slog.Logger
	estimateWindow time.Duration
	recorder       Recorder
	now            func() time.Time

	mu         sync.Mutex
	state      string
	runID      string
	progress   int
	sawNoOp    bool
	statusText string
	step       string
	startedAt  time.Time
	finishedAt time.Time
	errText    string
	exitCode   *int
	cancel     context.CancelFunc
}

// NewTracker constructs an idle tracker for the given operation kind.
func NewTracker(kind string, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		kind:           kind,
		logger:         logger,
		estimateWindow: 10 * time.Minute,
		now:            time.Now,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Kind returns the operation kind this tracker owns.
func (t *Tracker) Kind() string { return t.kind }

// TryStart atomically transitions the tracker to running and returns a
// cancellable context for the run, annotated with the operation kind and
// run ID so downstream logging picks them up. It fails with a conflict when
// a run is already active.
func (t *Tracker) TryStart(parent context.Context, runID string) (context.Context, error) {
	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		return nil, services.Wrap(services.ErrConflict, "supervisor", t.kind, "already running", nil)
	}

	ctx, cancel := context.WithCancel(services.WithRunID(services.WithOperation(parent, t.kind), runID))
	t.state = StateRunning
	t.runID = runID
	t.progress = 0
	t.sawNoOp = false
	t.statusText = ""
	t.step = ""
	t.startedAt = t.now()
	t.finishedAt = time.Time{}
	t.errText = ""
	t.exitCode = nil
	t.cancel = cancel
	startedAt := t.startedAt
	t.mu.Unlock()

	if t.recorder != nil {
		t.recorder.RecordStart(t.kind, runID, startedAt)
	}
	t.logger.Info("operation started",
		logging.String(logging.FieldOperation, t.kind),
		logging.String(logging.FieldRunID, runID))
	return ctx, nil
}

// Observe applies one line of subprocess output to the status. Progress
// only moves forward; a completion phrase pins it to 100 ahead of exit.
func (t *Tracker) Observe(line string) {
	update, ok := ParseLine(line)
	if !ok {
		return
	}

	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	if update.Percent > t.progress {
		t.progress = update.Percent
	}
	if update.Completion {
		t.progress = 100
	}
	if update.NoOp {
		t.sawNoOp = true
	}
	if update.Phase != "" {
		t.statusText = StatusText(line)
	}
	progress := t.progress
	t.mu.Unlock()

	t.logger.Debug("operation progress",
		logging.String(logging.FieldOperation, t.kind),
		logging.Int(logging.FieldProgressPercent, progress))
}

// SetStep labels the pipeline stage of a running multi-step operation.
func (t *Tracker) SetStep(step string) {
	t.mu.Lock()
	if t.state == StateRunning {
		t.step = step
	}
	t.mu.Unlock()
}

// SetProgress sets observed progress directly, used by pipelines that
// compute their own overall percentage. Progress never moves backward.
func (t *Tracker) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.mu.Lock()
	if t.state == StateRunning && percent > t.progress {
		t.progress = percent
	}
	t.mu.Unlock()
}

// SetStatusText replaces the poller-visible snippet for a running
// operation.
func (t *Tracker) SetStatusText(text string) {
	t.mu.Lock()
	if t.state == StateRunning {
		t.statusText = StatusText(text)
	}
	t.mu.Unlock()
}

// Finish records the subprocess outcome. A nil error completes the run at
// 100%. A failure after the tool reported "nothing to do" is a benign
// no-op and also completes. Anything else fails the run, keeping the exit
// code when one exists.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.finishedAt = t.now()

	if code, ok := services.ExitCode(err); ok {
		c := code
		t.exitCode = &c
	}
	switch {
	case err == nil:
		t.state = StateCompleted
		t.progress = 100
	case t.sawNoOp:
		t.state = StateCompleted
		t.progress = 100
	default:
		t.state = StateFailed
		t.errText = err.Error()
		if t.exitCode != nil {
			t.errText = fmt.Sprintf("%s (exit code %d)", err.Error(), *t.exitCode)
		}
	}
	status := t.statusLocked()
	// The row is written before the terminal state becomes visible to
	// Snapshot callers, so history never trails a status read.
	if t.recorder != nil {
		t.recorder.RecordFinish(status)
	}
	t.mu.Unlock()

	if status.State == StateCompleted {
		t.logger.Info("operation completed",
			logging.String(logging.FieldOperation, t.kind),
			logging.String(logging.FieldRunID, status.RunID))
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldOperation, t.kind),
		logging.String(logging.FieldRunID, status.RunID),
		logging.String(logging.FieldErrorHint, "inspect the daemon log and rerun the operation"),
		logging.String("error", status.Error),
	}
	if status.ExitCode != nil {
		attrs = append(attrs, logging.Int(logging.FieldExitCode, *status.ExitCode))
	}
	logging.ErrorWithContext(t.logger, "operation failed", "operation_failed", attrs...)
}

// Cancel kills the running subprocess by cancelling its context; the run
// then terminates through the normal Finish path. Cancelling an idle
// tracker reports not found.
func (t *Tracker) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning || t.cancel == nil {
		return services.Wrap(services.ErrNotFound, "supervisor", t.kind, "no running operation", nil)
	}
	t.cancel()
	return nil
}

// Run spawns fn on a new goroutine under this tracker. The conflict check
// happens synchronously; fn's error only ever lands in the tracker, never
// back at the caller. A spawn failure inside fn fails the run through the
// normal Finish path; callers preflight tool availability before Run so a
// missing binary is rejected while the tracker is still idle.
func (t *Tracker) Run(parent context.Context, runID string, fn func(ctx context.Context, observe func(string)) error) error {
	ctx, err := t.TryStart(parent, runID)
	if err != nil {
		return err
	}
	go func() {
		t.Finish(fn(ctx, t.Observe))
	}()
	return nil
}

// Snapshot returns a copy of the current status. Reads never mutate
// tracker state.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() Status {
	status := Status{
		Kind:       t.kind,
		RunID:      t.runID,
		State:      t.state,
		Running:    t.state == StateRunning,
		Progress:   t.progress,
		StatusText: t.statusText,
		Step:       t.step,
		Error:      t.errText,
	}
	if status.Running {
		status.Progress = t.effectiveLocked()
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		status.StartedAt = &started
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		status.FinishedAt = &finished
	}
	if t.exitCode != nil {
		code := *t.exitCode
		status.ExitCode = &code
	}
	return status
}

// effectiveLocked blends the elapsed-time ramp with observed progress while
// a run is active. Real progress always wins, and the ramp alone never
// reaches the ceiling, so only the subprocess can report completion.
func (t *Tracker) effectiveLocked() int {
	estimate := 0
	if t.estimateWindow > 0 {
		elapsed := t.now().Sub(t.startedAt)
		if elapsed > 0 {
			frac := float64(elapsed) / float64(t.estimateWindow)
			if frac > 1 {
				frac = 1
			}
			estimate = int(frac * estimateCeiling)
		}
	}
	if t.progress > estimate {
		return t.progress
	}
	return estimate
}
