package appliance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"platter/internal/array"
	"platter/internal/config"
	"platter/internal/disk"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/pool"
	"platter/internal/prepare"
	"platter/internal/services"
	"platter/internal/services/snapraid"
	"platter/internal/state"
	"platter/internal/supervisor"
)

// inventoryTTL bounds how long a cached disk scan stays valid. Hotplug
// events invalidate it early.
const inventoryTTL = 15 * time.Second

// HistorySource supplies recent operation runs for the history view.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]journal.Run, error)
}

// Option configures the appliance.
type Option func(*Appliance)

// WithRunner injects a command runner shared by every external tool the
// appliance drives (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(a *Appliance) {
		if runner != nil {
			a.runner = runner
		}
	}
}

// WithInventory overrides the physical disk scanner.
func WithInventory(scan func() ([]disk.Physical, error)) Option {
	return func(a *Appliance) {
		if scan != nil {
			a.scan = scan
		}
	}
}

// WithHistory wires the operation journal into the history view.
func WithHistory(source HistorySource) Option {
	return func(a *Appliance) {
		a.history = source
	}
}

// WithGroupLookup overrides share-group resolution (primarily for tests).
func WithGroupLookup(lookup func(name string) (int, error)) Option {
	return func(a *Appliance) {
		if lookup != nil {
			a.groups = lookup
		}
	}
}

// Appliance owns the managers for both storage backends and gates every
// operation on the backend selected at daemon startup.
type Appliance struct {
	base     context.Context
	cfg      *config.Config
	backend  disk.Backend
	logger   *slog.Logger
	store    *state.Store
	trackers *supervisor.Set
	runner   services.Runner
	history  HistorySource
	scan     func() ([]disk.Physical, error)

	preparer *prepare.Preparer
	pool     *pool.Manager
	array    *array.Manager
	parity   *snapraid.Client

	invMu     sync.Mutex
	invAt     time.Time
	invCached []disk.Physical
	groups    func(name string) (int, error)
}

// New builds the appliance. The base context bounds background operation
// runs; cancelling it (daemon shutdown) terminates any supervised
// subprocess still running.
func New(base context.Context, cfg *config.Config, backend disk.Backend, store *state.Store, trackers *supervisor.Set, logger *slog.Logger, opts ...Option) *Appliance {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Appliance{
		base:     base,
		cfg:      cfg,
		backend:  backend,
		logger:   logging.NewComponentLogger(logger, "appliance"),
		store:    store,
		trackers: trackers,
		runner:   services.NewCommandRunner(),
		scan:     disk.Inventory,
	}
	for _, opt := range opts {
		opt(a)
	}

	prepOpts := []prepare.Option{prepare.WithRunner(a.runner)}
	poolOpts := []pool.Option{pool.WithRunner(a.runner)}
	arrayOpts := []array.Option{array.WithRunner(a.runner)}
	parityOpts := []snapraid.Option{snapraid.WithRunner(a.runner)}
	if a.groups != nil {
		poolOpts = append(poolOpts, pool.WithGroupLookup(a.groups))
	}
	a.preparer = prepare.New(cfg, logger, prepare.Policy{ContinueOnError: true}, prepOpts...)
	a.pool = pool.New(cfg, logger, poolOpts...)
	a.array = array.New(cfg, logger, arrayOpts...)
	a.parity = snapraid.New(cfg, logger, parityOpts...)
	return a
}

// Backend returns the backend selected at startup.
func (a *Appliance) Backend() disk.Backend { return a.backend }

// PoolConfig returns the persisted pool configuration.
func (a *Appliance) PoolConfig() state.PoolConfig { return a.store.Current() }

// Configured reports whether a pool configuration has completed end to end.
func (a *Appliance) Configured() bool { return a.store.Configured() }

// OperationStatuses returns a snapshot of every tracked operation.
func (a *Appliance) OperationStatuses() []supervisor.Status {
	return a.trackers.Statuses()
}

// OperationStatus returns the snapshot for one operation kind.
func (a *Appliance) OperationStatus(kind string) (supervisor.Status, error) {
	tracker := a.trackers.Tracker(kind)
	if tracker == nil {
		return supervisor.Status{}, services.Wrap(services.ErrValidation, "appliance", "status", fmt.Sprintf("unknown operation kind %q", kind), nil)
	}
	return tracker.Snapshot(), nil
}

// CancelOperation cancels the running operation of the given kind.
func (a *Appliance) CancelOperation(kind string) error {
	if a.trackers.Tracker(kind) == nil {
		return services.Wrap(services.ErrValidation, "appliance", "cancel", fmt.Sprintf("unknown operation kind %q", kind), nil)
	}
	return a.trackers.Cancel(kind)
}

// OperationHistory returns the most recent journaled runs, newest first.
func (a *Appliance) OperationHistory(ctx context.Context, limit int) ([]journal.Run, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.Recent(ctx, limit)
}

// requireBackend fails with a backend mismatch unless want is active.
func (a *Appliance) requireBackend(want disk.Backend, op string) error {
	if a.backend == want {
		return nil
	}
	msg := fmt.Sprintf("requires backend %s, active backend is %s", want, a.backend)
	return services.Wrap(services.ErrBackendMismatch, "appliance", op, msg, nil)
}

// preflightBinaries rejects an operation whose external tools cannot be
// resolved, before the tracker leaves idle. Runners without PATH lookup
// skip the check and surface the failure through the run itself.
func (a *Appliance) preflightBinaries(op string, binaries ...string) error {
	locator, ok := a.runner.(services.Locator)
	if !ok {
		return nil
	}
	for _, binary := range binaries {
		if _, err := locator.LookPath(binary); err != nil {
			return services.Wrap(services.ErrConfiguration, "appliance", op, fmt.Sprintf("required tool %q not found", binary), err)
		}
	}
	return nil
}

// requireConfigured fails unless a pool configuration has been persisted.
func (a *Appliance) requireConfigured(op string) error {
	if a.store.Configured() {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "appliance", op, "pool not configured", nil)
}
