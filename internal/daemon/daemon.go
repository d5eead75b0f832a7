package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"platter/internal/appliance"
	"platter/internal/config"
	"platter/internal/deps"
	"platter/internal/disk"
	"platter/internal/hotplug"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/sched"
	"platter/internal/supervisor"
)

// shutdownDelay gives the IPC server time to flush the shutdown response
// before the run loop starts tearing connections down.
const shutdownDelay = 100 * time.Millisecond

// Daemon coordinates the appliance subsystems and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	backend disk.Backend
	logger  *slog.Logger
	app     *appliance.Appliance
	journal *journal.Store
	monitor *hotplug.Monitor
	sched   *sched.Scheduler
	logPath string

	lockPath string
	lock     *flock.Flock

	scheduleActive bool

	mu       sync.Mutex
	shutdown func()

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Backend        disk.Backend
	PoolConfigured bool
	DiskCount      int
	SocketPath     string
	LockPath       string
	LogPath        string
	JournalPath    string
	PoolMount      string
	HotplugActive  bool
	ScheduleActive bool
	Dependencies   []deps.Status
	Operations     []supervisor.Status
}

// New constructs a daemon around an initialized appliance. The journal may
// be nil, in which case run history is simply unavailable. Scheduled
// maintenance entries are registered here so an invalid cron expression
// fails startup instead of being discovered at fire time.
func New(cfg *config.Config, backend disk.Backend, app *appliance.Appliance, jrnl *journal.Store, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || app == nil || logger == nil {
		return nil, errors.New("daemon requires config, appliance, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		backend:  backend,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		app:      app,
		journal:  jrnl,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.monitor = hotplug.NewMonitor(logger, d.handleHotplug)
	d.sched = sched.New(logger)

	if cfg.Schedule.Enabled && backend == disk.BackendParityPool {
		if err := d.sched.Add("sync", cfg.Schedule.SyncCron, func(ctx context.Context) error {
			_, err := app.StartSync(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		if err := d.sched.Add("scrub", cfg.Schedule.ScrubCron, func(ctx context.Context) error {
			_, err := app.RunScrub(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		d.scheduleActive = true
	}
	return d, nil
}

// Start acquires the instance lock and launches the hotplug monitor and
// maintenance scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another platter daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(d.ctx); err != nil {
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start hotplug monitor: %w", err)
	}
	d.sched.Start(d.ctx)

	d.running.Store(true)
	d.logger.Info("platter daemon started",
		logging.String(logging.FieldBackend, string(d.backend)),
		logging.String("lock", d.lockPath),
		logging.Bool("schedule", d.scheduleActive))
	return nil
}

// Stop halts the subsystems and releases the instance lock. Supervised
// operations that are still running keep their run contexts; cancelling
// those is the caller's decision, not a side effect of daemon shutdown.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.sched.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("platter daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Status reports runtime state for the status surfaces.
func (d *Daemon) Status() Status {
	current := d.app.PoolConfig()
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Backend:        d.backend,
		PoolConfigured: current.PoolConfigured,
		DiskCount:      len(current.StorageConfig),
		SocketPath:     d.cfg.SocketPath(),
		LockPath:       d.lockPath,
		LogPath:        d.logPath,
		JournalPath:    d.cfg.JournalPath(),
		PoolMount:      d.cfg.Paths.PoolMount,
		HotplugActive:  d.monitor.Running(),
		ScheduleActive: d.scheduleActive && d.running.Load(),
		Dependencies:   deps.Snapshot(d.cfg, d.backend),
		Operations:     d.app.OperationStatuses(),
	}
}

// Appliance exposes the appliance for the IPC handlers.
func (d *Daemon) Appliance() *appliance.Appliance {
	return d.app
}

// LogPath reports the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Backend reports the storage backend the daemon was started with.
func (d *Daemon) Backend() disk.Backend {
	return d.backend
}

// SetShutdown registers the function RequestShutdown invokes. The run loop
// registers its signal-context cancel here so an IPC shutdown and a SIGTERM
// take the same exit path.
func (d *Daemon) SetShutdown(fn func()) {
	d.mu.Lock()
	d.shutdown = fn
	d.mu.Unlock()
}

// RequestShutdown asks the run loop to exit. It returns before the daemon
// stops so the IPC response can still reach the client.
func (d *Daemon) RequestShutdown() {
	d.mu.Lock()
	fn := d.shutdown
	d.mu.Unlock()
	if fn == nil {
		d.logger.Warn("shutdown requested but no handler registered")
		return
	}
	d.logger.Info("shutdown requested",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	time.AfterFunc(shutdownDelay, fn)
}

func (d *Daemon) handleHotplug(ev hotplug.Event) {
	d.app.InvalidateInventory()
	d.logger.Info("disk inventory invalidated",
		logging.String(logging.FieldEventType, "hotplug_"+ev.Action),
		logging.String(logging.FieldDisk, ev.Device))
}
