package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"platter/internal/appliance"
	"platter/internal/config"
	"platter/internal/daemon"
	"platter/internal/deps"
	"platter/internal/disk"
	"platter/internal/ipc"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/state"
	"platter/internal/supervisor"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the platter daemon runtime loop and blocks until a signal or
// an IPC shutdown request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("platterd-%s.log", runID))

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	backend, err := state.LoadBackend(cfg.BackendPath())
	if err != nil {
		logger.Error("load backend selection", logging.Error(err))
		return err
	}

	logDependencySnapshot(logger, cfg, backend)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update platterd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "platterd-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PidPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := state.NewStore(cfg.PoolStatePath(), logger)
	if err != nil {
		logger.Error("open pool state store", logging.Error(err))
		return err
	}

	jrnl, err := journal.Open(cfg, logger)
	if err != nil {
		logger.Error("open operation journal", logging.Error(err))
		return err
	}

	trackers := supervisor.NewSet(logger,
		supervisor.WithRecorder(jrnl),
		supervisor.WithEstimateWindow(time.Duration(cfg.Operations.ProgressEstimateSeconds)*time.Second),
	)

	// Long operations inherit signalCtx so a terminating daemon aborts them
	// instead of orphaning external tool processes.
	app := appliance.New(signalCtx, cfg, backend, store, trackers, logger,
		appliance.WithHistory(jrnl))

	d, err := daemon.New(cfg, backend, app, jrnl, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()
	d.SetShutdown(cancel)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	// There is no second chance to start: a lock held elsewhere means this
	// process has no work to do.
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running platterd and stale lock files"),
			logging.String(logging.FieldImpact, "daemon exiting"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("platter daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "platterd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, backend disk.Backend) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := deps.Snapshot(cfg, backend)
	attrs := make([]any, 0, len(statuses)+1)
	attrs = append(attrs, logging.String(logging.FieldBackend, string(backend)))
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	logger.Info("dependency snapshot", attrs...)

	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		logging.WarnWithContext(logger, "required tool missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String(logging.FieldCommand, status.Command),
			logging.String(logging.FieldImpact, "operations that shell out to this tool will fail"),
			logging.String(logging.FieldErrorHint, "install the tool or adjust its binary path in config"))
	}
}
