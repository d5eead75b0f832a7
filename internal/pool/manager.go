package pool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/confgen"
	"platter/internal/disk"
	"platter/internal/fstab"
	"platter/internal/logging"
	"platter/internal/services"
)

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

// WithGroupLookup overrides share-group resolution (primarily for tests).
func WithGroupLookup(lookup func(name string) (int, error)) Option {
	return func(m *Manager) {
		if lookup != nil {
			m.lookupGroup = lookup
		}
	}
}

// Manager performs the filesystem side of pool configuration.
type Manager struct {
	cfg         *config.Config
	runner      services.Runner
	lookupGroup func(name string) (int, error)
	timeout     time.Duration
	logger      *slog.Logger
}

// New constructs a manager using the configured mount tools and share
// group.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg,
		runner:      services.NewCommandRunner(),
		lookupGroup: lookupGroupID,
		timeout:     time.Duration(cfg.Operations.CommandTimeout) * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MountAll creates each entry's mount point and mounts its prepared
// partition.
func (m *Manager) MountAll(ctx context.Context, a disk.Assignment) error {
	for _, entry := range a.All() {
		if err := os.MkdirAll(entry.MountPoint, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "pool", "mount", entry.MountPoint, err)
		}
		args := []string{"-t", "ext4", entry.Partition, entry.MountPoint}
		if err := m.run(ctx, m.cfg.MountBinary(), args); err != nil {
			return services.Wrap(services.ErrConfiguration, "pool", "mount", entry.MountPoint, err)
		}
		m.logger.Info("mounted disk",
			logging.String(logging.FieldDisk, entry.Spec.ID),
			logging.String(logging.FieldPath, entry.MountPoint))
	}
	return nil
}

// MountUnion mounts the mergerfs union of all data-disk mounts onto the
// pool mount point.
func (m *Manager) MountUnion(ctx context.Context, a disk.Assignment) error {
	poolMount := m.cfg.Paths.PoolMount
	if err := os.MkdirAll(poolMount, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "pool", "union", poolMount, err)
	}

	sources := make([]string, 0, len(a.Data))
	for _, entry := range a.Data {
		sources = append(sources, entry.MountPoint)
	}
	args := []string{strings.Join(sources, ":"), poolMount, "-o", m.cfg.Mergerfs.Options}
	if err := m.run(ctx, m.cfg.Mergerfs.Binary, args); err != nil {
		return services.Wrap(services.ErrConfiguration, "pool", "union", poolMount, err)
	}

	m.logger.Info("mounted union",
		logging.String(logging.FieldPath, poolMount),
		logging.Int("branches", len(sources)))
	return nil
}

// UnmountAll unmounts the union and every per-disk mount, best effort.
// Resubmitting a pool configuration calls this first so stale mounts from
// the previous layout never block the new one; disks that were never
// mounted simply fail quietly.
func (m *Manager) UnmountAll(ctx context.Context, a disk.Assignment) {
	targets := []string{m.cfg.Paths.PoolMount}
	for _, entry := range a.All() {
		targets = append(targets, entry.MountPoint)
	}
	for _, target := range targets {
		if err := m.run(ctx, m.cfg.UmountBinary(), []string{target}); err != nil {
			m.logger.Debug("unmount skipped",
				logging.String(logging.FieldPath, target),
				logging.Error(err))
		}
	}
}

// ApplyPermissions sets the share group and setgid mode on every mount
// point and the pool mount, so files created over the network inherit the
// group. The daemon itself creates these directories, only the group and
// mode need adjusting.
func (m *Manager) ApplyPermissions(a disk.Assignment) error {
	gid, err := m.lookupGroup(m.cfg.Pool.ShareGroup)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pool", "permissions",
			fmt.Sprintf("share group %q", m.cfg.Pool.ShareGroup), err)
	}

	paths := make([]string, 0, len(a.Data)+len(a.Parity)+len(a.Cache)+1)
	for _, entry := range a.All() {
		paths = append(paths, entry.MountPoint)
	}
	paths = append(paths, m.cfg.Paths.PoolMount)

	for _, path := range paths {
		if err := os.Chown(path, -1, gid); err != nil {
			return services.Wrap(services.ErrConfiguration, "pool", "permissions", path, err)
		}
		if err := os.Chmod(path, 0o775|os.ModeSetgid); err != nil {
			return services.Wrap(services.ErrConfiguration, "pool", "permissions", path, err)
		}
	}

	m.logger.Info("applied share permissions",
		logging.String("share_group", m.cfg.Pool.ShareGroup),
		logging.Int("paths", len(paths)))
	return nil
}

// PersistFstab replaces the managed fstab block with entries for the
// assignment so the layout survives a reboot.
func (m *Manager) PersistFstab(a disk.Assignment, backend disk.Backend) error {
	entries := confgen.FstabEntries(a, backend, m.cfg.Mergerfs.Options, m.cfg.Paths.PoolMount)
	if err := fstab.Update(m.cfg.Paths.FstabPath, entries); err != nil {
		return services.Wrap(services.ErrConfiguration, "pool", "fstab", m.cfg.Paths.FstabPath, err)
	}
	m.logger.Info("updated fstab",
		logging.String(logging.FieldPath, m.cfg.Paths.FstabPath),
		logging.Int("entries", len(entries)))
	return nil
}

func (m *Manager) run(ctx context.Context, binary string, args []string) error {
	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.runner.Run(runCtx, binary, args, func(line string) {
		m.logger.Debug(line,
			logging.String(logging.FieldComponent, "pool"),
			logging.String(logging.FieldCommand, binary))
	})
}

func lookupGroupID(name string) (int, error) {
	group, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	gid, err := strconv.Atoi(group.Gid)
	if err != nil {
		return 0, fmt.Errorf("parse gid %q: %w", group.Gid, err)
	}
	return gid, nil
}
