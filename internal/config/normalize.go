package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePool()
	c.normalizeTools()
	c.normalizeOperations()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MountBase, err = expandPath(c.Paths.MountBase); err != nil {
		return fmt.Errorf("paths.mount_base: %w", err)
	}
	if c.Paths.PoolMount, err = expandPath(c.Paths.PoolMount); err != nil {
		return fmt.Errorf("paths.pool_mount: %w", err)
	}
	if c.Paths.FstabPath, err = expandPath(c.Paths.FstabPath); err != nil {
		return fmt.Errorf("paths.fstab_path: %w", err)
	}
	if c.Paths.SnapraidConfig, err = expandPath(c.Paths.SnapraidConfig); err != nil {
		return fmt.Errorf("paths.snapraid_config: %w", err)
	}
	if c.Paths.SambaSharesConfig, err = expandPath(c.Paths.SambaSharesConfig); err != nil {
		return fmt.Errorf("paths.samba_shares_config: %w", err)
	}
	return nil
}

func (c *Config) normalizePool() {
	c.Pool.ShareGroup = strings.TrimSpace(c.Pool.ShareGroup)
	if c.Pool.ShareGroup == "" {
		c.Pool.ShareGroup = defaultShareGroup
	}
	c.Pool.ShareMode = strings.ToLower(strings.TrimSpace(c.Pool.ShareMode))
	if c.Pool.ShareMode == "" {
		c.Pool.ShareMode = defaultShareMode
	}
	categories := make([]string, 0, len(c.Pool.ShareCategories))
	seen := make(map[string]struct{}, len(c.Pool.ShareCategories))
	for _, category := range c.Pool.ShareCategories {
		normalized := strings.ToLower(strings.TrimSpace(category))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		categories = append(categories, normalized)
	}
	c.Pool.ShareCategories = categories
}

func (c *Config) normalizeTools() {
	c.Snapraid.Binary = strings.TrimSpace(c.Snapraid.Binary)
	if c.Snapraid.Binary == "" {
		c.Snapraid.Binary = defaultSnapraidBinary
	}
	if c.Snapraid.ScrubPercent <= 0 || c.Snapraid.ScrubPercent > 100 {
		c.Snapraid.ScrubPercent = defaultScrubPercent
	}
	if c.Snapraid.ScrubAgeDays < 0 {
		c.Snapraid.ScrubAgeDays = defaultScrubAgeDays
	}

	c.Mergerfs.Binary = strings.TrimSpace(c.Mergerfs.Binary)
	if c.Mergerfs.Binary == "" {
		c.Mergerfs.Binary = defaultMergerfsBinary
	}
	c.Mergerfs.Options = strings.TrimSpace(c.Mergerfs.Options)
	if c.Mergerfs.Options == "" {
		c.Mergerfs.Options = defaultMergerfsOptions
	}

	c.Array.Binary = strings.TrimSpace(c.Array.Binary)
	if c.Array.Binary == "" {
		c.Array.Binary = defaultArrayBinary
	}
	c.Array.Device = strings.TrimSpace(c.Array.Device)
	if c.Array.Device == "" {
		c.Array.Device = defaultArrayDevice
	}
}

func (c *Config) normalizeOperations() {
	if c.Operations.CommandTimeout <= 0 {
		c.Operations.CommandTimeout = defaultCommandTimeout
	}
	if c.Operations.SyncTimeout <= 0 {
		c.Operations.SyncTimeout = defaultSyncTimeout
	}
	if c.Operations.ScrubTimeout <= 0 {
		c.Operations.ScrubTimeout = defaultScrubTimeout
	}
	if c.Operations.CheckTimeout <= 0 {
		c.Operations.CheckTimeout = defaultCheckTimeout
	}
	if c.Operations.ProgressEstimateSeconds <= 0 {
		c.Operations.ProgressEstimateSeconds = defaultProgressEstimateSeconds
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.SyncCron = strings.TrimSpace(c.Schedule.SyncCron)
	c.Schedule.ScrubCron = strings.TrimSpace(c.Schedule.ScrubCron)
	if c.Schedule.SyncCron == "" {
		c.Schedule.SyncCron = defaultSyncCron
	}
	if c.Schedule.ScrubCron == "" {
		c.Schedule.ScrubCron = defaultScrubCron
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
