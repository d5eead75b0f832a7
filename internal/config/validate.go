package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePool(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.MountBase == "" {
		return errors.New("paths.mount_base must be set")
	}
	if c.Paths.PoolMount == "" {
		return errors.New("paths.pool_mount must be set")
	}
	if c.Paths.PoolMount == c.Paths.MountBase {
		return errors.New("paths.pool_mount must differ from paths.mount_base")
	}
	if c.Paths.FstabPath == "" {
		return errors.New("paths.fstab_path must be set")
	}
	return nil
}

func (c *Config) validatePool() error {
	switch c.Pool.ShareMode {
	case "individual", "merged", "categories":
	default:
		return fmt.Errorf("pool.share_mode must be one of individual, merged, categories; got %q", c.Pool.ShareMode)
	}
	if c.Pool.ShareMode == "categories" && len(c.Pool.ShareCategories) == 0 {
		return errors.New("pool.share_categories must list at least one category when pool.share_mode is categories")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	if _, err := cronParser.Parse(c.Schedule.SyncCron); err != nil {
		return fmt.Errorf("schedule.sync_cron: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.ScrubCron); err != nil {
		return fmt.Errorf("schedule.scrub_cron: %w", err)
	}
	return nil
}
