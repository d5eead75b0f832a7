// Package snapraid wraps the snapraid executable for parity sync and scrub
// runs against the generated configuration file.
package snapraid

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/services"
)

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// Client invokes snapraid against the pool's configuration file.
type Client struct {
	binary       string
	confPath     string
	scrubPercent int
	scrubAgeDays int
	syncTimeout  time.Duration
	scrubTimeout time.Duration
	runner       services.Runner
	logger       *slog.Logger
}

// New constructs a snapraid client from the configured binary, config file
// path, and scrub tuning.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		binary:       cfg.Snapraid.Binary,
		confPath:     cfg.Paths.SnapraidConfig,
		scrubPercent: cfg.Snapraid.ScrubPercent,
		scrubAgeDays: cfg.Snapraid.ScrubAgeDays,
		syncTimeout:  time.Duration(cfg.Operations.SyncTimeout) * time.Second,
		scrubTimeout: time.Duration(cfg.Operations.ScrubTimeout) * time.Second,
		runner:       services.NewCommandRunner(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync builds or updates parity for the whole pool. Output lines stream to
// onLine as they arrive.
func (c *Client) Sync(ctx context.Context, onLine func(string)) error {
	return c.run(ctx, "sync", c.syncTimeout, []string{"-c", c.confPath, "sync"}, onLine)
}

// Scrub verifies a slice of the oldest synced data, sized by the configured
// percentage and minimum block age.
func (c *Client) Scrub(ctx context.Context, onLine func(string)) error {
	args := []string{
		"-c", c.confPath,
		"-p", strconv.Itoa(c.scrubPercent),
		"-o", strconv.Itoa(c.scrubAgeDays),
		"scrub",
	}
	return c.run(ctx, "scrub", c.scrubTimeout, args, onLine)
}

func (c *Client) run(ctx context.Context, operation string, timeout time.Duration, args []string, onLine func(string)) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	command := services.CommandLine(c.binary, args)
	logger.Info("launching snapraid",
		logging.String(logging.FieldCommand, command))

	if err := c.runner.Run(runCtx, c.binary, args, onLine); err != nil {
		return services.Wrap(services.ErrExternalTool, "snapraid", operation, command, err)
	}
	logger.Info("snapraid finished",
		logging.String(logging.FieldCommand, command))
	return nil
}
