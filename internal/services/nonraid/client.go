// Package nonraid wraps the nmdctl array management tool for the
// kernel-array backend: array lifecycle commands plus status output
// parsing.
package nonraid

import (
	"context"
	"log/slog"
	"strings"
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

// Client invokes nmdctl.
type Client struct {
	binary         string
	commandTimeout time.Duration
	checkTimeout   time.Duration
	runner         services.Runner
	logger         *slog.Logger
}

// New constructs an nmdctl client from the configured binary and timeouts.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		binary:         cfg.Array.Binary,
		commandTimeout: time.Duration(cfg.Operations.CommandTimeout) * time.Second,
		checkTimeout:   time.Duration(cfg.Operations.CheckTimeout) * time.Second,
		runner:         services.NewCommandRunner(),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create assigns the member disks and builds a new array.
func (c *Client) Create(ctx context.Context, dataDisks []string, parityDisk string, onLine func(string)) error {
	args := []string{"create", "-p", parityDisk, "-d", strings.Join(dataDisks, ",")}
	return c.run(ctx, "create", c.commandTimeout, args, onLine)
}

// Start assembles and starts the configured array.
func (c *Client) Start(ctx context.Context) error {
	return c.run(ctx, "start", c.commandTimeout, []string{"start"}, nil)
}

// Stop stops the running array.
func (c *Client) Stop(ctx context.Context) error {
	return c.run(ctx, "stop", c.commandTimeout, []string{"stop"}, nil)
}

// Mount mounts the array's member filesystems.
func (c *Client) Mount(ctx context.Context) error {
	return c.run(ctx, "mount", c.commandTimeout, []string{"mount"}, nil)
}

// Unmount unmounts the array's member filesystems.
func (c *Client) Unmount(ctx context.Context) error {
	return c.run(ctx, "unmount", c.commandTimeout, []string{"unmount"}, nil)
}

// Check runs a parity check over the whole array. Output lines stream to
// onLine as they arrive.
func (c *Client) Check(ctx context.Context, onLine func(string)) error {
	return c.run(ctx, "check", c.checkTimeout, []string{"check"}, onLine)
}

// Status queries and parses the array state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var lines []string
	err := c.run(ctx, "status", c.commandTimeout, []string{"status"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return Status{}, err
	}

	status := parseStatus(lines)
	if status.State == "" {
		return Status{}, services.Wrap(services.ErrExternalTool, "nonraid", "status", "unrecognized status output", nil)
	}
	return status, nil
}

func (c *Client) run(ctx context.Context, operation string, timeout time.Duration, args []string, onLine func(string)) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// The run context carries operation kind and run ID when a tracker
	// started this invocation; direct calls log the command alone.
	logger := logging.WithContext(ctx, c.logger)
	command := services.CommandLine(c.binary, args)
	logger.Info("launching array tool",
		logging.String(logging.FieldCommand, command))

	if err := c.runner.Run(runCtx, c.binary, args, onLine); err != nil {
		return services.Wrap(services.ErrExternalTool, "nonraid", operation, command, err)
	}
	return nil
}
