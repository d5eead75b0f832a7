package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/daemonctl"
	"platter/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and storage pool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statusResp, err := daemonctl.BuildStatusSnapshot(ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("State", statusOK, fmt.Sprintf("running (pid %d)", statusResp.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("State", statusWarn, "stopped", colorize))
			}
			backend := statusResp.Backend
			if backend == "" {
				backend = "unknown"
			}
			fmt.Fprintln(stdout, renderStatusLine("Backend", statusInfo, backend, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, statusResp.SocketPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Log file", statusInfo, statusResp.LogPath, colorize))
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("Hotplug watch", boolKind(statusResp.HotplugActive), activeInactive(statusResp.HotplugActive), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Schedule", boolKind(statusResp.ScheduleActive), activeInactive(statusResp.ScheduleActive), colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(statusResp.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Storage Pool", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.PoolConfigured {
				fmt.Fprintln(stdout, renderStatusLine("Configured", statusOK, fmt.Sprintf("yes (%d disks)", statusResp.DiskCount), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Configured", statusInfo, "no", colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, statusResp.JournalPath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Operations", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(statusResp.Operations) == 0 {
				fmt.Fprintln(stdout, "No operations recorded")
				return nil
			}
			for _, op := range statusResp.Operations {
				kind, detail := operationSummary(op)
				fmt.Fprintln(stdout, renderStatusLine(op.Kind, kind, detail, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write status as JSON")
	return cmd
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(lines) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusInfo, "no dependency snapshot available", colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, fmt.Sprintf("%s (install them before configuring storage)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func boolKind(active bool) statusKind {
	if active {
		return statusOK
	}
	return statusInfo
}

func activeInactive(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
