package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"platter/internal/disk"
	"platter/internal/ipc"
	"platter/internal/supervisor"
)

// parseDiskSpecs turns CLI arguments of the form "sda:data" or
// "sdb:parity:format" into pool submission specs. A leading /dev/ prefix is
// tolerated so tab completion of device paths still works.
func parseDiskSpecs(args []string) ([]disk.Spec, error) {
	specs := make([]disk.Spec, 0, len(args))
	for _, arg := range args {
		spec, err := parseDiskSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseDiskSpec(arg string) (disk.Spec, error) {
	parts := strings.Split(strings.TrimSpace(arg), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return disk.Spec{}, fmt.Errorf("invalid disk spec %q (expected <disk>:<role>[:format])", arg)
	}
	id := strings.TrimPrefix(strings.TrimSpace(parts[0]), "/dev/")
	if id == "" {
		return disk.Spec{}, fmt.Errorf("invalid disk spec %q: missing disk name", arg)
	}
	role, err := disk.ParseRole(parts[1])
	if err != nil {
		return disk.Spec{}, fmt.Errorf("invalid disk spec %q: %w", arg, err)
	}
	spec := disk.Spec{ID: id, Role: role}
	if len(parts) == 3 {
		if !strings.EqualFold(strings.TrimSpace(parts[2]), "format") {
			return disk.Spec{}, fmt.Errorf("invalid disk spec %q: unknown option %q (only \"format\" is recognized)", arg, parts[2])
		}
		spec.Format = true
	}
	return spec, nil
}

func formatBytes(value uint64) string {
	const (
		kiB = uint64(1024)
		miB = kiB * 1024
		giB = miB * 1024
		tiB = giB * 1024
	)
	switch {
	case value >= tiB:
		return fmt.Sprintf("%.2f TiB", float64(value)/float64(tiB))
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// operationSummary condenses a tracker snapshot into a status line.
func operationSummary(st ipc.OperationStatus) (statusKind, string) {
	switch st.State {
	case supervisor.StateRunning:
		detail := fmt.Sprintf("running %d%%", st.Progress)
		if st.Step != "" {
			detail += " " + st.Step
		}
		if st.StatusText != "" {
			detail += " (" + st.StatusText + ")"
		}
		return statusInfo, detail
	case supervisor.StateCompleted:
		return statusOK, "completed"
	case supervisor.StateFailed:
		detail := "failed"
		if st.Error != "" {
			detail = "failed: " + st.Error
		}
		return statusError, detail
	default:
		return statusInfo, st.State
	}
}

// printOperationStatus writes a tracker snapshot as labelled lines,
// omitting fields the tracker has not populated yet.
func printOperationStatus(out io.Writer, st ipc.OperationStatus) {
	fmt.Fprintf(out, "Operation: %s\n", st.Kind)
	fmt.Fprintf(out, "State: %s\n", st.State)
	if st.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", st.RunID)
	}
	if st.Running || st.Progress > 0 {
		fmt.Fprintf(out, "Progress: %d%%\n", st.Progress)
	}
	if st.Step != "" {
		fmt.Fprintf(out, "Step: %s\n", st.Step)
	}
	if st.StatusText != "" {
		fmt.Fprintf(out, "Detail: %s\n", st.StatusText)
	}
	if st.StartedAt != nil {
		fmt.Fprintf(out, "Started: %s\n", formatTime(st.StartedAt))
	}
	if st.FinishedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", formatTime(st.FinishedAt))
	}
	if st.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", st.Error)
	}
	if st.ExitCode != nil {
		fmt.Fprintf(out, "Exit code: %d\n", *st.ExitCode)
	}
}
