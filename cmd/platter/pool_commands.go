package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newPoolCommand(ctx *commandContext) *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Configure and inspect the storage pool",
	}

	poolCmd.AddCommand(newPoolSubmitCommand(ctx))
	poolCmd.AddCommand(newPoolShowCommand(ctx))

	return poolCmd
}

func newPoolSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "submit <disk>:<role>[:format] ...",
		Short: "Submit a pool configuration to the daemon",
		Long: `Submit a pool configuration for the parity backend.

Each argument assigns one disk: a device name, a role (data, parity, or
cache), and an optional "format" marker that wipes and reformats the disk
during preparation. Example:

  platter pool submit sda:data:format sdb:data:format sdc:parity:format`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseDiskSpecs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PoolSubmit(ipc.PoolSubmitRequest{Disks: specs})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				result := resp.Result

				if showSteps {
					for _, step := range result.Steps {
						line := fmt.Sprintf("  %s %s: %s", step.Disk, step.Step, step.Command)
						if step.Error != "" {
							line += " (failed: " + step.Error + ")"
						}
						fmt.Fprintln(stdout, line)
					}
				}
				if len(result.Warnings) > 0 {
					fmt.Fprintln(stdout, "Warnings:")
					for _, w := range result.Warnings {
						fmt.Fprintf(stdout, "  %s %s: %s\n", w.Disk, w.Step, w.Error)
					}
				}

				fmt.Fprintf(stdout, "Pool configured with %d mount points\n", len(result.MountPoints))
				for _, mp := range result.MountPoints {
					fmt.Fprintf(stdout, "  %s\n", mp)
				}
				if result.SyncStarted {
					fmt.Fprintf(stdout, "Initial parity sync started (run %s)\n", result.SyncRunID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the submission report as JSON")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Print every preparation command that ran")
	return cmd
}

func newPoolShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the persisted pool configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PoolShow()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Backend: %s\n", resp.Backend)
				fmt.Fprintf(stdout, "Configured: %s\n", yesNo(resp.Configured))
				fmt.Fprintf(stdout, "Pool mount: %s\n", resp.PoolMount)
				if len(resp.Disks) == 0 {
					fmt.Fprintln(stdout, "No disks recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Disks))
				for _, d := range resp.Disks {
					rows = append(rows, []string{d.ID, string(d.Role)})
				}
				table := renderTable(
					[]string{"Disk", "Role"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the pool configuration as JSON")
	return cmd
}
