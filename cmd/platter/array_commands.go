package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newArrayCommand(ctx *commandContext) *cobra.Command {
	arrayCmd := &cobra.Command{
		Use:   "array",
		Short: "Manage the kernel-backed disk array",
	}

	arrayCmd.AddCommand(newArrayConfigureCommand(ctx))
	arrayCmd.AddCommand(newArrayStartCommand(ctx))
	arrayCmd.AddCommand(newArrayStopCommand(ctx))
	arrayCmd.AddCommand(newArrayStatusCommand(ctx))
	arrayCmd.AddCommand(newArrayProgressCommand(ctx))

	return arrayCmd
}

func newArrayConfigureCommand(ctx *commandContext) *cobra.Command {
	var parityDisk string
	var shareMode string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "configure <data-disk> ...",
		Short: "Configure the array from data disks and an optional parity disk",
		Long: `Configure the kernel array. Data disks are positional arguments; disk
names may carry a /dev/ prefix. Configuration runs in the background;
watch it with "platter array progress".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := make([]string, 0, len(args))
			for _, arg := range args {
				name := strings.TrimPrefix(strings.TrimSpace(arg), "/dev/")
				if name == "" {
					return fmt.Errorf("invalid disk name %q", arg)
				}
				data = append(data, name)
			}
			parity := strings.TrimPrefix(strings.TrimSpace(parityDisk), "/dev/")

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ArrayConfigure(ipc.ArrayConfigureRequest{
					DataDisks:  data,
					ParityDisk: parity,
					ShareMode:  shareMode,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Array configuration started (run %s)\n", resp.RunID)
				fmt.Fprintln(cmd.OutOrStdout(), "Watch progress with `platter array progress`")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parityDisk, "parity", "", "Disk to dedicate to parity")
	cmd.Flags().StringVar(&shareMode, "share-mode", "", "Share presentation mode override (individual or categories)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the run handle as JSON")
	return cmd
}

func newArrayStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the configured array",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ArrayStart(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Array started")
				return nil
			})
		},
	}
}

func newArrayStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running array",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ArrayStop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Array stopped")
				return nil
			})
		},
	}
}

func newArrayStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show live array state and per-disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ArrayStatus()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				st := resp.Status
				fmt.Fprintf(stdout, "State: %s\n", st.State)
				fmt.Fprintf(stdout, "Started: %s\n", yesNo(st.Started))
				fmt.Fprintf(stdout, "Parity valid: %s\n", yesNo(st.ParityValid))
				if st.ParityDisk != "" {
					fmt.Fprintf(stdout, "Parity disk: %s\n", st.ParityDisk)
				}
				if len(st.Disks) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(st.Disks))
				for _, d := range st.Disks {
					rows = append(rows, []string{
						d.Disk,
						d.MountPoint,
						formatBytes(d.TotalBytes),
						formatBytes(d.UsedBytes),
						formatBytes(d.FreeBytes),
						fmt.Sprintf("%d%%", d.UsedPercent),
					})
				}
				table := renderTable(
					[]string{"Disk", "Mount", "Total", "Used", "Free", "Use%"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the array report as JSON")
	return cmd
}

func newArrayProgressCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the array configure tracker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ArrayProgress()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				printOperationStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the tracker state as JSON")
	return cmd
}
