package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Parity synchronization",
	}

	var startJSON bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a parity sync in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncStart()
				if err != nil {
					return err
				}
				if startJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sync started (run %s)\n", resp.RunID)
				return nil
			})
		},
	}
	startCmd.Flags().BoolVar(&startJSON, "json", false, "Write the run handle as JSON")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sync tracker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncStatus()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				printOperationStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Write the tracker state as JSON")

	syncCmd.AddCommand(startCmd)
	syncCmd.AddCommand(statusCmd)
	return syncCmd
}

func newScrubCommand(ctx *commandContext) *cobra.Command {
	scrubCmd := &cobra.Command{
		Use:   "scrub",
		Short: "Parity scrub",
	}

	var runJSON bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a parity scrub to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Running scrub (this can take a while)...")
				resp, err := client.ScrubRun()
				if err != nil {
					return err
				}
				if runJSON {
					return writeJSON(cmd, resp)
				}
				printOperationStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	}
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Write the finished run as JSON")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the scrub tracker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScrubStatus()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				printOperationStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Write the tracker state as JSON")

	scrubCmd.AddCommand(runCmd)
	scrubCmd.AddCommand(statusCmd)
	return scrubCmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Kernel array parity check",
	}

	var startJSON bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start an array parity check in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CheckStart()
				if err != nil {
					return err
				}
				if startJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Parity check started (run %s)\n", resp.RunID)
				return nil
			})
		},
	}
	startCmd.Flags().BoolVar(&startJSON, "json", false, "Write the run handle as JSON")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the parity-check tracker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CheckStatus()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				printOperationStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Write the tracker state as JSON")

	checkCmd.AddCommand(startCmd)
	checkCmd.AddCommand(statusCmd)
	return checkCmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "cancel <operation>",
		Short:     "Cancel a running operation (sync, scrub, check, or configure)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"sync", "scrub", "check", "configure"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Cancel(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancel delivered to %s\n", args[0])
				return nil
			})
		},
	}
}
