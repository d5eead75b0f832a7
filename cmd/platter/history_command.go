package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent operation runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No operations recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					detail := run.StatusText
					if run.Error != "" {
						detail = run.Error
					}
					started := run.StartedAt
					rows = append(rows, []string{
						run.Kind,
						run.State,
						fmt.Sprintf("%d%%", run.Progress),
						formatTime(&started),
						formatTime(run.FinishedAt),
						detail,
					})
				}
				table := renderTable(
					[]string{"Operation", "State", "Progress", "Started", "Finished", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write run history as JSON")
	return cmd
}
