package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/ipc"
)

func newDisksCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "disks",
		Short: "List physical disks and their pool roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Disks()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				if len(resp.Disks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No disks detected")
					return nil
				}
				rows := make([][]string, 0, len(resp.Disks))
				for _, d := range resp.Disks {
					rows = append(rows, []string{
						d.Name,
						formatBytes(d.SizeBytes),
						d.Model,
						d.DriveType,
						yesNo(d.Removable),
						string(d.Role),
					})
				}
				table := renderTable(
					[]string{"Device", "Size", "Model", "Type", "Removable", "Role"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the inventory as JSON")
	return cmd
}
