package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if !resp.Enabled {
					fmt.Fprintln(stdout, "History is disabled (history.enabled = false)")
					return nil
				}
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No finished jobs recorded")
					return nil
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"ID", "Status", "Input", "Output", "Language", "Elapsed", "Finished"},
					historyRows(resp.Entries, time.Now()),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func historyRows(entries []api.HistoryEntry, now time.Time) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		output := api.ShortPath(e.OutputPath)
		if e.Status != "success" {
			output = e.Error
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.Status,
			api.ShortPath(e.InputPath),
			output,
			api.LanguageLabel(e.Result),
			api.ElapsedLabel(e.ElapsedSeconds),
			api.Since(e.FinishedAt, now) + " ago",
		})
	}
	return rows
}
