package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the queue and finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				fetch := func() (api.Progress, error) {
					resp, err := client.Progress()
					if err != nil {
						return api.Progress{}, err
					}
					return resp.Progress, nil
				}
				program := tea.NewProgram(
					newWatchModel(fetch),
					tea.WithAltScreen(),
					tea.WithContext(cmd.Context()),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				_, err := program.Run()
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})
		},
	}
}
