package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfarer-planner/server/internal/app"
	"github.com/wayfarer-planner/server/internal/presenter"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

var HistoryCmd = &cobra.Command{
	Use:   "history <run_id>",
	Short: "Print the recorded trace of a past run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.OpenHistory(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logx.Warn().Err(err).Msg("Failed to close history store")
			}
		}()

		h, err := a.History.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s saved %s\n\n", h.RunID, h.SavedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(cmd.OutOrStdout(), presenter.Transcript(h.Messages))
		return nil
	},
}
