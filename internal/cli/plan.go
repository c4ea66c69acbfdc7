package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayfarer-planner/server/internal/agent/graph"
	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/app"
	"github.com/wayfarer-planner/server/internal/presenter"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a trip and stream each step as it completes",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := userInfoFromFlags(cmd)
		if err != nil {
			return err
		}
		useTUI, _ := cmd.Flags().GetBool("tui")
		runID, _ := cmd.Flags().GetString("run-id")

		ctx := cmd.Context()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logx.Warn().Err(err).Msg("Failed to close app")
			}
		}()

		var opts []graph.RunOption
		if runID != "" {
			opts = append(opts, graph.WithRunID(runID))
		}
		sr := a.Runner.Stream(ctx, info, opts...)

		var final model.PlanningState
		var runErr error
		if useTUI {
			final, runErr = presenter.RunTUI(sr)
		} else {
			final, runErr = presenter.NewConsole(os.Stdout).Render(sr)
		}

		a.Record(ctx, final)
		if final.RunID != "" && a.History != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Run id: %s\n", final.RunID)
		}
		return runErr
	},
}

func init() {
	PlanCmd.Flags().Float64("budget", 1500, "total trip budget in USD")
	PlanCmd.Flags().StringSlice("interests", []string{"beaches", "nightlife"}, "comma-separated interests")
	PlanCmd.Flags().StringSlice("previous", []string{"France", "Turkey"}, "comma-separated destinations already visited")
	PlanCmd.Flags().Int("duration", 7, "trip length in days")
	PlanCmd.Flags().String("origin", "Beirut", "origin country or city")
	PlanCmd.Flags().String("date", "", "travel date as YYYY-MM-DD (default today)")
	PlanCmd.Flags().String("run-id", "", "run id to record the plan under (default random)")
	PlanCmd.Flags().Bool("tui", false, "show progress in an interactive terminal view")
}

func userInfoFromFlags(cmd *cobra.Command) (model.UserInfo, error) {
	flags := cmd.Flags()
	budget, err := flags.GetFloat64("budget")
	if err != nil {
		return model.UserInfo{}, err
	}
	interests, err := flags.GetStringSlice("interests")
	if err != nil {
		return model.UserInfo{}, err
	}
	previous, err := flags.GetStringSlice("previous")
	if err != nil {
		return model.UserInfo{}, err
	}
	duration, err := flags.GetInt("duration")
	if err != nil {
		return model.UserInfo{}, err
	}
	origin, _ := flags.GetString("origin")
	date, _ := flags.GetString("date")
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	return model.UserInfo{
		Budget:               budget,
		Interests:            trimAll(interests),
		PreviousDestinations: trimAll(previous),
		Duration:             duration,
		Origin:               origin,
		TravelDate:           date,
	}, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
