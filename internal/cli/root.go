// Package cli is the planner's command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wayfarer-planner/server/internal/app"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

var (
	envFile string
	cfg     *app.Config
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Wayfarer - budget-aware travel planning",
	Long: `Wayfarer recommends a destination from your budget and interests,
checks flight prices against the budget, and assembles a trip summary
with weather, clothing, hotel and restaurant suggestions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := app.LoadConfig(envFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: cfg.LogLevel})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(PlanCmd)
	rootCmd.AddCommand(IndexCmd)
	rootCmd.AddCommand(HistoryCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
