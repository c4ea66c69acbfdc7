package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfarer-planner/server/internal/app"
)

var IndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load travel documents and (re)build the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateIndex(); err != nil {
			return err
		}
		store, err := app.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s\n", n, cfg.RAG.DocsDir)
		return nil
	},
}
