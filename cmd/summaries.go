package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/floodwatch/floodmap/internal/store"
)

var (
	summariesRun   string
	summariesLimit int
)

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "List persisted attribution runs and ward summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if summariesRun != "" {
			summaries, err := st.ListSummaries(cmd.Context(), summariesRun)
			if err != nil {
				return err
			}
			return enc.Encode(summaries)
		}

		runs, err := st.ListRuns(cmd.Context(), summariesLimit)
		if err != nil {
			return err
		}
		return enc.Encode(runs)
	},
}

func init() {
	summariesCmd.Flags().StringVar(&summariesRun, "run", "", "run ID to list summaries for (default: list runs)")
	summariesCmd.Flags().IntVar(&summariesLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(summariesCmd)
}
