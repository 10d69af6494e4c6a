package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/history"
	"github.com/abdul-hamid-achik/pollhttp/packages/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded responses",
	Long: `Show responses recorded with --history (or the history config key),
newest first. Without either, the default database is read.

Examples:
  pollhttp history -n 50
  pollhttp history --prune 1000
  pollhttp history --history sqlite://./runs.db --json`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var (
	historyLimitFlag int
	historyPruneFlag int
	historyJSONFlag  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", -1, "Keep only the newest N entries")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Output entries as JSON")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	path := cfg.History
	if path == "" {
		path = history.DefaultPath
	}

	store, err := history.Open(path)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer store.Close()

	ctx := context.Background()

	if historyPruneFlag >= 0 {
		removed, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
		return nil
	}

	entries, err := store.Recent(ctx, historyLimitFlag)
	if err != nil {
		return err
	}

	if historyJSONFlag {
		return output.WriteJSON(cmd.OutOrStdout(), entries)
	}
	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(cfg.GetNoColor()),
	).FormatHistory(entries)
	return nil
}
