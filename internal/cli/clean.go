package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanOlderThan time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old query result files",
	Long: `Delete query_result_*.json files from the output directory.

Result files are never removed by the server; agents may read them long after
the query ran. Run this from cron or by hand to reclaim space.

Examples:
  mergestat-mcp clean
  mergestat-mcp clean --older-than 1h
  mergestat-mcp clean --older-than 0     Remove every result file`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 24*time.Hour, "Only delete files last modified longer ago than this")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanOlderThan < 0 {
		return fmt.Errorf("--older-than must not be negative, got %s", cleanOlderThan)
	}

	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	removed, err := rt.results.Prune(cleanOlderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d result file(s) from %s\n", removed, rt.results.Dir())
	return nil
}
