package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const maxSQLWidth = 60

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently executed queries",
	Long: `Show the most recent queries from the journal, newest first.

The journal is only written when MERGESTAT_HISTORY_DB (or --history-db) is set.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.history == nil {
		return errors.New("query history is disabled; set MERGESTAT_HISTORY_DB or --history-db")
	}

	entries, err := rt.history.Recent(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No queries recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{"When", "Duration", "Outcome", "Size", "Repository", "SQL"})

	for _, e := range entries {
		size := ""
		if e.Bytes > 0 {
			size = humanize.Bytes(uint64(e.Bytes))
		}
		table.Append([]string{
			humanize.Time(e.StartedAt),
			e.Duration.Round(time.Millisecond).String(),
			e.Outcome,
			size,
			e.RepoPath,
			truncateSQL(e.SQL),
		})
	}
	table.Render()
	return nil
}

// truncateSQL collapses whitespace and shortens long queries for display
func truncateSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if runes := []rune(sql); len(runes) > maxSQLWidth {
		return string(runes[:maxSQLWidth-3]) + "..."
	}
	return sql
}
