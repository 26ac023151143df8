package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saeedalam/mergestat-mcp/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and check dependencies",
	Long: `Show the resolved configuration and whether it works.

Displays:
- The mergestat binary and whether it can be found
- The schema file and whether it can be read
- The result directory and how many results it holds
- Journal and metrics settings`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "MergeStat MCP Status")
	fmt.Fprintln(out, "====================")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Version: %s\n", buildVersion)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "mergestat:")
	fmt.Fprintf(out, "  Binary:           %s\n", rt.cfg.Binary)
	if resolved, err := exec.LookPath(rt.cfg.Binary); err != nil {
		fmt.Fprintln(out, "  Resolved:         NOT FOUND (queries will fail to launch)")
	} else {
		fmt.Fprintf(out, "  Resolved:         %s\n", resolved)
	}
	fmt.Fprintf(out, "  Output cap:       %s\n", humanize.IBytes(uint64(rt.cfg.MaxOutputBytes)))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Schema:")
	fmt.Fprintf(out, "  Path:             %s\n", rt.schema.Path())
	if ddl, err := rt.schema.Load(); err != nil {
		fmt.Fprintf(out, "  Status:           UNREADABLE (%v)\n", err)
	} else {
		fmt.Fprintf(out, "  Status:           OK (%s)\n", humanize.Bytes(uint64(len(ddl))))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Results:")
	fmt.Fprintf(out, "  Directory:        %s\n", rt.results.Dir())
	count, size := resultDirStats(rt.results.Dir())
	fmt.Fprintf(out, "  Files:            %d (%s)\n", count, humanize.Bytes(uint64(size)))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "System:")
	if rt.history != nil {
		fmt.Fprintf(out, "  History:          %s\n", rt.history.Path())
	} else {
		fmt.Fprintln(out, "  History:          disabled")
	}
	if rt.cfg.MetricsAddr != "" {
		fmt.Fprintf(out, "  Metrics:          %s/metrics\n", rt.cfg.MetricsAddr)
	} else {
		fmt.Fprintln(out, "  Metrics:          disabled")
	}
	fmt.Fprintln(out)

	return nil
}

func resultDirStats(dir string) (count int, size int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		if entry.IsDir() || !storage.IsResultFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size
}
