package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saeedalam/mergestat-mcp/internal/config"
)

// Persistent flags; each one overrides its environment variable when set
var (
	flagBinary         string
	flagSchemaPath     string
	flagOutputDir      string
	flagMaxOutputBytes int
	flagHistoryPath    string
	flagMetricsAddr    string
	flagVerbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "mergestat-mcp",
	Short: "Query git repositories with SQL from any MCP client",
	Long: `MergeStat MCP - SQL over git for AI agents

mergestat-mcp exposes the mergestat command-line tool to MCP-compatible agents
(Claude Desktop, Cursor and others) over stdio. Agents get two tools:

  mergestat_sql     Run a SQL query against a git repository
  describe_schema   Return the DDL of the tables mergestat provides

The schema is also published as the mergestat://schema resource and through
the mergestat-default prompt.

Running without a subcommand starts the server, same as 'serve'.

Configuration:
  MERGESTAT_BIN               mergestat executable (default: mergestat on PATH)
  MERGESTAT_SCHEMA_PATH       schema DDL file (default: schema.sql next to this binary)
  MERGESTAT_OUTPUT_DIR        where query results are written
  MERGESTAT_MAX_OUTPUT_BYTES  cap on captured stdout/stderr (default: 10 MiB)
  MERGESTAT_HISTORY_DB        sqlite query journal (default: disabled)
  MERGESTAT_METRICS_ADDR      Prometheus listen address (default: disabled)
  MERGESTAT_MCP_VERBOSE       debug logging

A .env file in the working directory is read first; flags win over both.

Quick Start:
  mergestat-mcp serve                        Start MCP server for IDE integration
  mergestat-mcp query "SELECT * FROM commits LIMIT 5" --repo .
  mergestat-mcp status                       Check the mergestat binary and schema`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagBinary, "binary", "", "mergestat executable to run")
	flags.StringVar(&flagSchemaPath, "schema", "", "path to the schema DDL file")
	flags.StringVar(&flagOutputDir, "output-dir", "", "directory for query result files")
	flags.IntVar(&flagMaxOutputBytes, "max-output-bytes", 0, "cap on captured subprocess output")
	flags.StringVar(&flagHistoryPath, "history-db", "", "sqlite file for the query journal")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "listen address for Prometheus metrics")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanCmd)
	// versionCmd is registered in version.go
}

// loadConfig reads the environment and applies any flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("binary") {
		cfg.Binary = flagBinary
	}
	if flags.Changed("schema") {
		cfg.SchemaPath = flagSchemaPath
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("max-output-bytes") {
		cfg.MaxOutputBytes = flagMaxOutputBytes
	}
	if flags.Changed("history-db") {
		cfg.HistoryPath = flagHistoryPath
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if flags.Changed("verbose") {
		cfg.Verbose = flagVerbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
