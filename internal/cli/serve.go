package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saeedalam/mergestat-mcp/internal/config"
	"github.com/saeedalam/mergestat-mcp/internal/logging"
	"github.com/saeedalam/mergestat-mcp/internal/mcp"
	"github.com/saeedalam/mergestat-mcp/internal/mergestat"
	"github.com/saeedalam/mergestat-mcp/internal/metrics"
	"github.com/saeedalam/mergestat-mcp/internal/schema"
	"github.com/saeedalam/mergestat-mcp/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for IDE integration",
	Long: `Start the MCP (Model Context Protocol) server.

The server talks JSON-RPC over stdin/stdout, so it is meant to be launched by
an MCP client rather than run by hand. Logs go to stderr.

Example client configuration:
  {
    "mcpServers": {
      "mergestat": { "command": "mergestat-mcp", "args": ["serve"] }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// app is everything a command needs to run queries
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	executor *mergestat.Executor
	results  *storage.ResultStore
	history  *storage.History
	schema   *schema.Describer
}

func (rt *app) Close() {
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			rt.log.Warn("failed to close history", "error", err)
		}
	}
}

// newApp wires config, logging, storage and the executor
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logging.New(cmd.ErrOrStderr(), cfg.Verbose)

	results, err := storage.NewResultStore(cfg.OutputDir, nil)
	if err != nil {
		return nil, err
	}

	rt := &app{
		cfg:     cfg,
		log:     log,
		results: results,
		schema:  schema.NewDescriber(cfg.SchemaPath, log),
	}

	execCfg := mergestat.ExecutorConfig{
		Logger:         log,
		Binary:         cfg.Binary,
		MaxOutputBytes: cfg.MaxOutputBytes,
		Results:        results,
	}
	if cfg.HistoryPath != "" {
		rt.history, err = storage.OpenHistory(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		execCfg.History = rt.history
	}

	rt.executor, err = mergestat.NewExecutor(execCfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *app) newServer() (*mcp.Server, error) {
	return mcp.NewServer(mcp.Config{
		Logger:  rt.log,
		Version: buildVersion,
		Queries: rt.executor,
		Schema:  rt.schema,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	metrics.BuildInfo.WithLabelValues(buildVersion, buildCommit, buildDate).Set(1)

	server, err := rt.newServer()
	if err != nil {
		return err
	}

	if rt.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, rt.log, rt.cfg.MetricsAddr); err != nil {
				rt.log.Error("metrics server failed", "error", err)
			}
		}()
	}

	rt.log.Info("starting",
		"binary", rt.cfg.Binary,
		"schema", rt.cfg.SchemaPath,
		"output_dir", rt.results.Dir(),
		"history", rt.cfg.HistoryPath,
	)

	if err := server.Run(ctx); err != nil {
		rt.log.Error("server exited", "error", err)
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// commandContext returns the command's context, or Background when it has none
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
