package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mergestat_mcp_build_info",
			Help: "Build information of the MergeStat MCP server",
		},
		[]string{"version", "commit", "date"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mergestat_mcp_queries_total",
			Help: "Number of mergestat queries by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mergestat_mcp_query_duration_seconds",
			Help:    "Wall time of mergestat subprocess runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	ResultBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mergestat_mcp_result_bytes",
			Help:    "Size of pretty-printed query results",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
	)
)

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, log *slog.Logger, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info("prometheus metrics server listening", "address", listener.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
