package mergestat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/saeedalam/mergestat-mcp/internal/metrics"
	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

// ResultSaver persists pretty-printed results and returns where they went
type ResultSaver interface {
	Save(data []byte) (string, error)
}

// Recorder journals executed queries
type Recorder interface {
	Record(ctx context.Context, entry types.HistoryEntry) error
}

type ExecutorConfig struct {
	Logger         *slog.Logger
	Binary         string
	MaxOutputBytes int
	Results        ResultSaver

	// Optional
	History Recorder
	Clock   clockwork.Clock
}

func (cfg *ExecutorConfig) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if cfg.MaxOutputBytes <= 0 {
		return fmt.Errorf("max output bytes must be positive")
	}
	if cfg.Results == nil {
		return fmt.Errorf("result saver is required")
	}
	return nil
}

// Executor runs SQL against a git repository through the mergestat binary.
// It keeps no per-call state, so one Executor serves concurrent calls.
type Executor struct {
	log   *slog.Logger
	cfg   ExecutorConfig
	clock clockwork.Clock
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate executor config: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Executor{
		log:   cfg.Logger,
		cfg:   cfg,
		clock: clock,
	}, nil
}

// Query runs req and delivers the result inline or as a file, depending on
// req.OutputToChat. Failures are always *Error.
func (e *Executor) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResult, error) {
	start := e.clock.Now()

	repoPath, err := resolveRepoPath(req.RepoPath)
	var result *types.QueryResult
	if err == nil {
		result, err = e.query(ctx, req, repoPath)
	}

	e.observe(ctx, req.SQL, repoPath, start, result, err)
	return result, err
}

func (e *Executor) query(ctx context.Context, req types.QueryRequest, repoPath string) (*types.QueryResult, error) {
	pretty, err := e.Run(ctx, req.SQL, repoPath)
	if err != nil {
		return nil, err
	}

	if req.OutputToChat {
		return &types.QueryResult{Inline: string(pretty), Bytes: len(pretty)}, nil
	}

	path, err := e.cfg.Results.Save(pretty)
	if err != nil {
		return nil, newError(KindFileSystemFailure, err, "%v", err)
	}
	e.log.Debug("query: wrote result file", "path", path, "bytes", len(pretty))
	return &types.QueryResult{Path: path, Bytes: len(pretty)}, nil
}

// Run executes one query and returns stdout re-indented with two spaces.
// Object key order and number formatting are kept as mergestat printed them.
func (e *Executor) Run(ctx context.Context, sql, repoPath string) (json.RawMessage, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, newError(KindInvalidInput, nil, "sql is required")
	}

	e.log.DebugContext(ctx, "query: running mergestat", "binary", e.cfg.Binary, "repo", repoPath)

	stdout := newCappedBuffer(e.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(e.cfg.MaxOutputBytes)

	// The query is one argv entry; no shell is involved
	cmd := exec.Command(e.cfg.Binary, sql, "-f", "json", "-r", repoPath)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	if stdout.Exceeded() || stderr.Exceeded() {
		return nil, &Error{
			Kind:    KindOutputTooLarge,
			Message: fmt.Sprintf("output exceeded %d bytes", e.cfg.MaxOutputBytes),
			Stderr:  stderr.String(),
			Err:     errOutputLimit,
		}
	}

	if runErr != nil {
		kind := KindLaunchFailure
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			kind = KindNonZeroExit
		}
		return nil, &Error{
			Kind:    kind,
			Message: fmt.Sprintf("Command failed: %s: %v", e.cfg.Binary, runErr),
			Stderr:  stderr.String(),
			Err:     runErr,
		}
	}

	// mergestat logs to stderr on success too
	if stderr.buf.Len() > 0 {
		e.log.WarnContext(ctx, "query: mergestat stderr", "stderr", strings.TrimSpace(stderr.String()))
	}

	var raw json.RawMessage
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, &Error{
			Kind:      KindJSONParseFailure,
			Message:   err.Error(),
			Stderr:    stderr.String(),
			RawOutput: stdout.String(),
			Err:       err,
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(raw), "", "  "); err != nil {
		return nil, &Error{
			Kind:      KindJSONParseFailure,
			Message:   err.Error(),
			RawOutput: stdout.String(),
			Err:       err,
		}
	}

	return pretty.Bytes(), nil
}

func (e *Executor) observe(ctx context.Context, sql, repoPath string, start time.Time, result *types.QueryResult, err error) {
	elapsed := e.clock.Since(start)
	outcome := KindOf(err)

	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	metrics.QueryDuration.Observe(elapsed.Seconds())

	entry := types.HistoryEntry{
		SQL:       sql,
		RepoPath:  repoPath,
		StartedAt: start,
		Duration:  elapsed,
		Outcome:   outcome,
	}
	if result != nil {
		metrics.ResultBytes.Observe(float64(result.Bytes))
		entry.OutputPath = result.Path
		entry.Bytes = result.Bytes
	}

	if err != nil {
		e.log.WarnContext(ctx, "query: failed", "kind", outcome, "repo", repoPath, "duration", elapsed, "error", err)
	} else {
		e.log.InfoContext(ctx, "query: done", "repo", repoPath, "duration", elapsed, "bytes", entry.Bytes, "path", entry.OutputPath)
	}

	if e.cfg.History == nil {
		return
	}
	if herr := e.cfg.History.Record(ctx, entry); herr != nil {
		e.log.WarnContext(ctx, "query: failed to record history", "error", herr)
	}
}

func resolveRepoPath(repoPath string) (string, error) {
	if repoPath != "" {
		return repoPath, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", newError(KindLaunchFailure, err, "resolve working directory: %v", err)
	}
	return wd, nil
}
