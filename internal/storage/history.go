package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

const defaultHistoryLimit = 20

// History is an append-only journal of executed queries backed by SQLite
type History struct {
	db   *sql.DB
	path string
}

// OpenHistory opens (creating if needed) the journal database at path
func OpenHistory(path string) (*History, error) {
	if path == "" {
		return nil, errors.New("history path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	// WAL plus a busy timeout so the CLI can read while a server writes
	dsn := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(absPath),
		RawQuery: "_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)",
	}
	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	db.SetMaxOpenConns(1)

	h := &History{db: db, path: path}
	if err := h.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Path returns the database file path
func (h *History) Path() string {
	return h.path
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		sql TEXT NOT NULL,
		repo_path TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		output_path TEXT,
		bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_queries_started_at ON queries(started_at);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

// Record appends an entry. A missing ID is generated.
func (h *History) Record(ctx context.Context, entry types.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO queries (id, sql, repo_path, started_at, duration_ms, outcome, output_path, bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.SQL, entry.RepoPath, entry.StartedAt.UnixMilli(),
		entry.Duration.Milliseconds(), entry.Outcome, entry.OutputPath, entry.Bytes)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, sql, repo_path, started_at, duration_ms, outcome, COALESCE(output_path, ''), bytes
		FROM queries
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var startedAt, durationMs int64
		if err := rows.Scan(&e.ID, &e.SQL, &e.RepoPath, &startedAt, &durationMs, &e.Outcome, &e.OutputPath, &e.Bytes); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedAt)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
