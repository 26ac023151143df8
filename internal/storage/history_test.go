package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

func setupTestHistory(t *testing.T) *History {
	t.Helper()

	h, err := OpenHistory(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestOpenHistory_RequiresPath(t *testing.T) {
	h, err := OpenHistory("")
	require.Error(t, err)
	require.Nil(t, h)
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h := setupTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	entries := []types.HistoryEntry{
		{SQL: "SELECT 1", RepoPath: "/repo/a", StartedAt: base, Duration: 120 * time.Millisecond, Outcome: types.OutcomeOK, OutputPath: "/tmp/one.json", Bytes: 10},
		{SQL: "SELECT 2", RepoPath: "/repo/b", StartedAt: base.Add(time.Minute), Duration: time.Second, Outcome: "NonZeroExit"},
		{ID: "fixed-id", SQL: "SELECT 3", RepoPath: "/repo/c", StartedAt: base.Add(2 * time.Minute), Outcome: types.OutcomeOK, Bytes: 3},
	}
	for _, e := range entries {
		require.NoError(t, h.Record(ctx, e))
	}

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, "fixed-id", got[0].ID)
	require.Equal(t, "SELECT 3", got[0].SQL)
	require.Equal(t, "SELECT 2", got[1].SQL)
	require.Equal(t, "NonZeroExit", got[1].Outcome)
	require.Empty(t, got[1].OutputPath)
	require.Equal(t, time.Second, got[1].Duration)

	oldest := got[2]
	require.NotEmpty(t, oldest.ID)
	require.Equal(t, "/repo/a", oldest.RepoPath)
	require.Equal(t, "/tmp/one.json", oldest.OutputPath)
	require.Equal(t, 10, oldest.Bytes)
	require.Equal(t, 120*time.Millisecond, oldest.Duration)
	require.True(t, base.Equal(oldest.StartedAt))
}

func TestHistory_RecentLimit(t *testing.T) {
	h := setupTestHistory(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Record(ctx, types.HistoryEntry{
			SQL:       "SELECT * FROM commits",
			RepoPath:  "/repo",
			StartedAt: base.Add(time.Duration(i) * time.Second),
			Outcome:   types.OutcomeOK,
		}))
	}

	got, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestHistory_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(ctx, types.HistoryEntry{SQL: "SELECT 1", RepoPath: "/r", StartedAt: time.Now(), Outcome: types.OutcomeOK}))
	require.NoError(t, h.Close())

	h, err = OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	got, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestOpenHistory_PathWithURIMetacharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "q?uery #1 dir")
	path := filepath.Join(dir, "history.db")

	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), types.HistoryEntry{
		SQL: "SELECT 1", RepoPath: "/repo", StartedAt: time.Now(), Outcome: types.OutcomeOK,
	}))
	require.NoError(t, h.Close())

	require.FileExists(t, path)

	h, err = OpenHistory(path)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	entries, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
