package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testSchema = "CREATE TABLE commits (hash TEXT, message TEXT);\n"

type testEnv struct {
	dir       string
	binary    string
	schema    string
	outputDir string
}

// setupEnv points configuration at a fake mergestat and a temp schema and
// output directory, through the environment.
func setupEnv(t *testing.T, body string) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake mergestat binaries are shell scripts")
	}

	dir := t.TempDir()
	t.Chdir(dir)

	env := &testEnv{
		dir:       dir,
		binary:    filepath.Join(dir, "mergestat"),
		schema:    filepath.Join(dir, "schema.sql"),
		outputDir: filepath.Join(dir, "results"),
	}
	require.NoError(t, os.WriteFile(env.binary, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	require.NoError(t, os.WriteFile(env.schema, []byte(testSchema), 0644))

	t.Setenv("MERGESTAT_BIN", env.binary)
	t.Setenv("MERGESTAT_SCHEMA_PATH", env.schema)
	t.Setenv("MERGESTAT_OUTPUT_DIR", env.outputDir)
	t.Setenv("MERGESTAT_MAX_OUTPUT_BYTES", "1048576")
	t.Setenv("MERGESTAT_HISTORY_DB", "")
	t.Setenv("MERGESTAT_METRICS_ADDR", "")
	return env
}

// resetFlags puts every flag back to its default so commands can be
// executed repeatedly within one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resultFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "query_result_*.json"))
	require.NoError(t, err)
	return matches
}

func TestQuery_Chat(t *testing.T) {
	env := setupEnv(t, `echo '[{"hash":"abc","additions":3}]'`)

	out, _, err := execute(t, "query", "SELECT hash, additions FROM commits", "--repo", env.dir, "--chat")
	require.NoError(t, err)
	require.Equal(t, "[\n  {\n    \"hash\": \"abc\",\n    \"additions\": 3\n  }\n]\n", out)
	require.Empty(t, resultFiles(t, env.outputDir))
}

func TestQuery_WritesResultFile(t *testing.T) {
	env := setupEnv(t, `echo '[{"hash":"abc"}]'`)

	out, _, err := execute(t, "query", "SELECT hash FROM commits", "--repo", env.dir)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	files := resultFiles(t, env.outputDir)
	require.Equal(t, []string{path}, files)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `[{"hash":"abc"}]`, string(data))
}

func TestQuery_Failure(t *testing.T) {
	env := setupEnv(t, `echo 'no such column: hsh' >&2
exit 2`)

	_, _, err := execute(t, "query", "SELECT hsh FROM commits", "--repo", env.dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Error executing mergestat")
	require.Contains(t, err.Error(), "no such column: hsh")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	env := setupEnv(t, `echo '[]'`)
	t.Setenv("MERGESTAT_BIN", filepath.Join(env.dir, "does-not-exist"))

	otherDir := filepath.Join(env.dir, "elsewhere")
	out, _, err := execute(t, "query", "SELECT 1", "--repo", env.dir,
		"--binary", env.binary,
		"--output-dir", otherDir,
	)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), otherDir))
	require.Len(t, resultFiles(t, otherDir), 1)
	require.Empty(t, resultFiles(t, env.outputDir))
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t, `echo '[]'`)

	_, _, err := execute(t, "query", "SELECT 1", "--max-output-bytes", "0")
	require.ErrorContains(t, err, "invalid configuration")
}

func TestSchema(t *testing.T) {
	env := setupEnv(t, `echo '[]'`)

	out, _, err := execute(t, "schema")
	require.NoError(t, err)
	require.Equal(t, testSchema, out)

	require.NoError(t, os.Remove(env.schema))
	out, _, err = execute(t, "schema")
	require.NoError(t, err)
	require.Equal(t, "Error loading schema.", out)
}

func TestStatus(t *testing.T) {
	env := setupEnv(t, `echo '[]'`)

	out, _, err := execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "MergeStat MCP Status")
	require.Contains(t, out, "Resolved:         "+env.binary)
	require.Contains(t, out, "Status:           OK")
	require.Contains(t, out, "History:          disabled")

	out, _, err = execute(t, "status", "--binary", filepath.Join(env.dir, "missing"), "--schema", filepath.Join(env.dir, "missing.sql"))
	require.NoError(t, err)
	require.Contains(t, out, "NOT FOUND")
	require.Contains(t, out, "UNREADABLE")
}

func TestHistory(t *testing.T) {
	env := setupEnv(t, `echo '[{"n":1}]'`)

	_, _, err := execute(t, "history")
	require.ErrorContains(t, err, "history is disabled")

	db := filepath.Join(env.dir, "history.db")
	_, _, err = execute(t, "query", "SELECT count(*) AS n FROM commits", "--repo", env.dir, "--history-db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "history", "--history-db", db)
	require.NoError(t, err)
	require.Contains(t, out, "SELECT count(*) AS n FROM commits")
	require.Contains(t, out, "ok")
	require.Contains(t, out, env.dir)
}

func TestHistory_Empty(t *testing.T) {
	env := setupEnv(t, `echo '[]'`)

	out, _, err := execute(t, "history", "--history-db", filepath.Join(env.dir, "history.db"))
	require.NoError(t, err)
	require.Contains(t, out, "No queries recorded yet.")
}

func TestClean(t *testing.T) {
	env := setupEnv(t, `echo '[]'`)

	_, _, err := execute(t, "query", "SELECT 1", "--repo", env.dir)
	require.NoError(t, err)
	require.Len(t, resultFiles(t, env.outputDir), 1)

	keep := filepath.Join(env.outputDir, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0644))

	out, _, err := execute(t, "clean")
	require.NoError(t, err)
	require.Contains(t, out, "Removed 0 result file(s)")
	require.Len(t, resultFiles(t, env.outputDir), 1)

	out, _, err = execute(t, "clean", "--older-than", "0s")
	require.NoError(t, err)
	require.Contains(t, out, "Removed 1 result file(s)")
	require.Empty(t, resultFiles(t, env.outputDir))
	require.FileExists(t, keep)

	_, _, err = execute(t, "clean", "--older-than", "-1h")
	require.ErrorContains(t, err, "must not be negative")
}

func TestVersion(t *testing.T) {
	SetVersionInfo("v1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "mergestat-mcp v1.2.3 (commit: abc123, built: 2026-01-01)", lines[0])
	require.Equal(t, "  go:      "+runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH, lines[1])
	require.True(t, strings.HasPrefix(lines[2], "  mcp sdk: "))
}

func TestModuleVersion_Unknown(t *testing.T) {
	require.Equal(t, "unknown", moduleVersion("example.com/not/a/dependency"))
}

func TestTruncateSQL(t *testing.T) {
	require.Equal(t, "SELECT * FROM commits", truncateSQL("SELECT *\n  FROM   commits"))

	long := "SELECT " + strings.Repeat("a, ", 40) + "b FROM commits"
	got := truncateSQL(long)
	require.Len(t, got, maxSQLWidth)
	require.True(t, strings.HasSuffix(got, "..."))

	// Cut on character boundaries, not bytes
	wide := "SELECT * FROM commits WHERE message LIKE '%" + strings.Repeat("é", 40) + "%'"
	got = truncateSQL(wide)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, maxSQLWidth, utf8.RuneCountInString(got))
	require.True(t, strings.HasSuffix(got, "é..."))
}
