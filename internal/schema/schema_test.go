package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saeedalam/mergestat-mcp/internal/logging"
)

func TestDescriber_Describe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE commits (hash TEXT);\n"), 0644))

	d := NewDescriber(path, logging.Discard())
	require.Equal(t, path, d.Path())
	require.Equal(t, "CREATE TABLE commits (hash TEXT);\n", d.Describe(context.Background()))

	// Picks up edits without a restart
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE refs (name TEXT);\n"), 0644))
	require.Equal(t, "CREATE TABLE refs (name TEXT);\n", d.Describe(context.Background()))
}

func TestDescriber_MissingFile(t *testing.T) {
	d := NewDescriber(filepath.Join(t.TempDir(), "missing.sql"), logging.Discard())

	require.Equal(t, LoadErrorText, d.Describe(context.Background()))

	_, err := d.Load()
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}
