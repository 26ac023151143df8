package schema

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// LoadErrorText is returned in place of the schema when the file can't be read
const LoadErrorText = "Error loading schema."

// Describer serves the MergeStat DDL from a file on disk.
// The file is read on every call so edits show up without a restart.
type Describer struct {
	path string
	log  *slog.Logger
}

func NewDescriber(path string, log *slog.Logger) *Describer {
	return &Describer{path: path, log: log}
}

// Path returns the schema file path
func (d *Describer) Path() string {
	return d.path
}

// Load returns the schema text or the read error
func (d *Describer) Load() (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("read schema file: %w", err)
	}
	return string(data), nil
}

// Describe always returns a string. Schema text is context for the agent,
// not a query result, so a read failure degrades to LoadErrorText.
func (d *Describer) Describe(ctx context.Context) string {
	text, err := d.Load()
	if err != nil {
		d.log.ErrorContext(ctx, "failed to read schema file", "path", d.path, "error", err)
		return LoadErrorText
	}
	return text
}
