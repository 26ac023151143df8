package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	resultPrefix = "query_result_"
	resultExt    = ".json"
	suffixLen    = 5

	// name clashes need the same millisecond and the same 20 random bits
	maxSaveAttempts = 5
)

// ResultStore writes query results to files in a single directory
type ResultStore struct {
	dir   string
	clock clockwork.Clock
}

// NewResultStore creates a store rooted at dir. A nil clock uses the real clock.
func NewResultStore(dir string, clock clockwork.Clock) (*ResultStore, error) {
	if dir == "" {
		return nil, errors.New("result dir is required")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve result dir: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ResultStore{dir: absDir, clock: clock}, nil
}

// Dir returns the absolute directory results are written to
func (s *ResultStore) Dir() string {
	return s.dir
}

// Save writes data to a new uniquely named file and returns its absolute path.
// The directory is created on demand.
func (s *ResultStore) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}

	// Trailing newline so the file reads cleanly with cat
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		path := filepath.Join(s.dir, s.fileName())
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create result file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write result file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close result file: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("could not pick a unique result file name in %s after %d attempts", s.dir, maxSaveAttempts)
}

// Prune removes result files last modified more than olderThan ago.
// Other files in the directory are left alone.
func (s *ResultStore) Prune(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read result dir: %w", err)
	}

	cutoff := s.clock.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !IsResultFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed concurrently
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// IsResultFile reports whether name looks like a file written by Save
func IsResultFile(name string) bool {
	return strings.HasPrefix(name, resultPrefix) && strings.HasSuffix(name, resultExt)
}

// fileName builds query_result_<epoch-millis>_<random>.json
func (s *ResultStore) fileName() string {
	millis := s.clock.Now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:suffixLen]
	return fmt.Sprintf("%s%d_%s%s", resultPrefix, millis, suffix, resultExt)
}
