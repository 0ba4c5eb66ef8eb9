package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Alias1177/TrendScreener/internal/report"
)

// FileStore writes one CSV per run into a directory
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Persist writes <Dir>/<name>.csv, replacing a file from an earlier run of the
// same day. The file is written to a temp name first so a failed write never
// leaves a truncated report behind.
func (s *FileStore) Persist(ctx context.Context, name string, t report.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.Dir, name+".csv")
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := report.WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename report: %w", err)
	}
	return path, nil
}
