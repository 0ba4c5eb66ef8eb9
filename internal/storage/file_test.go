package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TrendScreener/internal/report"
)

func TestFileStorePersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	store := NewFileStore(dir)

	table := report.Table{
		Columns: []string{"symbol", "close"},
		Rows:    [][]string{{"SPY", "512.30"}},
	}

	path, err := store.Persist(context.Background(), "17-05-2024", table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "17-05-2024.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "symbol,close\nSPY,512.30\n", string(data))

	// a second run on the same day replaces the artifact
	table.Rows = [][]string{{"QQQ", "440.10"}}
	_, err = store.Persist(context.Background(), "17-05-2024", table)
	require.NoError(t, err)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "symbol,close\nQQQ,440.10\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStore(t.TempDir()).Persist(ctx, "x", report.Table{})
	assert.ErrorIs(t, err, context.Canceled)
}
