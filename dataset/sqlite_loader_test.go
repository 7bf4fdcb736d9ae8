package dataset

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSQLiteDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "latency.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	statements := []string{
		`CREATE TABLE observations (region TEXT, latency_ms REAL, uptime_pct REAL)`,
		`INSERT INTO observations VALUES ('apac', 100, 99)`,
		`INSERT INTO observations VALUES ('apac', 200, 100)`,
		`INSERT INTO observations VALUES ('emea', NULL, NULL)`,
		`INSERT INTO observations VALUES (NULL, 50, 90)`,
	}
	for _, s := range statements {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}

func TestSQLiteLoader_Load(t *testing.T) {
	path := createSQLiteDataset(t)
	loader, err := NewSQLiteLoader(path, "observations")
	require.NoError(t, err)
	defer loader.Close()

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Observation{
		{Region: "apac", LatencyMs: 100, UptimePct: 99},
		{Region: "apac", LatencyMs: 200, UptimePct: 100},
		{Region: "emea"},
		{LatencyMs: 50, UptimePct: 90, noRegion: true},
	}, got)
}

func TestSQLiteLoader_InfiniteValueIsUnavailable(t *testing.T) {
	path := createSQLiteDataset(t)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO observations VALUES ('apac', 9e999, 99)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	loader, err := NewSQLiteLoader(path, "observations")
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load(context.Background())
	assert.True(t, errors.Is(err, ErrDataUnavailable), "got err = %v", err)
}

func TestSQLiteLoader_MissingTableIsUnavailable(t *testing.T) {
	path := createSQLiteDataset(t)
	loader, err := NewSQLiteLoader(path, "nope")
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load(context.Background())
	assert.True(t, errors.Is(err, ErrDataUnavailable), "got err = %v", err)
}

func TestNewSQLiteLoader_RejectsBadTableName(t *testing.T) {
	_, err := NewSQLiteLoader("latency.db", "observations; DROP TABLE observations")
	assert.Error(t, err)

	_, err = NewSQLiteLoader("", "observations")
	assert.Error(t, err)
}
