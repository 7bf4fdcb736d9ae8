package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteLoader reads observations from a table with region, latency_ms and
// uptime_pct columns. NULL latencies and uptimes read as 0 and rows with a
// NULL region never match.
type SQLiteLoader struct {
	db    *sql.DB
	query string
}

func NewSQLiteLoader(path string, table string) (*SQLiteLoader, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite dataset path is empty")
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}

	// mode=ro keeps the loader from ever creating or writing the database.
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite dataset: %w", err)
	}
	db.SetMaxOpenConns(4)

	return &SQLiteLoader{
		db:    db,
		query: fmt.Sprintf("SELECT region, latency_ms, uptime_pct FROM %s", table),
	}, nil
}

func (l *SQLiteLoader) Load(ctx context.Context) ([]Observation, error) {
	rows, err := l.db.QueryContext(ctx, l.query)
	if err != nil {
		return nil, unavailable("querying sqlite dataset: %v", err)
	}
	defer rows.Close()

	records := []Observation{}
	for rows.Next() {
		var region sql.NullString
		var latency, uptime sql.NullFloat64
		if err := rows.Scan(&region, &latency, &uptime); err != nil {
			return nil, unavailable("scanning sqlite dataset: %v", err)
		}
		// NULL numbers read as 0; infinities are rejected like in decoded files.
		latencyMs, err := toFloat(latency.Float64)
		if err != nil {
			return nil, unavailable("sqlite dataset latency_ms: %v", err)
		}
		uptimePct, err := toFloat(uptime.Float64)
		if err != nil {
			return nil, unavailable("sqlite dataset uptime_pct: %v", err)
		}
		records = append(records, Observation{
			Region:    region.String,
			LatencyMs: latencyMs,
			UptimePct: uptimePct,
			noRegion:  !region.Valid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating sqlite dataset: %v", err)
	}

	return records, nil
}

func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}
