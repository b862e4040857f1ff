package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacewatch/internal/history"

	_ "modernc.org/sqlite"
)

// Archive keeps every individual check result in SQLite, uncapped. The
// capped JSON log stays the source of truth for the report; the archive
// exists for long-term per-space statistics.
type Archive struct {
	db *sql.DB
}

// SpaceStats aggregates the archived checks for one space.
type SpaceStats struct {
	Space       string  `json:"space"`
	TotalChecks int     `json:"total_checks"`
	OkChecks    int     `json:"ok_checks"`
	AvgLatency  float64 `json:"avg_latency_seconds"` // over ok checks only
}

// Open opens (creating if needed) the archive database.
func Open(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; SQLite does not like concurrent connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &Archive{db: db}

	if err := a.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			space TEXT NOT NULL,
			status TEXT NOT NULL,
			latency_seconds REAL NOT NULL,
			detail TEXT,
			checked_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = a.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_space_checked
		ON checks(space, checked_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordRun inserts every result of a run entry.
func (a *Archive) RecordRun(ctx context.Context, entry history.RunEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range entry.Results {
		checkedAt := r.Timestamp
		if checkedAt.IsZero() {
			checkedAt = entry.Timestamp
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO checks (space, status, latency_seconds, detail, checked_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			r.Name,
			string(r.Status),
			r.Latency,
			r.Detail,
			checkedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert check record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check records: %w", err)
	}

	return nil
}

// SpaceStats returns aggregate counts and the average ok-check latency for
// one space over the whole archive.
func (a *Archive) SpaceStats(ctx context.Context, space string) (*SpaceStats, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN ('healthy', 'rebuilt') THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status IN ('healthy', 'rebuilt') THEN latency_seconds END), 0)
		FROM checks
		WHERE space = ?
	`, space)

	stats := &SpaceStats{Space: space}
	if err := row.Scan(&stats.TotalChecks, &stats.OkChecks, &stats.AvgLatency); err != nil {
		return nil, fmt.Errorf("failed to query space stats: %w", err)
	}

	return stats, nil
}

// RecentChecks returns the newest archived checks for a space, newest first.
func (a *Archive) RecentChecks(ctx context.Context, space string, limit int) ([]history.CheckResult, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT space, status, latency_seconds, detail, checked_at
		FROM checks
		WHERE space = ?
		ORDER BY id DESC
		LIMIT ?
	`, space, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent checks: %w", err)
	}
	defer rows.Close()

	var results []history.CheckResult
	for rows.Next() {
		var r history.CheckResult
		var status, checkedAt string
		var detail sql.NullString

		if err := rows.Scan(&r.Name, &status, &r.Latency, &detail, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check record: %w", err)
		}

		r.Status = history.Status(status)
		r.Detail = detail.String

		ts, err := time.Parse(time.RFC3339, checkedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse checked_at timestamp: %w", err)
		}
		r.Timestamp = ts

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}
