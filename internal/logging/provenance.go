package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-run
// LogRun writes a provenance entry for one solve to the solve_runs table.
func LogRun(db *sql.DB, entry RunEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO solve_runs (run_id, mode, catalog_json, entries, duration_ms, start_state, budget, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Mode,
		nullIfEmpty(entry.CatalogJSON),
		entry.Entries,
		entry.DurationMs,
		nullIfEmpty(entry.StartState),
		nullIfEmpty(entry.Budget),
		entry.Score,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// #endregion log-run

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
