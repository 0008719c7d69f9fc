package logging

import "time"

// #region run-entry
// RunEntry is a single row in the solve_runs table.
type RunEntry struct {
	RunID       string
	Mode        string // "eager" | "on_demand"
	CatalogJSON string
	Entries     int
	DurationMs  int64
	StartState  string
	Budget      string
	Score       float64
	CreatedAt   time.Time
}

// #endregion run-entry
