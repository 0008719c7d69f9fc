package policystore

import "time"

// #region run-record
// RunRecord summarizes one exported solve.
type RunRecord struct {
	RunID       string
	Mode        string
	CatalogJSON string
	Entries     int
	DurationMs  int64
	StartState  string
	Budget      string
	Score       float64
	CreatedAt   time.Time
}

// #endregion run-record
