// Package policystore exports a solved memo table to SQLite for inspection.
// Exports are snapshots; the solver never reads them back.
package policystore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/logging"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	run_id        TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	catalog_json  TEXT,
	entries       INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	start_state   TEXT,
	budget        TEXT,
	score         REAL NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS policy_entries (
	run_id        TEXT NOT NULL,
	budget        TEXT NOT NULL,
	mean          INTEGER NOT NULL,
	deviation     TEXT NOT NULL,
	action        INTEGER NOT NULL,
	score         REAL NOT NULL,
	PRIMARY KEY (run_id, budget, mean, deviation),
	FOREIGN KEY (run_id) REFERENCES solve_runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store manages exported policies in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region export
// Summary describes the solve being exported.
type Summary struct {
	Mode       string
	Config     *gear.Configuration
	Duration   time.Duration
	StartState string
	Budget     string
	Score      float64
}

// Export writes every entry of table under a fresh run ID, then logs the run.
func (s *Store) Export(table *solver.Table, sum Summary) (string, error) {
	runID := uuid.New().String()
	n := len(sum.Config.Actions)

	catalogJSON, err := json.Marshal(sum.Config)
	if err != nil {
		return "", fmt.Errorf("marshal catalog: %w", err)
	}
	if err := logging.LogRun(s.db, logging.RunEntry{
		RunID:       runID,
		Mode:        sum.Mode,
		CatalogJSON: string(catalogJSON),
		Entries:     table.Len(),
		DurationMs:  sum.Duration.Milliseconds(),
		StartState:  sum.StartState,
		Budget:      sum.Budget,
		Score:       sum.Score,
	}); err != nil {
		return "", err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO policy_entries (run_id, budget, mean, deviation, action, score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var insertErr error
	table.Range(func(k solver.Key, st gear.StateTransition) bool {
		_, insertErr = stmt.Exec(runID, k.Budget.Format(n), k.State.Mean, encodeDeviation(k.State.Deviation), st.Action, st.Score)
		return insertErr == nil
	})
	if insertErr != nil {
		return "", fmt.Errorf("insert entry: %w", insertErr)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// #endregion export

// #region lookup
// Lookup reads one exported transition. ok is false when the run holds no
// entry for the pair.
func (s *Store) Lookup(runID string, budget gear.Budget, actions int, state gear.GearState) (gear.StateTransition, bool, error) {
	var st gear.StateTransition
	err := s.db.QueryRow(
		`SELECT action, score FROM policy_entries
		 WHERE run_id = ? AND budget = ? AND mean = ? AND deviation = ?`,
		runID, budget.Format(actions), state.Mean, encodeDeviation(state.Deviation),
	).Scan(&st.Action, &st.Score)
	if err == sql.ErrNoRows {
		return gear.StateTransition{}, false, nil
	}
	if err != nil {
		return gear.StateTransition{}, false, fmt.Errorf("lookup %s: %w", state, err)
	}
	return st, true, nil
}

// #endregion lookup

// #region runs
// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, mode, catalog_json, entries, duration_ms, start_state, budget, score, created_at
		 FROM solve_runs WHERE run_id = ?`, runID,
	)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, mode, catalog_json, entries, duration_ms, start_state, budget, score, created_at
		 FROM solve_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Config decodes the catalog a run was solved with.
func (r RunRecord) Config() (*gear.Configuration, error) {
	var cfg gear.Configuration
	if err := json.Unmarshal([]byte(r.CatalogJSON), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return &cfg, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var catalogJSON, start, budget sql.NullString
	var createdStr string
	if err := row.Scan(&rec.RunID, &rec.Mode, &catalogJSON, &rec.Entries, &rec.DurationMs,
		&start, &budget, &rec.Score, &createdStr); err != nil {
		return RunRecord{}, err
	}
	rec.CatalogJSON = catalogJSON.String
	rec.StartState = start.String
	rec.Budget = budget.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion runs

// #region deviation-encoding
func encodeDeviation(d [gear.NumSlots]int) string {
	parts := make([]string, gear.NumSlots)
	for i, v := range d {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// #endregion deviation-encoding
