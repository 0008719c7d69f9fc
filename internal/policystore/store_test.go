package policystore

import (
	"context"
	"testing"
	"time"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

// #region helpers
func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func solvedEngine(t *testing.T) (*solver.Engine, gear.GearState, gear.Budget) {
	t.Helper()
	var pmf [gear.NumSlots]float64
	for i := range pmf {
		pmf[i] = 1.0 / gear.NumSlots
	}
	cfg := &gear.Configuration{
		PowerfulCap: 10,
		PinnacleCap: 12,
		Actions: []gear.ActionSpec{
			{Name: "powerful", PowerfulGain: 5, PinnacleGain: 2, Arity: 2, PMF: pmf},
		},
	}
	e, err := solver.NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	start := gear.GearState{}
	if _, _, err := e.SelectAction(context.Background(), start, cfg.Caps()); err != nil {
		t.Fatalf("select action: %v", err)
	}
	return e, start, cfg.Caps()
}

// #endregion helpers

// #region export-tests
func TestExportAndLookup(t *testing.T) {
	s := setupStore(t)
	e, start, budget := solvedEngine(t)

	runID, err := s.Export(e.Table(), Summary{
		Mode:       "on_demand",
		Config:     e.Config(),
		Duration:   1500 * time.Millisecond,
		StartState: start.String(),
		Budget:     budget.Format(1),
		Score:      3.5,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if runID == "" {
		t.Fatal("expected run id")
	}

	var count int
	s.DB().QueryRow("SELECT COUNT(*) FROM policy_entries WHERE run_id = ?", runID).Scan(&count)
	if count != e.Table().Len() {
		t.Errorf("expected %d entries, got %d", e.Table().Len(), count)
	}

	want, _, err := e.Lookup(budget, start)
	if err != nil {
		t.Fatalf("engine lookup: %v", err)
	}
	got, ok, err := s.Lookup(runID, budget, 1, start)
	if err != nil {
		t.Fatalf("store lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected exported entry")
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	_, ok, err = s.Lookup(runID, budget, 1, gear.GearState{Mean: 3})
	if err != nil {
		t.Fatalf("lookup missing: %v", err)
	}
	if ok {
		t.Error("expected no entry for unvisited state")
	}
}

// #endregion export-tests

// #region run-tests
func TestGetRunAndConfig(t *testing.T) {
	s := setupStore(t)
	e, _, _ := solvedEngine(t)

	runID, err := s.Export(e.Table(), Summary{Mode: "eager", Config: e.Config(), Duration: time.Second})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rec, err := s.GetRun(runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Mode != "eager" || rec.DurationMs != 1000 || rec.Entries != e.Table().Len() {
		t.Errorf("unexpected run %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected created_at")
	}

	cfg, err := rec.Config()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.PinnacleCap != 12 || len(cfg.Actions) != 1 || cfg.Actions[0].Name != "powerful" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := s.GetRun("missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestListRuns(t *testing.T) {
	s := setupStore(t)
	e, _, _ := solvedEngine(t)

	for range 3 {
		if _, err := s.Export(e.Table(), Summary{Mode: "on_demand", Config: e.Config()}); err != nil {
			t.Fatalf("export: %v", err)
		}
	}
	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].CreatedAt.Before(runs[1].CreatedAt) {
		t.Error("expected newest first")
	}
}

// #endregion run-tests
