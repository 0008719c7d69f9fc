package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/policystore"
)

// #region main

func main() {
	dbPath := flag.String("db", os.Getenv("GEAROPT_DB"), "path to an exported policy database")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "run to query (default: most recent)")
	budget := flag.String("budget", "", "comma-separated remaining uses per action")
	slots := flag.String("slots", "", "eight comma-separated slot levels (leveled before lookup)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db policy.db [--last N] [--run id --budget 1,2 --slots 1050,...] [--json]")
		os.Exit(2)
	}

	store, err := policystore.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *slots != "" {
		err = runLookupMode(store, *runID, *budget, *slots, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID      string  `json:"run_id"`
	Mode       string  `json:"mode"`
	Entries    int     `json:"entries"`
	DurationMs int64   `json:"duration_ms"`
	StartState string  `json:"start_state,omitempty"`
	Budget     string  `json:"budget,omitempty"`
	Score      float64 `json:"score"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(store *policystore.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	// store returns newest first, print chronologically
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:      r.RunID,
			Mode:       r.Mode,
			Entries:    r.Entries,
			DurationMs: r.DurationMs,
			StartState: r.StartState,
			Budget:     r.Budget,
			Score:      r.Score,
			CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-36s  %-9s  %10s  %9s  %8s  %s\n", "Run", "Mode", "Entries", "Time", "Score", "Created")
	fmt.Printf("%-36s+-%-9s+-%10s+-%9s+-%8s+-%s\n",
		"------------------------------------", "---------", "----------", "---------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-36s  %-9s  %10d  %8.1fs  %8.3f  %s\n",
			r.RunID, r.Mode, r.Entries, float64(r.DurationMs)/1000, r.Score, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region lookup-mode

type lookupRow struct {
	RunID      string  `json:"run_id"`
	State      string  `json:"state"`
	Budget     string  `json:"budget"`
	Found      bool    `json:"found"`
	Terminal   bool    `json:"terminal"`
	Action     int     `json:"action"`
	ActionName string  `json:"action_name,omitempty"`
	Score      float64 `json:"score"`
}

func runLookupMode(store *policystore.Store, runID, budgetStr, slotsStr string, jsonOut bool) error {
	run, err := resolveRun(store, runID)
	if err != nil {
		return err
	}
	cfg, err := run.Config()
	if err != nil {
		return err
	}
	n := len(cfg.Actions)

	budget := cfg.Caps()
	if budgetStr != "" {
		if budget, err = gear.ParseBudget(budgetStr); err != nil {
			return err
		}
	}
	slots, err := gear.ParseSlots(slotsStr)
	if err != nil {
		return err
	}
	state := gear.Level(slots)

	row := lookupRow{RunID: run.RunID, State: state.String(), Budget: budget.Format(n), Action: -1}
	if cfg.Terminal(state, budget) {
		row.Terminal = true
		row.Found = true
	} else {
		st, ok, err := store.Lookup(run.RunID, budget, n, state)
		if err != nil {
			return err
		}
		row.Found = ok
		if ok {
			row.Action = st.Action
			row.ActionName = cfg.Actions[st.Action].Name
			row.Score = st.Score
		}
	}

	if jsonOut {
		return printJSON(row)
	}
	fmt.Printf("Run:    %s\n", row.RunID)
	fmt.Printf("State:  %s\n", row.State)
	fmt.Printf("Budget: [%s]\n", row.Budget)
	switch {
	case row.Terminal:
		fmt.Println("Terminal: nothing left to gain.")
	case !row.Found:
		fmt.Println("Not in this export.")
	default:
		fmt.Printf("Next:   %s (action %d)\nExpected gain: %.4f\n", row.ActionName, row.Action, row.Score)
	}
	return nil
}

func resolveRun(store *policystore.Store, runID string) (policystore.RunRecord, error) {
	if runID != "" {
		return store.GetRun(runID)
	}
	runs, err := store.ListRuns(1)
	if err != nil {
		return policystore.RunRecord{}, err
	}
	if len(runs) == 0 {
		return policystore.RunRecord{}, fmt.Errorf("no runs in database")
	}
	return runs[0], nil
}

// #endregion lookup-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
