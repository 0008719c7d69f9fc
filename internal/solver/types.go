package solver

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region errors
var (
	// ErrNotComputed means a non-terminal key was read before it was built.
	// During an eager build it signals a dependency-order bug and aborts the run.
	ErrNotComputed = errors.New("transition not computed")
	// ErrInvalidBudget rejects a budget that does not fit the catalog.
	ErrInvalidBudget = errors.New("invalid budget")
)

// #endregion errors

// #region key
// Key identifies one memoized (budget, state) pair.
type Key struct {
	Budget gear.Budget
	State  gear.GearState
}

// flightKey packs k into a string for singleflight de-duplication.
func (k Key) flightKey() string {
	buf := make([]byte, 0, gear.MaxActions+binary.MaxVarintLen64*(gear.NumSlots+1))
	buf = append(buf, k.Budget[:]...)
	buf = binary.AppendVarint(buf, int64(k.State.Mean))
	for _, d := range k.State.Deviation {
		buf = binary.AppendVarint(buf, int64(d))
	}
	return string(buf)
}

// #endregion key

// #region plan
// Plan answers "what to do next" for a concrete loadout.
type Plan struct {
	Start      gear.GearState // leveled starting state
	Budget     gear.Budget
	Terminal   bool
	Action     int
	ActionName string
	Score      float64 // expected total gain from here
}

// Progress reports one finished budget class of an eager build.
type Progress struct {
	Class        int
	Classes      int
	Budgets      int // budgets finished so far, across classes
	TotalBudgets int
	Entries      int
	Elapsed      time.Duration
}

// #endregion plan
