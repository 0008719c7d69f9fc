package gear

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// #region constants
const (
	// NumSlots is the number of equipment slots in a loadout.
	NumSlots = 8
	// MaxActions bounds the catalog size so that a Budget fits a fixed array.
	MaxActions = 16
	// MaxArity is the largest usage bound a single action may carry.
	MaxArity = 255
)

var (
	// ErrInvalidConfig marks a configuration rejected before solving.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvariant marks a broken state invariant. It aborts the whole run.
	ErrInvariant = errors.New("invariant violation")
)

// #endregion constants

// #region slot
// Slot indexes one equipment position.
type Slot int

const (
	Kinetic Slot = iota
	Energy
	Power
	Head
	Glove
	Chest
	Leg
	ClassItem
)

var slotNames = [NumSlots]string{"kinetic", "energy", "power", "head", "glove", "chest", "leg", "class_item"}

func (s Slot) String() string {
	if s < 0 || int(s) >= NumSlots {
		return "slot(" + strconv.Itoa(int(s)) + ")"
	}
	return slotNames[s]
}

// Slots holds the absolute power level of every slot.
type Slots [NumSlots]int

// Sum returns the total power across all slots.
func (s Slots) Sum() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// #endregion slot

// #region action
// ActionSpec is one upgrade source in the catalog.
type ActionSpec struct {
	Name         string
	PowerfulGain int
	PinnacleGain int
	Arity        int               // maximum number of uses
	PMF          [NumSlots]float64 // probability the reward drops into each slot
}

// Configuration is an immutable problem instance.
type Configuration struct {
	PowerfulStart int // lower edge of the eagerly built state window
	PowerfulCap   int
	PinnacleCap   int
	Actions       []ActionSpec
}

// #endregion action

// #region gear-state
// GearState is the canonical (mean, deviation) encoding of a loadout.
// The actual value of slot i is Mean + Deviation[i].
type GearState struct {
	Mean      int
	Deviation [NumSlots]int
}

// DeviationSum returns the sum of the per-slot offsets. For a leveled state
// it equals the slot total modulo NumSlots.
func (g GearState) DeviationSum() int {
	total := 0
	for _, d := range g.Deviation {
		total += d
	}
	return total
}

// MaxLevel returns the highest absolute slot value.
func (g GearState) MaxLevel() int {
	hi := g.Deviation[0]
	for _, d := range g.Deviation[1:] {
		hi = max(hi, d)
	}
	return g.Mean + hi
}

func (g GearState) String() string {
	parts := make([]string, NumSlots)
	for i, d := range g.Deviation {
		parts[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("%d[%s]", g.Mean, strings.Join(parts, ","))
}

// #endregion gear-state

// #region budget
// Budget holds the remaining permitted uses per action. Entries past the
// catalog length stay zero.
type Budget [MaxActions]uint8

// Sum returns the total remaining uses.
func (b Budget) Sum() int {
	total := 0
	for _, v := range b {
		total += int(v)
	}
	return total
}

// Dec returns a copy of b with one use of action i consumed.
func (b Budget) Dec(i int) Budget {
	b[i]--
	return b
}

// Format renders the first n entries as a comma-separated list.
func (b Budget) Format(n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = strconv.Itoa(int(b[i]))
	}
	return strings.Join(parts, ",")
}

// ParseBudget parses a comma-separated list of remaining uses.
func ParseBudget(s string) (Budget, error) {
	var b Budget
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) > MaxActions {
		return b, fmt.Errorf("parse budget: %d entries exceeds %d", len(fields), MaxActions)
	}
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return b, fmt.Errorf("parse budget entry %d: %w", i, err)
		}
		if v < 0 || v > MaxArity {
			return b, fmt.Errorf("parse budget entry %d: %d out of range", i, v)
		}
		b[i] = uint8(v)
	}
	return b, nil
}

// ParseSlots parses eight comma-separated power levels.
func ParseSlots(s string) (Slots, error) {
	var out Slots
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != NumSlots {
		return out, fmt.Errorf("parse slots: want %d values, got %d", NumSlots, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return out, fmt.Errorf("parse slot %s: %w", Slot(i), err)
		}
		if v < 0 {
			return out, fmt.Errorf("parse slot %s: negative level %d", Slot(i), v)
		}
		out[i] = v
	}
	return out, nil
}

// #endregion budget

// #region transition
// StateTransition is the memoized solution for one (GearState, Budget) pair.
type StateTransition struct {
	Action int
	Score  float64
}

// #endregion transition
