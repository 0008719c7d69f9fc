package gear

import (
	"fmt"
	"math"
)

// pmfTolerance is how far a probability vector may drift from summing to 1.
const pmfTolerance = 1e-6

// #region validate
// Validate rejects a configuration that cannot be solved.
func (c *Configuration) Validate() error {
	if len(c.Actions) == 0 {
		return fmt.Errorf("%w: no actions", ErrInvalidConfig)
	}
	if len(c.Actions) > MaxActions {
		return fmt.Errorf("%w: %d actions exceeds %d", ErrInvalidConfig, len(c.Actions), MaxActions)
	}
	if c.PowerfulStart < 0 {
		return fmt.Errorf("%w: negative powerful start %d", ErrInvalidConfig, c.PowerfulStart)
	}
	if c.PowerfulStart > c.PowerfulCap {
		return fmt.Errorf("%w: powerful start %d above powerful cap %d", ErrInvalidConfig, c.PowerfulStart, c.PowerfulCap)
	}
	if c.PowerfulCap > c.PinnacleCap {
		return fmt.Errorf("%w: powerful cap %d above pinnacle cap %d", ErrInvalidConfig, c.PowerfulCap, c.PinnacleCap)
	}
	for i, a := range c.Actions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("%w: action %d: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

func (a ActionSpec) validate() error {
	if a.PowerfulGain < 0 || a.PinnacleGain < 0 {
		return fmt.Errorf("negative gain (powerful=%d, pinnacle=%d)", a.PowerfulGain, a.PinnacleGain)
	}
	if a.Arity < 0 || a.Arity > MaxArity {
		return fmt.Errorf("arity %d outside [0, %d]", a.Arity, MaxArity)
	}
	sum := 0.0
	for s, p := range a.PMF {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("probability %v for slot %s", p, Slot(s))
		}
		sum += p
	}
	if math.Abs(sum-1) > pmfTolerance {
		return fmt.Errorf("probabilities sum to %.9f, want 1", sum)
	}
	return nil
}

// #endregion validate

// #region caps
// Caps returns the budget with every action at its full arity.
func (c *Configuration) Caps() Budget {
	var b Budget
	for i, a := range c.Actions {
		b[i] = uint8(a.Arity)
	}
	return b
}

// Terminal reports whether no further gain is possible from (state, budget).
func (c *Configuration) Terminal(state GearState, budget Budget) bool {
	return state.Mean >= c.PinnacleCap || budget.Sum() == 0
}

// #endregion caps
