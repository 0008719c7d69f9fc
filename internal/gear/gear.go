package gear

import "fmt"

// #region encoding
// CurrentLevel returns the floor of the slot average.
func CurrentLevel(slots Slots) int {
	return slots.Sum() / NumSlots
}

// FromSlots encodes absolute slot values without leveling them.
func FromSlots(slots Slots) GearState {
	mean := CurrentLevel(slots)
	g := GearState{Mean: mean}
	for i, v := range slots {
		g.Deviation[i] = v - mean
	}
	return g
}

// Slots decodes the absolute slot values.
func (g GearState) Slots() Slots {
	var s Slots
	for i, d := range g.Deviation {
		s[i] = g.Mean + d
	}
	return s
}

// Level flattens an arbitrary loadout and returns its canonical encoding.
func Level(slots Slots) GearState {
	return FromSlots(FullFlatten(slots))
}

// #endregion encoding

// #region flatten
// FullFlatten raises every slot below the current mean up to it and repeats
// until the mean stops moving. The sum grows on every pass that changes
// anything and is bounded by the highest slot, so the loop terminates.
func FullFlatten(slots Slots) Slots {
	current := CurrentLevel(slots)
	for {
		changed := false
		for i, v := range slots {
			if v < current {
				slots[i] = current
				changed = true
			}
		}
		if !changed {
			return slots
		}
		current = CurrentLevel(slots)
	}
}

// #endregion flatten

// #region power-gain
// PowerGain returns the new level of a slot at old after applying action.
//
// Below the powerful cap the gain is clamped at PowerfulCap+PinnacleGain, so a
// drop just under the soft cap lands exactly where a pinnacle drop at the cap
// would. Between the caps only the pinnacle gain applies. At the pinnacle cap
// nothing changes. No result ever exceeds the pinnacle cap.
func PowerGain(cfg *Configuration, action ActionSpec, old int) (int, error) {
	switch {
	case old < cfg.PowerfulCap:
		return min(old+action.PowerfulGain, cfg.PowerfulCap+action.PinnacleGain, cfg.PinnacleCap), nil
	case old < cfg.PinnacleCap:
		return min(old+action.PinnacleGain, cfg.PinnacleCap), nil
	case old == cfg.PinnacleCap:
		return cfg.PinnacleCap, nil
	default:
		return 0, fmt.Errorf("%w: slot level %d exceeds pinnacle cap %d", ErrInvariant, old, cfg.PinnacleCap)
	}
}

// #endregion power-gain

// #region apply
// Apply drops action's reward into slot, consumes one use and re-levels the
// loadout. The returned reward is the raw gain of the slot, not counting any
// leveling it triggers.
func Apply(cfg *Configuration, state GearState, budget Budget, slot, action int) (GearState, Budget, int, error) {
	if action < 0 || action >= len(cfg.Actions) {
		return GearState{}, budget, 0, fmt.Errorf("%w: action index %d out of range [0, %d)", ErrInvalidConfig, action, len(cfg.Actions))
	}
	if slot < 0 || slot >= NumSlots {
		return GearState{}, budget, 0, fmt.Errorf("%w: slot index %d out of range", ErrInvalidConfig, slot)
	}
	if budget[action] == 0 {
		return GearState{}, budget, 0, fmt.Errorf("%w: action %d has no remaining uses", ErrInvariant, action)
	}

	slots := state.Slots()
	old := slots[slot]
	updated, err := PowerGain(cfg, cfg.Actions[action], old)
	if err != nil {
		return GearState{}, budget, 0, fmt.Errorf("apply action %d to %s: %w", action, Slot(slot), err)
	}
	slots[slot] = updated

	next := FromSlots(FullFlatten(slots))
	if next.MaxLevel() > cfg.PinnacleCap {
		return GearState{}, budget, 0, fmt.Errorf("%w: state %s exceeds pinnacle cap %d", ErrInvariant, next, cfg.PinnacleCap)
	}
	return next, budget.Dec(action), updated - old, nil
}

// #endregion apply
