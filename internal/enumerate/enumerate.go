// Package enumerate generates the budget classes and gear states that the
// eager solver walks.
package enumerate

import (
	"cmp"
	"slices"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region budgets
// RankedBudgets groups every budget bounded by caps (first n entries) into
// classes by total remaining uses. Class 0 holds only the zero vector and
// class k holds every vector summing to k, so each single-use successor of a
// class-k vector lives in class k-1. Vectors within a class are sorted.
func RankedBudgets(caps gear.Budget, n int) [][]gear.Budget {
	total := 0
	for i := range n {
		total += int(caps[i])
	}

	classes := make([][]gear.Budget, 0, total+1)
	classes = append(classes, []gear.Budget{{}})
	for k := 1; k <= total; k++ {
		seen := make(map[gear.Budget]struct{})
		next := make([]gear.Budget, 0, len(classes[k-1])*n)
		for _, b := range classes[k-1] {
			for i := range n {
				if b[i] >= caps[i] {
					continue
				}
				inc := b
				inc[i]++
				if _, dup := seen[inc]; dup {
					continue
				}
				seen[inc] = struct{}{}
				next = append(next, inc)
			}
		}
		slices.SortFunc(next, compareBudgets)
		classes = append(classes, next)
	}
	return classes
}

// Successors returns every budget reachable from b by consuming one use.
func Successors(b gear.Budget, n int) []gear.Budget {
	var out []gear.Budget
	for i := range n {
		if b[i] > 0 {
			out = append(out, b.Dec(i))
		}
	}
	return out
}

func compareBudgets(a, b gear.Budget) int {
	for i := range a {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// #endregion budgets

// #region compositions
// WeakCompositions returns every sequence of parts non-negative integers that
// sums to exactly total, in lexicographic order.
func WeakCompositions(total, parts int) [][]int {
	if parts == 0 {
		if total == 0 {
			return [][]int{{}}
		}
		return nil
	}
	var out [][]int
	for head := 0; head <= total; head++ {
		for _, tail := range WeakCompositions(total-head, parts-1) {
			comp := make([]int, 0, parts)
			comp = append(comp, head)
			comp = append(comp, tail...)
			out = append(out, comp)
		}
	}
	return out
}

// LeveledDeviations returns every deviation vector a leveled state can carry:
// all offsets non-negative, summing to less than NumSlots.
func LeveledDeviations() [][gear.NumSlots]int {
	var out [][gear.NumSlots]int
	for total := 0; total < gear.NumSlots; total++ {
		for _, comp := range WeakCompositions(total, gear.NumSlots) {
			var dev [gear.NumSlots]int
			copy(dev[:], comp)
			out = append(out, dev)
		}
	}
	return out
}

// #endregion compositions

// #region gear-states
// GearStates returns every non-terminal leveled state between the powerful
// start and the pinnacle cap whose highest slot stays within the cap.
func GearStates(cfg *gear.Configuration) []gear.GearState {
	devs := LeveledDeviations()
	out := make([]gear.GearState, 0, len(devs)*max(cfg.PinnacleCap-cfg.PowerfulStart, 0))
	for mean := cfg.PowerfulStart; mean < cfg.PinnacleCap; mean++ {
		for _, dev := range devs {
			s := gear.GearState{Mean: mean, Deviation: dev}
			if s.MaxLevel() > cfg.PinnacleCap {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// #endregion gear-states
