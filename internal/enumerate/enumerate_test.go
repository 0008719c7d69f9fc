package enumerate

import (
	"testing"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

// #region budget-tests
func TestRankedBudgets_ClassSizes(t *testing.T) {
	caps := gear.Budget{2, 1}
	classes := RankedBudgets(caps, 2)

	want := []int{1, 2, 2, 1}
	if len(classes) != len(want) {
		t.Fatalf("expected %d classes, got %d", len(want), len(classes))
	}
	for k, c := range classes {
		if len(c) != want[k] {
			t.Errorf("class %d: expected %d budgets, got %d", k, want[k], len(c))
		}
		for _, b := range c {
			if b.Sum() != k {
				t.Errorf("class %d holds budget %v with sum %d", k, b, b.Sum())
			}
		}
	}
	if classes[0][0] != (gear.Budget{}) {
		t.Errorf("class 0 should be the zero vector, got %v", classes[0][0])
	}
	if classes[3][0] != caps {
		t.Errorf("top class should be the caps, got %v", classes[3][0])
	}
}

func TestRankedBudgets_SuccessorsInPreviousClass(t *testing.T) {
	caps := gear.Budget{4, 3, 2, 1, 1, 2, 1}
	n := 7
	classes := RankedBudgets(caps, n)

	index := make(map[gear.Budget]int)
	total := 0
	for k, c := range classes {
		for _, b := range c {
			if prev, dup := index[b]; dup {
				t.Fatalf("budget %v appears in classes %d and %d", b, prev, k)
			}
			index[b] = k
		}
		total += len(c)
	}
	// product of (cap+1)
	if total != 5*4*3*2*2*3*2 {
		t.Errorf("expected %d budgets, got %d", 5*4*3*2*2*3*2, total)
	}
	for b, k := range index {
		for _, s := range Successors(b, n) {
			if index[s] != k-1 {
				t.Errorf("successor %v of %v is in class %d, want %d", s, b, index[s], k-1)
			}
		}
	}
}

// #endregion budget-tests

// #region composition-tests
func TestWeakCompositions(t *testing.T) {
	comps := WeakCompositions(2, 3)
	if len(comps) != 6 {
		t.Fatalf("expected 6 compositions, got %d: %v", len(comps), comps)
	}
	for _, c := range comps {
		if len(c) != 3 || c[0]+c[1]+c[2] != 2 {
			t.Errorf("bad composition %v", c)
		}
	}
	if got := WeakCompositions(3, 0); got != nil {
		t.Errorf("expected no compositions, got %v", got)
	}
}

func TestLeveledDeviations(t *testing.T) {
	devs := LeveledDeviations()
	// C(15, 8): weak 8-compositions of totals 0..7
	if len(devs) != 6435 {
		t.Errorf("expected 6435 deviations, got %d", len(devs))
	}
	seen := make(map[[gear.NumSlots]int]bool, len(devs))
	for _, d := range devs {
		if seen[d] {
			t.Fatalf("duplicate deviation %v", d)
		}
		seen[d] = true
	}
}

func TestGearStates_RespectCap(t *testing.T) {
	cfg := &gear.Configuration{PowerfulStart: 8, PowerfulCap: 10, PinnacleCap: 12}
	states := GearStates(cfg)
	if len(states) == 0 {
		t.Fatal("expected states")
	}
	means := map[int]bool{}
	for _, s := range states {
		means[s.Mean] = true
		if s.MaxLevel() > cfg.PinnacleCap {
			t.Errorf("state %s exceeds cap", s)
		}
		if s.Mean < cfg.PowerfulStart || s.Mean >= cfg.PinnacleCap {
			t.Errorf("state %s outside window", s)
		}
		if gear.Level(s.Slots()) != s {
			t.Errorf("state %s is not leveled", s)
		}
	}
	if len(means) != 4 {
		t.Errorf("expected means 8..11, got %v", means)
	}
}

// #endregion composition-tests
