package solver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

func TestTable_InsertNeverOverwrites(t *testing.T) {
	tbl := NewTable()
	k := Key{Budget: gear.Budget{1}, State: gear.GearState{Mean: 3}}

	stored, inserted := tbl.Insert(k, gear.StateTransition{Action: 0, Score: 1})
	assert.True(t, inserted)
	assert.Equal(t, 1.0, stored.Score)

	stored, inserted = tbl.Insert(k, gear.StateTransition{Action: 1, Score: 2})
	assert.False(t, inserted)
	assert.Equal(t, gear.StateTransition{Action: 0, Score: 1}, stored)

	got, ok := tbl.Get(k)
	assert.True(t, ok)
	assert.Equal(t, stored, got)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_ConcurrentInserts(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range 200 {
				tbl.Insert(Key{State: gear.GearState{Mean: m}}, gear.StateTransition{Action: w})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, tbl.Len())

	seen := 0
	tbl.Range(func(Key, gear.StateTransition) bool {
		seen++
		return true
	})
	assert.Equal(t, 200, seen)

	seen = 0
	tbl.Range(func(Key, gear.StateTransition) bool {
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestKey_FlightKeyDistinguishesStates(t *testing.T) {
	a := Key{Budget: gear.Budget{1}, State: gear.GearState{Mean: 1, Deviation: [gear.NumSlots]int{1}}}
	b := Key{Budget: gear.Budget{1}, State: gear.GearState{Mean: 1, Deviation: [gear.NumSlots]int{0, 1}}}
	c := Key{Budget: gear.Budget{0, 1}, State: a.State}
	assert.NotEqual(t, a.flightKey(), b.flightKey())
	assert.NotEqual(t, a.flightKey(), c.flightKey())
	assert.Equal(t, a.flightKey(), Key{Budget: a.Budget, State: a.State}.flightKey())
}
