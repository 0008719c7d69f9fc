package solver

import (
	"hash/maphash"
	"sync"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
)

const shardCount = 64

// #region table
// Table is the shared compute-once memo. Keys are spread over fixed shards,
// each guarded by its own lock, and an entry is never overwritten once set.
type Table struct {
	seed   maphash.Seed
	shards [shardCount]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[Key]gear.StateTransition
}

// NewTable returns an empty table.
func NewTable() *Table {
	t := &Table{seed: maphash.MakeSeed()}
	for i := range t.shards {
		t.shards[i].m = make(map[Key]gear.StateTransition)
	}
	return t
}

func (t *Table) shardFor(k Key) *shard {
	return &t.shards[maphash.Comparable(t.seed, k)%shardCount]
}

// Get returns the stored transition for k.
func (t *Table) Get(k Key) (gear.StateTransition, bool) {
	s := t.shardFor(k)
	s.mu.RLock()
	st, ok := s.m[k]
	s.mu.RUnlock()
	return st, ok
}

// Insert stores st under k unless k is already set. It returns the value that
// ends up stored and whether this call stored it.
func (t *Table) Insert(k Key, st gear.StateTransition) (gear.StateTransition, bool) {
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.m[k]; ok {
		return prev, false
	}
	s.m[k] = st
	return st, true
}

// Len returns the number of stored entries.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every entry until fn returns false. Entries inserted
// while Range runs may or may not be visited.
func (t *Table) Range(fn func(Key, gear.StateTransition) bool) {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for k, v := range s.m {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// #endregion table
