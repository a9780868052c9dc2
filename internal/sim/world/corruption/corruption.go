// Package corruption tracks per-level corruption. Corruption rises the
// first time the player enters a chunk and never falls within a run.
package corruption

import (
	"sync"

	modelpkg "backrooms.dev/internal/sim/world/kernel/model"
)

type Tracker struct {
	mu      sync.Mutex
	values  map[int]float64
	visited map[modelpkg.ChunkKey]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		values:  map[int]float64{},
		visited: map[modelpkg.ChunkKey]struct{}{},
	}
}

// Visit records entry into key. It returns true and adds amount to the
// level's corruption only on the first visit. Negative amounts are ignored.
func (t *Tracker) Visit(key modelpkg.ChunkKey, amount float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.visited[key]; ok {
		return false
	}
	t.visited[key] = struct{}{}
	if amount > 0 {
		t.values[key.Level] += amount
	}
	return true
}

func (t *Tracker) Value(level int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[level]
}

func (t *Tracker) Visited(key modelpkg.ChunkKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.visited[key]
	return ok
}

func (t *Tracker) VisitedCount(level int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k := range t.visited {
		if k.Level == level {
			n++
		}
	}
	return n
}

// Reset clears everything; used when a new run starts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = map[int]float64{}
	t.visited = map[modelpkg.ChunkKey]struct{}{}
}
