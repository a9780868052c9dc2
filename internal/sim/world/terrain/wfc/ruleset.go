package wfc

import (
	"fmt"
	"sort"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

// Dir is one of the four propagation directions.
type Dir int

const (
	North Dir = iota
	East
	South
	West
)

var dirOffsets = [4][2]int{
	North: {0, -1},
	East:  {1, 0},
	South: {0, 1},
	West:  {-1, 0},
}

func (d Dir) Opposite() Dir { return (d + 2) % 4 }

// Ruleset is an adjacency table over a small set of states. allow[s][d] is the
// bitmask of states permitted in the neighbor at direction d of a cell in state s.
type Ruleset struct {
	Name   string
	States []chunk.Tile

	allow [][4]uint32
	index map[chunk.Tile]int
}

func NewRuleset(name string, states ...chunk.Tile) *Ruleset {
	if len(states) == 0 || len(states) > 32 {
		panic(fmt.Sprintf("wfc: ruleset %q needs 1..32 states, got %d", name, len(states)))
	}
	r := &Ruleset{
		Name:   name,
		States: append([]chunk.Tile(nil), states...),
		allow:  make([][4]uint32, len(states)),
		index:  make(map[chunk.Tile]int, len(states)),
	}
	for i, s := range states {
		r.index[s] = i
	}
	return r
}

// Allow permits b to sit in direction d of a, and the mirrored pair.
func (r *Ruleset) Allow(a chunk.Tile, d Dir, b chunk.Tile) *Ruleset {
	ia, ib := r.mustIndex(a), r.mustIndex(b)
	r.allow[ia][d] |= 1 << uint(ib)
	r.allow[ib][d.Opposite()] |= 1 << uint(ia)
	return r
}

// AllowEverywhere permits the pair in all four directions.
func (r *Ruleset) AllowEverywhere(a, b chunk.Tile) *Ruleset {
	for d := North; d <= West; d++ {
		r.Allow(a, d, b)
	}
	return r
}

func (r *Ruleset) mustIndex(t chunk.Tile) int {
	i, ok := r.index[t]
	if !ok {
		panic(fmt.Sprintf("wfc: tile %v not in ruleset %q", t, r.Name))
	}
	return i
}

// StateOf maps a (possibly cosmetic) tile to a state index.
func (r *Ruleset) StateOf(t chunk.Tile) (int, bool) {
	i, ok := r.index[t.Base()]
	return i, ok
}

func (r *Ruleset) full() uint32 { return uint32(1)<<uint(len(r.States)) - 1 }

// allowedFrom is the union of neighbor masks for every state still in dom.
func (r *Ruleset) allowedFrom(dom uint32, d Dir) uint32 {
	var out uint32
	for s := range r.States {
		if dom&(1<<uint(s)) != 0 {
			out |= r.allow[s][d]
		}
	}
	return out
}

// Built-in rulesets keyed by the names used in tuning.yaml.
var builtins = map[string]func() *Ruleset{
	// Level 0: partitions run east-west, never stacked north-south.
	"halls": func() *Ruleset {
		r := NewRuleset("halls", chunk.Floor, chunk.Wall)
		r.AllowEverywhere(chunk.Floor, chunk.Floor)
		r.AllowEverywhere(chunk.Floor, chunk.Wall)
		r.Allow(chunk.Wall, East, chunk.Wall)
		return r
	},
	// Free-standing pillars in an open floor.
	"pillars": func() *Ruleset {
		r := NewRuleset("pillars", chunk.Floor, chunk.Wall)
		r.AllowEverywhere(chunk.Floor, chunk.Floor)
		r.AllowEverywhere(chunk.Floor, chunk.Wall)
		return r
	},
	// Long north-south runs.
	"pipes": func() *Ruleset {
		r := NewRuleset("pipes", chunk.Floor, chunk.Wall)
		r.AllowEverywhere(chunk.Floor, chunk.Floor)
		r.AllowEverywhere(chunk.Floor, chunk.Wall)
		r.Allow(chunk.Wall, South, chunk.Wall)
		return r
	},
	"open": func() *Ruleset {
		r := NewRuleset("open", chunk.Floor, chunk.Wall)
		r.AllowEverywhere(chunk.Floor, chunk.Floor)
		r.AllowEverywhere(chunk.Floor, chunk.Wall)
		r.AllowEverywhere(chunk.Wall, chunk.Wall)
		return r
	},
}

// Builtin returns a fresh copy of a named ruleset.
func Builtin(name string) (*Ruleset, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("wfc: unknown ruleset %q", name)
	}
	return f(), nil
}

func BuiltinNames() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
