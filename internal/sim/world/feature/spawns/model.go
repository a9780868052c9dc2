// Package spawns places entities and items into freshly generated chunks.
// Densities and rarities shift with the level's corruption.
package spawns

import (
	"fmt"
	"math"
	"math/rand"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world/logic/mathx"
)

type Tier int

const (
	Common Tier = iota
	Uncommon
	Rare
	Elite

	numTiers = 4
)

func (t Tier) String() string {
	if t >= 0 && int(t) < len(catalogs.Tiers) {
		return catalogs.Tiers[t]
	}
	return "unknown"
}

func ParseTier(s string) (Tier, error) {
	for i, name := range catalogs.Tiers {
		if name == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("spawns: unknown tier %q", s)
}

type Def struct {
	ID            string
	Tier          Tier
	BaseWeight    float64
	MinCorruption float64
	HP            int
	Levels        []int
}

// OnLevel reports whether d may appear on level. No levels means everywhere.
func (d Def) OnLevel(level int) bool {
	if len(d.Levels) == 0 {
		return true
	}
	for _, l := range d.Levels {
		if l == level {
			return true
		}
	}
	return false
}

type Curve struct {
	Base, Slope float64
}

func (c Curve) At(x float64) float64 { return mathx.Clamp01(c.Base + c.Slope*x) }

// Model holds the per-tier corruption response.
type Model struct {
	EntityModifiers [numTiers]float64
	ItemCurves      [numTiers]Curve
}

func ModelFromTuning(t tuning.SpawnTuning) (Model, error) {
	var m Model
	for name, v := range t.EntityModifiers {
		tier, err := ParseTier(name)
		if err != nil {
			return m, err
		}
		m.EntityModifiers[tier] = v
	}
	for name, c := range t.ItemCurves {
		tier, err := ParseTier(name)
		if err != nil {
			return m, err
		}
		m.ItemCurves[tier] = Curve{Base: c.Base, Slope: c.Slope}
	}
	return m, nil
}

// EntityWeight is base_weight * max(0.1, 1 + c*modifier(tier)).
func (m Model) EntityWeight(d Def, c float64) float64 {
	return d.BaseWeight * math.Max(0.1, 1+c*m.EntityModifiers[d.Tier])
}

// ItemChance is the tier's spawn probability at corruption c, in [0,1].
func (m Model) ItemChance(t Tier, c float64) float64 {
	if t < 0 || t >= numTiers {
		return 0
	}
	return m.ItemCurves[t].At(c)
}

// Pick draws one definition by cumulative weight. Definitions whose
// MinCorruption exceeds c, or whose weight is not positive, are skipped.
func Pick(rng *rand.Rand, defs []Def, c float64, weight func(Def) float64) (Def, bool) {
	total := 0.0
	for _, d := range defs {
		if d.MinCorruption > c {
			continue
		}
		if w := weight(d); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return Def{}, false
	}
	r := rng.Float64() * total
	var last Def
	for _, d := range defs {
		if d.MinCorruption > c {
			continue
		}
		w := weight(d)
		if w <= 0 {
			continue
		}
		last = d
		if r < w {
			return d, true
		}
		r -= w
	}
	return last, true
}

// PityTimer forces an item spawn after Threshold consecutive empty chunks.
type PityTimer struct {
	Threshold int
	empty     int
}

// Record notes a chunk's item count and reports whether a forced spawn is due.
// The timer stays due until Reset, so a forced spawn that finds no room is
// retried on the next chunk.
func (p *PityTimer) Record(spawned int) bool {
	if spawned > 0 {
		p.empty = 0
		return false
	}
	p.empty++
	return p.Threshold > 0 && p.empty >= p.Threshold
}

func (p *PityTimer) Empty() int { return p.empty }

func (p *PityTimer) Reset() { p.empty = 0 }
