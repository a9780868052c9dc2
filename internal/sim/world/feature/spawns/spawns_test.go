package spawns

import (
	"math/rand"
	"testing"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world/kernel/model"
	"backrooms.dev/internal/sim/world/terrain/chunk"
)

func defaultModel(t *testing.T) Model {
	t.Helper()
	m, err := ModelFromTuning(tuning.Defaults().Spawns)
	if err != nil {
		t.Fatalf("ModelFromTuning: %v", err)
	}
	return m
}

func floorChunk(key chunk.Key) *chunk.Chunk {
	ch := chunk.New(key, 0)
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			ch.SetLocalTile(chunk.LayerBase, x, y, chunk.Floor)
		}
	}
	return ch
}

func TestEntityWeightFormula(t *testing.T) {
	m := defaultModel(t)
	common := Def{Tier: Common, BaseWeight: 10}
	elite := Def{Tier: Elite, BaseWeight: 1}
	if got := m.EntityWeight(common, 0); got != 10 {
		t.Fatalf("common@0=%v", got)
	}
	// 1 + 2*-0.35 = 0.3
	if got := m.EntityWeight(common, 2); got < 2.999 || got > 3.001 {
		t.Fatalf("common@2=%v", got)
	}
	// clamps at 0.1 of base
	if got := m.EntityWeight(common, 100); got < 0.999 || got > 1.001 {
		t.Fatalf("common@100=%v", got)
	}
	if got := m.EntityWeight(elite, 2); got != 3 {
		t.Fatalf("elite@2=%v", got)
	}
}

func TestItemChanceIsClampedAndMonotonic(t *testing.T) {
	m := defaultModel(t)
	for _, tier := range []Tier{Uncommon, Rare, Elite} {
		prev := -1.0
		for c := 0.0; c <= 40; c += 0.5 {
			p := m.ItemChance(tier, c)
			if p < 0 || p > 1 || p < prev {
				t.Fatalf("%v@%v=%v prev=%v", tier, c, p, prev)
			}
			prev = p
		}
		if prev != 1 {
			t.Fatalf("%v should saturate at 1, got %v", tier, prev)
		}
	}
	if m.ItemChance(Common, 100) != 0 {
		t.Fatalf("common chance should clamp at 0")
	}
}

func TestPickRespectsMinCorruption(t *testing.T) {
	defs := []Def{{ID: "a", BaseWeight: 1}, {ID: "b", BaseWeight: 100, MinCorruption: 1}}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		d, ok := Pick(rng, defs, 0.5, func(d Def) float64 { return d.BaseWeight })
		if !ok || d.ID != "a" {
			t.Fatalf("picked %q", d.ID)
		}
	}
	if _, ok := Pick(rng, defs[1:], 0, func(d Def) float64 { return d.BaseWeight }); ok {
		t.Fatalf("all-gated pick should fail")
	}
}

func TestHighTierFrequencyRisesWithCorruption(t *testing.T) {
	m := defaultModel(t)
	defs := []Def{
		{ID: "weak", Tier: Common, BaseWeight: 10},
		{ID: "mid", Tier: Uncommon, BaseWeight: 5},
		{ID: "strong", Tier: Rare, BaseWeight: 3},
		{ID: "boss", Tier: Elite, BaseWeight: 1},
	}
	freq := func(c float64) float64 {
		rng := rand.New(rand.NewSource(99))
		const n = 20000
		high := 0
		for i := 0; i < n; i++ {
			d, _ := Pick(rng, defs, c, func(d Def) float64 { return m.EntityWeight(d, c) })
			if d.Tier >= Rare {
				high++
			}
		}
		return float64(high) / n
	}
	f0, f2 := freq(0), freq(2)
	// Expected about 0.21 at c=0 and 0.50 at c=2.
	if f0 < 0.18 || f0 > 0.24 || f2 < 0.42 || f2 < f0+0.15 {
		t.Fatalf("high-tier frequency c=0: %.3f c=2: %.3f", f0, f2)
	}
}

func TestPityTimer(t *testing.T) {
	p := PityTimer{Threshold: 3}
	if p.Record(0) || p.Record(0) {
		t.Fatalf("fired early")
	}
	if !p.Record(0) {
		t.Fatalf("did not fire on third empty chunk")
	}
	if !p.Record(0) || p.Empty() != 4 {
		t.Fatalf("due timer should stay due until reset, empty=%d", p.Empty())
	}
	p.Reset()
	if p.Record(0) {
		t.Fatalf("fired right after reset")
	}
	p.Record(2)
	if p.Empty() != 0 || p.Record(0) {
		t.Fatalf("spawn should reset the count")
	}
}

func TestPopulateForcesPityItemWithSameWeighting(t *testing.T) {
	m := defaultModel(t)
	items := []Def{
		{ID: "water", Tier: Common, BaseWeight: 10},
		{ID: "foot", Tier: Elite, BaseWeight: 10},
	}
	s := New(m, nil, items, map[int]LevelRolls{0: {}}, 2)
	rng := rand.New(rand.NewSource(3))
	forced, elite := 0, 0
	for i := 0; i < 200; i++ {
		ch := floorChunk(chunk.Key{X: i})
		res := s.Populate(ch, 4, rng)
		if res.Forced {
			forced++
			if res.Items != 1 {
				t.Fatalf("forced spawn placed %d items", res.Items)
			}
			if ch.Items()[0].DefID == "foot" {
				elite++
			}
		}
	}
	if forced != 100 {
		t.Fatalf("forced=%d want 100", forced)
	}
	// Equal base weights: the elite item must show up in forced draws
	// rather than a common-only fallback.
	if elite < 30 {
		t.Fatalf("elite forced picks=%d", elite)
	}
}

func TestItemTierChanceAppliesOncePerRoll(t *testing.T) {
	m := defaultModel(t)
	items := []Def{
		{ID: "water", Tier: Common, BaseWeight: 1},
		{ID: "tape", Tier: Uncommon, BaseWeight: 1},
	}
	const chunks, rolls = 1000, 20
	s := New(m, nil, items, map[int]LevelRolls{0: {ItemRolls: rolls}}, 0)
	rng := rand.New(rand.NewSource(5))
	got := map[string]int{}
	for i := 0; i < chunks; i++ {
		ch := floorChunk(chunk.Key{X: i})
		s.Populate(ch, 0, rng)
		for _, it := range ch.Items() {
			got[it.DefID]++
		}
	}
	// Half the rolls pick each item, then one tier roll at c=0:
	// 0.5*0.35 for common and 0.5*0.15 for uncommon.
	n := float64(chunks * rolls)
	common, uncommon := float64(got["water"])/n, float64(got["tape"])/n
	if common < 0.16 || common > 0.19 || uncommon < 0.065 || uncommon > 0.085 {
		t.Fatalf("per-roll rates common=%.4f uncommon=%.4f", common, uncommon)
	}
}

func TestPityStaysDueWhenForcedSpawnFindsNoRoom(t *testing.T) {
	items := []Def{{ID: "water", Tier: Common, BaseWeight: 1}}
	s := New(defaultModel(t), nil, items, map[int]LevelRolls{0: {}}, 2)
	rng := rand.New(rand.NewSource(8))

	if res := s.Populate(floorChunk(chunk.Key{X: 0}), 0, rng); res.Forced {
		t.Fatalf("forced on first empty chunk")
	}
	walls := chunk.New(chunk.Key{X: 1}, 0)
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			walls.SetLocalTile(chunk.LayerBase, x, y, chunk.Wall)
		}
	}
	if res := s.Populate(walls, 0, rng); res.Forced || res.Items != 0 {
		t.Fatalf("spawn in a solid chunk: %+v", res)
	}
	if s.timer(0).Empty() != 2 {
		t.Fatalf("failed forced spawn reset the timer, empty=%d", s.timer(0).Empty())
	}
	ch := floorChunk(chunk.Key{X: 2})
	res := s.Populate(ch, 0, rng)
	if !res.Forced || res.Items != 1 || len(ch.Items()) != 1 {
		t.Fatalf("carried-over forced spawn missing: %+v", res)
	}
	if s.timer(0).Empty() != 0 {
		t.Fatalf("timer not reset after forced spawn, empty=%d", s.timer(0).Empty())
	}
}

func TestPopulatePlacesOnFreeWalkableTiles(t *testing.T) {
	tu := tuning.Defaults()
	cat, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s, err := FromConfig(tu, cat)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	ch := chunk.New(chunk.Key{X: 1, Y: 1}, 0)
	// Only a 16-column band is walkable.
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			tile := chunk.Wall
			if x >= 10 && x < 26 {
				tile = chunk.Floor
			}
			ch.SetLocalTile(chunk.LayerBase, x, y, tile)
		}
	}
	res := s.Populate(ch, 1, rand.New(rand.NewSource(11)))
	if res.Entities+res.Items == 0 {
		t.Fatalf("nothing placed")
	}
	seen := map[model.TilePos]bool{}
	check := func(p model.TilePos) {
		if seen[p] {
			t.Fatalf("two spawns on %v", p)
		}
		seen[p] = true
		x, y := chunk.LocalOf(p)
		if !ch.LocalTile(chunk.LayerBase, x, y).Walkable() || chunk.KeyOf(p, 0) != ch.Key {
			t.Fatalf("spawn on blocked or foreign tile %v", p)
		}
	}
	for _, e := range ch.Entities() {
		check(e.Pos())
	}
	for _, it := range ch.Items() {
		check(it.Pos())
	}
	if len(ch.Entities()) != res.Entities || len(ch.Items()) != res.Items {
		t.Fatalf("result counts disagree with chunk contents")
	}
}

func TestPopulateSkipsPlaceholders(t *testing.T) {
	s := New(Model{}, nil, []Def{{ID: "x", BaseWeight: 1}}, nil, 1)
	ch := chunk.NewPlaceholder(chunk.Key{}, 0)
	for i := 0; i < 3; i++ {
		if res := s.Populate(ch, 0, rand.New(rand.NewSource(1))); res != (Result{}) {
			t.Fatalf("placeholder populated: %+v", res)
		}
	}
}

func TestRingSquareCount(t *testing.T) {
	if got := RingSquare(model.TilePos{}, 2); len(got) != 16 {
		t.Fatalf("RingSquare len=%d, want 16", len(got))
	}
	if got := RingSquare(model.TilePos{X: 3}, 0); len(got) != 1 || got[0].X != 3 {
		t.Fatalf("radius 0: %v", got)
	}
}
