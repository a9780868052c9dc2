package stitch

import (
	"errors"
	"testing"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

// solid returns a generated chunk that is wall everywhere with no ceiling.
func solid(key chunk.Key) *chunk.Chunk {
	ch := chunk.New(key, 0)
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			ch.SetLocalTile(chunk.LayerBase, x, y, chunk.Wall)
		}
	}
	return ch
}

func TestPairSeedIsOrderIndependent(t *testing.T) {
	a := chunk.Key{X: 3, Y: -1}
	b := chunk.Key{X: 4, Y: -1}
	if PairSeed(9, a, b) != PairSeed(9, b, a) {
		t.Fatalf("pair seed depends on order")
	}
	if PairSeed(9, a, b) == PairSeed(10, a, b) {
		t.Fatalf("pair seed ignores world seed")
	}
}

func TestPlanWidthDistribution(t *testing.T) {
	cfg := DefaultConfig()
	var counts [4]int
	const n = 4000
	for i := 0; i < n; i++ {
		h := Plan(int64(i)*7919+1, AxisX, cfg)
		if h.Width < 1 || h.Width > 3 {
			t.Fatalf("width %d", h.Width)
		}
		if h.Offset < cfg.Margin || h.Offset+h.Width > chunk.Size-cfg.Margin {
			t.Fatalf("offset %d width %d outside margin", h.Offset, h.Width)
		}
		counts[h.Width]++
	}
	if f := float64(counts[1]) / n; f < 0.65 || f > 0.75 {
		t.Fatalf("width1 frequency %.3f", f)
	}
	if counts[3] == 0 || counts[3] > counts[2] {
		t.Fatalf("width3 should be rare but present: %v", counts)
	}
}

func TestCarveConnectsAcrossEdge(t *testing.T) {
	cfg := DefaultConfig()
	for _, tc := range []struct{ a, b chunk.Key }{
		{chunk.Key{X: 0, Y: 0}, chunk.Key{X: 1, Y: 0}},
		{chunk.Key{X: 2, Y: 3}, chunk.Key{X: 2, Y: 2}},
	} {
		a, b := solid(tc.a), solid(tc.b)
		if _, err := Carve(a, b, 42, cfg); err != nil {
			t.Fatalf("Carve: %v", err)
		}
		h, _ := PlanFor(42, tc.a, tc.b, cfg)
		lo, hi := a, b
		if tc.b.Less(tc.a) {
			lo, hi = b, a
		}
		// Walk the hallway's first row/column straight across the border.
		for i := 0; i < h.Depth; i++ {
			var lx, ly, hx, hy int
			if h.Axis == AxisX {
				lx, ly, hx, hy = chunk.Size-1-i, h.Offset, i, h.Offset
			} else {
				lx, ly, hx, hy = h.Offset, chunk.Size-1-i, h.Offset, i
			}
			if !lo.LocalTile(chunk.LayerBase, lx, ly).Walkable() || !hi.LocalTile(chunk.LayerBase, hx, hy).Walkable() {
				t.Fatalf("%v-%v: hallway blocked at depth %d", tc.a, tc.b, i)
			}
			if lo.LocalTile(chunk.LayerCeiling, lx, ly) != chunk.Ceiling {
				t.Fatalf("ceiling not carved")
			}
		}
	}
}

func TestCarveIsIdempotent(t *testing.T) {
	a, b := solid(chunk.Key{X: 0, Y: 0}), solid(chunk.Key{X: 0, Y: 1})
	p1, err := Carve(a, b, 7, DefaultConfig())
	if err != nil {
		t.Fatalf("Carve: %v", err)
	}
	if p1.Empty() || len(p1[a.Key]) == 0 || len(p1[b.Key]) == 0 {
		t.Fatalf("first carve should change both chunks")
	}
	da, db := a.Digest(), b.Digest()
	p2, err := Carve(b, a, 7, DefaultConfig())
	if err != nil {
		t.Fatalf("Carve: %v", err)
	}
	if !p2.Empty() {
		t.Fatalf("second carve changed tiles: %v", p2)
	}
	if a.Digest() != da || b.Digest() != db {
		t.Fatalf("second carve altered content")
	}
}

func TestCarveKeepsExitsAndVariants(t *testing.T) {
	a, b := solid(chunk.Key{X: 0, Y: 0}), solid(chunk.Key{X: 1, Y: 0})
	h, _ := PlanFor(5, a.Key, b.Key, DefaultConfig())
	a.SetLocalTile(chunk.LayerBase, chunk.Size-1, h.Offset, chunk.ExitStairs)
	b.SetLocalTile(chunk.LayerBase, 0, h.Offset, chunk.FloorPuddle)
	b.SetLocalTile(chunk.LayerCeiling, 0, h.Offset, chunk.LightFluorescent)
	if _, err := Carve(a, b, 5, DefaultConfig()); err != nil {
		t.Fatalf("Carve: %v", err)
	}
	if got := a.LocalTile(chunk.LayerBase, chunk.Size-1, h.Offset); got != chunk.ExitStairs {
		t.Fatalf("exit overwritten: %v", got)
	}
	if got := b.LocalTile(chunk.LayerBase, 0, h.Offset); got != chunk.FloorPuddle {
		t.Fatalf("puddle overwritten: %v", got)
	}
	if got := b.LocalTile(chunk.LayerCeiling, 0, h.Offset); got != chunk.LightFluorescent {
		t.Fatalf("light overwritten: %v", got)
	}
}

func TestCarveRejectsNonAdjacent(t *testing.T) {
	cases := [][2]chunk.Key{
		{{X: 0, Y: 0}, {X: 2, Y: 0}},
		{{X: 0, Y: 0}, {X: 1, Y: 1}},
		{{X: 0, Y: 0}, {X: 0, Y: 0}},
		{{X: 0, Y: 0, Level: 0}, {X: 1, Y: 0, Level: 1}},
	}
	for _, c := range cases {
		_, err := Carve(solid(c[0]), solid(c[1]), 1, DefaultConfig())
		if !errors.Is(err, ErrNotAdjacent) {
			t.Fatalf("%v %v: err=%v", c[0], c[1], err)
		}
	}
}
