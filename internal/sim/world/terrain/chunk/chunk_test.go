package chunk

import (
	"errors"
	"testing"

	"backrooms.dev/internal/sim/world/feature/entities"
)

func TestSubChunkBoundsChecked(t *testing.T) {
	var s SubChunk
	for _, p := range []LocalPos{{X: -1, Y: 0}, {X: 16, Y: 0}, {X: 0, Y: 16}, {X: 3, Y: -2}} {
		if _, err := s.Tile(LayerBase, p); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Tile(%v) err=%v want ErrOutOfBounds", p, err)
		}
		_, err := s.SetTile(LayerCeiling, p, Floor)
		var be *BoundsError
		if !errors.As(err, &be) {
			t.Fatalf("SetTile(%v) err=%v want *BoundsError", p, err)
		}
		if be.Extent != SubChunkSize {
			t.Fatalf("extent=%d", be.Extent)
		}
	}
	if _, err := s.Tile(Layer(5), LocalPos{}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("invalid layer err=%v", err)
	}
}

func TestSubChunkGeneratedFlagIsNotInferred(t *testing.T) {
	var s SubChunk
	changed, err := s.SetTile(LayerBase, LocalPos{X: 15, Y: 15}, Wall)
	if err != nil || !changed {
		t.Fatalf("SetTile changed=%v err=%v", changed, err)
	}
	if s.Generated() {
		t.Fatalf("writing content must not mark generated")
	}
	changed, _ = s.SetTile(LayerBase, LocalPos{X: 15, Y: 15}, Wall)
	if changed {
		t.Fatalf("same value reported as change")
	}
	s.MarkGenerated()
	if !s.Generated() {
		t.Fatalf("MarkGenerated did not stick")
	}
}

func TestWorldTileToSubChunkRoundTrip(t *testing.T) {
	ch := New(Key{X: -1, Y: 2, Level: 0}, 0)
	o := ch.Origin()
	if o.X != -128 || o.Y != 256 {
		t.Fatalf("origin=%v", o)
	}
	for si := 0; si < SubChunksPerSide; si++ {
		for sj := 0; sj < SubChunksPerSide; sj++ {
			want, err := ch.SubChunkAt(SubIndex{X: si, Y: sj})
			if err != nil {
				t.Fatalf("SubChunkAt: %v", err)
			}
			p := TilePos{X: o.X + si*SubChunkSize + 5, Y: o.Y + sj*SubChunkSize + 11}
			got, idx, lp, err := ch.WorldTileToSubChunk(p)
			if err != nil {
				t.Fatalf("WorldTileToSubChunk(%v): %v", p, err)
			}
			if got != want || idx != (SubIndex{X: si, Y: sj}) || lp != (LocalPos{X: 5, Y: 11}) {
				t.Fatalf("mapping mismatch for %v: idx=%v lp=%v", p, idx, lp)
			}
		}
	}
	if _, _, _, err := ch.WorldTileToSubChunk(TilePos{X: 0, Y: 256}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("tile outside chunk err=%v", err)
	}
	if _, err := ch.SubChunkAt(SubIndex{X: 8, Y: 0}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("SubChunkAt(8,0) err=%v", err)
	}
}

func TestKeyOfNegativeTiles(t *testing.T) {
	cases := []struct {
		p    TilePos
		want Key
	}{
		{p: TilePos{X: 64, Y: 64}, want: Key{X: 0, Y: 0, Level: 3}},
		{p: TilePos{X: -1, Y: 0}, want: Key{X: -1, Y: 0, Level: 3}},
		{p: TilePos{X: 128, Y: -129}, want: Key{X: 1, Y: -2, Level: 3}},
	}
	for _, c := range cases {
		if got := KeyOf(c.p, 3); got != c.want {
			t.Fatalf("KeyOf(%v)=%v want %v", c.p, got, c.want)
		}
	}
	x, y := LocalOf(TilePos{X: -1, Y: -128})
	if x != 127 || y != 0 {
		t.Fatalf("LocalOf=(%d,%d)", x, y)
	}
}

func TestTileAtMatchesLocalTile(t *testing.T) {
	ch := New(Key{X: 2, Y: 0}, 0)
	p := TilePos{X: 2*Size + 100, Y: 17}
	if _, err := ch.SetTileAt(LayerBase, p, WallMouldy); err != nil {
		t.Fatalf("SetTileAt: %v", err)
	}
	if got := ch.LocalTile(LayerBase, 100, 17); got != WallMouldy {
		t.Fatalf("LocalTile=%v", got)
	}
	if got, _ := ch.TileAt(LayerBase, p); got.Base() != Wall || got.Walkable() {
		t.Fatalf("TileAt=%v", got)
	}
	if got := ch.Count(Wall); got != 1 {
		t.Fatalf("Count(Wall)=%d", got)
	}
}

func TestDigestTracksContent(t *testing.T) {
	a := New(Key{}, 0)
	b := New(Key{}, 0)
	if a.Digest() != b.Digest() {
		t.Fatalf("empty chunks differ")
	}
	_, _ = b.SetLocalTile(LayerCeiling, 0, 127, LightBroken)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignored ceiling change")
	}
}

type counter struct{ n int }

func (c *counter) EntityChanged(*entities.WorldEntity, entities.Change) { c.n++ }

func TestDetachObservers(t *testing.T) {
	ch := New(Key{}, 0)
	s, _ := ch.SubChunkAt(SubIndex{X: 1, Y: 1})
	e := entities.NewEntity("E1", "smiler", 2, TilePos{X: 20, Y: 20}, 3)
	c := &counter{}
	e.Observe(c)
	s.AddEntity(e)
	if len(ch.Entities()) != 1 {
		t.Fatalf("entity not visible through chunk")
	}
	ch.DetachObservers()
	e.Damage(1)
	if c.n != 0 {
		t.Fatalf("observer survived detach")
	}
}

func TestTileBase(t *testing.T) {
	cases := map[Tile]Tile{
		FloorPuddle:      Floor,
		FloorCardboard:   Floor,
		WallHole:         Wall,
		LightFluorescent: Ceiling,
		ExitStairs:       ExitStairs,
		Empty:            Empty,
	}
	for in, want := range cases {
		if got := in.Base(); got != want {
			t.Fatalf("%v.Base()=%v want %v", in, got, want)
		}
	}
	if !ExitStairs.Walkable() || Wall.Walkable() || !FloorPuddle.Walkable() {
		t.Fatalf("walkability mismatch")
	}
}

func TestPlaceholderIsOpenAndGenerated(t *testing.T) {
	ch := NewPlaceholder(Key{X: 1, Y: 1, Level: 9}, 0.25)
	if !ch.Placeholder || !ch.AllGenerated() {
		t.Fatalf("placeholder flags: placeholder=%v generated=%v", ch.Placeholder, ch.AllGenerated())
	}
	if got := ch.Count(Floor); got != Size*Size {
		t.Fatalf("floor count=%d", got)
	}
	if ch.Corruption != 0.25 {
		t.Fatalf("corruption snapshot lost")
	}
}
