package wfc

import (
	"math/rand"

	"backrooms.dev/internal/sim/world/logic/mathx"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	genpkg "backrooms.dev/internal/sim/world/terrain/gen"
)

// Decor controls cosmetic variants. Probabilities are permille and depend
// only on the seed and position, so a chunk regenerates to the same tiles at
// any corruption. CorruptionGain feeds Overlay, which renderers apply on top.
type Decor struct {
	// Seed is level-wide so clusters continue across chunk borders.
	Seed int64

	PuddlePermille      int
	CardboardPermille   int
	CrackPermille       int
	MouldPermille       int
	WallHolePermille    int
	StainPermille       int
	CeilingHolePermille int
	BrokenLightPermille int
	ExitPermille        int

	LightSpacing   int
	CorruptionGain int
}

func decorate(ch *chunk.Chunk, d Decor, chunkSeed int64, st *Stats) {
	p := func(base int) uint64 { return uint64(genpkg.ClampPermille(base)) }
	puddle, cardboard := p(d.PuddlePermille), p(d.CardboardPermille)
	crack, mould, hole := p(d.CrackPermille), p(d.MouldPermille), p(d.WallHolePermille)
	stain, ceilHole, broken := p(d.StainPermille), p(d.CeilingHolePermille), p(d.BrokenLightPermille)

	o := ch.Origin()
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			wx, wy := o.X+x, o.Y+y
			switch ch.LocalTile(chunk.LayerBase, x, y) {
			case chunk.Floor:
				switch {
				case genpkg.InCluster(d.Seed+11, wx, wy, 24, 2, puddle):
					_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.FloorPuddle)
				case genpkg.Roll(d.Seed+12, wx, wy, cardboard):
					_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.FloorCardboard)
				}
			case chunk.Wall:
				switch {
				case genpkg.Roll(d.Seed+21, wx, wy, hole):
					_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.WallHole)
				case genpkg.InCluster(d.Seed+22, wx, wy, 32, 3, mould):
					_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.WallMouldy)
				case genpkg.Roll(d.Seed+23, wx, wy, crack):
					_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.WallCracked)
				}
			}
			if ch.LocalTile(chunk.LayerCeiling, x, y) != chunk.Ceiling {
				continue
			}
			switch {
			case d.LightSpacing > 0 && mathx.Mod(wx, d.LightSpacing) == 0 && mathx.Mod(wy, d.LightSpacing) == 0:
				light := chunk.LightFluorescent
				if genpkg.Roll(d.Seed+31, wx, wy, broken) {
					light = chunk.LightBroken
				}
				_, _ = ch.SetLocalTile(chunk.LayerCeiling, x, y, light)
			case genpkg.Roll(d.Seed+32, wx, wy, stain):
				_, _ = ch.SetLocalTile(chunk.LayerCeiling, x, y, chunk.CeilingStain)
			case genpkg.Roll(d.Seed+33, wx, wy, ceilHole):
				_, _ = ch.SetLocalTile(chunk.LayerCeiling, x, y, chunk.CeilingHole)
			}
		}
	}

	exit := p(d.ExitPermille)
	if exit == 0 {
		return
	}
	rng := rand.New(rand.NewSource(mathx.Seed(mathx.Hash2(chunkSeed, 7, 7))))
	if uint64(rng.Intn(1000)) >= exit {
		return
	}
	for try := 0; try < 64; try++ {
		x, y := rng.Intn(chunk.Size), rng.Intn(chunk.Size)
		if ch.LocalTile(chunk.LayerBase, x, y).Base() != chunk.Floor {
			continue
		}
		_, _ = ch.SetLocalTile(chunk.LayerBase, x, y, chunk.ExitStairs)
		st.ExitPlaced = true
		return
	}
}

// Overlay returns the variant to draw for the generated tile t at p when the
// level's corruption is c. It adds only the density corruption raises above
// the generated baseline and never writes to a chunk. Exits are left alone.
func (d Decor) Overlay(p chunk.TilePos, t chunk.Tile, c float64) chunk.Tile {
	if c <= 0 || d.CorruptionGain <= 0 {
		return t
	}
	scale := genpkg.CorruptionScale(c, d.CorruptionGain)
	extra := func(base int) uint64 {
		b := uint64(genpkg.ClampPermille(base))
		return genpkg.ScalePermille(b, scale) - b
	}
	switch t {
	case chunk.Floor:
		switch {
		case genpkg.Roll(d.Seed+51, p.X, p.Y, extra(d.PuddlePermille)):
			return chunk.FloorPuddle
		case genpkg.Roll(d.Seed+52, p.X, p.Y, extra(d.CardboardPermille)):
			return chunk.FloorCardboard
		}
	case chunk.Wall:
		switch {
		case genpkg.Roll(d.Seed+61, p.X, p.Y, extra(d.MouldPermille)):
			return chunk.WallMouldy
		case genpkg.Roll(d.Seed+62, p.X, p.Y, extra(d.CrackPermille)):
			return chunk.WallCracked
		}
	case chunk.LightFluorescent:
		if genpkg.Roll(d.Seed+71, p.X, p.Y, extra(d.BrokenLightPermille)) {
			return chunk.LightBroken
		}
	case chunk.Ceiling:
		switch {
		case genpkg.Roll(d.Seed+72, p.X, p.Y, extra(d.StainPermille)):
			return chunk.CeilingStain
		case genpkg.Roll(d.Seed+73, p.X, p.Y, extra(d.CeilingHolePermille)):
			return chunk.CeilingHole
		}
	}
	return t
}
