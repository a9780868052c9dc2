// Package stitch carves hallways across the shared edge of two 4-adjacent
// chunks so independently generated neighbours are always connected.
package stitch

import (
	"errors"
	"fmt"
	"math/rand"

	"backrooms.dev/internal/sim/world/logic/mathx"
	"backrooms.dev/internal/sim/world/terrain/chunk"
)

var ErrNotAdjacent = errors.New("stitch: chunks are not 4-adjacent on one level")

type Config struct {
	Depth         int
	Margin        int
	Width1Percent int
	Width2Percent int
}

func DefaultConfig() Config {
	return Config{Depth: 8, Margin: 4, Width1Percent: 70, Width2Percent: 25}
}

// Axis is the direction the hallway runs, i.e. the axis along which the two
// chunks differ.
type Axis uint8

const (
	AxisX Axis = iota // west/east neighbours, vertical shared edge
	AxisY             // north/south neighbours, horizontal shared edge
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Hallway describes one carve. Offset is the first row (AxisX) or column
// (AxisY) of the strip, in chunk-local coordinates.
type Hallway struct {
	Axis   Axis
	Offset int
	Width  int
	Depth  int
}

// Change is one tile rewritten by Carve, in world coordinates.
type Change struct {
	Layer chunk.Layer
	Pos   chunk.TilePos
	From  chunk.Tile
	To    chunk.Tile
}

// Patch lists changed tiles per chunk key. Empty on re-application.
type Patch map[chunk.Key][]Change

func (p Patch) Empty() bool {
	for _, cs := range p {
		if len(cs) > 0 {
			return false
		}
	}
	return true
}

// order returns (lo, hi, axis) where lo is the west or north chunk.
func order(a, b chunk.Key) (chunk.Key, chunk.Key, Axis, error) {
	if a.Level != b.Level {
		return a, b, 0, fmt.Errorf("%w: %v %v", ErrNotAdjacent, a, b)
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	switch {
	case dy == 0 && (dx == 1 || dx == -1):
		if dx < 0 {
			a, b = b, a
		}
		return a, b, AxisX, nil
	case dx == 0 && (dy == 1 || dy == -1):
		if dy < 0 {
			a, b = b, a
		}
		return a, b, AxisY, nil
	default:
		return a, b, 0, fmt.Errorf("%w: %v %v", ErrNotAdjacent, a, b)
	}
}

// PairSeed derives the hallway seed from the unordered pair.
func PairSeed(worldSeed int64, a, b chunk.Key) int64 {
	if b.Less(a) {
		a, b = b, a
	}
	h := mathx.Hash3(worldSeed, a.X, a.Y, a.Level)
	return mathx.Seed(mathx.Hash3(int64(h), b.X, b.Y, b.Level))
}

// Plan picks width and offset for a hallway from seed.
func Plan(seed int64, axis Axis, cfg Config) Hallway {
	rng := rand.New(rand.NewSource(seed))
	roll := rng.Intn(100)
	width := 3
	switch {
	case roll < cfg.Width1Percent:
		width = 1
	case roll < cfg.Width1Percent+cfg.Width2Percent:
		width = 2
	}
	margin := cfg.Margin
	if margin < 0 {
		margin = 0
	}
	span := chunk.Size - 2*margin - width + 1
	if span < 1 {
		margin, span = 0, chunk.Size-width+1
	}
	depth := cfg.Depth
	if depth < 1 {
		depth = 1
	}
	if depth > chunk.Size {
		depth = chunk.Size
	}
	return Hallway{Axis: axis, Offset: margin + rng.Intn(span), Width: width, Depth: depth}
}

// PlanFor is Plan with the seed and axis derived from the pair.
func PlanFor(worldSeed int64, a, b chunk.Key, cfg Config) (Hallway, error) {
	lo, hi, axis, err := order(a, b)
	if err != nil {
		return Hallway{}, err
	}
	return Plan(PairSeed(worldSeed, lo, hi), axis, cfg), nil
}

// Carve cuts the hallway into both chunks. Walkable base tiles are left as
// they are (including exits and floor variants), so running it twice changes
// nothing the second time.
func Carve(a, b *chunk.Chunk, worldSeed int64, cfg Config) (Patch, error) {
	if a == nil || b == nil {
		return nil, errors.New("stitch: nil chunk")
	}
	lo, hi, axis, err := order(a.Key, b.Key)
	if err != nil {
		return nil, err
	}
	loC, hiC := a, b
	if loC.Key != lo {
		loC, hiC = b, a
	}
	h := Plan(PairSeed(worldSeed, lo, hi), axis, cfg)

	patch := Patch{}
	for i := 0; i < h.Depth; i++ {
		for w := 0; w < h.Width; w++ {
			along := h.Offset + w
			var lx, ly, hx, hy int
			if axis == AxisX {
				lx, ly = chunk.Size-1-i, along
				hx, hy = i, along
			} else {
				lx, ly = along, chunk.Size-1-i
				hx, hy = along, i
			}
			carveTile(loC, lx, ly, patch)
			carveTile(hiC, hx, hy, patch)
		}
	}
	return patch, nil
}

func carveTile(ch *chunk.Chunk, x, y int, patch Patch) {
	o := ch.Origin()
	pos := chunk.TilePos{X: o.X + x, Y: o.Y + y}
	if t := ch.LocalTile(chunk.LayerBase, x, y); !t.Walkable() {
		if changed, err := ch.SetLocalTile(chunk.LayerBase, x, y, chunk.Floor); err == nil && changed {
			patch[ch.Key] = append(patch[ch.Key], Change{Layer: chunk.LayerBase, Pos: pos, From: t, To: chunk.Floor})
		}
	}
	if t := ch.LocalTile(chunk.LayerCeiling, x, y); t.Base() != chunk.Ceiling {
		if changed, err := ch.SetLocalTile(chunk.LayerCeiling, x, y, chunk.Ceiling); err == nil && changed {
			patch[ch.Key] = append(patch[ch.Key], Change{Layer: chunk.LayerCeiling, Pos: pos, From: t, To: chunk.Ceiling})
		}
	}
}
