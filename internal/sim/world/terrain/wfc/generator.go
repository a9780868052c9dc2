// Package wfc fills chunks with a Wave-Function-Collapse maze.
//
// Each sub-chunk is solved independently in raster order. Cells start in
// superposition over the ruleset's states; the solver repeatedly collapses the
// undecided cell with the fewest remaining states (raster order breaks ties),
// then prunes neighbors through the adjacency table. A cell left with no
// states becomes FLOOR and is locked; generation never fails.
package wfc

import (
	"fmt"
	"math/bits"
	"math/rand"

	"backrooms.dev/internal/sim/world/logic/mathx"
	"backrooms.dev/internal/sim/world/terrain/chunk"
)

const (
	side  = chunk.SubChunkSize
	cells = side * side

	DefaultMaxIterations = cells * 2
)

type Config struct {
	Rules *Ruleset

	// Weights per ruleset state, in Rules.States order. Missing entries default to 1.
	Weights []float64

	// MaxIterations caps collapse steps per sub-chunk; remaining cells become FLOOR.
	MaxIterations int

	Decor Decor
}

// Stats summarizes one Generate call.
type Stats struct {
	Collapses      int
	Contradictions int
	CapHits        int
	ExitPlaced     bool
}

func (s *Stats) add(o Stats) {
	s.Collapses += o.Collapses
	s.Contradictions += o.Contradictions
	s.CapHits += o.CapHits
}

type Generator struct {
	rules   *Ruleset
	weights []float64
	maxIter int
	decor   Decor
	floor   int
}

func New(cfg Config) (*Generator, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("wfc: nil ruleset")
	}
	floor, ok := cfg.Rules.StateOf(chunk.Floor)
	if !ok {
		return nil, fmt.Errorf("wfc: ruleset %q has no FLOOR state", cfg.Rules.Name)
	}
	w := make([]float64, len(cfg.Rules.States))
	for i := range w {
		w[i] = 1
		if i < len(cfg.Weights) {
			if cfg.Weights[i] <= 0 {
				return nil, fmt.Errorf("wfc: weight for %v must be positive", cfg.Rules.States[i])
			}
			w[i] = cfg.Weights[i]
		}
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	return &Generator{
		rules:   cfg.Rules,
		weights: w,
		maxIter: maxIter,
		decor:   cfg.Decor,
		floor:   floor,
	}, nil
}

func (g *Generator) Rules() *Ruleset { return g.rules }

func (g *Generator) Decor() Decor { return g.decor }

// WithDecorSeed returns a copy whose decoration clusters follow seed.
func (g *Generator) WithDecorSeed(seed int64) *Generator {
	cp := *g
	cp.decor.Seed = seed
	return &cp
}

// ChunkSeed derives the per-chunk seed. Equal inputs always give equal chunks.
func ChunkSeed(levelSeed int64, x, y int) int64 {
	return mathx.Seed(mathx.Hash2(levelSeed, x, y))
}

// Generate fills every sub-chunk of ch. The result depends only on seed and
// ch.Key; ch.Corruption is left for spawning.
func (g *Generator) Generate(ch *chunk.Chunk, seed int64) Stats {
	rng := rand.New(rand.NewSource(seed))
	var total Stats
	var grid solveGrid
	for sy := 0; sy < chunk.SubChunksPerSide; sy++ {
		for sx := 0; sx < chunk.SubChunksPerSide; sx++ {
			sc, _ := ch.SubChunkAt(chunk.SubIndex{X: sx, Y: sy})
			grid.reset(g.rules.full())
			st := g.seedBorders(&grid, ch, sx, sy)
			st.add(g.solve(&grid, rng))
			total.add(st)
			g.write(ch, sx, sy, &grid)
			sc.MarkGenerated()
		}
	}
	g.deriveCeiling(ch)
	decorate(ch, g.decor, seed, &total)
	return total
}

type solveGrid struct {
	dom    [cells]uint32
	locked [cells]bool
	stack  []int
}

func (s *solveGrid) reset(full uint32) {
	for i := range s.dom {
		s.dom[i] = full
		s.locked[i] = false
	}
	s.stack = s.stack[:0]
}

// seedBorders prunes edge cells against sibling sub-chunks that are already
// solved (north and west, given raster order).
func (g *Generator) seedBorders(grid *solveGrid, ch *chunk.Chunk, sx, sy int) Stats {
	var st Stats
	ox, oy := sx*side, sy*side
	constrain := func(cell int, neighbor chunk.Tile, d Dir) {
		ns, ok := g.rules.StateOf(neighbor)
		if !ok {
			return
		}
		// d points from the neighbor towards this cell.
		next := grid.dom[cell] & g.rules.allow[ns][d]
		if next == grid.dom[cell] {
			return
		}
		if next == 0 {
			next = 1 << uint(g.floor)
			grid.locked[cell] = true
			st.Contradictions++
		}
		grid.dom[cell] = next
		grid.stack = append(grid.stack, cell)
	}
	if sy > 0 {
		for x := 0; x < side; x++ {
			constrain(x, ch.LocalTile(chunk.LayerBase, ox+x, oy-1), South)
		}
	}
	if sx > 0 {
		for y := 0; y < side; y++ {
			constrain(y*side, ch.LocalTile(chunk.LayerBase, ox-1, oy+y), East)
		}
	}
	st.Contradictions += g.propagate(grid)
	return st
}

func (g *Generator) solve(grid *solveGrid, rng *rand.Rand) Stats {
	var st Stats
	for iter := 0; ; iter++ {
		cell := lowestEntropy(grid)
		if cell < 0 {
			return st
		}
		if iter >= g.maxIter {
			st.CapHits++
			for i := range grid.dom {
				if bits.OnesCount32(grid.dom[i]) != 1 {
					grid.dom[i] = 1 << uint(g.floor)
				}
			}
			return st
		}
		grid.dom[cell] = 1 << uint(g.pick(grid.dom[cell], rng))
		st.Collapses++
		grid.stack = append(grid.stack, cell)
		st.Contradictions += g.propagate(grid)
	}
}

// lowestEntropy returns the first undecided cell with the fewest states, or -1.
func lowestEntropy(grid *solveGrid) int {
	best, bestN := -1, 33
	for i, d := range grid.dom {
		n := bits.OnesCount32(d)
		if n > 1 && n < bestN {
			best, bestN = i, n
			if n == 2 {
				break
			}
		}
	}
	return best
}

func (g *Generator) pick(dom uint32, rng *rand.Rand) int {
	total := 0.0
	for s := range g.rules.States {
		if dom&(1<<uint(s)) != 0 {
			total += g.weights[s]
		}
	}
	r := rng.Float64() * total
	last := -1
	for s := range g.rules.States {
		if dom&(1<<uint(s)) == 0 {
			continue
		}
		last = s
		r -= g.weights[s]
		if r < 0 {
			return s
		}
	}
	return last
}

// propagate drains the worklist and returns the number of contradictions.
func (g *Generator) propagate(grid *solveGrid) int {
	contradictions := 0
	for len(grid.stack) > 0 {
		cell := grid.stack[len(grid.stack)-1]
		grid.stack = grid.stack[:len(grid.stack)-1]
		cx, cy := cell%side, cell/side
		for d := North; d <= West; d++ {
			nx, ny := cx+dirOffsets[d][0], cy+dirOffsets[d][1]
			if nx < 0 || nx >= side || ny < 0 || ny >= side {
				continue
			}
			n := nx + ny*side
			if grid.locked[n] {
				continue
			}
			next := grid.dom[n] & g.rules.allowedFrom(grid.dom[cell], d)
			if next == grid.dom[n] {
				continue
			}
			if next == 0 {
				next = 1 << uint(g.floor)
				grid.locked[n] = true
				contradictions++
			}
			grid.dom[n] = next
			grid.stack = append(grid.stack, n)
		}
	}
	return contradictions
}

func (g *Generator) write(ch *chunk.Chunk, sx, sy int, grid *solveGrid) {
	ox, oy := sx*side, sy*side
	for i, d := range grid.dom {
		t := chunk.Floor
		if bits.OnesCount32(d) == 1 {
			t = g.rules.States[bits.TrailingZeros32(d)]
		}
		_, _ = ch.SetLocalTile(chunk.LayerBase, ox+i%side, oy+i/side, t)
	}
}

// deriveCeiling covers every walkable cell; walls are open to the void above.
func (g *Generator) deriveCeiling(ch *chunk.Chunk) {
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			t := chunk.Empty
			if ch.LocalTile(chunk.LayerBase, x, y).Walkable() {
				t = chunk.Ceiling
			}
			_, _ = ch.SetLocalTile(chunk.LayerCeiling, x, y, t)
		}
	}
}
