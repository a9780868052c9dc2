// Package levels builds one WFC generator per configured level and serves
// generation requests for the worker.
package levels

import (
	"fmt"
	"io"
	"log"
	"sort"

	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world/genworker"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/wfc"
)

type Level struct {
	Spec      tuning.LevelSpec
	Seed      int64
	Generator *wfc.Generator
}

// Registry is read-only after construction and safe to use from the worker goroutine.
type Registry struct {
	worldSeed int64
	levels    map[int]*Level
	logger    *log.Logger
}

func NewRegistry(worldSeed int64, specs []tuning.LevelSpec, logger *log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Registry{worldSeed: worldSeed, levels: map[int]*Level{}, logger: logger}
	for _, spec := range specs {
		if _, dup := r.levels[spec.ID]; dup {
			return nil, fmt.Errorf("levels: duplicate id %d", spec.ID)
		}
		rules, err := wfc.Builtin(spec.Ruleset)
		if err != nil {
			return nil, fmt.Errorf("levels: level %d: %w", spec.ID, err)
		}
		levelSeed := worldSeed + spec.SeedOffset
		g, err := wfc.New(wfc.Config{
			Rules:         rules,
			Weights:       weightsFor(rules, spec),
			MaxIterations: spec.MaxIterations,
			Decor:         decorFor(levelSeed, spec.Decor),
		})
		if err != nil {
			return nil, fmt.Errorf("levels: level %d: %w", spec.ID, err)
		}
		r.levels[spec.ID] = &Level{Spec: spec, Seed: levelSeed, Generator: g}
	}
	return r, nil
}

func weightsFor(rules *wfc.Ruleset, spec tuning.LevelSpec) []float64 {
	w := make([]float64, len(rules.States))
	for i, s := range rules.States {
		switch s {
		case chunk.Floor:
			w[i] = spec.FloorWeight
		case chunk.Wall:
			w[i] = spec.WallWeight
		default:
			w[i] = 1
		}
	}
	return w
}

func decorFor(levelSeed int64, d tuning.DecorSpec) wfc.Decor {
	return wfc.Decor{
		Seed:                levelSeed,
		PuddlePermille:      d.PuddlePermille,
		CardboardPermille:   d.CardboardPermille,
		CrackPermille:       d.CrackPermille,
		MouldPermille:       d.MouldPermille,
		WallHolePermille:    d.WallHolePermille,
		StainPermille:       d.StainPermille,
		CeilingHolePermille: d.CeilingHolePermille,
		BrokenLightPermille: d.BrokenLightPermille,
		ExitPermille:        d.ExitPermille,
		LightSpacing:        d.LightSpacing,
		CorruptionGain:      d.CorruptionGain,
	}
}

func (r *Registry) WorldSeed() int64 { return r.worldSeed }

func (r *Registry) Level(id int) (*Level, bool) {
	l, ok := r.levels[id]
	return l, ok
}

func (r *Registry) IDs() []int {
	out := make([]int, 0, len(r.levels))
	for id := range r.levels {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// LevelSeed is worldSeed shifted by the level's seed offset.
func (r *Registry) LevelSeed(worldSeed int64, level int) int64 {
	if l, ok := r.levels[level]; ok {
		return worldSeed + l.Spec.SeedOffset
	}
	return worldSeed
}

// ChunkSeed is the seed a request for key should carry in a run seeded with worldSeed.
func (r *Registry) ChunkSeed(worldSeed int64, key chunk.Key) int64 {
	return wfc.ChunkSeed(r.LevelSeed(worldSeed, key.Level), key.X, key.Y)
}

// CorruptionPerChunk is the amount added on the first visit to a chunk of level id.
func (r *Registry) CorruptionPerChunk(id int) float64 {
	if l, ok := r.levels[id]; ok {
		return l.Spec.CorruptionPerChunk
	}
	return 0
}

// Overlay is the tile a renderer draws for generated tile t at p, given the
// level's current corruption. It never changes chunk content.
func (r *Registry) Overlay(worldSeed int64, level int, p chunk.TilePos, t chunk.Tile, corruption float64) chunk.Tile {
	l, ok := r.levels[level]
	if !ok {
		return t
	}
	d := l.Generator.Decor()
	d.Seed = worldSeed + l.Spec.SeedOffset
	return d.Overlay(p, t, corruption)
}

// Generate implements genworker.Generator. Unknown levels get a placeholder.
func (r *Registry) Generate(req genworker.Request) (*chunk.Chunk, error) {
	ch := chunk.New(req.Key, req.Corruption)
	l, ok := r.levels[req.Key.Level]
	if !ok {
		r.logger.Printf("levels: unknown level %d for %v; placeholder", req.Key.Level, req.Key)
		return chunk.NewPlaceholder(req.Key, req.Corruption), nil
	}
	g := l.Generator
	if levelSeed := req.WorldSeed + l.Spec.SeedOffset; levelSeed != l.Seed {
		g = g.WithDecorSeed(levelSeed)
	}
	st := g.Generate(ch, req.Seed)
	if st.Contradictions > 0 || st.CapHits > 0 {
		r.logger.Printf("levels: %v contradictions=%d cap_hits=%d", req.Key, st.Contradictions, st.CapHits)
	}
	return ch, nil
}
