package spawns

import (
	"fmt"
	"math/rand"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world/feature/entities"
	"backrooms.dev/internal/sim/world/terrain/chunk"
)

// LevelRolls is how many placement attempts a chunk of one level gets.
type LevelRolls struct {
	EntityRolls   int
	EntityDensity Curve
	ItemRolls     int
}

type Result struct {
	Entities int
	Items    int
	// Forced is true when the pity timer supplied the only item.
	Forced bool
}

// Spawner is used from the scheduler goroutine only.
type Spawner struct {
	model    Model
	entities []Def
	items    []Def
	levels   map[int]LevelRolls
	pityAt   int
	pity     map[int]*PityTimer
}

func New(model Model, entityDefs, itemDefs []Def, levels map[int]LevelRolls, pityThreshold int) *Spawner {
	return &Spawner{
		model:    model,
		entities: entityDefs,
		items:    itemDefs,
		levels:   levels,
		pityAt:   pityThreshold,
		pity:     map[int]*PityTimer{},
	}
}

// FromConfig builds a spawner from tuning and a catalog.
func FromConfig(t tuning.Tuning, cat *catalogs.SpawnCatalog) (*Spawner, error) {
	model, err := ModelFromTuning(t.Spawns)
	if err != nil {
		return nil, err
	}
	var ents, items []Def
	for _, e := range cat.Entities {
		tier, err := ParseTier(e.Tier)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		ents = append(ents, Def{ID: e.ID, Tier: tier, BaseWeight: e.BaseWeight, MinCorruption: e.MinCorruption, HP: e.HP, Levels: e.Levels})
	}
	for _, it := range cat.Items {
		tier, err := ParseTier(it.Tier)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		items = append(items, Def{ID: it.ID, Tier: tier, BaseWeight: it.BaseWeight, MinCorruption: it.MinCorruption, Levels: it.Levels})
	}
	levels := make(map[int]LevelRolls, len(t.Levels))
	for _, l := range t.Levels {
		levels[l.ID] = LevelRolls{
			EntityRolls:   l.EntityRolls,
			EntityDensity: Curve{Base: l.EntityDensity.Base, Slope: l.EntityDensity.Slope},
			ItemRolls:     l.ItemRolls,
		}
	}
	return New(model, ents, items, levels, t.Spawns.PityThreshold), nil
}

func (s *Spawner) Model() Model { return s.model }

// Reset clears the pity timers; called when a new run starts.
func (s *Spawner) Reset() { s.pity = map[int]*PityTimer{} }

func (s *Spawner) timer(level int) *PityTimer {
	p := s.pity[level]
	if p == nil {
		p = &PityTimer{Threshold: s.pityAt}
		s.pity[level] = p
	}
	return p
}

func forLevel(defs []Def, level int) []Def {
	out := make([]Def, 0, len(defs))
	for _, d := range defs {
		if d.OnLevel(level) {
			out = append(out, d)
		}
	}
	return out
}

// Populate places entities and items on free walkable tiles of ch.
// Placeholder chunks get nothing and do not advance the pity timer.
func (s *Spawner) Populate(ch *chunk.Chunk, corruption float64, rng *rand.Rand) Result {
	var res Result
	if ch == nil || ch.Placeholder {
		return res
	}
	rolls := s.levels[ch.Key.Level]
	occupied := map[chunk.TilePos]bool{}
	for _, e := range ch.Entities() {
		occupied[e.Pos()] = true
	}
	for _, it := range ch.Items() {
		occupied[it.Pos()] = true
	}

	ents := forLevel(s.entities, ch.Key.Level)
	density := rolls.EntityDensity.At(corruption)
	for i := 0; i < rolls.EntityRolls; i++ {
		if rng.Float64() >= density {
			continue
		}
		d, ok := Pick(rng, ents, corruption, func(d Def) float64 { return s.model.EntityWeight(d, corruption) })
		if !ok {
			break
		}
		pos, ok := freeTile(ch, rng, occupied)
		if !ok {
			break
		}
		id := fmt.Sprintf("%s/e%d", ch.Key, res.Entities)
		if addEntity(ch, entities.NewEntity(id, d.ID, int(d.Tier), pos, d.HP)) {
			occupied[pos] = true
			res.Entities++
		}
	}

	items := forLevel(s.items, ch.Key.Level)
	weight := func(d Def) float64 { return d.BaseWeight }
	place := func(d Def) bool {
		pos, ok := freeTile(ch, rng, occupied)
		if !ok {
			return false
		}
		id := fmt.Sprintf("%s/i%d", ch.Key, res.Items)
		if !addItem(ch, entities.NewItem(id, d.ID, int(d.Tier), pos)) {
			return false
		}
		occupied[pos] = true
		res.Items++
		return true
	}
	for i := 0; i < rolls.ItemRolls; i++ {
		d, ok := Pick(rng, items, corruption, weight)
		if !ok {
			break
		}
		if rng.Float64() < s.model.ItemChance(d.Tier, corruption) {
			place(d)
		}
	}
	if pt := s.timer(ch.Key.Level); pt.Record(res.Items) {
		if d, ok := Pick(rng, items, corruption, weight); ok && place(d) {
			res.Forced = true
			pt.Reset()
		}
	}
	return res
}

const placementTries = 48

// freeTile draws random local tiles, then searches rings around the last
// draw, for a walkable non-exit tile that holds nothing yet.
func freeTile(ch *chunk.Chunk, rng *rand.Rand, occupied map[chunk.TilePos]bool) (chunk.TilePos, bool) {
	o := ch.Origin()
	free := func(p chunk.TilePos) bool {
		x, y := p.X-o.X, p.Y-o.Y
		if x < 0 || y < 0 || x >= chunk.Size || y >= chunk.Size || occupied[p] {
			return false
		}
		t := ch.LocalTile(chunk.LayerBase, x, y)
		return t.Walkable() && t != chunk.ExitStairs
	}
	var last chunk.TilePos
	for i := 0; i < placementTries; i++ {
		last = o.Add(rng.Intn(chunk.Size), rng.Intn(chunk.Size))
		if free(last) {
			return last, true
		}
	}
	for r := 1; r <= 8; r++ {
		for _, p := range RingSquare(last, r) {
			if free(p) {
				return p, true
			}
		}
	}
	return chunk.TilePos{}, false
}

func addEntity(ch *chunk.Chunk, e *entities.WorldEntity) bool {
	sc, _, _, err := ch.WorldTileToSubChunk(e.Pos())
	if err != nil {
		return false
	}
	sc.AddEntity(e)
	return true
}

func addItem(ch *chunk.Chunk, it *entities.WorldItem) bool {
	sc, _, _, err := ch.WorldTileToSubChunk(it.Pos())
	if err != nil {
		return false
	}
	sc.AddItem(it)
	return true
}
