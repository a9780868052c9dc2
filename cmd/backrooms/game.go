package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/feature/entities"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/levels"
	"backrooms.dev/internal/sim/world/terrain/stitch"
)

const (
	relocateRadius = 64
	messageTTL     = 4 * time.Second
)

// Game is the terminal front-end. It plays the collaborator roles the
// scheduler expects: player source, renderer and listener.
//
// Input is accepted only between turns: a move reports a finished turn and
// the next move waits for ChunkUpdatesCompleted.
type Game struct {
	screen tcell.Screen
	sched  *world.Scheduler
	levels *levels.Registry
	tune   tuning.Tuning
	cues   *cues
	logger *log.Logger

	pos   chunk.TilePos
	level int
	seed  int64

	waiting  bool
	loading  bool
	progress [2]int

	views map[chunk.Key]*chunkView

	hp      int
	loot    int
	message string
	msgAt   time.Time

	onNewRun func(epoch uint64, seed int64)
}

func NewGame(screen tcell.Screen, sched *world.Scheduler, reg *levels.Registry, tune tuning.Tuning, c *cues, logger *log.Logger) *Game {
	g := &Game{
		screen: screen,
		sched:  sched,
		levels: reg,
		tune:   tune,
		cues:   c,
		logger: logger,
		level:  tune.StartLevel,
		seed:   tune.WorldSeed,
		pos:    chunk.TilePos{X: chunk.Size / 2, Y: chunk.Size / 2},
		views:  map[chunk.Key]*chunkView{},
		hp:     10,
	}
	sched.SetPlayerSource(g)
	sched.SetRenderer(g)
	sched.AddListener(g)
	return g
}

// Start kicks off the initial load: the first turn is the player arriving.
func (g *Game) Start() {
	g.loading = true
	g.waiting = true
	g.sched.OnTurnCompleted()
}

func (g *Game) Run(ctx context.Context, frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				// Screen finalized.
				close(events)
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !g.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			g.sched.Process()
			g.draw()
		}
	}
}

func (g *Game) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			g.step(0, -1)
		case tcell.KeyDown:
			g.step(0, 1)
		case tcell.KeyLeft:
			g.step(-1, 0)
		case tcell.KeyRight:
			g.step(1, 0)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'k':
				g.step(0, -1)
			case 'j':
				g.step(0, 1)
			case 'h':
				g.step(-1, 0)
			case 'l':
				g.step(1, 0)
			case '.':
				g.step(0, 0)
			case 'N':
				g.newRun(g.seed + 1)
			}
		}
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

// step moves the player (or waits in place for 0,0) and completes a turn.
func (g *Game) step(dx, dy int) {
	if g.waiting || g.loading || g.hp <= 0 {
		return
	}
	target := g.pos.Add(dx, dy)
	if dx != 0 || dy != 0 {
		if e := g.entityAt(target); e != nil {
			g.attack(e)
			g.completeTurn()
			return
		}
		if !g.sched.IsWalkable(target, g.level) {
			g.cues.Bump()
			return
		}
		g.pos = target
		g.cues.Step()
	}
	if it := g.itemAt(g.pos); it != nil && it.PickUp() {
		g.loot++
		g.say(fmt.Sprintf("picked up %s", it.DefID))
	}
	if t, ok := g.sched.TileType(g.pos, g.level); ok && t.Base() == chunk.ExitStairs {
		g.descend()
		return
	}
	g.completeTurn()
}

func (g *Game) completeTurn() {
	g.waiting = true
	g.sched.OnTurnCompleted()
}

func (g *Game) attack(e *entities.WorldEntity) {
	if e.Damage(1) {
		g.say(fmt.Sprintf("the %s dissolves", e.DefID))
		return
	}
	g.hp -= 1 + e.Tier
	g.cues.Hurt()
	if g.hp <= 0 {
		g.hp = 0
		g.say("you no-clip out of existence. N for a new run")
		return
	}
	g.say(fmt.Sprintf("the %s strikes back (%d/%d)", e.DefID, e.HP(), e.MaxHP()))
}

// descend takes the stairs to the next configured level.
func (g *Game) descend() {
	ids := g.levels.IDs()
	next := ids[0]
	for i, id := range ids {
		if id == g.level && i+1 < len(ids) {
			next = ids[i+1]
		}
	}
	g.logger.Printf("stairs at %v: level %d -> %d", g.pos, g.level, next)
	g.cues.Descend()
	g.sched.ChangeLevel(next)
	g.level = next
	g.loading = true
	g.progress = [2]int{}
	name := fmt.Sprintf("level %d", next)
	if l, ok := g.levels.Level(next); ok {
		name = l.Spec.Name
	}
	g.say("you fall into " + name)
	g.completeTurn()
}

func (g *Game) newRun(seed int64) {
	if g.loading {
		return
	}
	g.seed = seed
	g.sched.StartNewRun(seed)
	if g.onNewRun != nil {
		g.onNewRun(g.sched.Epoch(), seed)
	}
	g.level = g.tune.StartLevel
	g.pos = chunk.TilePos{X: chunk.Size / 2, Y: chunk.Size / 2}
	g.hp, g.loot = 10, 0
	g.loading = true
	g.progress = [2]int{}
	g.say(fmt.Sprintf("new run, seed %d", seed))
	g.completeTurn()
}

// relocate moves the player to the nearest walkable tile after arriving on
// a level where the current position is solid.
func (g *Game) relocate() {
	if g.sched.IsWalkable(g.pos, g.level) {
		return
	}
	for r := 1; r <= relocateRadius; r++ {
		for _, p := range spawns.RingSquare(g.pos, r) {
			if g.sched.IsWalkable(p, g.level) && g.entityAt(p) == nil {
				g.pos = p
				return
			}
		}
	}
	g.logger.Printf("no walkable tile within %d of %v", relocateRadius, g.pos)
}

func (g *Game) say(msg string) {
	g.message = msg
	g.msgAt = time.Now()
}

func (g *Game) entityAt(p chunk.TilePos) *entities.WorldEntity {
	v := g.views[chunk.KeyOf(p, g.level)]
	if v == nil {
		return nil
	}
	return v.entityAt(p)
}

func (g *Game) itemAt(p chunk.TilePos) *entities.WorldItem {
	v := g.views[chunk.KeyOf(p, g.level)]
	if v == nil {
		return nil
	}
	return v.itemAt(p)
}

// PlayerSource

func (g *Game) PlayerPosition() (chunk.TilePos, int, bool) { return g.pos, g.level, true }

// Renderer

func (g *Game) Materialize(ch *chunk.Chunk) error {
	g.views[ch.Key] = newChunkView(ch)
	return nil
}

func (g *Game) Teardown(k chunk.Key) { delete(g.views, k) }

// PatchTiles is a no-op: tiles are read through the scheduler every frame.
func (g *Game) PatchTiles(chunk.Key, []stitch.Change) {}

// Listener

func (g *Game) ChunkUpdatesCompleted(uint64) { g.waiting = false }

func (g *Game) InitialLoadCompleted() {
	g.loading = false
	g.relocate()
}

func (g *Game) LoadProgress(done, total int)            { g.progress = [2]int{done, total} }
func (g *Game) PlayerChunkChanged(_, to chunk.Key)      { g.logger.Printf("player chunk %v", to) }
func (g *Game) ChunkLoaded(chunk.Key)                   {}
func (g *Game) ChunkUnloaded(chunk.Key)                 {}
func (g *Game) TilesPatched(chunk.Key, []stitch.Change) {}

// chunkView is the per-chunk render node. It observes the chunk's entities
// and items and is detached by the scheduler when the chunk is evicted.
type chunkView struct {
	key      chunk.Key
	entities map[chunk.TilePos]*entities.WorldEntity
	items    map[chunk.TilePos]*entities.WorldItem
}

func newChunkView(ch *chunk.Chunk) *chunkView {
	v := &chunkView{
		key:      ch.Key,
		entities: map[chunk.TilePos]*entities.WorldEntity{},
		items:    map[chunk.TilePos]*entities.WorldItem{},
	}
	for _, e := range ch.Entities() {
		if e.Alive() {
			v.entities[e.Pos()] = e
			e.Observe(v)
		}
	}
	for _, it := range ch.Items() {
		if !it.PickedUp() {
			v.items[it.Pos()] = it
			it.Observe(v)
		}
	}
	return v
}

func (v *chunkView) EntityChanged(e *entities.WorldEntity, c entities.Change) {
	switch c {
	case entities.ChangeDied:
		delete(v.entities, e.Pos())
		e.Unobserve(v)
	case entities.ChangeMoved:
		for p, cur := range v.entities {
			if cur == e {
				delete(v.entities, p)
			}
		}
		if chunk.KeyOf(e.Pos(), v.key.Level) == v.key {
			v.entities[e.Pos()] = e
		}
	}
}

func (v *chunkView) ItemChanged(it *entities.WorldItem, c entities.Change) {
	if c == entities.ChangePickedUp {
		delete(v.items, it.Pos())
		it.Unobserve(v)
	}
}

func (v *chunkView) entityAt(p chunk.TilePos) *entities.WorldEntity { return v.entities[p] }
func (v *chunkView) itemAt(p chunk.TilePos) *entities.WorldItem     { return v.items[p] }
