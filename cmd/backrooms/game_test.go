package main

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/feature/entities"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/levels"
)

func newTestGame(t *testing.T) (*Game, tcell.SimulationScreen) {
	t.Helper()
	tune := tuning.Defaults()
	tune.WorldSeed = 42
	tune.Scheduler.GenerationRadius = 1
	tune.Scheduler.UnloadRadius = 3

	logger := log.New(io.Discard, "", 0)
	reg, err := levels.NewRegistry(tune.WorldSeed, tune.Levels, logger)
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	cat, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sp, err := spawns.FromConfig(tune, cat)
	if err != nil {
		t.Fatalf("spawns: %v", err)
	}
	sched := world.New(world.ConfigFromTuning(tune), reg, sp, nil, logger)
	t.Cleanup(sched.Stop)

	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)
	return NewGame(screen, sched, reg, tune, nil, logger), screen
}

func pump(t *testing.T, g *Game, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the scheduler")
		}
		g.sched.Process()
		time.Sleep(time.Millisecond)
	}
}

func key(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestStartLoadsAndPlacesPlayerOnFloor(t *testing.T) {
	g, _ := newTestGame(t)
	g.Start()
	pump(t, g, func() bool { return !g.loading && !g.waiting })

	if got := len(g.sched.LoadedKeys()); got != 9 {
		t.Fatalf("loaded=%d want 9", got)
	}
	if !g.sched.IsWalkable(g.pos, g.level) {
		t.Fatalf("player placed on solid tile %v", g.pos)
	}
	if len(g.views) != 9 {
		t.Fatalf("views=%d", len(g.views))
	}
}

func TestMovesWaitForTurnCompletion(t *testing.T) {
	g, _ := newTestGame(t)
	g.Start()
	pump(t, g, func() bool { return !g.loading && !g.waiting })

	turn := g.sched.Turn()
	g.waiting = true
	g.handleEvent(key('.'))
	if g.sched.Turn() != turn {
		t.Fatalf("turn advanced while waiting")
	}

	g.waiting = false
	g.handleEvent(key('.'))
	if g.sched.Turn() != turn+1 {
		t.Fatalf("turn=%d want %d", g.sched.Turn(), turn+1)
	}
	pump(t, g, func() bool { return !g.waiting })
}

func TestWallsBlockMovement(t *testing.T) {
	g, _ := newTestGame(t)
	g.Start()
	pump(t, g, func() bool { return !g.loading && !g.waiting })

	// Find a floor tile next to a wall and push into the wall.
	for _, p := range spawns.RingSquare(g.pos, 3) {
		if !g.sched.IsWalkable(p, g.level) || g.entityAt(p) != nil {
			continue
		}
		east := p.Add(1, 0)
		if g.sched.IsWalkable(east, g.level) {
			continue
		}
		g.pos = p
		turn := g.sched.Turn()
		g.handleEvent(key('l'))
		if g.pos != p || g.sched.Turn() != turn {
			t.Fatalf("moved into wall: pos=%v turn=%d", g.pos, g.sched.Turn())
		}
		return
	}
	t.Skip("no floor/wall pair near spawn")
}

func TestDescendReloadsOnNextLevel(t *testing.T) {
	g, _ := newTestGame(t)
	g.Start()
	pump(t, g, func() bool { return !g.loading && !g.waiting })
	c0 := g.sched.Corruption(0)

	g.descend()
	pump(t, g, func() bool { return !g.loading && !g.waiting })

	if g.level != 1 || g.sched.Level() != 1 {
		t.Fatalf("level=%d scheduler=%d", g.level, g.sched.Level())
	}
	for _, k := range g.sched.LoadedKeys() {
		if k.Level != 1 {
			t.Fatalf("stale chunk %v", k)
		}
	}
	for k := range g.views {
		if k.Level != 1 {
			t.Fatalf("stale view %v", k)
		}
	}
	if g.sched.Corruption(0) != c0 {
		t.Fatalf("level 0 corruption changed")
	}
}

func TestDrawShowsPlayer(t *testing.T) {
	g, screen := newTestGame(t)
	g.Start()
	pump(t, g, func() bool { return !g.loading && !g.waiting })
	g.draw()

	cells, w, h := screen.GetContents()
	mapH := h - 2
	c := cells[(mapH/2)*w+w/2]
	if len(c.Runes) == 0 || c.Runes[0] != '@' {
		t.Fatalf("center cell=%q", c.Runes)
	}
}

func TestChunkViewFollowsObservedChanges(t *testing.T) {
	ch := chunk.New(chunk.Key{}, 0)
	sc, _ := ch.SubChunkAt(chunk.SubIndex{})
	it := entities.NewItem("c/i0", "almond_water", 0, chunk.TilePos{X: 1, Y: 1})
	e := entities.NewEntity("c/e0", "smiler", 2, chunk.TilePos{X: 2, Y: 2}, 1)
	sc.AddItem(it)
	sc.AddEntity(e)

	v := newChunkView(ch)
	if v.itemAt(it.Pos()) != it || v.entityAt(e.Pos()) != e {
		t.Fatalf("view missing marks")
	}
	from := e.Pos()
	e.MoveTo(from.Add(1, 0))
	if v.entityAt(from) != nil || v.entityAt(e.Pos()) != e {
		t.Fatalf("view did not follow the move")
	}
	it.PickUp()
	if v.itemAt(it.Pos()) != nil || it.ObserverCount() != 0 {
		t.Fatalf("picked-up item still tracked")
	}
	e.Damage(1)
	if v.entityAt(e.Pos()) != nil || e.ObserverCount() != 0 {
		t.Fatalf("dead entity still tracked")
	}
}
