package worldtest

import (
	"context"
	"testing"
	"time"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	world "backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/levels"
	"backrooms.dev/internal/sim/world/terrain/stitch"
)

// Harness drives a real scheduler (WFC levels, spawner, worker) through its
// exported API only:
// - MoveTo() places the player; Turn() reports a finished turn and settles
// - Renderer and Listener record every callback the scheduler makes
//
// Tests never reach into world internals so they can live outside the package.
type Harness struct {
	T      *testing.T
	Tuning tuning.Tuning
	Levels *levels.Registry
	S      *world.Scheduler

	Player   *FakePlayer
	Renderer *RecordingRenderer
	Events   *RecordingListener
}

func NewHarness(t *testing.T, tun tuning.Tuning) *Harness {
	t.Helper()

	if err := tun.Validate(); err != nil {
		t.Fatalf("tuning: %v", err)
	}
	reg, err := levels.NewRegistry(tun.WorldSeed, tun.Levels, nil)
	if err != nil {
		t.Fatalf("levels.NewRegistry: %v", err)
	}
	cat, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs.Default: %v", err)
	}
	sp, err := spawns.FromConfig(tun, cat)
	if err != nil {
		t.Fatalf("spawns.FromConfig: %v", err)
	}

	h := &Harness{
		T:        t,
		Tuning:   tun,
		Levels:   reg,
		Player:   &FakePlayer{Level: tun.StartLevel},
		Renderer: NewRecordingRenderer(),
		Events:   NewRecordingListener(),
	}
	h.S = world.New(world.ConfigFromTuning(tun), reg, sp, h.Player, nil)
	h.S.SetRenderer(h.Renderer)
	h.S.AddListener(h.Events)
	t.Cleanup(h.S.Stop)
	return h
}

// Tuning returns the default tuning with the given seed and radii.
func Tuning(seed int64, genRadius, unloadRadius int) tuning.Tuning {
	tun := tuning.Defaults()
	tun.WorldSeed = seed
	tun.Scheduler.GenerationRadius = genRadius
	tun.Scheduler.UnloadRadius = unloadRadius
	tun.Scheduler.MaxLoadedChunks = 400
	return tun
}

// MoveTo places the player at tile p on the current level.
func (h *Harness) MoveTo(p chunk.TilePos) {
	h.Player.Pos = p
	h.Player.OK = true
}

// MoveToChunk places the player at the center of chunk (cx,cy).
func (h *Harness) MoveToChunk(cx, cy int) {
	h.MoveTo(chunk.TilePos{X: cx*chunk.Size + chunk.Size/2, Y: cy*chunk.Size + chunk.Size/2})
}

// Turn reports a completed turn and drains until the scheduler is idle.
func (h *Harness) Turn() {
	h.T.Helper()
	h.S.OnTurnCompleted()
	h.Settle()
}

func (h *Harness) Settle() {
	h.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := h.S.Settle(ctx); err != nil {
		h.T.Fatalf("Settle: %v", err)
	}
}

// Bootstrap moves the player to chunk (cx,cy), then runs turns until the
// initial load completes. Steady-state enqueueing is rate limited, so a
// level change may need more than one turn.
func (h *Harness) Bootstrap(cx, cy int) {
	h.T.Helper()
	h.MoveToChunk(cx, cy)
	start := h.Events.Initial
	for i := 0; i < 8; i++ {
		h.Turn()
		if h.Events.Initial > start {
			return
		}
	}
	h.T.Fatalf("initial load did not complete around (%d,%d)", cx, cy)
}

// Window lists the keys within r chunks of (cx,cy) on level.
func Window(cx, cy, r, level int) []chunk.Key {
	var out []chunk.Key
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			out = append(out, chunk.Key{X: x, Y: y, Level: level})
		}
	}
	return out
}

func Chebyshev(a, b chunk.Key) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

type FakePlayer struct {
	Pos   chunk.TilePos
	Level int
	OK    bool
}

func (p *FakePlayer) PlayerPosition() (chunk.TilePos, int, bool) { return p.Pos, p.Level, p.OK }

type RecordingRenderer struct {
	Live      map[chunk.Key]bool
	Made      map[chunk.Key]int
	TornDown  []chunk.Key
	Patches   map[chunk.Key]int
	MadeTotal int
}

func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{
		Live:    map[chunk.Key]bool{},
		Made:    map[chunk.Key]int{},
		Patches: map[chunk.Key]int{},
	}
}

func (r *RecordingRenderer) Materialize(ch *chunk.Chunk) error {
	r.Live[ch.Key] = true
	r.Made[ch.Key]++
	r.MadeTotal++
	return nil
}

func (r *RecordingRenderer) Teardown(k chunk.Key) {
	delete(r.Live, k)
	r.TornDown = append(r.TornDown, k)
}

func (r *RecordingRenderer) PatchTiles(k chunk.Key, cs []stitch.Change) { r.Patches[k] += len(cs) }

type RecordingListener struct {
	Completed []uint64
	Initial   int
	Progress  [][2]int
	Changed   [][2]chunk.Key
	Loaded    []chunk.Key
	Unloaded  []chunk.Key
	Patched   map[chunk.Key]int
}

func NewRecordingListener() *RecordingListener {
	return &RecordingListener{Patched: map[chunk.Key]int{}}
}

func (l *RecordingListener) ChunkUpdatesCompleted(turn uint64) {
	l.Completed = append(l.Completed, turn)
}
func (l *RecordingListener) InitialLoadCompleted() { l.Initial++ }
func (l *RecordingListener) LoadProgress(done, total int) {
	l.Progress = append(l.Progress, [2]int{done, total})
}
func (l *RecordingListener) PlayerChunkChanged(from, to chunk.Key) {
	l.Changed = append(l.Changed, [2]chunk.Key{from, to})
}
func (l *RecordingListener) ChunkLoaded(k chunk.Key)   { l.Loaded = append(l.Loaded, k) }
func (l *RecordingListener) ChunkUnloaded(k chunk.Key) { l.Unloaded = append(l.Unloaded, k) }
func (l *RecordingListener) TilesPatched(k chunk.Key, cs []stitch.Change) {
	l.Patched[k] += len(cs)
}
