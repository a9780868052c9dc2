package world

import (
	"math/rand"
	"time"

	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/genworker"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/stitch"
)

type ChunkState int

const (
	Unloaded ChunkState = iota
	Queued
	Generating
	Loaded
)

func (s ChunkState) String() string {
	switch s {
	case Unloaded:
		return "UNLOADED"
	case Queued:
		return "QUEUED"
	case Generating:
		return "GENERATING"
	case Loaded:
		return "LOADED"
	default:
		return "INVALID"
	}
}

type Config struct {
	WorldSeed  int64
	StartLevel int

	GenerationRadius     int
	UnloadRadius         int
	MaxLoadedChunks      int
	SteadyEnqueuePerTurn int

	Stitch stitch.Config

	// SettleInterval is the pause between passes in Settle.
	SettleInterval time.Duration
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		WorldSeed:            t.WorldSeed,
		StartLevel:           t.StartLevel,
		GenerationRadius:     t.Scheduler.GenerationRadius,
		UnloadRadius:         t.Scheduler.UnloadRadius,
		MaxLoadedChunks:      t.Scheduler.MaxLoadedChunks,
		SteadyEnqueuePerTurn: t.Scheduler.SteadyEnqueuePerTurn,
		Stitch: stitch.Config{
			Depth:         t.Stitch.Depth,
			Margin:        t.Stitch.Margin,
			Width1Percent: t.Stitch.Width1Percent,
			Width2Percent: t.Stitch.Width2Percent,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.GenerationRadius < 0 {
		c.GenerationRadius = 0
	}
	if c.UnloadRadius <= c.GenerationRadius {
		c.UnloadRadius = c.GenerationRadius + 2
	}
	if c.MaxLoadedChunks <= 0 {
		n := 2*c.UnloadRadius + 1
		c.MaxLoadedChunks = n * n
	}
	if c.SteadyEnqueuePerTurn <= 0 {
		c.SteadyEnqueuePerTurn = 1
	}
	if c.Stitch.Depth <= 0 {
		c.Stitch = stitch.DefaultConfig()
	}
	if c.SettleInterval <= 0 {
		c.SettleInterval = time.Millisecond
	}
}

// Generator is the level registry as seen by the scheduler. Generate runs
// on the worker goroutine; the other methods run on the caller's.
type Generator interface {
	genworker.Generator
	ChunkSeed(worldSeed int64, key chunk.Key) int64
	CorruptionPerChunk(level int) float64
}

type Spawner interface {
	Populate(ch *chunk.Chunk, corruption float64, rng *rand.Rand) spawns.Result
	Reset()
}

// PlayerSource reports where the player stands. ok=false means there is no
// player yet (menus, loading) and the turn is processed without moving.
type PlayerSource interface {
	PlayerPosition() (pos chunk.TilePos, level int, ok bool)
}

// Renderer turns chunks into their visual/physical form. A Materialize
// error defers the chunk to a later Process call.
type Renderer interface {
	Materialize(ch *chunk.Chunk) error
	Teardown(key chunk.Key)
	PatchTiles(key chunk.Key, changes []stitch.Change)
}

type Listener interface {
	ChunkUpdatesCompleted(turn uint64)
	InitialLoadCompleted()
	LoadProgress(done, total int)
	PlayerChunkChanged(from, to chunk.Key)
	ChunkLoaded(key chunk.Key)
	ChunkUnloaded(key chunk.Key)
	TilesPatched(key chunk.Key, changes []stitch.Change)
}

// ListenerFuncs adapts optional callbacks to Listener; nil fields are skipped.
type ListenerFuncs struct {
	OnChunkUpdatesCompleted func(turn uint64)
	OnInitialLoadCompleted  func()
	OnLoadProgress          func(done, total int)
	OnPlayerChunkChanged    func(from, to chunk.Key)
	OnChunkLoaded           func(key chunk.Key)
	OnChunkUnloaded         func(key chunk.Key)
	OnTilesPatched          func(key chunk.Key, changes []stitch.Change)
}

func (f ListenerFuncs) ChunkUpdatesCompleted(turn uint64) {
	if f.OnChunkUpdatesCompleted != nil {
		f.OnChunkUpdatesCompleted(turn)
	}
}

func (f ListenerFuncs) InitialLoadCompleted() {
	if f.OnInitialLoadCompleted != nil {
		f.OnInitialLoadCompleted()
	}
}

func (f ListenerFuncs) LoadProgress(done, total int) {
	if f.OnLoadProgress != nil {
		f.OnLoadProgress(done, total)
	}
}

func (f ListenerFuncs) PlayerChunkChanged(from, to chunk.Key) {
	if f.OnPlayerChunkChanged != nil {
		f.OnPlayerChunkChanged(from, to)
	}
}

func (f ListenerFuncs) ChunkLoaded(key chunk.Key) {
	if f.OnChunkLoaded != nil {
		f.OnChunkLoaded(key)
	}
}

func (f ListenerFuncs) ChunkUnloaded(key chunk.Key) {
	if f.OnChunkUnloaded != nil {
		f.OnChunkUnloaded(key)
	}
}

func (f ListenerFuncs) TilesPatched(key chunk.Key, changes []stitch.Change) {
	if f.OnTilesPatched != nil {
		f.OnTilesPatched(key, changes)
	}
}

// Optional telemetry sinks (may be nil). Implemented in internal/persistence/*.
type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

type ChunkJournal interface {
	WriteChunkEvent(ev ChunkEvent) error
}

type TurnLogEntry struct {
	Turn        uint64    `json:"turn"`
	Epoch       uint64    `json:"epoch"`
	Level       int       `json:"level"`
	PlayerChunk chunk.Key `json:"player_chunk"`
	Corruption  float64   `json:"corruption"`
	Loaded      int       `json:"loaded"`
	Queued      int       `json:"queued"`
	InFlight    int       `json:"in_flight"`
	Visited     int       `json:"visited"`
	Capped      bool      `json:"capped,omitempty"`
}

type ChunkEventKind string

const (
	ChunkEventLoaded    ChunkEventKind = "LOADED"
	ChunkEventUnloaded  ChunkEventKind = "UNLOADED"
	ChunkEventStale     ChunkEventKind = "STALE"
	ChunkEventStitched  ChunkEventKind = "STITCHED"
	ChunkEventRecovered ChunkEventKind = "RECOVERED"
)

type ChunkEvent struct {
	Turn       uint64         `json:"turn"`
	Epoch      uint64         `json:"epoch"`
	Kind       ChunkEventKind `json:"kind"`
	Key        chunk.Key      `json:"key"`
	Neighbor   *chunk.Key     `json:"neighbor,omitempty"`
	Digest     string         `json:"digest,omitempty"`
	Corruption float64        `json:"corruption"`
	ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
	Entities   int            `json:"entities,omitempty"`
	Items      int            `json:"items,omitempty"`
	Patched    int            `json:"patched,omitempty"`
}
