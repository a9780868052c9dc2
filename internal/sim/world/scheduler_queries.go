package world

import (
	"backrooms.dev/internal/sim/world/terrain/chunk"
)

func (s *Scheduler) State(k chunk.Key) ChunkState {
	switch {
	case s.store.Chunks[k] != nil:
		return Loaded
	case s.inFlight[k]:
		return Generating
	case s.queued[k]:
		return Queued
	default:
		return Unloaded
	}
}

func (s *Scheduler) IsWalkable(p chunk.TilePos, level int) bool {
	return s.store.IsWalkable(p, level)
}

// TileType is the base-layer tile at p; ok is false when p is not loaded.
func (s *Scheduler) TileType(p chunk.TilePos, level int) (chunk.Tile, bool) {
	return s.store.TileAt(p, level)
}

func (s *Scheduler) CeilingType(p chunk.TilePos, level int) (chunk.Tile, bool) {
	return s.store.CeilingAt(p, level)
}

func (s *Scheduler) ChunkAt(p chunk.TilePos, level int) (*chunk.Chunk, bool) {
	return s.store.ChunkAt(p, level)
}

// LoadedKeys lists loaded chunks ordered by level, row, column.
func (s *Scheduler) LoadedKeys() []chunk.Key { return s.store.LoadedChunkKeys() }

func (s *Scheduler) Corruption(level int) float64 { return s.corruption.Value(level) }

func (s *Scheduler) Visited(k chunk.Key) bool { return s.corruption.Visited(k) }

func (s *Scheduler) Turn() uint64        { return s.turn }
func (s *Scheduler) Epoch() uint64       { return s.epoch }
func (s *Scheduler) WorldSeed() int64    { return s.cfg.WorldSeed }
func (s *Scheduler) Level() int          { return s.level }
func (s *Scheduler) Config() Config      { return s.cfg }
func (s *Scheduler) Bootstrapping() bool { return s.bootstrapping }

// PlayerChunk is the chunk the player occupied at the last turn.
func (s *Scheduler) PlayerChunk() (chunk.Key, bool) { return s.center, s.hasCenter }

// Counts returns loaded, backlog and in-flight sizes.
func (s *Scheduler) Counts() (loaded, queued, inFlight int) {
	return s.store.Len(), len(s.backlog), len(s.inFlight)
}

// GeneratingNow is the chunk on the worker goroutine right now, if any.
func (s *Scheduler) GeneratingNow() (chunk.Key, bool) { return s.worker.Generating() }

// Digests hashes the loaded chunks in LoadedKeys order.
func (s *Scheduler) Digests() map[chunk.Key]string {
	out := map[chunk.Key]string{}
	for _, d := range s.store.Digests(s.store.LoadedChunkKeys()) {
		out[d.Key] = d.Digest
	}
	return out
}
