package store

import (
	"sort"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

func (s *ChunkStore) LoadedChunkKeys() []chunk.Key {
	keys := make([]chunk.Key, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (s *ChunkStore) ChunkAt(p chunk.TilePos, level int) (*chunk.Chunk, bool) {
	return s.Get(chunk.KeyOf(p, level))
}

// TileAt reports the base-layer tile at a world position. Unloaded tiles
// read as Empty with ok=false.
func (s *ChunkStore) TileAt(p chunk.TilePos, level int) (chunk.Tile, bool) {
	ch, ok := s.ChunkAt(p, level)
	if !ok {
		return chunk.Empty, false
	}
	x, y := chunk.LocalOf(p)
	return ch.LocalTile(chunk.LayerBase, x, y), true
}

func (s *ChunkStore) CeilingAt(p chunk.TilePos, level int) (chunk.Tile, bool) {
	ch, ok := s.ChunkAt(p, level)
	if !ok {
		return chunk.Empty, false
	}
	x, y := chunk.LocalOf(p)
	return ch.LocalTile(chunk.LayerCeiling, x, y), true
}

// IsWalkable is false for unloaded tiles.
func (s *ChunkStore) IsWalkable(p chunk.TilePos, level int) bool {
	t, ok := s.TileAt(p, level)
	return ok && t.Walkable()
}
