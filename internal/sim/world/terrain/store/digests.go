package store

import (
	"encoding/hex"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

type ChunkDigest struct {
	Key    chunk.Key
	Digest string
}

// Digests lists content hashes of the given keys in order, skipping keys
// that are not loaded.
func (s *ChunkStore) Digests(keys []chunk.Key) []ChunkDigest {
	out := make([]ChunkDigest, 0, len(keys))
	for _, k := range keys {
		ch := s.Chunks[k]
		if ch == nil {
			continue
		}
		d := ch.Digest()
		out = append(out, ChunkDigest{Key: k, Digest: hex.EncodeToString(d[:])})
	}
	return out
}
