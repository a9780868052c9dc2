package store

import (
	"fmt"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

// ChunkStore holds the loaded chunks. Keys are unique: a second Put for a
// live key is rejected rather than replacing the first instance.
type ChunkStore struct {
	Chunks map[chunk.Key]*chunk.Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{Chunks: map[chunk.Key]*chunk.Chunk{}}
}

func (s *ChunkStore) Put(ch *chunk.Chunk) error {
	if ch == nil {
		return fmt.Errorf("store: nil chunk")
	}
	if _, ok := s.Chunks[ch.Key]; ok {
		return fmt.Errorf("store: duplicate chunk %v", ch.Key)
	}
	s.Chunks[ch.Key] = ch
	return nil
}

func (s *ChunkStore) Get(k chunk.Key) (*chunk.Chunk, bool) {
	ch, ok := s.Chunks[k]
	return ch, ok
}

// Delete removes k and returns the removed chunk, if any.
func (s *ChunkStore) Delete(k chunk.Key) *chunk.Chunk {
	ch := s.Chunks[k]
	delete(s.Chunks, k)
	return ch
}

func (s *ChunkStore) Len() int { return len(s.Chunks) }

// Reset drops every chunk after severing its observer subscriptions.
func (s *ChunkStore) Reset() {
	for _, ch := range s.Chunks {
		ch.DetachObservers()
	}
	s.Chunks = map[chunk.Key]*chunk.Chunk{}
}
