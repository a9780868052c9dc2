package chunk

import (
	"fmt"

	"backrooms.dev/internal/sim/world/feature/entities"
)

const (
	SubChunkSize  = 16
	subChunkCells = SubChunkSize * SubChunkSize
)

// LocalPos addresses a cell inside a sub-chunk.
type LocalPos struct {
	X, Y int
}

func (p LocalPos) inBounds() bool {
	return p.X >= 0 && p.X < SubChunkSize && p.Y >= 0 && p.Y < SubChunkSize
}

// SubChunk is a 16x16 two-layer grid. Both layers are allocated up front;
// whether the generator has run is tracked separately by the generated flag.
type SubChunk struct {
	layers    [numLayers][subChunkCells]Tile
	generated bool

	entities []*entities.WorldEntity
	items    []*entities.WorldItem
}

func (s *SubChunk) Tile(layer Layer, p LocalPos) (Tile, error) {
	i, err := s.index(layer, p)
	if err != nil {
		return Empty, err
	}
	return s.layers[layer][i], nil
}

// SetTile writes one cell and reports whether the value changed.
func (s *SubChunk) SetTile(layer Layer, p LocalPos, t Tile) (bool, error) {
	i, err := s.index(layer, p)
	if err != nil {
		return false, err
	}
	if s.layers[layer][i] == t {
		return false, nil
	}
	s.layers[layer][i] = t
	return true, nil
}

func (s *SubChunk) index(layer Layer, p LocalPos) (int, error) {
	if layer < 0 || layer >= numLayers {
		return 0, fmt.Errorf("chunk: invalid layer %d: %w", layer, ErrOutOfBounds)
	}
	if !p.inBounds() {
		return 0, &BoundsError{What: "sub-chunk cell", X: p.X, Y: p.Y, Extent: SubChunkSize}
	}
	return p.X + p.Y*SubChunkSize, nil
}

// at is the unchecked accessor used by generators that iterate the full grid.
func (s *SubChunk) at(layer Layer, x, y int) Tile { return s.layers[layer][x+y*SubChunkSize] }

func (s *SubChunk) set(layer Layer, x, y int, t Tile) { s.layers[layer][x+y*SubChunkSize] = t }

func (s *SubChunk) Generated() bool { return s.generated }

func (s *SubChunk) MarkGenerated() { s.generated = true }

func (s *SubChunk) AddEntity(e *entities.WorldEntity) {
	if e != nil {
		s.entities = append(s.entities, e)
	}
}

func (s *SubChunk) AddItem(it *entities.WorldItem) {
	if it != nil {
		s.items = append(s.items, it)
	}
}

// Entities returns a copy of the entity list.
func (s *SubChunk) Entities() []*entities.WorldEntity {
	return append([]*entities.WorldEntity(nil), s.entities...)
}

// Items returns a copy of the item list.
func (s *SubChunk) Items() []*entities.WorldItem {
	return append([]*entities.WorldItem(nil), s.items...)
}

func (s *SubChunk) detach() {
	for _, e := range s.entities {
		e.Detach()
	}
	for _, it := range s.items {
		it.Detach()
	}
}
