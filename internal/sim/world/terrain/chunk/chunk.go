package chunk

import (
	"crypto/sha256"

	"backrooms.dev/internal/sim/world/feature/entities"
	modelpkg "backrooms.dev/internal/sim/world/kernel/model"
	"backrooms.dev/internal/sim/world/logic/mathx"
)

const (
	SubChunksPerSide = 8
	Size             = SubChunksPerSide * SubChunkSize // tiles per chunk side
	numSubChunks     = SubChunksPerSide * SubChunksPerSide
)

type (
	Key     = modelpkg.ChunkKey
	TilePos = modelpkg.TilePos
)

// SubIndex addresses a sub-chunk inside its parent (0..7 on each axis).
type SubIndex struct {
	X, Y int
}

func (i SubIndex) inBounds() bool {
	return i.X >= 0 && i.X < SubChunksPerSide && i.Y >= 0 && i.Y < SubChunksPerSide
}

// Chunk is an 8x8 block of sub-chunks (128x128 tiles).
type Chunk struct {
	Key Key

	// Corruption is the level's value captured when the chunk was requested.
	Corruption float64

	// Placeholder marks a best-effort chunk produced for a bad request.
	Placeholder bool

	subs [numSubChunks]SubChunk
}

func New(key Key, corruption float64) *Chunk {
	return &Chunk{Key: key, Corruption: corruption}
}

// Origin is the world tile of the chunk's (0,0) corner.
func (c *Chunk) Origin() TilePos {
	return TilePos{X: c.Key.X * Size, Y: c.Key.Y * Size}
}

func (c *Chunk) SubChunkAt(i SubIndex) (*SubChunk, error) {
	if !i.inBounds() {
		return nil, &BoundsError{What: "sub-chunk index", X: i.X, Y: i.Y, Extent: SubChunksPerSide}
	}
	return &c.subs[i.X+i.Y*SubChunksPerSide], nil
}

// WorldTileToSubChunk maps a world tile inside this chunk to its sub-chunk and local cell.
func (c *Chunk) WorldTileToSubChunk(p TilePos) (*SubChunk, SubIndex, LocalPos, error) {
	o := c.Origin()
	cx, cy := p.X-o.X, p.Y-o.Y
	if cx < 0 || cx >= Size || cy < 0 || cy >= Size {
		return nil, SubIndex{}, LocalPos{}, &BoundsError{What: "chunk tile", X: cx, Y: cy, Extent: Size}
	}
	si := SubIndex{X: cx / SubChunkSize, Y: cy / SubChunkSize}
	lp := LocalPos{X: cx % SubChunkSize, Y: cy % SubChunkSize}
	return &c.subs[si.X+si.Y*SubChunksPerSide], si, lp, nil
}

func (c *Chunk) TileAt(layer Layer, p TilePos) (Tile, error) {
	s, _, lp, err := c.WorldTileToSubChunk(p)
	if err != nil {
		return Empty, err
	}
	return s.Tile(layer, lp)
}

func (c *Chunk) SetTileAt(layer Layer, p TilePos, t Tile) (bool, error) {
	s, _, lp, err := c.WorldTileToSubChunk(p)
	if err != nil {
		return false, err
	}
	return s.SetTile(layer, lp, t)
}

// LocalTile reads chunk-relative coordinates (0..127) without bounds errors;
// out-of-range reads return Empty.
func (c *Chunk) LocalTile(layer Layer, x, y int) Tile {
	if x < 0 || x >= Size || y < 0 || y >= Size || layer < 0 || layer >= numLayers {
		return Empty
	}
	s := &c.subs[x/SubChunkSize+(y/SubChunkSize)*SubChunksPerSide]
	return s.at(layer, x%SubChunkSize, y%SubChunkSize)
}

// SetLocalTile writes chunk-relative coordinates and reports whether the value changed.
func (c *Chunk) SetLocalTile(layer Layer, x, y int, t Tile) (bool, error) {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return false, &BoundsError{What: "chunk tile", X: x, Y: y, Extent: Size}
	}
	s := &c.subs[x/SubChunkSize+(y/SubChunkSize)*SubChunksPerSide]
	return s.SetTile(layer, LocalPos{X: x % SubChunkSize, Y: y % SubChunkSize}, t)
}

func (c *Chunk) AllGenerated() bool {
	for i := range c.subs {
		if !c.subs[i].generated {
			return false
		}
	}
	return true
}

// Digest hashes both layers. Equal digests mean identical terrain.
func (c *Chunk) Digest() [32]byte {
	h := sha256.New()
	buf := make([]byte, subChunkCells)
	for i := range c.subs {
		for l := 0; l < numLayers; l++ {
			for j, t := range c.subs[i].layers[l] {
				buf[j] = byte(t)
			}
			h.Write(buf)
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (c *Chunk) Entities() []*entities.WorldEntity {
	var out []*entities.WorldEntity
	for i := range c.subs {
		out = append(out, c.subs[i].entities...)
	}
	return out
}

func (c *Chunk) Items() []*entities.WorldItem {
	var out []*entities.WorldItem
	for i := range c.subs {
		out = append(out, c.subs[i].items...)
	}
	return out
}

// DetachObservers severs all entity and item subscriptions.
func (c *Chunk) DetachObservers() {
	for i := range c.subs {
		c.subs[i].detach()
	}
}

// Count returns the number of base-layer tiles whose base type is b.
func (c *Chunk) Count(b Tile) int {
	n := 0
	for i := range c.subs {
		for _, t := range c.subs[i].layers[LayerBase] {
			if t.Base() == b {
				n++
			}
		}
	}
	return n
}

// CoordOf returns the chunk column/row containing a world tile.
func CoordOf(p TilePos) (x, y int) {
	return mathx.FloorDiv(p.X, Size), mathx.FloorDiv(p.Y, Size)
}

func KeyOf(p TilePos, level int) Key {
	x, y := CoordOf(p)
	return Key{X: x, Y: y, Level: level}
}

// LocalOf returns the chunk-relative coordinate of a world tile.
func LocalOf(p TilePos) (x, y int) {
	return mathx.Mod(p.X, Size), mathx.Mod(p.Y, Size)
}
