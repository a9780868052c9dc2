package model

import "fmt"

// TilePos is a world tile coordinate on a single level.
type TilePos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p TilePos) Add(dx, dy int) TilePos { return TilePos{X: p.X + dx, Y: p.Y + dy} }

func (p TilePos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// ChunkKey identifies a chunk. Two live chunks never share a key.
type ChunkKey struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Level int `json:"level"`
}

func (k ChunkKey) String() string { return fmt.Sprintf("L%d[%d,%d]", k.Level, k.X, k.Y) }

// Less orders keys by level, then row, then column.
func (k ChunkKey) Less(o ChunkKey) bool {
	if k.Level != o.Level {
		return k.Level < o.Level
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.X < o.X
}

// Neighbor4 returns the key one chunk away in the given direction on the same level.
func (k ChunkKey) Neighbor4(dx, dy int) ChunkKey {
	return ChunkKey{X: k.X + dx, Y: k.Y + dy, Level: k.Level}
}
