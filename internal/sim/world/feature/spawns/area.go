package spawns

import "backrooms.dev/internal/sim/world/kernel/model"

// RingSquare returns the cells on the square ring at exactly radius, in
// row-major order. Radius 0 is the center alone.
func RingSquare(center model.TilePos, radius int) []model.TilePos {
	if radius <= 0 {
		return []model.TilePos{center}
	}
	out := make([]model.TilePos, 0, radius*8)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			adx, ady := dx, dy
			if adx < 0 {
				adx = -adx
			}
			if ady < 0 {
				ady = -ady
			}
			if adx != radius && ady != radius {
				continue
			}
			out = append(out, center.Add(dx, dy))
		}
	}
	return out
}
