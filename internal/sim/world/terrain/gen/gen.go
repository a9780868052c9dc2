// Package gen holds the coordinate-hash primitives shared by terrain
// decoration: clustered placement and permille scaling.
package gen

import "backrooms.dev/internal/sim/world/logic/mathx"

func FloorDiv(a, b int) int {
	return mathx.FloorDiv(a, b)
}

func Hash2(seed int64, x, y int) uint64 {
	return mathx.Hash2(seed, x, y)
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func ScalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

// CorruptionScale converts a corruption value into a permille multiplier:
// 1000 at zero corruption, growing by gain permille per corruption point.
func CorruptionScale(corruption float64, gain int) int {
	if corruption < 0 {
		corruption = 0
	}
	return 1000 + int(corruption*float64(gain))
}

// Roll reports whether the hashed coordinate falls under probPermille.
func Roll(seed int64, x, y int, probPermille uint64) bool {
	if probPermille == 0 {
		return false
	}
	return Hash2(seed, x, y)%1000 < probPermille
}

// InCluster reports whether (x,y) lies within radius of a hashed cluster center.
// Centers sit at most one per grid cell, each present with probPermille.
func InCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := FloorDiv(x, grid)
	gy := FloorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
