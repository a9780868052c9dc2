package gen

import "testing"

func TestScalePermilleClamps(t *testing.T) {
	if got := ScalePermille(400, 3000); got != 1000 {
		t.Fatalf("ScalePermille=%d want 1000", got)
	}
	if got := ScalePermille(400, 0); got != 400 {
		t.Fatalf("ScalePermille default scale=%d want 400", got)
	}
	if got := ScalePermille(400, 1500); got != 600 {
		t.Fatalf("ScalePermille=%d want 600", got)
	}
}

func TestCorruptionScaleMonotonic(t *testing.T) {
	prev := CorruptionScale(0, 500)
	if prev != 1000 {
		t.Fatalf("scale at zero=%d", prev)
	}
	for _, c := range []float64{0.5, 1, 2, 4} {
		cur := CorruptionScale(c, 500)
		if cur <= prev {
			t.Fatalf("scale not increasing at %v: %d <= %d", c, cur, prev)
		}
		prev = cur
	}
	if CorruptionScale(-3, 500) != 1000 {
		t.Fatalf("negative corruption should clamp")
	}
}

func TestInClusterDeterministic(t *testing.T) {
	hits := 0
	for y := -64; y < 64; y++ {
		for x := -64; x < 64; x++ {
			a := InCluster(9, x, y, 32, 4, 600)
			if a != InCluster(9, x, y, 32, 4, 600) {
				t.Fatalf("InCluster not deterministic at %d,%d", x, y)
			}
			if a {
				hits++
			}
		}
	}
	if hits == 0 {
		t.Fatalf("expected some cluster hits")
	}
	if InCluster(9, 0, 0, 32, 4, 0) {
		t.Fatalf("zero probability must never hit")
	}
}
