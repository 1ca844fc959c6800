package assign

import (
	"testing"

	"pixelmorph/internal/pixel"
)

func TestAssignNearestPrefersLocalMatches(t *testing.T) {
	// Identical 2x2 grids: every pixel's best match is its own position.
	colors := [][3]uint8{
		{10, 10, 10}, {60, 60, 60},
		{120, 120, 120}, {240, 240, 240},
	}
	src := gridPool(colors, 2)
	dst := gridPool(colors, 2)

	m := AssignNearest(src, dst, 2)
	if len(m.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(m.Entries))
	}
	for _, e := range m.Entries {
		if e.Src != e.Dst {
			t.Fatalf("pixel %d moved from %v to %v on identical grids", e.ID, e.Src, e.Dst)
		}
	}
}

func TestAssignNearestProbesPastUsedTargets(t *testing.T) {
	// All sources are drawn to the same dark target; collisions must
	// probe forward so every entry still gets a distinct position.
	src := gridPool([][3]uint8{
		{0, 0, 0}, {0, 0, 0},
		{0, 0, 0}, {0, 0, 0},
	}, 2)
	dst := gridPool([][3]uint8{
		{0, 0, 0}, {255, 255, 255},
		{255, 255, 255}, {255, 255, 255},
	}, 2)

	m := AssignNearest(src, dst, 2)
	seen := make(map[pixel.Point]bool)
	for _, e := range m.Entries {
		if seen[e.Dst] {
			t.Fatalf("target position %v assigned twice", e.Dst)
		}
		seen[e.Dst] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct target positions, got %d", len(seen))
	}
}

func TestAssignNearestTruncates(t *testing.T) {
	src := gridPool([][3]uint8{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}, 2)
	dst := gridPool([][3]uint8{{1, 1, 1}, {2, 2, 2}}, 2)

	m := AssignNearest(src, dst, 2)
	if len(m.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Entries))
	}
	if m.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", m.Dropped)
	}
}

func TestAssignNearestEmptyPools(t *testing.T) {
	m := AssignNearest(nil, gridPool([][3]uint8{{1, 1, 1}}, 1), 1)
	if len(m.Entries) != 0 || m.Dropped != 1 {
		t.Fatalf("expected empty mapping with 1 dropped, got %d entries, %d dropped",
			len(m.Entries), m.Dropped)
	}
}

func TestKDTreeNearestMatchesBruteForce(t *testing.T) {
	pts := []feature{
		{0.1, 0.2, 30}, {0.9, 0.1, 200}, {0.5, 0.5, 128},
		{0.3, 0.8, 64}, {0.7, 0.7, 90}, {0.2, 0.4, 15},
	}
	tree := newKDTree(pts)

	queries := []feature{
		{0.0, 0.0, 0}, {1.0, 1.0, 255}, {0.5, 0.5, 100}, {0.31, 0.79, 63},
	}
	for _, q := range queries {
		best, bestDist := -1, 0.0
		for i, p := range pts {
			if d := p.dist2(q); best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if got := tree.nearest(q); got != best {
			t.Fatalf("nearest(%v) = %d, brute force says %d", q, got, best)
		}
	}
}

func TestInferGridSize(t *testing.T) {
	pool := gridPool(make([][3]uint8, 16), 4)
	if got := inferGridSize(pool); got != 4 {
		t.Fatalf("inferGridSize = %d, want 4", got)
	}
}
