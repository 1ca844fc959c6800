package assign

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"pixelmorph/internal/pixel"
)

// noiseScale is the half-width of the uniform perturbation applied to
// luminance values before sorting. Small enough to only reorder exact
// ties on the 0-255 luminance range.
const noiseScale = 1e-6

// ErrPoolSizeMismatch is returned by AssignStrict when the two pixel
// pools differ in size. After the uniform square resize both pools must
// be equal, so a mismatch there means malformed input rather than the
// documented truncation case.
var ErrPoolSizeMismatch = errors.New("source and target pixel pools differ in size")

// Luminance computes perceptual brightness from RGB using the standard
// Rec. 601 channel weights.
func Luminance(c [3]uint8) float64 {
	return 0.299*float64(c[0]) + 0.587*float64(c[1]) + 0.114*float64(c[2])
}

// Assign builds the luminance-rank correspondence between source pixels
// and target positions. Both pools are sorted ascending by perturbed
// luminance and paired rank for rank. The perturbation comes from a
// locally constructed generator seeded with seed, drawn for the whole
// source pool first and then the whole target pool, so identical inputs
// always produce an identical Mapping.
//
// When the pools differ in size the pairing truncates to the shorter
// pool; the excess is excluded and counted in Mapping.Dropped. Callers
// that consider a size mismatch malformed input should use AssignStrict,
// the erroring variant.
func Assign(src, dst []pixel.Record, seed int64) Mapping {
	rng := rand.New(rand.NewSource(seed))

	srcOrder := luminanceOrder(src, rng)
	dstOrder := luminanceOrder(dst, rng)

	n := min(len(src), len(dst))
	entries := make([]Entry, 0, n)
	for k := 0; k < n; k++ {
		s := src[srcOrder[k]]
		d := dst[dstOrder[k]]
		entries = append(entries, Entry{
			ID:    s.ID,
			Color: s.Color,
			Src:   s.Pos,
			Dst:   d.Pos,
		})
	}

	return Mapping{
		Entries: entries,
		Dropped: len(src) + len(dst) - 2*n,
	}
}

// AssignStrict is Assign with the truncation rule disallowed: unequal
// pool sizes are reported as ErrPoolSizeMismatch instead of silently
// shrinking the mapping.
func AssignStrict(src, dst []pixel.Record, seed int64) (Mapping, error) {
	if len(src) != len(dst) {
		return Mapping{}, fmt.Errorf("%w: %d source vs %d target pixels",
			ErrPoolSizeMismatch, len(src), len(dst))
	}
	return Assign(src, dst, seed), nil
}

// luminanceOrder returns pool indices sorted ascending by perturbed
// luminance. The sort is stable so equal perturbed values keep their
// scan order.
func luminanceOrder(pool []pixel.Record, rng *rand.Rand) []int {
	lum := make([]float64, len(pool))
	for i, p := range pool {
		lum[i] = Luminance(p.Color) + (rng.Float64()*2-1)*noiseScale
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lum[order[a]] < lum[order[b]]
	})
	return order
}
