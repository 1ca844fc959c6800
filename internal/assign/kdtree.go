package assign

import (
	"math"
	"sort"

	"pixelmorph/internal/pixel"
)

// feature is a point in the nearest-neighbor matching space: normalized
// x, normalized y, raw luminance.
type feature [3]float64

func (a feature) dist2(b feature) float64 {
	var d float64
	for i := range a {
		v := a[i] - b[i]
		d += v * v
	}
	return d
}

type kdNode struct {
	idx   int
	axis  int
	left  *kdNode
	right *kdNode
}

type kdTree struct {
	pts  []feature
	root *kdNode
}

func newKDTree(pts []feature) *kdTree {
	t := &kdTree{pts: pts}
	idxs := make([]int, len(pts))
	for i := range idxs {
		idxs[i] = i
	}
	t.root = t.build(idxs, 0)
	return t
}

func (t *kdTree) build(idxs []int, depth int) *kdNode {
	if len(idxs) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(idxs, func(a, b int) bool {
		return t.pts[idxs[a]][axis] < t.pts[idxs[b]][axis]
	})
	mid := len(idxs) / 2
	return &kdNode{
		idx:   idxs[mid],
		axis:  axis,
		left:  t.build(idxs[:mid], depth+1),
		right: t.build(idxs[mid+1:], depth+1),
	}
}

// nearest returns the index of the point closest to q.
func (t *kdTree) nearest(q feature) int {
	best := -1
	bestDist := math.Inf(1)

	var walk func(n *kdNode)
	walk = func(n *kdNode) {
		if n == nil {
			return
		}
		if d := t.pts[n.idx].dist2(q); d < bestDist {
			bestDist = d
			best = n.idx
		}
		delta := q[n.axis] - t.pts[n.idx][n.axis]
		near, far := n.left, n.right
		if delta > 0 {
			near, far = far, near
		}
		walk(near)
		if delta*delta < bestDist {
			walk(far)
		}
	}
	walk(t.root)
	return best
}

// AssignNearest is the locality-aware alternative strategy: each source
// pixel is matched to its nearest target pixel in (x/size, y/size,
// luminance) space, with collisions resolved by probing forward over
// unused target indices in scan order. It trades the rank pairing's
// determinism-by-construction for spatial locality and can leave
// late-probed pixels with poor matches; no global optimality is
// attempted. The output contract is the same as Assign.
//
// size is the working grid size; pass 0 to infer it from the source
// positions (assumes a square grid).
func AssignNearest(src, dst []pixel.Record, size int) Mapping {
	if len(src) == 0 || len(dst) == 0 {
		return Mapping{Dropped: len(src) + len(dst)}
	}
	if size <= 0 {
		size = inferGridSize(src)
	}

	dstFeatures := make([]feature, len(dst))
	for i, p := range dst {
		dstFeatures[i] = feature{
			float64(p.Pos.X) / float64(size),
			float64(p.Pos.Y) / float64(size),
			Luminance(p.Color),
		}
	}
	tree := newKDTree(dstFeatures)

	n := min(len(src), len(dst))
	used := make([]bool, len(dst))
	entries := make([]Entry, 0, n)
	for k := 0; k < n; k++ {
		s := src[k]
		q := feature{
			float64(s.Pos.X) / float64(size),
			float64(s.Pos.Y) / float64(size),
			Luminance(s.Color),
		}
		tgt := tree.nearest(q)
		// Forward probing only; the last index absorbs saturation.
		for used[tgt] && tgt < len(dst)-1 {
			tgt++
		}
		used[tgt] = true
		entries = append(entries, Entry{
			ID:    s.ID,
			Color: s.Color,
			Src:   s.Pos,
			Dst:   dst[tgt].Pos,
		})
	}

	return Mapping{
		Entries: entries,
		Dropped: len(src) + len(dst) - 2*n,
	}
}

func inferGridSize(pool []pixel.Record) int {
	maxX, maxY := 0, 0
	for _, p := range pool {
		if p.Pos.X > maxX {
			maxX = p.Pos.X
		}
		if p.Pos.Y > maxY {
			maxY = p.Pos.Y
		}
	}
	return int(math.Round(float64(maxX+1+maxY+1) / 2))
}
