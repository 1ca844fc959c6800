// Package diag renders the side-by-side diagnostic visualization. It is
// a pure consumer of a mapping and the two working rasters and never
// feeds anything back into the pipeline.
package diag

import (
	"pixelmorph/internal/assign"
	"pixelmorph/internal/imaging"
)

const maxArrows = 100

var arrowColor = [3]uint8{255, 0, 0}

// Render produces a 2×2 panel raster at twice the working size:
// source (top left), target (top right), the reconstruction implied by
// the mapping (bottom left), and sampled movement arrows over a dimmed
// target (bottom right). At most maxArrows arrows are drawn, skipping
// entries that barely move.
func Render(source, target *imaging.Raster, m assign.Mapping) *imaging.Raster {
	w, h := source.W, source.H
	out := imaging.NewRaster(w*2, h*2)

	blit(out, source, 0, 0)
	blit(out, target, w, 0)
	blit(out, reconstruction(m, w, h), 0, h)
	blit(out, arrowPanel(target, m), w, h)

	return out
}

// reconstruction places each entry's color at its destination position.
func reconstruction(m assign.Mapping, w, h int) *imaging.Raster {
	r := imaging.NewRaster(w, h)
	for _, e := range m.Entries {
		if e.Dst.X < 0 || e.Dst.X >= w || e.Dst.Y < 0 || e.Dst.Y >= h {
			continue
		}
		r.Set(e.Dst.X, e.Dst.Y, e.Color)
	}
	return r
}

func arrowPanel(target *imaging.Raster, m assign.Mapping) *imaging.Raster {
	panel := dim(target)

	if len(m.Entries) == 0 {
		return panel
	}
	step := len(m.Entries) / maxArrows
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(m.Entries); i += step {
		e := m.Entries[i]
		dx, dy := e.Dst.X-e.Src.X, e.Dst.Y-e.Src.Y
		// Only significant movements are worth an arrow.
		if abs(dx) <= 2 && abs(dy) <= 2 {
			continue
		}
		drawArrow(panel, e.Src.X, e.Src.Y, e.Dst.X, e.Dst.Y)
	}
	return panel
}

// dim returns a copy of r at roughly 30% brightness.
func dim(r *imaging.Raster) *imaging.Raster {
	out := r.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = uint8(int(v) * 30 / 100)
	}
	return out
}

// blit copies src into dst with its top-left corner at (ox, oy).
func blit(dst, src *imaging.Raster, ox, oy int) {
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			dst.Set(ox+x, oy+y, src.At(x, y))
		}
	}
}

// drawArrow draws a line from (x0,y0) to (x1,y1) with a short two-leg
// head at the destination end.
func drawArrow(r *imaging.Raster, x0, y0, x1, y1 int) {
	drawLine(r, x0, y0, x1, y1)

	dx, dy := x1-x0, y1-y0
	// Head legs point back along the dominant axis, offset sideways.
	sx, sy := sign(dx), sign(dy)
	drawLine(r, x1, y1, x1-2*sx-sy, y1-2*sy-sx)
	drawLine(r, x1, y1, x1-2*sx+sy, y1-2*sy+sx)
}

// drawLine is Bresenham, clipped to the raster bounds.
func drawLine(r *imaging.Raster, x0, y0, x1, y1 int) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	err := dx + dy

	x, y := x0, y0
	for {
		if x >= 0 && x < r.W && y >= 0 && y < r.H {
			r.Set(x, y, arrowColor)
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
