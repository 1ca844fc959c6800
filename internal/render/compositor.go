package render

import (
	"math"

	"pixelmorph/internal/assign"
	"pixelmorph/internal/imaging"
)

// ComposeFrame renders one magnified frame of the mapping at
// interpolation fraction t. Each entry's position is interpolated
// component-wise between Src and Dst, rounded, clipped into the working
// bounds, and drawn as a scale×scale block; entries landing on the same
// cell overwrite earlier ones with no blending. Pure and stateless, so
// frames can be evaluated at any t independently and out of order.
func ComposeFrame(m assign.Mapping, w, h, scale int, t float64) *imaging.Raster {
	out := imaging.NewRaster(w*scale, h*scale)
	for _, e := range m.Entries {
		x := clip(interp(e.Src.X, e.Dst.X, t), w)
		y := clip(interp(e.Src.Y, e.Dst.Y, t), h)
		out.FillBlock(x*scale, y*scale, scale, scale, e.Color)
	}
	return out
}

// FinalImage renders the destination layout: ComposeFrame at t=1.
func FinalImage(m assign.Mapping, w, h, scale int) *imaging.Raster {
	return ComposeFrame(m, w, h, scale, 1.0)
}

func interp(a, b int, t float64) int {
	return int(math.Round(float64(a) + float64(b-a)*t))
}

func clip(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v >= limit {
		return limit - 1
	}
	return v
}
