package imaging

import "fmt"

// Raster is a packed 8-bit RGB image, rows stored top to bottom.
type Raster struct {
	W, H int
	Pix  []uint8 // len == W*H*3, R,G,B interleaved
}

// NewRaster allocates a zeroed (black) raster.
func NewRaster(w, h int) *Raster {
	return &Raster{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// At returns the RGB triple at (x, y). Callers must stay in bounds.
func (r *Raster) At(x, y int) [3]uint8 {
	i := (y*r.W + x) * 3
	return [3]uint8{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

// Set writes the RGB triple at (x, y).
func (r *Raster) Set(x, y int, c [3]uint8) {
	i := (y*r.W + x) * 3
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c[0], c[1], c[2]
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := NewRaster(r.W, r.H)
	copy(out.Pix, r.Pix)
	return out
}

// FillBlock writes c into every pixel of the w×h block whose top-left
// corner is (x, y), clipped to the raster bounds.
func (r *Raster) FillBlock(x, y, w, h int, c [3]uint8) {
	for yy := y; yy < y+h && yy < r.H; yy++ {
		if yy < 0 {
			continue
		}
		for xx := x; xx < x+w && xx < r.W; xx++ {
			if xx < 0 {
				continue
			}
			r.Set(xx, yy, c)
		}
	}
}

// DecodeError reports an input image that could not be interpreted.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
