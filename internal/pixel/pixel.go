package pixel

import "pixelmorph/internal/imaging"

// Point is an integer raster coordinate.
type Point struct {
	X int
	Y int
}

// Record identifies a single pixel of a working raster: its row-major
// index, its RGB color, and the position it was read from. Records are
// built once per run and never mutated afterwards.
type Record struct {
	ID    int
	Color [3]uint8
	Pos   Point
}

// Extract walks the raster in row-major order (y outer, x inner) and
// returns one Record per pixel with ID = y*W + x.
func Extract(r *imaging.Raster) []Record {
	records := make([]Record, 0, r.W*r.H)
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			records = append(records, Record{
				ID:    y*r.W + x,
				Color: r.At(x, y),
				Pos:   Point{X: x, Y: y},
			})
		}
	}
	return records
}
