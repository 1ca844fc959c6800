package render

import (
	"testing"

	"pixelmorph/internal/assign"
	"pixelmorph/internal/pixel"
)

func singleEntry(src, dst pixel.Point, color [3]uint8) assign.Mapping {
	return assign.Mapping{Entries: []assign.Entry{
		{ID: 0, Color: color, Src: src, Dst: dst},
	}}
}

func TestComposeFrameBoundaries(t *testing.T) {
	m := singleEntry(pixel.Point{X: 0, Y: 0}, pixel.Point{X: 3, Y: 3}, [3]uint8{255, 0, 0})

	start := ComposeFrame(m, 4, 4, 1, 0.0)
	if got := start.At(0, 0); got != ([3]uint8{255, 0, 0}) {
		t.Fatalf("t=0 frame: pixel not at source position, got %v", got)
	}
	if got := start.At(3, 3); got != ([3]uint8{0, 0, 0}) {
		t.Fatalf("t=0 frame: destination already occupied: %v", got)
	}

	end := ComposeFrame(m, 4, 4, 1, 1.0)
	if got := end.At(3, 3); got != ([3]uint8{255, 0, 0}) {
		t.Fatalf("t=1 frame: pixel not at destination, got %v", got)
	}
	if got := end.At(0, 0); got != ([3]uint8{0, 0, 0}) {
		t.Fatalf("t=1 frame: source still occupied: %v", got)
	}
}

func TestComposeFrameInterpolationRounds(t *testing.T) {
	// From x=0 to x=3 at t=0.5: 1.5 rounds to 2.
	m := singleEntry(pixel.Point{X: 0, Y: 0}, pixel.Point{X: 3, Y: 0}, [3]uint8{9, 9, 9})
	mid := ComposeFrame(m, 4, 1, 1, 0.5)
	if got := mid.At(2, 0); got != ([3]uint8{9, 9, 9}) {
		t.Fatalf("expected pixel at rounded midpoint x=2, row: %v %v %v %v",
			mid.At(0, 0), mid.At(1, 0), mid.At(2, 0), mid.At(3, 0))
	}
}

func TestComposeFrameMagnification(t *testing.T) {
	m := singleEntry(pixel.Point{X: 1, Y: 1}, pixel.Point{X: 1, Y: 1}, [3]uint8{10, 20, 30})
	const scale = 8
	frame := ComposeFrame(m, 2, 2, scale, 0.0)

	if frame.W != 2*scale || frame.H != 2*scale {
		t.Fatalf("frame is %dx%d, want %dx%d", frame.W, frame.H, 2*scale, 2*scale)
	}

	// The whole scale-by-scale block carries the entry's color.
	for dy := 0; dy < scale; dy++ {
		for dx := 0; dx < scale; dx++ {
			if got := frame.At(scale+dx, scale+dy); got != ([3]uint8{10, 20, 30}) {
				t.Fatalf("block pixel (%d,%d) = %v", scale+dx, scale+dy, got)
			}
		}
	}
	if got := frame.At(0, 0); got != ([3]uint8{0, 0, 0}) {
		t.Fatalf("outside the block should stay background, got %v", got)
	}
}

func TestComposeFrameLaterEntriesOverwrite(t *testing.T) {
	m := assign.Mapping{Entries: []assign.Entry{
		{ID: 0, Color: [3]uint8{1, 1, 1}, Src: pixel.Point{X: 0, Y: 0}, Dst: pixel.Point{X: 0, Y: 0}},
		{ID: 1, Color: [3]uint8{2, 2, 2}, Src: pixel.Point{X: 0, Y: 0}, Dst: pixel.Point{X: 0, Y: 0}},
	}}
	frame := ComposeFrame(m, 1, 1, 1, 0.0)
	if got := frame.At(0, 0); got != ([3]uint8{2, 2, 2}) {
		t.Fatalf("expected later entry to win, got %v", got)
	}
}

func TestComposeFrameClipsOutOfBounds(t *testing.T) {
	// A mapping authored for a larger grid: positions beyond the working
	// bounds clamp to the edge instead of panicking.
	m := singleEntry(pixel.Point{X: 9, Y: 9}, pixel.Point{X: 9, Y: 9}, [3]uint8{7, 7, 7})
	frame := ComposeFrame(m, 4, 4, 1, 0.0)
	if got := frame.At(3, 3); got != ([3]uint8{7, 7, 7}) {
		t.Fatalf("expected out-of-bounds position clipped to corner, got %v", got)
	}
}

func TestFinalImageMatchesComposeAtOne(t *testing.T) {
	m := singleEntry(pixel.Point{X: 0, Y: 0}, pixel.Point{X: 2, Y: 1}, [3]uint8{100, 150, 200})
	a := FinalImage(m, 3, 3, 2)
	b := ComposeFrame(m, 3, 3, 2, 1.0)
	if len(a.Pix) != len(b.Pix) {
		t.Fatalf("buffer sizes differ")
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("final image differs from t=1 frame at byte %d", i)
		}
	}
}
