package pixel

import (
	"testing"

	"pixelmorph/internal/imaging"
)

func TestExtractRowMajor(t *testing.T) {
	r := imaging.NewRaster(3, 2)
	r.Set(0, 0, [3]uint8{1, 0, 0})
	r.Set(1, 0, [3]uint8{2, 0, 0})
	r.Set(2, 0, [3]uint8{3, 0, 0})
	r.Set(0, 1, [3]uint8{4, 0, 0})
	r.Set(1, 1, [3]uint8{5, 0, 0})
	r.Set(2, 1, [3]uint8{6, 0, 0})

	records := Extract(r)
	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}

	for i, rec := range records {
		if rec.ID != i {
			t.Fatalf("record %d has ID %d; IDs must follow scan order", i, rec.ID)
		}
		wantPos := Point{X: i % 3, Y: i / 3}
		if rec.Pos != wantPos {
			t.Fatalf("record %d at %v, want %v", i, rec.Pos, wantPos)
		}
		if rec.Color[0] != uint8(i+1) {
			t.Fatalf("record %d color %v, want red=%d", i, rec.Color, i+1)
		}
	}
}

func TestExtractEmptyRaster(t *testing.T) {
	records := Extract(imaging.NewRaster(0, 0))
	if len(records) != 0 {
		t.Fatalf("expected no records for empty raster, got %d", len(records))
	}
}
