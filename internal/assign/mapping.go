package assign

import (
	"encoding/json"
	"fmt"
	"os"

	"pixelmorph/internal/pixel"
)

// Entry pairs one source pixel with one destination coordinate. Color
// is copied verbatim from the source pixel; Dst is always a position
// that existed in the target pixel pool.
type Entry struct {
	ID    int
	Color [3]uint8
	Src   pixel.Point
	Dst   pixel.Point
}

// Mapping is the ordered correspondence produced by an assignment
// strategy. Entry order is the assigner's pairing order (ascending
// luminance rank), not ID order. Dropped counts pool excess excluded by
// the truncation rule; it is not persisted.
type Mapping struct {
	Entries []Entry
	Dropped int
}

// entryJSON is the persisted wire shape: plain integer arrays so a
// round trip reproduces the structure exactly.
type entryJSON struct {
	ID    int    `json:"id"`
	Color [3]int `json:"color"`
	Src   [2]int `json:"src_pos"`
	Dst   [2]int `json:"dst_pos"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:    e.ID,
		Color: [3]int{int(e.Color[0]), int(e.Color[1]), int(e.Color[2])},
		Src:   [2]int{e.Src.X, e.Src.Y},
		Dst:   [2]int{e.Dst.X, e.Dst.Y},
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for _, c := range w.Color {
		if c < 0 || c > 255 {
			return fmt.Errorf("mapping entry %d: color component %d out of range", w.ID, c)
		}
	}
	e.ID = w.ID
	e.Color = [3]uint8{uint8(w.Color[0]), uint8(w.Color[1]), uint8(w.Color[2])}
	e.Src = pixel.Point{X: w.Src[0], Y: w.Src[1]}
	e.Dst = pixel.Point{X: w.Dst[0], Y: w.Dst[1]}
	return nil
}

// Save writes the mapping as a JSON array of entries in pairing order.
func (m Mapping) Save(path string) error {
	data, err := json.MarshalIndent(m.Entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

// Load reads a mapping previously written by Save.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("load mapping: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Mapping{}, fmt.Errorf("load mapping %s: %w", path, err)
	}
	return Mapping{Entries: entries}, nil
}
