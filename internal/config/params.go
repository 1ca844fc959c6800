package config

import "fmt"

// Limits bounds the user-supplied rendering parameters. The working
// size is square and dominates computation time and memory.
type Limits struct {
	MinSize     int     `json:"min_size"`
	MaxSize     int     `json:"max_size"`
	MinFPS      int     `json:"min_fps"`
	MaxFPS      int     `json:"max_fps"`
	MinDuration float64 `json:"min_duration"`
	MaxDuration float64 `json:"max_duration"`
	MinScale    int     `json:"min_scale"`
	MaxScale    int     `json:"max_scale"`
	MinSeed     int64   `json:"min_seed"`
	MaxSeed     int64   `json:"max_seed"`
}

// DefaultLimits returns the stock parameter bounds.
func DefaultLimits() Limits {
	return Limits{
		MinSize:     32,
		MaxSize:     256,
		MinFPS:      1,
		MaxFPS:      120,
		MinDuration: 0.5,
		MaxDuration: 10.0,
		MinScale:    1,
		MaxScale:    16,
		MinSeed:     0,
		MaxSeed:     999999,
	}
}

// Formats lists the supported animation containers.
var Formats = []string{"mp4", "gif"}

// Params is the full rendering parameter set consumed by a morph run.
type Params struct {
	Size     int
	FPS      int
	Duration float64
	Scale    int
	Seed     int64
	Format   string
}

// ParamError reports a rendering parameter outside its allowed range.
type ParamError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// Validate rejects out-of-range parameters before any rendering work
// begins. The first offending parameter is reported as *ParamError.
func (l Limits) Validate(p Params) error {
	if p.Size < l.MinSize || p.Size > l.MaxSize {
		return &ParamError{"size", p.Size, fmt.Sprintf("must be between %d and %d", l.MinSize, l.MaxSize)}
	}
	if p.FPS < l.MinFPS || p.FPS > l.MaxFPS {
		return &ParamError{"fps", p.FPS, fmt.Sprintf("must be between %d and %d", l.MinFPS, l.MaxFPS)}
	}
	if p.Duration < l.MinDuration || p.Duration > l.MaxDuration {
		return &ParamError{"duration", p.Duration, fmt.Sprintf("must be between %g and %g", l.MinDuration, l.MaxDuration)}
	}
	if p.Scale < l.MinScale || p.Scale > l.MaxScale {
		return &ParamError{"scale", p.Scale, fmt.Sprintf("must be between %d and %d", l.MinScale, l.MaxScale)}
	}
	if p.Seed < l.MinSeed || p.Seed > l.MaxSeed {
		return &ParamError{"seed", p.Seed, fmt.Sprintf("must be between %d and %d", l.MinSeed, l.MaxSeed)}
	}
	if !validFormat(p.Format) {
		return &ParamError{"format", p.Format, fmt.Sprintf("must be one of %v", Formats)}
	}
	return nil
}

// Params fills a Params from the configured render defaults.
func (r Render) Params() Params {
	return Params{
		Size:     r.Size,
		FPS:      r.FPS,
		Duration: r.Duration,
		Scale:    r.Scale,
		Seed:     r.Seed,
		Format:   r.Format,
	}
}

func validFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
