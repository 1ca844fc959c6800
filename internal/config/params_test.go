package config

import (
	"errors"
	"testing"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	limits := DefaultLimits()
	if err := limits.Validate(DefaultRender().Params()); err != nil {
		t.Fatalf("default parameters should validate, got %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	limits := DefaultLimits()
	base := DefaultRender().Params()

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"size too small", func(p *Params) { p.Size = 16 }},
		{"size too large", func(p *Params) { p.Size = 512 }},
		{"fps zero", func(p *Params) { p.FPS = 0 }},
		{"fps too high", func(p *Params) { p.FPS = 240 }},
		{"duration too short", func(p *Params) { p.Duration = 0.1 }},
		{"duration too long", func(p *Params) { p.Duration = 30 }},
		{"scale zero", func(p *Params) { p.Scale = 0 }},
		{"scale too large", func(p *Params) { p.Scale = 32 }},
		{"seed negative", func(p *Params) { p.Seed = -1 }},
		{"seed too large", func(p *Params) { p.Seed = 1000000 }},
		{"unknown format", func(p *Params) { p.Format = "webm" }},
		{"empty format", func(p *Params) { p.Format = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			err := limits.Validate(p)
			if err == nil {
				t.Fatalf("expected rejection")
			}
			var paramErr *ParamError
			if !errors.As(err, &paramErr) {
				t.Fatalf("expected *ParamError, got %T: %v", err, err)
			}
		})
	}
}

func TestValidateReportsOffendingParameter(t *testing.T) {
	limits := DefaultLimits()
	p := DefaultRender().Params()
	p.FPS = 500

	var paramErr *ParamError
	if err := limits.Validate(p); !errors.As(err, &paramErr) {
		t.Fatalf("expected *ParamError, got %v", err)
	}
	if paramErr.Name != "fps" {
		t.Fatalf("reported parameter %q, want fps", paramErr.Name)
	}
	if paramErr.Value != 500 {
		t.Fatalf("reported value %v, want 500", paramErr.Value)
	}
}

func TestRenderParamsCopiesAllFields(t *testing.T) {
	r := Render{Size: 64, FPS: 24, Duration: 2.5, Scale: 4, Seed: 7, Format: "gif"}
	p := r.Params()
	if p.Size != 64 || p.FPS != 24 || p.Duration != 2.5 || p.Scale != 4 || p.Seed != 7 || p.Format != "gif" {
		t.Fatalf("Params() lost a field: %+v", p)
	}
}
