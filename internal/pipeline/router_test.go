package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"pixelmorph/internal/render"
	"pixelmorph/internal/tasks"
)

func TestRouterMorphPassesOptionsThrough(t *testing.T) {
	var gotReq tasks.MorphRequest
	r := &router{
		log: slog.Default(),
		morphFn: func(ctx context.Context, req tasks.MorphRequest) (tasks.MorphResult, error) {
			gotReq = req
			return tasks.MorphResult{
				MappedPixels:  4096,
				AnimationPath: "/out/animation.mp4",
				Encode:        render.Result{Frames: 120, HoldFrames: 30},
			}, nil
		},
	}

	job := Job{
		ID:         "morph-1",
		Type:       JobMorph,
		InputPath:  "/in/a.png",
		TargetPath: "/in/b.png",
		Output:     t.TempDir(),
		Options: map[string]any{
			"size":        64,
			"fps":         24,
			"duration":    2.0,
			"scale":       4,
			"seed":        7,
			"format":      "gif",
			"strategy":    "nearest",
			"keepFrames":  true,
			"persistHold": true,
		},
	}

	res := r.handleMorph(context.Background(), job)
	if res.Error != nil {
		t.Fatalf("expected nil error, got %v", res.Error)
	}
	if gotReq.SourcePath != "/in/a.png" || gotReq.TargetPath != "/in/b.png" {
		t.Fatalf("input paths not forwarded: %+v", gotReq)
	}
	if gotReq.Params.Size != 64 || gotReq.Params.FPS != 24 || gotReq.Params.Seed != 7 || gotReq.Params.Format != "gif" {
		t.Fatalf("parameters not forwarded: %+v", gotReq.Params)
	}
	if gotReq.Strategy != "nearest" || !gotReq.KeepFrames || !gotReq.PersistHold {
		t.Fatalf("flags not forwarded: %+v", gotReq)
	}
	if res.Meta["mappedPixels"] != 4096 || res.Meta["frames"] != 120 {
		t.Fatalf("unexpected meta: %v", res.Meta)
	}
}

func TestRouterMorphDefaultsUnsetOptions(t *testing.T) {
	var gotReq tasks.MorphRequest
	r := &router{
		log: slog.Default(),
		morphFn: func(ctx context.Context, req tasks.MorphRequest) (tasks.MorphResult, error) {
			gotReq = req
			return tasks.MorphResult{}, nil
		},
	}

	job := Job{ID: "morph-2", Type: JobMorph, Options: map[string]any{"fps": 60}}
	if res := r.handleMorph(context.Background(), job); res.Error != nil {
		t.Fatalf("expected nil error, got %v", res.Error)
	}
	if gotReq.Params.FPS != 60 {
		t.Fatalf("explicit fps lost: %+v", gotReq.Params)
	}
	if gotReq.Params.Size != 128 || gotReq.Params.Format != "mp4" || gotReq.Params.Seed != 42 {
		t.Fatalf("defaults not applied: %+v", gotReq.Params)
	}
}

func TestRouterRenderUsesMappingPath(t *testing.T) {
	var gotReq tasks.RenderRequest
	r := &router{
		log: slog.Default(),
		renderFn: func(ctx context.Context, req tasks.RenderRequest) (tasks.MorphResult, error) {
			gotReq = req
			return tasks.MorphResult{}, nil
		},
	}

	job := Job{
		ID:        "render-1",
		Type:      JobRender,
		InputPath: "/out/mapping.json",
		Output:    t.TempDir(),
		Options:   map[string]any{"format": "gif"},
	}
	if res := r.handleRender(context.Background(), job); res.Error != nil {
		t.Fatalf("expected nil error, got %v", res.Error)
	}
	if gotReq.MappingPath != "/out/mapping.json" {
		t.Fatalf("mapping path not forwarded: %+v", gotReq)
	}
	if gotReq.Params.Format != "gif" {
		t.Fatalf("format not forwarded: %+v", gotReq.Params)
	}
}

func TestRouterAssignPropagatesError(t *testing.T) {
	wantErr := errors.New("pool size mismatch")
	r := &router{
		log: slog.Default(),
		assignFn: func(ctx context.Context, req tasks.MorphRequest) (tasks.MorphResult, error) {
			return tasks.MorphResult{}, wantErr
		},
	}

	res := r.handleAssign(context.Background(), Job{ID: "assign-1", Type: JobAssign})
	if !errors.Is(res.Error, wantErr) {
		t.Fatalf("expected assignment error to propagate, got %v", res.Error)
	}
}

func TestRouterUnknownJobType(t *testing.T) {
	r := &router{log: slog.Default()}
	res := r.Process(context.Background(), Job{ID: "x", Type: JobType("bogus")})
	if res.Error == nil {
		t.Fatalf("expected error for unknown job type")
	}
}

func TestParamsFromOptionsIgnoresWrongTypes(t *testing.T) {
	p := paramsFromOptions(map[string]any{
		"size":   "big", // wrong type, ignored
		"fps":    -5,    // non-positive, ignored
		"seed":   int64(99),
		"format": "",
	})
	if p.Size != 128 || p.FPS != 30 || p.Format != "mp4" {
		t.Fatalf("defaults not preserved: %+v", p)
	}
	if p.Seed != 99 {
		t.Fatalf("int64 seed not accepted: %+v", p)
	}
}
