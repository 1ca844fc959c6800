package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"pixelmorph/internal/config"
	"pixelmorph/internal/storage"
	"pixelmorph/internal/tasks"
)

// router implements Processor and routes jobs to their concrete handlers.
type router struct {
	log      *slog.Logger
	store    *storage.Store
	morphFn  func(ctx context.Context, req tasks.MorphRequest) (tasks.MorphResult, error)
	assignFn func(ctx context.Context, req tasks.MorphRequest) (tasks.MorphResult, error)
	renderFn func(ctx context.Context, req tasks.RenderRequest) (tasks.MorphResult, error)
}

func newRouter(logger *slog.Logger, store *storage.Store) Processor {
	return &router{
		log:      logger,
		store:    store,
		morphFn:  tasks.RunMorph,
		assignFn: tasks.RunAssign,
		renderFn: tasks.RunRender,
	}
}

func (r *router) Process(ctx context.Context, job Job) Result {
	switch job.Type {
	case JobMorph:
		return r.handleMorph(ctx, job)
	case JobAssign:
		return r.handleAssign(ctx, job)
	case JobRender:
		return r.handleRender(ctx, job)
	default:
		return Result{Job: job, Error: fmt.Errorf("unknown job type: %s", job.Type)}
	}
}

func (r *router) handleMorph(ctx context.Context, job Job) Result {
	req := tasks.MorphRequest{
		SourcePath:  job.InputPath,
		TargetPath:  job.TargetPath,
		OutputDir:   job.Output,
		Params:      paramsFromOptions(job.Options),
		Strategy:    getStringOption(job.Options, "strategy"),
		KeepFrames:  getBoolOption(job.Options, "keepFrames"),
		PersistHold: getBoolOption(job.Options, "persistHold"),
	}

	res, err := r.morphFn(ctx, req)
	if err == nil && r.store != nil {
		_ = r.store.RecordRun(storage.MorphRunRecord{
			JobID:          job.ID,
			Seed:           req.Params.Seed,
			Size:           req.Params.Size,
			FPS:            req.Params.FPS,
			Duration:       req.Params.Duration,
			Scale:          req.Params.Scale,
			Format:         req.Params.Format,
			MappedPixels:   res.MappedPixels,
			DroppedPixels:  res.DroppedPixels,
			Frames:         res.Encode.Frames,
			HoldFrames:     res.Encode.HoldFrames,
			AnimationPath:  res.AnimationPath,
			MappingPath:    res.MappingPath,
			FinalImagePath: res.FinalImagePath,
			DiagnosticPath: res.DiagnosticPath,
		})
	}
	return Result{Job: job, Error: err, Meta: morphMeta(res)}
}

func (r *router) handleAssign(ctx context.Context, job Job) Result {
	req := tasks.MorphRequest{
		SourcePath: job.InputPath,
		TargetPath: job.TargetPath,
		OutputDir:  job.Output,
		Params:     paramsFromOptions(job.Options),
		Strategy:   getStringOption(job.Options, "strategy"),
	}

	res, err := r.assignFn(ctx, req)
	return Result{Job: job, Error: err, Meta: morphMeta(res)}
}

func (r *router) handleRender(ctx context.Context, job Job) Result {
	req := tasks.RenderRequest{
		MappingPath: job.InputPath,
		OutputDir:   job.Output,
		Params:      paramsFromOptions(job.Options),
		KeepFrames:  getBoolOption(job.Options, "keepFrames"),
		PersistHold: getBoolOption(job.Options, "persistHold"),
	}

	res, err := r.renderFn(ctx, req)
	return Result{Job: job, Error: err, Meta: morphMeta(res)}
}

func morphMeta(res tasks.MorphResult) map[string]any {
	return map[string]any{
		"mappedPixels":  res.MappedPixels,
		"droppedPixels": res.DroppedPixels,
		"animation":     res.AnimationPath,
		"mapping":       res.MappingPath,
		"finalImage":    res.FinalImagePath,
		"diagnostic":    res.DiagnosticPath,
		"frames":        res.Encode.Frames,
		"holdFrames":    res.Encode.HoldFrames,
		"bytes":         res.Encode.Size,
	}
}

// paramsFromOptions builds render parameters from job options, falling
// back to the package defaults for anything unspecified.
func paramsFromOptions(options map[string]any) config.Params {
	p := config.DefaultRender().Params()
	if v, ok := options["size"].(int); ok && v > 0 {
		p.Size = v
	}
	if v, ok := options["fps"].(int); ok && v > 0 {
		p.FPS = v
	}
	if v, ok := options["duration"].(float64); ok && v > 0 {
		p.Duration = v
	}
	if v, ok := options["scale"].(int); ok && v > 0 {
		p.Scale = v
	}
	switch v := options["seed"].(type) {
	case int:
		p.Seed = int64(v)
	case int64:
		p.Seed = v
	}
	if v, ok := options["format"].(string); ok && v != "" {
		p.Format = v
	}
	return p
}

// Helper functions to safely extract typed options from job.Options map
func getBoolOption(options map[string]any, key string) bool {
	if val, ok := options[key].(bool); ok {
		return val
	}
	return false
}

func getStringOption(options map[string]any, key string) string {
	if val, ok := options[key].(string); ok {
		return val
	}
	return ""
}
