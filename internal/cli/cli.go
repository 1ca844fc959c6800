package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"pixelmorph/internal/config"
	"pixelmorph/internal/pipeline"
	"pixelmorph/internal/storage"
)

type pipelineClient interface {
	Submit(job pipeline.Job) error
	Subscribe() (<-chan pipeline.Result, func())
}

// Root wires CLI commands to the pipeline.
type Root struct {
	pipeline pipelineClient
	cfg      *config.Config
	log      *slog.Logger
	store    *storage.Store
}

// NewRoot constructs the CLI root command.
func NewRoot(pl *pipeline.Pipeline, cfg *config.Config, logger *slog.Logger, store *storage.Store) *Root {
	return &Root{
		pipeline: pl,
		cfg:      cfg,
		log:      logger,
		store:    store,
	}
}

func (r *Root) enqueue(ctx context.Context, job pipeline.Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.pipeline.Submit(job); err != nil {
		return err
	}

	r.log.Info("job queued", "type", job.Type, "id", job.ID, "input", job.InputPath)
	return nil
}

func (r *Root) enqueueAndWait(ctx context.Context, job pipeline.Job) error {
	resCh, unsubscribe := r.pipeline.Subscribe()
	defer unsubscribe()
	if err := r.enqueue(ctx, job); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-resCh:
			if !ok {
				return fmt.Errorf("pipeline stopped before completion")
			}
			if res.Job.ID == job.ID {
				if res.Error != nil {
					return res.Error
				}
				return nil
			}
		}
	}
}

// paramOptions turns validated parameters into pipeline job options.
func paramOptions(p config.Params) map[string]any {
	return map[string]any{
		"size":     p.Size,
		"fps":      p.FPS,
		"duration": p.Duration,
		"scale":    p.Scale,
		"seed":     p.Seed,
		"format":   p.Format,
		"source":   "cli",
	}
}

func newID(prefix string) string {
	ts := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s-%s-%04d", prefix, ts, rand.Intn(10000))
}
