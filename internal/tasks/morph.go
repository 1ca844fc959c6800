package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"pixelmorph/internal/assign"
	"pixelmorph/internal/config"
	"pixelmorph/internal/diag"
	"pixelmorph/internal/fsutil"
	"pixelmorph/internal/imaging"
	"pixelmorph/internal/pixel"
	"pixelmorph/internal/render"
)

// Assignment strategies selectable per request.
const (
	StrategyLuminance = "luminance"
	StrategyNearest   = "nearest"
)

// MorphRequest describes a full morph job: two input images, rendering
// parameters, and an output directory that receives mapping.json,
// final_image.png, diagnostic.png, animation.<format> and frames/.
type MorphRequest struct {
	SourcePath  string
	TargetPath  string
	OutputDir   string
	Params      config.Params
	Strategy    string // StrategyLuminance (default) or StrategyNearest
	KeepFrames  bool
	PersistHold bool
}

// MorphResult captures artifact paths and run statistics.
type MorphResult struct {
	MappedPixels   int
	DroppedPixels  int
	AnimationPath  string
	MappingPath    string
	FinalImagePath string
	DiagnosticPath string
	FramesDir      string
	Encode         render.Result
}

// RunMorph executes the whole pipeline: load and resize both images to
// the square working size, extract pixel records, build the assignment,
// persist the mapping, render the final still, encode the animation and
// write the diagnostic panel. Callers are expected to have validated
// the parameters against the configured limits.
func RunMorph(ctx context.Context, req MorphRequest) (MorphResult, error) {
	logger := slog.Default()
	p := req.Params

	outDir, err := fsutil.EnsureOutputDir(req.OutputDir)
	if err != nil {
		return MorphResult{}, fmt.Errorf("create output directory: %w", err)
	}

	logger.Info("starting morph",
		"source", req.SourcePath,
		"target", req.TargetPath,
		"output", outDir,
		"size", p.Size,
		"seed", p.Seed,
		"strategy", strategyName(req.Strategy),
	)

	source, err := imaging.LoadSquare(req.SourcePath, p.Size)
	if err != nil {
		return MorphResult{}, err
	}
	target, err := imaging.LoadSquare(req.TargetPath, p.Size)
	if err != nil {
		return MorphResult{}, err
	}

	srcPixels := pixel.Extract(source)
	dstPixels := pixel.Extract(target)
	logger.Info("extracted pixels", "source", len(srcPixels), "target", len(dstPixels))

	mapping, err := buildMapping(srcPixels, dstPixels, req.Strategy, p)
	if err != nil {
		return MorphResult{}, err
	}
	if mapping.Dropped > 0 {
		logger.Warn("pixel pools truncated to shorter pool", "dropped", mapping.Dropped)
	}
	logger.Info("assignment complete", "mapped", len(mapping.Entries))

	res := MorphResult{
		MappedPixels:  len(mapping.Entries),
		DroppedPixels: mapping.Dropped,
		MappingPath:   filepath.Join(outDir, "mapping.json"),
	}
	if err := mapping.Save(res.MappingPath); err != nil {
		return MorphResult{}, err
	}

	res.FinalImagePath = filepath.Join(outDir, "final_image.png")
	final := render.FinalImage(mapping, p.Size, p.Size, p.Scale)
	if err := imaging.Save(final, res.FinalImagePath); err != nil {
		return MorphResult{}, fmt.Errorf("write final image: %w", err)
	}

	if req.KeepFrames {
		res.FramesDir = filepath.Join(outDir, "frames")
	}
	res.AnimationPath = filepath.Join(outDir, "animation."+p.Format)
	encRes, err := render.EncodeAnimation(ctx, mapping, p.Size, p.Size, render.Options{
		FPS:         p.FPS,
		Duration:    p.Duration,
		Scale:       p.Scale,
		Format:      p.Format,
		FramesDir:   res.FramesDir,
		PersistHold: req.PersistHold,
	}, res.AnimationPath)
	if err != nil {
		return MorphResult{}, err
	}
	res.Encode = encRes

	res.DiagnosticPath = filepath.Join(outDir, "diagnostic.png")
	if err := imaging.Save(diag.Render(source, target, mapping), res.DiagnosticPath); err != nil {
		// The diagnostic is cosmetic; the run's real outputs are done.
		logger.Warn("failed to write diagnostic", "path", res.DiagnosticPath, "error", err)
		res.DiagnosticPath = ""
	}

	logger.Info("morph complete",
		"animation", res.AnimationPath,
		"frames", encRes.Frames,
		"hold_frames", encRes.HoldFrames,
		"bytes", encRes.Size,
	)
	return res, nil
}

// RunAssign performs the load/extract/assign half of the pipeline and
// persists mapping.json and final_image.png without encoding an
// animation. Useful for auditing assignments or preparing replays.
func RunAssign(ctx context.Context, req MorphRequest) (MorphResult, error) {
	logger := slog.Default()
	p := req.Params

	outDir, err := fsutil.EnsureOutputDir(req.OutputDir)
	if err != nil {
		return MorphResult{}, fmt.Errorf("create output directory: %w", err)
	}

	source, err := imaging.LoadSquare(req.SourcePath, p.Size)
	if err != nil {
		return MorphResult{}, err
	}
	target, err := imaging.LoadSquare(req.TargetPath, p.Size)
	if err != nil {
		return MorphResult{}, err
	}

	mapping, err := buildMapping(pixel.Extract(source), pixel.Extract(target), req.Strategy, p)
	if err != nil {
		return MorphResult{}, err
	}
	logger.Info("assignment complete", "mapped", len(mapping.Entries), "dropped", mapping.Dropped)

	res := MorphResult{
		MappedPixels:  len(mapping.Entries),
		DroppedPixels: mapping.Dropped,
		MappingPath:   filepath.Join(outDir, "mapping.json"),
	}
	if err := mapping.Save(res.MappingPath); err != nil {
		return MorphResult{}, err
	}

	res.FinalImagePath = filepath.Join(outDir, "final_image.png")
	if err := imaging.Save(render.FinalImage(mapping, p.Size, p.Size, p.Scale), res.FinalImagePath); err != nil {
		return MorphResult{}, fmt.Errorf("write final image: %w", err)
	}

	res.DiagnosticPath = filepath.Join(outDir, "diagnostic.png")
	if err := imaging.Save(diag.Render(source, target, mapping), res.DiagnosticPath); err != nil {
		logger.Warn("failed to write diagnostic", "path", res.DiagnosticPath, "error", err)
		res.DiagnosticPath = ""
	}
	return res, nil
}

// RenderRequest replays a persisted mapping into a fresh animation,
// without touching the original input images.
type RenderRequest struct {
	MappingPath string
	OutputDir   string
	Params      config.Params
	KeepFrames  bool
	PersistHold bool
}

// RunRender loads a saved mapping and re-encodes the animation and
// final still from it. The mapping's coordinates must fit the working
// size in Params.
func RunRender(ctx context.Context, req RenderRequest) (MorphResult, error) {
	logger := slog.Default()
	p := req.Params

	mapping, err := assign.Load(req.MappingPath)
	if err != nil {
		return MorphResult{}, err
	}
	logger.Info("replaying mapping", "path", req.MappingPath, "entries", len(mapping.Entries))

	outDir, err := fsutil.EnsureOutputDir(req.OutputDir)
	if err != nil {
		return MorphResult{}, fmt.Errorf("create output directory: %w", err)
	}

	res := MorphResult{
		MappedPixels: len(mapping.Entries),
		MappingPath:  req.MappingPath,
	}

	res.FinalImagePath = filepath.Join(outDir, "final_image.png")
	if err := imaging.Save(render.FinalImage(mapping, p.Size, p.Size, p.Scale), res.FinalImagePath); err != nil {
		return MorphResult{}, fmt.Errorf("write final image: %w", err)
	}

	if req.KeepFrames {
		res.FramesDir = filepath.Join(outDir, "frames")
	}
	res.AnimationPath = filepath.Join(outDir, "animation."+p.Format)
	encRes, err := render.EncodeAnimation(ctx, mapping, p.Size, p.Size, render.Options{
		FPS:         p.FPS,
		Duration:    p.Duration,
		Scale:       p.Scale,
		Format:      p.Format,
		FramesDir:   res.FramesDir,
		PersistHold: req.PersistHold,
	}, res.AnimationPath)
	if err != nil {
		return MorphResult{}, err
	}
	res.Encode = encRes
	return res, nil
}

// buildMapping dispatches the selected assignment strategy. The rank
// pairing is strict here: both pools come from the same square resize,
// so a size mismatch means malformed input rather than the documented
// truncation case.
func buildMapping(src, dst []pixel.Record, strategy string, p config.Params) (assign.Mapping, error) {
	switch strategyName(strategy) {
	case StrategyNearest:
		return assign.AssignNearest(src, dst, p.Size), nil
	default:
		return assign.AssignStrict(src, dst, p.Seed)
	}
}

func strategyName(s string) string {
	if s == StrategyNearest {
		return StrategyNearest
	}
	return StrategyLuminance
}
