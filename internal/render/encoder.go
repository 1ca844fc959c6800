package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"pixelmorph/internal/assign"
	"pixelmorph/internal/imaging"
)

// ErrInvalidParams guards the encoder against degenerate numeric
// parameters. Range validation proper belongs to the caller; this is
// the fail-fast backstop before any rendering work begins.
var ErrInvalidParams = errors.New("invalid render parameters")

// EncodeError reports a container packaging failure. No partial-output
// cleanup is guaranteed.
type EncodeError struct {
	Format string
	Path   string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s to %s: %v", e.Format, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Options describes one animation encode.
type Options struct {
	FPS      int
	Duration float64 // seconds
	Scale    int
	Format   string // "mp4" or "gif"
	// FramesDir, when non-empty, receives one PNG per generated frame
	// named frame_%04d.png starting at 0. Hold frames are included only
	// when PersistHold is set.
	FramesDir   string
	PersistHold bool
}

// Result captures output metadata for an encoded animation.
type Result struct {
	Path       string
	Format     string
	Codec      string
	Size       int64 // file size in bytes
	Frames     int   // generated (non-hold) frames
	HoldFrames int
}

// FrameCount derives the number of generated frames from fps and
// duration: round(fps*duration), never less than one.
func FrameCount(fps int, duration float64) int {
	n := int(math.Round(float64(fps) * duration))
	if n < 1 {
		return 1
	}
	return n
}

// FrameFraction returns the interpolation fraction for frame idx of a
// numFrames-long sequence: idx/(numFrames-1), or 1.0 for a single frame.
func FrameFraction(idx, numFrames int) float64 {
	if numFrames <= 1 {
		return 1.0
	}
	return float64(idx) / float64(numFrames-1)
}

// EncodeAnimation drives the compositor across the frame sequence and
// packages the frames into the requested container via ffmpeg, feeding
// raw RGB24 frames over stdin. After the generated frames it appends
// fps repetitions of the final frame so the destination layout holds
// for about one second regardless of frame rate.
func EncodeAnimation(ctx context.Context, m assign.Mapping, w, h int, opts Options, outPath string) (Result, error) {
	logger := slog.Default()

	if opts.FPS < 1 || opts.Duration <= 0 || opts.Scale < 1 {
		return Result{}, fmt.Errorf("%w: fps=%d duration=%g scale=%d",
			ErrInvalidParams, opts.FPS, opts.Duration, opts.Scale)
	}

	codec, args, err := encodeArgs(opts, w, h, outPath)
	if err != nil {
		return Result{}, err
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, &EncodeError{Format: opts.Format, Path: outPath, Err: err}
		}
	}

	persistFrames := opts.FramesDir != ""
	if persistFrames {
		// A frames dir we cannot create at all means the destination
		// storage is unusable, which escalates past per-frame IO errors.
		if err := os.MkdirAll(opts.FramesDir, 0o755); err != nil {
			return Result{}, &EncodeError{Format: opts.Format, Path: opts.FramesDir, Err: err}
		}
	}

	numFrames := FrameCount(opts.FPS, opts.Duration)
	holdFrames := opts.FPS

	logger.Info("encoding animation",
		"output", outPath,
		"format", opts.Format,
		"codec", codec,
		"fps", opts.FPS,
		"duration", opts.Duration,
		"frames", numFrames,
		"hold_frames", holdFrames,
		"size", fmt.Sprintf("%dx%d", w*opts.Scale, h*opts.Scale),
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, &EncodeError{Format: opts.Format, Path: outPath, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return Result{}, &EncodeError{Format: opts.Format, Path: outPath, Err: err}
	}

	fail := func(cause error) (Result, error) {
		stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Result{}, &EncodeError{
			Format: opts.Format,
			Path:   outPath,
			Err:    fmt.Errorf("%v (ffmpeg: %s)", cause, lastLine(stderr.Bytes())),
		}
	}

	var persist func(frame *imaging.Raster, idx int)
	if persistFrames {
		persist = func(frame *imaging.Raster, idx int) {
			persistFrame(logger, frame, opts.FramesDir, idx)
		}
	}
	if err := streamFrames(m, w, h, opts, stdin, persist); err != nil {
		return fail(err)
	}

	if err := stdin.Close(); err != nil {
		return fail(err)
	}
	if err := cmd.Wait(); err != nil {
		return Result{}, &EncodeError{
			Format: opts.Format,
			Path:   outPath,
			Err:    fmt.Errorf("%v (ffmpeg: %s)", err, lastLine(stderr.Bytes())),
		}
	}

	stat, err := os.Stat(outPath)
	if err != nil {
		return Result{}, &EncodeError{Format: opts.Format, Path: outPath, Err: err}
	}

	return Result{
		Path:       outPath,
		Format:     opts.Format,
		Codec:      codec,
		Size:       stat.Size(),
		Frames:     numFrames,
		HoldFrames: holdFrames,
	}, nil
}

// streamFrames writes the animation's raw RGB24 byte stream to dst:
// the generated frames in sequence order, then FPS repetitions of the
// final frame as the terminal hold, for a total of
// FrameCount(fps, duration)+fps frames. persist, when non-nil, is
// called with every frame that gets a file of its own; hold frames are
// passed only when PersistHold is set, and the index keeps counting
// across the generated/hold boundary so filenames stay contiguous.
func streamFrames(m assign.Mapping, w, h int, opts Options, dst io.Writer, persist func(frame *imaging.Raster, idx int)) error {
	numFrames := FrameCount(opts.FPS, opts.Duration)

	var last *imaging.Raster
	persistIdx := 0
	for idx := 0; idx < numFrames; idx++ {
		frame := ComposeFrame(m, w, h, opts.Scale, FrameFraction(idx, numFrames))
		if persist != nil {
			persist(frame, persistIdx)
			persistIdx++
		}
		if _, err := dst.Write(frame.Pix); err != nil {
			return fmt.Errorf("write frame %d: %w", idx, err)
		}
		last = frame
	}

	for i := 0; i < opts.FPS; i++ {
		if persist != nil && opts.PersistHold {
			persist(last, persistIdx)
			persistIdx++
		}
		if _, err := dst.Write(last.Pix); err != nil {
			return fmt.Errorf("write hold frame %d: %w", i, err)
		}
	}
	return nil
}

// encodeArgs builds the ffmpeg invocation for the requested container.
// Input is always raw RGB24 on stdin at the output frame rate.
func encodeArgs(opts Options, w, h int, outPath string) (codec string, args []string, err error) {
	base := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", w*opts.Scale, h*opts.Scale),
		"-framerate", fmt.Sprint(opts.FPS),
		"-i", "-",
	}

	switch opts.Format {
	case "mp4":
		codec = "libx264"
		args = append(base,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-crf", "18",
			"-movflags", "+faststart",
			outPath,
		)
	case "gif":
		codec = "gif"
		args = append(base,
			"-loop", "0",
			outPath,
		)
	default:
		return "", nil, &EncodeError{
			Format: opts.Format,
			Path:   outPath,
			Err:    fmt.Errorf("unsupported format: %s", opts.Format),
		}
	}
	return codec, args, nil
}

// persistFrame writes one frame PNG. Individual write failures are
// logged and otherwise ignored; the animation encode keeps going.
func persistFrame(logger *slog.Logger, frame *imaging.Raster, dir string, idx int) {
	path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", idx))
	if err := imaging.Save(frame, path); err != nil {
		logger.Warn("failed to persist frame", "frame", idx, "path", path, "error", err)
	}
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(lines[len(lines)-1])
}
