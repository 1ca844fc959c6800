package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"pixelmorph/internal/config"
	"pixelmorph/internal/pipeline"
	"pixelmorph/internal/server"
	"pixelmorph/internal/storage"
	"pixelmorph/internal/tasks"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root Cobra command
func NewRootCmd(cfg *config.Config, log *slog.Logger, store *storage.Store, pipe *pipeline.Pipeline) *cobra.Command {
	root := NewRoot(pipe, cfg, log, store)

	rootCmd := &cobra.Command{
		Use:   "pixelmorph",
		Short: "Pixelmorph animates pixel migrations between two images",
		Long: `Pixelmorph pairs every pixel of a source image with a position derived
from a target image and renders the migration as an mp4 or gif, so the
source visually reorganizes itself into the target using only its own
pixels.`,
	}

	rootCmd.AddCommand(newMorphCmd(root))
	rootCmd.AddCommand(newAssignCmd(root))
	rootCmd.AddCommand(newRenderCmd(root))
	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newWatchCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))

	return rootCmd
}

// paramFlags registers the shared rendering parameter flags, seeded
// from the configured defaults.
func paramFlags(cmd *cobra.Command, root *Root, p *config.Params) {
	*p = root.cfg.Render.Params()
	cmd.Flags().IntVar(&p.Size, "size", p.Size, "square working size in pixels")
	cmd.Flags().IntVar(&p.FPS, "fps", p.FPS, "animation frames per second")
	cmd.Flags().Float64Var(&p.Duration, "duration", p.Duration, "animation duration in seconds")
	cmd.Flags().IntVar(&p.Scale, "scale", p.Scale, "output magnification factor")
	cmd.Flags().Int64Var(&p.Seed, "seed", p.Seed, "random seed for tie-breaking")
	cmd.Flags().StringVar(&p.Format, "format", p.Format, "animation container (mp4|gif)")
}

func newMorphCmd(root *Root) *cobra.Command {
	var (
		params      config.Params
		output      string
		strategy    string
		keepFrames  bool
		persistHold bool
	)

	cmd := &cobra.Command{
		Use:   "morph <source_image> <target_image>",
		Short: "Animate the source image's pixels into the target's arrangement",
		Long: `Resize both images to the working size, pair source and target pixels
by luminance rank (or spatial nearest-neighbor), then render the
migration as an animation plus mapping.json, final_image.png and a
diagnostic panel.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Limits.Validate(params); err != nil {
				return err
			}
			if output == "" {
				output = root.cfg.Paths.DefaultOutput
			}

			opts := paramOptions(params)
			opts["strategy"] = strategy
			opts["keepFrames"] = keepFrames
			opts["persistHold"] = persistHold

			job := pipeline.Job{
				ID:         newID("morph"),
				Type:       pipeline.JobMorph,
				InputPath:  args[0],
				TargetPath: args[1],
				Output:     output,
				Options:    opts,
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}

	paramFlags(cmd, root, &params)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&strategy, "strategy", tasks.StrategyLuminance, "assignment strategy (luminance|nearest)")
	cmd.Flags().BoolVar(&keepFrames, "keep-frames", false, "persist individual frames as PNGs")
	cmd.Flags().BoolVar(&persistHold, "persist-hold", false, "also persist the trailing hold frames")

	return cmd
}

func newAssignCmd(root *Root) *cobra.Command {
	var (
		params   config.Params
		output   string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "assign <source_image> <target_image>",
		Short: "Compute and persist a pixel assignment without animating",
		Long: `Run the pairing stage only: write mapping.json, final_image.png and the
diagnostic panel. The mapping can later be animated with "render".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Limits.Validate(params); err != nil {
				return err
			}
			if output == "" {
				output = root.cfg.Paths.DefaultOutput
			}

			opts := paramOptions(params)
			opts["strategy"] = strategy

			job := pipeline.Job{
				ID:         newID("assign"),
				Type:       pipeline.JobAssign,
				InputPath:  args[0],
				TargetPath: args[1],
				Output:     output,
				Options:    opts,
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}

	paramFlags(cmd, root, &params)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&strategy, "strategy", tasks.StrategyLuminance, "assignment strategy (luminance|nearest)")

	return cmd
}

func newRenderCmd(root *Root) *cobra.Command {
	var (
		params      config.Params
		output      string
		keepFrames  bool
		persistHold bool
	)

	cmd := &cobra.Command{
		Use:   "render <mapping.json>",
		Short: "Re-encode an animation from a saved mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Limits.Validate(params); err != nil {
				return err
			}
			if output == "" {
				output = root.cfg.Paths.DefaultOutput
			}

			opts := paramOptions(params)
			opts["keepFrames"] = keepFrames
			opts["persistHold"] = persistHold

			job := pipeline.Job{
				ID:        newID("render"),
				Type:      pipeline.JobRender,
				InputPath: args[0],
				Output:    output,
				Options:   opts,
			}
			return root.enqueueAndWait(cmd.Context(), job)
		},
	}

	paramFlags(cmd, root, &params)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&keepFrames, "keep-frames", false, "persist individual frames as PNGs")
	cmd.Flags().BoolVar(&persistHold, "persist-hold", false, "also persist the trailing hold frames")

	return cmd
}

func newServeCmd(root *Root) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start an HTTP server exposing uploads, job status, result downloads and
a live job-event feed over SSE and websocket.

Examples:
  pixelmorph serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				root.cfg.Server.Addr = addr
			}

			realPipeline, ok := root.pipeline.(*pipeline.Pipeline)
			if !ok {
				return fmt.Errorf("pipeline unavailable for server startup")
			}

			srv := server.New(root.cfg, root.log, realPipeline, root.store)
			root.log.Info("server ready",
				"addr", root.cfg.Server.Addr,
				"endpoints", []string{"/healthz", "/jobs", "/upload", "/status/{id}", "/result/{id}/{kind}", "/stream", "/ws"},
			)
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (host:port), overrides config")

	return cmd
}

func newWatchCmd(root *Root) *cobra.Command {
	var (
		params config.Params
		output string
	)

	cmd := &cobra.Command{
		Use:   "watch <directory>...",
		Short: "Watch directories for image pairs and morph them automatically",
		Long: `Monitor one or more drop directories. When both <name>.source.<ext> and
<name>.target.<ext> exist, a morph job is queued with the configured
defaults and results land under the output directory, keyed by name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Limits.Validate(params); err != nil {
				return err
			}
			if output == "" {
				output = root.cfg.Paths.DefaultOutput
			}

			watcher, err := tasks.NewWatcher(root.log, args...)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			watcher.Start()
			defer watcher.Stop()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					job := pipeline.Job{
						ID:         newID("watch"),
						Type:       pipeline.JobMorph,
						InputPath:  ev.SourcePath,
						TargetPath: ev.TargetPath,
						Output:     filepath.Join(output, filepath.Base(ev.Base)),
						Options:    paramOptions(params),
					}
					if err := root.enqueue(ctx, job); err != nil {
						root.log.Error("failed to queue watched pair", "base", ev.Base, "error", err)
					}
				}
			}
		},
	}

	paramFlags(cmd, root, &params)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")

	return cmd
}

func newConfigCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.configShow(cmd)
		},
	}
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Pixelmorph v1.0.0\n")
			cmd.Printf("Built with Go %s\n", runtime.Version())
		},
	}
}
