package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func (r *Root) configShow(cmd *cobra.Command) error {
	cfgPath := os.Getenv("PIXELMORPH_CONFIG")
	if cfgPath == "" {
		cfgPath = "(default) ~/.config/pixelmorph/config.json"
	}
	cmd.Printf("Current configuration:\n")
	cmd.Printf("Config file: %s\n", cfgPath)
	cmd.Printf("\nRender defaults:\n")
	cmd.Printf("  Size: %d\n", r.cfg.Render.Size)
	cmd.Printf("  FPS: %d\n", r.cfg.Render.FPS)
	cmd.Printf("  Duration: %gs\n", r.cfg.Render.Duration)
	cmd.Printf("  Scale: %d\n", r.cfg.Render.Scale)
	cmd.Printf("  Seed: %d\n", r.cfg.Render.Seed)
	cmd.Printf("  Format: %s\n", r.cfg.Render.Format)
	cmd.Printf("\nLimits:\n")
	cmd.Printf("  Size: %d-%d\n", r.cfg.Limits.MinSize, r.cfg.Limits.MaxSize)
	cmd.Printf("  FPS: %d-%d\n", r.cfg.Limits.MinFPS, r.cfg.Limits.MaxFPS)
	cmd.Printf("  Duration: %g-%gs\n", r.cfg.Limits.MinDuration, r.cfg.Limits.MaxDuration)
	cmd.Printf("  Scale: %d-%d\n", r.cfg.Limits.MinScale, r.cfg.Limits.MaxScale)
	cmd.Printf("  Seed: %d-%d\n", r.cfg.Limits.MinSeed, r.cfg.Limits.MaxSeed)
	cmd.Printf("\nPaths:\n")
	cmd.Printf("  Output: %s\n", r.cfg.Paths.DefaultOutput)
	cmd.Printf("  Uploads: %s\n", r.cfg.Paths.UploadDir)
	cmd.Printf("  Database: %s\n", r.cfg.Paths.DatabasePath)
	cmd.Printf("\nServer:\n")
	cmd.Printf("  Addr: %s\n", r.cfg.Server.Addr)
	cmd.Printf("  Max upload: %d bytes\n", r.cfg.Server.MaxUploadSize)
	return nil
}
