package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pixelmorph/internal/cli"
	"pixelmorph/internal/config"
	"pixelmorph/internal/logging"
	"pixelmorph/internal/pipeline"
	"pixelmorph/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}

	store, err := storage.New(cfg.Paths.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe := pipeline.New(ctx, cfg.Processing.ParallelJobs, logger, store)
	defer pipe.Stop()

	rootCmd := cli.NewRootCmd(cfg, logger, store, pipe)
	return rootCmd.ExecuteContext(ctx)
}
