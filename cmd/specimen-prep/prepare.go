package main

import (
	"context"
	"flag"
	"fmt"

	"specimen-prep/internal/config"
	"specimen-prep/internal/logger"
	"specimen-prep/internal/pipeline"
	"specimen-prep/internal/shutdown"
)

// prepareFlags holds the command line overrides for config values.
type prepareFlags struct {
	configPath string
	min        int
	max        int
	height     int
	width      int
	background int
	alpha      string
	refine     bool
	workers    int
	out        string
}

func newPrepareFlagSet(pf *prepareFlags) *flag.FlagSet {
	def := config.Default()

	fs := flag.NewFlagSet("prepare", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s prepare [flags] files-or-dirs...\n", AppName)
		fs.PrintDefaults()
	}
	fs.StringVar(&pf.configPath, "config", "", "TOML configuration file")
	fs.IntVar(&pf.min, "min", def.Thresholds.Min, "intensity at or below which a pixel is fully foreground")
	fs.IntVar(&pf.max, "max", def.Thresholds.Max, "intensity above which a pixel is background")
	fs.IntVar(&pf.height, "height", def.Canvas.Height, "canvas height")
	fs.IntVar(&pf.width, "width", def.Canvas.Width, "canvas width")
	fs.IntVar(&pf.background, "background", def.Canvas.Background, "canvas fill value")
	fs.StringVar(&pf.alpha, "alpha", string(def.Pipeline.Alpha), "alpha mode: none, binary, binary_rgb or proportional")
	fs.BoolVar(&pf.refine, "refine", def.Pipeline.Refine, "refine the box with contour analysis")
	fs.IntVar(&pf.workers, "workers", def.Pipeline.Workers, "number of images processed concurrently")
	fs.StringVar(&pf.out, "out", def.Pipeline.OutputDir, "output directory")
	return fs
}

// buildConfig loads the configuration file, if any, and applies only the
// flags that were given explicitly.
func buildConfig(fs *flag.FlagSet, pf *prepareFlags) (config.Config, error) {
	cfg := config.Default()
	if pf.configPath != "" {
		var err error
		cfg, err = config.Load(pf.configPath)
		if err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min":
			cfg.Thresholds.Min = pf.min
		case "max":
			cfg.Thresholds.Max = pf.max
		case "height":
			cfg.Canvas.Height = pf.height
		case "width":
			cfg.Canvas.Width = pf.width
		case "background":
			cfg.Canvas.Background = pf.background
		case "alpha":
			cfg.Pipeline.Alpha = config.AlphaMode(pf.alpha)
		case "refine":
			cfg.Pipeline.Refine = pf.refine
		case "workers":
			cfg.Pipeline.Workers = pf.workers
		case "out":
			cfg.Pipeline.OutputDir = pf.out
		}
	})

	return cfg, cfg.Validate()
}

func runPrepare(args []string, log logger.Logger) error {
	var pf prepareFlags
	fs := newPrepareFlagSet(&pf)
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := buildConfig(fs, &pf)
	if err != nil {
		return err
	}

	coordinator, err := pipeline.NewCoordinator(cfg, log)
	if err != nil {
		return err
	}

	mgr := shutdown.NewManager(context.Background(), log, shutdown.DefaultTimeout)
	mgr.Register(coordinator)
	mgr.Listen()
	defer mgr.Shutdown()

	stats, err := coordinator.Run(mgr.Context(), fs.Args())
	if err != nil {
		return err
	}

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", stats.Failed, stats.Failed+stats.Processed)
	}
	return nil
}
