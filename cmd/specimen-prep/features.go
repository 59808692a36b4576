package main

import (
	"flag"
	"fmt"

	"specimen-prep/internal/features"
	"specimen-prep/internal/logger"
	"specimen-prep/internal/pca"
)

func runFeatures(args []string, log logger.Logger) error {
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s features [flags] file\n", AppName)
		fs.PrintDefaults()
	}
	components := fs.Int("components", 0, "number of principal components to keep; 0 keeps all")
	noCache := fs.Bool("no-cache", false, "neither read nor write the parsed feature cache")
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	path := fs.Arg(0)

	set, err := features.Load(path, features.Options{UseCache: !*noCache, Logger: log})
	if err != nil {
		return err
	}

	model, err := pca.Train(set, path, pca.Options{Components: *components, Logger: log})
	if err != nil {
		return err
	}

	ratios := model.ExplainedVarianceRatio()
	var cumulative float64
	for _, r := range ratios {
		cumulative += r
	}
	_, kept := model.Dims()
	log.Info("Features", "explained variance", map[string]interface{}{
		"rows":       set.Len(),
		"dims":       set.Dims(),
		"components": kept,
		"explained":  cumulative,
		"first":      firstN(ratios, 5),
	})

	return nil
}

func firstN(v []float64, n int) []float64 {
	if len(v) < n {
		return v
	}
	return v[:n]
}
