package main

import (
	"flag"
	"fmt"
	"time"

	"specimen-prep/internal/augment"
	"specimen-prep/internal/logger"
	"specimen-prep/internal/pipeline"

	"golang.org/x/exp/rand"
)

type augmentOptions struct {
	sigma  float64
	scales int
	seed   uint64
	out    string
}

// augmenter writes noisy and rescaled variants of each input.
type augmenter struct {
	opts   augmentOptions
	src    rand.Source
	loader *pipeline.Loader
	saver  *pipeline.Saver
	logger logger.Logger
}

func runAugment(args []string, log logger.Logger) error {
	var opts augmentOptions
	fs := flag.NewFlagSet("augment", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s augment [flags] files-or-dirs...\n", AppName)
		fs.PrintDefaults()
	}
	fs.Float64Var(&opts.sigma, "sigma", 0, "standard deviation of the Gaussian noise; 0 writes no noisy variant")
	fs.IntVar(&opts.scales, "scales", 0, "number of rescaled variants per image")
	fs.Uint64Var(&opts.seed, "seed", 0, "random seed; 0 seeds from the clock")
	fs.StringVar(&opts.out, "out", "augmented", "output directory")
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 || (opts.sigma == 0 && opts.scales == 0) {
		fs.Usage()
		return errUsage
	}

	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}

	inputs, err := pipeline.ExpandInputs(fs.Args())
	if err != nil {
		return err
	}

	metrics := pipeline.NewMetrics()
	a := &augmenter{
		opts:   opts,
		src:    rand.NewSource(opts.seed),
		loader: pipeline.NewLoader(log, metrics),
		saver:  pipeline.NewSaver(log, metrics),
		logger: log,
	}

	written, failed := a.run(inputs)

	fields := metrics.Summary()
	fields["images"] = len(inputs)
	fields["written"] = written
	fields["failed"] = failed
	fields["seed"] = opts.seed
	log.Info("Augment", "augmentation completed", fields)

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(inputs))
	}
	return nil
}

// run augments every input, logging and counting failures without
// stopping.
func (a *augmenter) run(inputs []pipeline.Input) (written, failed int) {
	for _, in := range inputs {
		n, err := a.augmentOne(in)
		written += n
		if err != nil {
			failed++
			a.logger.Error("Augment", "failed to augment image", err, map[string]interface{}{
				"path": in.Path,
			})
		}
	}
	return written, failed
}

func (a *augmenter) augmentOne(in pipeline.Input) (int, error) {
	data, err := a.loader.Load(in.Path)
	if err != nil {
		return 0, err
	}

	written := 0
	if a.opts.sigma > 0 {
		noisy, err := augment.GaussianNoise(data.Buffer, a.opts.sigma, a.src)
		if err != nil {
			return written, err
		}
		if err := a.saver.Save(in.OutputPath(a.opts.out, "_noise"), noisy); err != nil {
			return written, err
		}
		written++
	}

	for i, factor := range augment.ScaleList(a.opts.scales, a.src) {
		scaled, err := augment.Rescale(data.Buffer, factor)
		if err != nil {
			return written, err
		}
		if err := a.saver.Save(in.OutputPath(a.opts.out, fmt.Sprintf("_scale%02d", i)), scaled); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}
