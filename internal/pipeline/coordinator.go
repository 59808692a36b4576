package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"specimen-prep/internal/config"
	"specimen-prep/internal/logger"
	"specimen-prep/internal/models"
)

const coordinatorComponent = "PipelineCoordinator"

// Coordinator runs a batch of images through load, process and save with a
// fixed pool of workers.
type Coordinator struct {
	loader    ImageLoader
	processor ImageProcessor
	saver     ImageSaver
	metrics   *Metrics
	logger    logger.Logger
	workers   int
	outputDir string
	canvas    config.Canvas

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCoordinator wires the default loader, processor and saver from cfg.
func NewCoordinator(cfg config.Config, log logger.Logger) (*Coordinator, error) {
	metrics := NewMetrics()

	processor, err := NewProcessor(cfg, log, metrics)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		loader:    NewLoader(log, metrics),
		processor: processor,
		saver:     NewSaver(log, metrics),
		metrics:   metrics,
		logger:    log,
		workers:   cfg.Pipeline.Workers,
		outputDir: cfg.Pipeline.OutputDir,
		canvas:    cfg.Canvas,
	}, nil
}

func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

type outcome struct {
	result *models.ProcessingResult
	err    error
}

// Run processes every image named by inputs. Directories are expanded to
// the image files they contain and their layout is mirrored under the
// output directory. Per-image failures are counted and logged;
// cancellation of ctx stops the batch and is returned with the partial
// stats.
func (c *Coordinator) Run(ctx context.Context, inputs []string) (models.BatchStats, error) {
	start := time.Now()
	var stats models.BatchStats

	files, err := ExpandInputs(inputs)
	if err != nil {
		return stats, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	workers := c.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	c.logger.Info(coordinatorComponent, "batch started", map[string]interface{}{
		"images":  len(files),
		"workers": workers,
	})

	jobs := make(chan Input)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				result, err := c.processFile(in)
				select {
				case outcomes <- outcome{result: result, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, in := range files {
			select {
			case jobs <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		switch {
		case o.err != nil:
			stats.Failed++
		default:
			stats.Processed++
			if o.result.NoForeground {
				stats.NoForeground++
			}
			if o.result.Refined {
				stats.Refined++
			}
		}
	}

	stats.TotalTime = time.Since(start)

	fields := c.metrics.Summary()
	fields["processed"] = stats.Processed
	fields["failed"] = stats.Failed
	fields["no_foreground"] = stats.NoForeground
	fields["refined"] = stats.Refined
	fields["duration_ms"] = stats.TotalTime.Milliseconds()

	if err := ctx.Err(); err != nil {
		c.logger.Warning(coordinatorComponent, "batch cancelled", fields)
		return stats, fmt.Errorf("batch cancelled: %w", err)
	}

	c.logger.Info(coordinatorComponent, "batch completed", fields)
	return stats, nil
}

func (c *Coordinator) processFile(in Input) (*models.ProcessingResult, error) {
	fields := map[string]interface{}{"path": in.Path}

	data, err := c.loader.Load(in.Path)
	if err != nil {
		c.logger.Error(coordinatorComponent, "failed to load image", err, fields)
		return nil, err
	}

	result, err := c.processor.Process(data.Buffer)
	if err != nil {
		c.logger.Error(coordinatorComponent, "failed to process image", err, fields)
		return nil, err
	}

	if err := c.saver.Save(in.OutputPath(c.outputDir, ""), result.Canvas); err != nil {
		return nil, err
	}
	if result.Alpha != nil {
		if err := c.saver.Save(in.OutputPath(c.outputDir, "_alpha"), *result.Alpha); err != nil {
			return nil, err
		}
	}

	rm := CalculateResultMetrics(data.Buffer, result, c.canvas.Height, c.canvas.Width)
	c.logger.Info(coordinatorComponent, "image prepared", map[string]interface{}{
		"path":          in.Path,
		"output":        in.Name,
		"box":           result.Box.String(),
		"refined":       result.Refined,
		"no_foreground": result.NoForeground,
		"crop_ratio":    rm.CropRatio,
		"canvas_fill":   rm.CanvasFill,
		"grown":         rm.Grown,
	})

	return result, nil
}

// Shutdown cancels a running batch.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Input is one image file of a batch. Name is the output name without
// extension: the path relative to the directory it was found in, or the
// base name for files given directly. It always uses forward slashes.
type Input struct {
	Path string
	Name string
}

// OutputPath returns dir/Name+suffix+".png" in the host's path syntax.
func (in Input) OutputPath(dir, suffix string) string {
	return filepath.Join(dir, filepath.FromSlash(in.Name+suffix+".png"))
}

// ErrDuplicateOutput is returned when two inputs would write the same
// output file.
var ErrDuplicateOutput = errors.New("inputs map to the same output name")

// ExpandInputs resolves files and directories into image inputs sorted by
// output name. Directories are walked recursively and non-image files
// inside them are skipped; a file named explicitly is kept whatever its
// extension. A file reached twice is kept once. Two distinct files with the
// same output name are rejected.
func ExpandInputs(inputs []string) ([]Input, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no inputs given")
	}

	byPath := make(map[string]bool)
	byName := make(map[string]string)
	var files []Input

	add := func(path, rel string) error {
		clean := filepath.Clean(path)
		if byPath[clean] {
			return nil
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if other, ok := byName[name]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateOutput, other, path, name)
		}
		byPath[clean] = true
		byName[name] = path
		files = append(files, Input{Path: path, Name: name})
		return nil
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input: %w", err)
		}
		if !info.IsDir() {
			if err := add(input, filepath.Base(input)); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !IsImageFile(p) {
				return nil
			}
			rel, err := filepath.Rel(input, p)
			if err != nil {
				return err
			}
			return add(p, rel)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", input, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
