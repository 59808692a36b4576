package pipeline

import (
	"errors"
	"fmt"
	"time"

	"specimen-prep/internal/config"
	"specimen-prep/internal/logger"
	"specimen-prep/internal/models"
	"specimen-prep/internal/processing/alpha"
	"specimen-prep/internal/processing/bounds"
	"specimen-prep/internal/processing/canvas"
)

const processorComponent = "Processor"

// Processor chains scan, optional refinement, crop, optional alpha and
// canvas normalization for a single image.
type Processor struct {
	scanner    *bounds.Scanner
	refiner    *bounds.Refiner
	compositor *alpha.Compositor
	normalizer *canvas.Normalizer
	logger     logger.Logger
	timing     TimingTracker
}

// NewProcessor builds every stage from cfg. Refinement and alpha are only
// wired when enabled.
func NewProcessor(cfg config.Config, log logger.Logger, timing TimingTracker) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scanner, err := bounds.NewScanner(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	normalizer, err := canvas.NewNormalizer(cfg.Canvas)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		scanner:    scanner,
		normalizer: normalizer,
		logger:     log,
		timing:     timing,
	}

	if cfg.Pipeline.Refine {
		p.refiner, err = bounds.NewRefiner(cfg.Thresholds)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Pipeline.Alpha != config.AlphaNone {
		p.compositor, err = alpha.NewCompositor(cfg.Thresholds, cfg.Pipeline.Alpha)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Process runs the stages on buf. An image without foreground is not
// cropped: its whole intensity channel is normalized and the result is
// flagged NoForeground.
func (p *Processor) Process(buf models.Buffer) (*models.ProcessingResult, error) {
	start := time.Now()

	ctx := p.timing.StartTiming(StageScan)
	box, err := p.scanner.Scan(buf)
	p.timing.EndTiming(ctx)

	result := &models.ProcessingResult{}

	var crop models.Buffer
	switch {
	case errors.Is(err, bounds.ErrNoForeground):
		p.logger.Warning(processorComponent, "no foreground found, skipping crop", map[string]interface{}{
			"size": buf.String(),
		})
		result.NoForeground = true
		crop = buf
	case err != nil:
		return nil, fmt.Errorf("bounding box scan failed: %w", err)
	default:
		result.ScanBox = box
		result.Box = p.refine(buf, box, result)

		ctx = p.timing.StartTiming(StageCrop)
		crop, err = buf.Crop(result.Box)
		p.timing.EndTiming(ctx)
		if err != nil {
			return nil, fmt.Errorf("crop failed: %w", err)
		}
	}

	if p.compositor != nil {
		ctx = p.timing.StartTiming(StageAlpha)
		rgba, err := p.compositor.Apply(crop)
		p.timing.EndTiming(ctx)
		if err != nil {
			return nil, fmt.Errorf("alpha compositing failed: %w", err)
		}
		result.Alpha = &rgba
	}

	ctx = p.timing.StartTiming(StageNormalize)
	result.Canvas, err = p.normalizer.Normalize(crop.Gray())
	p.timing.EndTiming(ctx)
	if err != nil {
		return nil, fmt.Errorf("canvas normalization failed: %w", err)
	}

	result.ProcessTime = time.Since(start)

	fields := map[string]interface{}{
		"input_size":  buf.String(),
		"box":         result.Box.String(),
		"refined":     result.Refined,
		"canvas_size": result.Canvas.String(),
		"duration_ms": result.ProcessTime.Milliseconds(),
	}
	if p.compositor != nil {
		fields["alpha_mode"] = string(p.compositor.Mode())
	}
	p.logger.Debug(processorComponent, "image processed", fields)

	return result, nil
}

// refine returns the contour box when refinement is enabled and succeeds,
// and the scanned box otherwise.
func (p *Processor) refine(buf models.Buffer, box models.BoundingBox, result *models.ProcessingResult) models.BoundingBox {
	if p.refiner == nil {
		return box
	}

	ctx := p.timing.StartTiming(StageRefine)
	refined, err := p.refiner.Refine(buf, box)
	p.timing.EndTiming(ctx)

	if err != nil {
		fields := map[string]interface{}{"box": box.String()}
		if errors.Is(err, bounds.ErrNoContour) {
			p.logger.Debug(processorComponent, "no contour found, keeping scanned box", fields)
		} else {
			p.logger.Error(processorComponent, "contour refinement failed, keeping scanned box", err, fields)
		}
		return box
	}

	result.Refined = true
	return refined
}
