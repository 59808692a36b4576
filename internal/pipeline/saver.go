package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"specimen-prep/internal/logger"
	"specimen-prep/internal/models"
	"specimen-prep/internal/opencv/conversion"

	"github.com/disintegration/imaging"
)

const saverComponent = "ImageSaver"

// Saver writes buffers to disk. The format follows the file extension.
type Saver struct {
	logger logger.Logger
	timing TimingTracker
}

func NewSaver(log logger.Logger, timing TimingTracker) *Saver {
	return &Saver{logger: log, timing: timing}
}

func (s *Saver) Save(path string, buf models.Buffer) error {
	ctx := s.timing.StartTiming(StageSave)
	defer s.timing.EndTiming(ctx)

	img, err := conversion.BufferToImage(buf)
	if err != nil {
		return fmt.Errorf("failed to convert buffer for %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := imaging.Save(img, path); err != nil {
		s.logger.Error(saverComponent, "failed to save image", err, map[string]interface{}{
			"path": path,
		})
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	s.logger.Debug(saverComponent, "image saved", map[string]interface{}{
		"path": path,
		"size": buf.String(),
	})

	return nil
}
