package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specimen-prep/internal/logger"
	"specimen-prep/internal/models"
	"specimen-prep/internal/opencv/conversion"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const loaderComponent = "ImageLoader"

// Loader decodes image files from disk. EXIF orientation is applied before
// conversion so sweeps see the specimen upright.
type Loader struct {
	logger logger.Logger
	timing TimingTracker
}

func NewLoader(log logger.Logger, timing TimingTracker) *Loader {
	return &Loader{logger: log, timing: timing}
}

func (l *Loader) Load(path string) (*models.ImageData, error) {
	ctx := l.timing.StartTiming(StageLoad)
	defer l.timing.EndTiming(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	buf, err := conversion.ImageToBuffer(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image %s: %w", path, err)
	}

	data := &models.ImageData{
		Path:     path,
		Format:   determineActualFormat(strings.ToLower(filepath.Ext(path))),
		Buffer:   buf,
		LoadTime: time.Now(),
		Metadata: models.ImageMetadata{
			FileSize:   info.Size(),
			ColorModel: fmt.Sprintf("%T", img),
		},
	}

	l.logger.Debug(loaderComponent, "image loaded", map[string]interface{}{
		"path":        path,
		"format":      data.Format,
		"size":        buf.String(),
		"size_bytes":  info.Size(),
		"color_model": data.Metadata.ColorModel,
	})

	return data, nil
}

func determineActualFormat(extension string) string {
	switch extension {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}

// IsImageFile reports whether path has an extension the loader decodes.
func IsImageFile(path string) bool {
	return determineActualFormat(strings.ToLower(filepath.Ext(path))) != "unknown"
}
