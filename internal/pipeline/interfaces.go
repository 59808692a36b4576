package pipeline

import (
	"specimen-prep/internal/models"
)

// ImageLoader decodes image files into buffers
type ImageLoader interface {
	Load(path string) (*models.ImageData, error)
}

// ImageSaver encodes buffers to image files
type ImageSaver interface {
	Save(path string, buf models.Buffer) error
}

// ImageProcessor runs the extraction and normalization stages on one image
type ImageProcessor interface {
	Process(buf models.Buffer) (*models.ProcessingResult, error)
}
