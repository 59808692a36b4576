// Package canvas centres a cropped specimen on a background-filled canvas
// of fixed aspect ratio.
package canvas

import (
	"fmt"

	"specimen-prep/internal/config"
	"specimen-prep/internal/models"
)

// Normalizer pads grey crops onto a canvas of the configured size.
//
// Sources larger than the target are never shrunk. The canvas grows
// instead, keeping the target's aspect ratio, so the specimen keeps its
// native resolution.
type Normalizer struct {
	height     int
	width      int
	background uint8
}

// NewNormalizer validates the canvas geometry.
func NewNormalizer(c config.Canvas) (*Normalizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{height: c.Height, width: c.Width, background: uint8(c.Background)}, nil
}

// Size returns the canvas dimensions used for a source of h x w pixels.
func (n *Normalizer) Size(h, w int) (canvasH, canvasW int) {
	tallerThanTarget := h > n.height
	widerThanTarget := w > n.width

	switch {
	case tallerThanTarget && widerThanTarget:
		// h/height > w/width, compared without division
		if h*n.width > w*n.height {
			return h, h * n.width / n.height
		}
		return w * n.height / n.width, w
	case tallerThanTarget:
		return h, h * n.width / n.height
	case widerThanTarget:
		return w * n.height / n.width, w
	default:
		return n.height, n.width
	}
}

// Normalize returns a new single-channel buffer with src centred at
// ((canvasH-h)/2, (canvasW-w)/2) and every other pixel set to the
// background value.
func (n *Normalizer) Normalize(src models.Buffer) (models.Buffer, error) {
	if err := src.Validate(); err != nil {
		return models.Buffer{}, fmt.Errorf("normalize: %w", err)
	}
	if src.Channels != 1 {
		return models.Buffer{}, fmt.Errorf("normalize: expected a single-channel source, got %d channels", src.Channels)
	}

	canvasH, canvasW := n.Size(src.Height, src.Width)

	out, err := models.NewFilledBuffer(canvasH, canvasW, 1, n.background)
	if err != nil {
		return models.Buffer{}, fmt.Errorf("normalize: %w", err)
	}

	top := (canvasH - src.Height) / 2
	left := (canvasW - src.Width) / 2
	return out.Paste(src, top, left)
}
