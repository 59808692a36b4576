// Package alpha derives a transparency channel from intensity so that the
// near-white background of a specimen image becomes transparent.
package alpha

import (
	"fmt"

	"specimen-prep/internal/config"
	"specimen-prep/internal/models"
	"specimen-prep/internal/processing/threshold"
)

const opaque = 255

// Compositor turns a buffer into RGBA with an intensity-derived alpha.
type Compositor struct {
	th   threshold.Thresholder
	mode config.AlphaMode
}

// NewCompositor validates the thresholds and mode. AlphaNone is rejected:
// there is nothing to composite.
func NewCompositor(th config.Thresholds, mode config.AlphaMode) (*Compositor, error) {
	t, err := threshold.New(th)
	if err != nil {
		return nil, err
	}
	if !mode.Valid() || mode == config.AlphaNone {
		return nil, fmt.Errorf("%w: alpha mode %q cannot be composited", config.ErrInvalidConfig, mode)
	}
	return &Compositor{th: t, mode: mode}, nil
}

// Mode returns the configured alpha mode.
func (c *Compositor) Mode() config.AlphaMode {
	return c.mode
}

// Apply returns a new 4-channel buffer. Grey input is expanded to RGB, RGB
// input starts fully opaque and RGBA input keeps its alpha wherever the
// mode leaves it unchanged.
func (c *Compositor) Apply(buf models.Buffer) (models.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return models.Buffer{}, fmt.Errorf("alpha: %w", err)
	}

	out, err := toRGBA(buf)
	if err != nil {
		return models.Buffer{}, err
	}

	for i := 0; i < len(out.Pix); i += 4 {
		px := out.Pix[i : i+4 : i+4]
		switch c.mode {
		case config.AlphaBinary:
			px[3] = c.binary(px[0])
		case config.AlphaBinaryRGB:
			px[3] = c.binaryRGB(px[0], px[1], px[2])
		case config.AlphaProportional:
			px[3] = c.proportional(px[0], px[3])
		}
	}

	return out, nil
}

func (c *Compositor) binary(v uint8) uint8 {
	if c.th.IsBackground(v) {
		return 0
	}
	return opaque
}

func (c *Compositor) binaryRGB(r, g, b uint8) uint8 {
	if c.th.IsBackground(r) && c.th.IsBackground(g) && c.th.IsBackground(b) {
		return 0
	}
	return opaque
}

// proportional ramps linearly from opaque at Min to transparent at Max.
// Values at or below Min keep the current alpha.
func (c *Compositor) proportional(v, current uint8) uint8 {
	switch c.th.Classify(v) {
	case threshold.Background:
		return 0
	case threshold.Transition:
		lo, hi := int(c.th.Min()), int(c.th.Max())
		return uint8(opaque * (hi - int(v)) / (hi - lo))
	default:
		return current
	}
}

func toRGBA(buf models.Buffer) (models.Buffer, error) {
	out, err := models.NewBuffer(buf.Height, buf.Width, 4)
	if err != nil {
		return models.Buffer{}, err
	}

	n := buf.Height * buf.Width
	switch buf.Channels {
	case 1:
		for i := 0; i < n; i++ {
			v := buf.Pix[i]
			out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = v, v, v, opaque
		}
	case 3:
		for i := 0; i < n; i++ {
			copy(out.Pix[i*4:i*4+3], buf.Pix[i*3:i*3+3])
			out.Pix[i*4+3] = opaque
		}
	case 4:
		copy(out.Pix, buf.Pix)
	default:
		return models.Buffer{}, fmt.Errorf("unsupported channel count: %d", buf.Channels)
	}
	return out, nil
}
