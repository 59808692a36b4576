// Package augment produces training variants of specimen images: additive
// Gaussian noise and rescaling by randomly drawn factors.
package augment

import (
	"fmt"
	"math"

	"specimen-prep/internal/models"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianNoise adds one normally distributed offset per pixel, truncated
// toward zero, to every colour channel and clips to [0,255]. Alpha is left
// as is. src may be nil to use the global source.
func GaussianNoise(buf models.Buffer, sigma float64, src rand.Source) (models.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return models.Buffer{}, fmt.Errorf("gaussian noise: %w", err)
	}
	if sigma < 0 || math.IsNaN(sigma) {
		return models.Buffer{}, fmt.Errorf("gaussian noise: invalid sigma %v", sigma)
	}

	out := buf.Clone()
	if sigma == 0 {
		return out, nil
	}

	colour := buf.Channels
	if colour == 4 {
		colour = 3
	}

	normal := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	for p := 0; p < buf.Height*buf.Width; p++ {
		offset := math.Trunc(normal.Rand())
		base := p * buf.Channels
		for c := 0; c < colour; c++ {
			out.Pix[base+c] = clip(float64(buf.Pix[base+c]) + offset)
		}
	}

	return out, nil
}

func clip(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
