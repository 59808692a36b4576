package augment

import (
	"fmt"
	"math"
	"sort"

	"specimen-prep/internal/models"
	"specimen-prep/internal/opencv/conversion"

	"github.com/nfnt/resize"
	"golang.org/x/exp/rand"
)

// Scale factors are 25/(20+d) for d drawn uniformly from [0, scaleSpread].
const (
	scaleNumerator = 25
	scaleBase      = 20
	scaleSpread    = 10
)

// MinScale and MaxScale bound the factors returned by ScaleList.
const (
	MinScale = float64(scaleNumerator) / (scaleBase + scaleSpread)
	MaxScale = float64(scaleNumerator) / scaleBase
)

// ScaleList returns n random scale factors in ascending order.
func ScaleList(n int, src rand.Source) []float64 {
	if n <= 0 {
		return nil
	}

	var rng *rand.Rand
	if src != nil {
		rng = rand.New(src)
	}

	scales := make([]float64, n)
	for i := range scales {
		var d int
		if rng != nil {
			d = rng.Intn(scaleSpread + 1)
		} else {
			d = rand.Intn(scaleSpread + 1)
		}
		scales[i] = float64(scaleNumerator) / float64(scaleBase+d)
	}
	sort.Float64s(scales)
	return scales
}

// Rescale resizes buf by factor with bilinear interpolation. The result is
// at least 1x1 and keeps the channel count of buf.
func Rescale(buf models.Buffer, factor float64) (models.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return models.Buffer{}, fmt.Errorf("rescale: %w", err)
	}
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return models.Buffer{}, fmt.Errorf("rescale: invalid factor %v", factor)
	}

	w := max(1, int(math.Round(float64(buf.Width)*factor)))
	h := max(1, int(math.Round(float64(buf.Height)*factor)))

	img, err := conversion.BufferToImage(buf)
	if err != nil {
		return models.Buffer{}, fmt.Errorf("rescale: %w", err)
	}

	out, err := conversion.ImageToBuffer(resize.Resize(uint(w), uint(h), img, resize.Bilinear))
	if err != nil {
		return models.Buffer{}, fmt.Errorf("rescale: %w", err)
	}

	if buf.Channels == 3 && out.Channels == 4 {
		return dropAlpha(out), nil
	}
	return out, nil
}

func dropAlpha(buf models.Buffer) models.Buffer {
	out := models.Buffer{Height: buf.Height, Width: buf.Width, Channels: 3, Pix: make([]uint8, buf.Height*buf.Width*3)}
	for p := 0; p < buf.Height*buf.Width; p++ {
		copy(out.Pix[p*3:p*3+3], buf.Pix[p*4:p*4+3])
	}
	return out
}
