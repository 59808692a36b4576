package augment

import (
	"sort"
	"testing"

	"specimen-prep/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func rgbaFixture(t *testing.T) models.Buffer {
	t.Helper()
	buf, err := models.NewBuffer(16, 16, 4)
	require.NoError(t, err)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i * 7)
	}
	return buf
}

func TestGaussianNoiseZeroSigmaIsIdentity(t *testing.T) {
	src := rgbaFixture(t)
	out, err := GaussianNoise(src, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.True(t, src.Equal(out))
}

func TestGaussianNoiseKeepsAlphaAndRange(t *testing.T) {
	src := rgbaFixture(t)
	before := src.Clone()

	out, err := GaussianNoise(src, 40, rand.NewSource(42))
	require.NoError(t, err)
	assert.True(t, before.Equal(src), "input must not be modified")

	changed := false
	for p := 0; p < src.Height*src.Width; p++ {
		base := p * 4
		require.Equal(t, src.Pix[base+3], out.Pix[base+3])

		// One offset per pixel: every colour channel moves by the same amount
		// unless clipped.
		d0 := int(out.Pix[base]) - int(src.Pix[base])
		if d0 != 0 {
			changed = true
		}
		for c := 1; c < 3; c++ {
			v := int(src.Pix[base+c]) + d0
			if v >= 0 && v <= 255 && out.Pix[base] != 0 && out.Pix[base] != 255 {
				assert.Equal(t, uint8(v), out.Pix[base+c])
			}
		}
	}
	assert.True(t, changed)
}

func TestGaussianNoiseDeterministicWithSeed(t *testing.T) {
	src := rgbaFixture(t)
	a, err := GaussianNoise(src, 10, rand.NewSource(7))
	require.NoError(t, err)
	b, err := GaussianNoise(src, 10, rand.NewSource(7))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestGaussianNoiseClips(t *testing.T) {
	src, err := models.NewFilledBuffer(8, 8, 1, 255)
	require.NoError(t, err)

	out, err := GaussianNoise(src, 1000, rand.NewSource(3))
	require.NoError(t, err)

	var low, high bool
	for _, v := range out.Pix {
		low = low || v == 0
		high = high || v == 255
	}
	assert.True(t, low)
	assert.True(t, high)
}

func TestGaussianNoiseErrors(t *testing.T) {
	_, err := GaussianNoise(models.Buffer{}, 1, nil)
	assert.Error(t, err)

	_, err = GaussianNoise(rgbaFixture(t), -1, nil)
	assert.Error(t, err)
}

func TestScaleList(t *testing.T) {
	scales := ScaleList(200, rand.NewSource(9))
	require.Len(t, scales, 200)
	assert.True(t, sort.Float64sAreSorted(scales))

	seen := make(map[float64]bool)
	for _, s := range scales {
		assert.GreaterOrEqual(t, s, MinScale)
		assert.LessOrEqual(t, s, MaxScale)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 1)

	assert.InDelta(t, 25.0/30, MinScale, 1e-12)
	assert.InDelta(t, 1.25, MaxScale, 1e-12)

	assert.Nil(t, ScaleList(0, nil))
	assert.Len(t, ScaleList(3, nil), 3)
}

func TestRescale(t *testing.T) {
	tests := []struct {
		name    string
		h, w, c int
		factor  float64
		wantH   int
		wantW   int
	}{
		{name: "gray up", h: 20, w: 10, c: 1, factor: 1.25, wantH: 25, wantW: 13},
		{name: "gray down", h: 30, w: 30, c: 1, factor: 25.0 / 30, wantH: 25, wantW: 25},
		{name: "rgb keeps channels", h: 10, w: 10, c: 3, factor: 2, wantH: 20, wantW: 20},
		{name: "rgba", h: 10, w: 8, c: 4, factor: 0.5, wantH: 5, wantW: 4},
		{name: "never below one pixel", h: 3, w: 3, c: 1, factor: 0.01, wantH: 1, wantW: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := models.NewFilledBuffer(tt.h, tt.w, tt.c, 100)
			require.NoError(t, err)

			out, err := Rescale(src, tt.factor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantH, out.Height)
			assert.Equal(t, tt.wantW, out.Width)
			assert.Equal(t, tt.c, out.Channels)
		})
	}
}

func TestRescaleErrors(t *testing.T) {
	src, err := models.NewFilledBuffer(4, 4, 1, 0)
	require.NoError(t, err)

	_, err = Rescale(src, 0)
	assert.Error(t, err)
	_, err = Rescale(src, -2)
	assert.Error(t, err)
	_, err = Rescale(models.Buffer{}, 1)
	assert.Error(t, err)
}
