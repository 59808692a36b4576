package bounds

import (
	"math/rand"
	"testing"

	"specimen-prep/internal/config"
	"specimen-prep/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = config.Thresholds{Min: 125, Max: 250}

// white returns an all-background grey buffer.
func white(t *testing.T, h, w int) models.Buffer {
	t.Helper()
	buf, err := models.NewFilledBuffer(h, w, 1, 255)
	require.NoError(t, err)
	return buf
}

func set(buf models.Buffer, row, col int, v uint8) {
	buf.Pix[buf.Offset(row, col, 0)] = v
}

func TestScanSinglePixel(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf := white(t, 10, 12)
	set(buf, 4, 7, 0)

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 4, Left: 7, Bottom: 4, Right: 7}, box)
	assert.Equal(t, 1, box.Height())
	assert.Equal(t, 1, box.Width())
}

func TestScanRectangle(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf := white(t, 20, 30)
	for row := 3; row <= 11; row++ {
		for col := 5; col <= 22; col++ {
			set(buf, row, col, 100)
		}
	}

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 3, Left: 5, Bottom: 11, Right: 22}, box)
}

func TestScanThresholdEdge(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf := white(t, 6, 6)
	set(buf, 1, 1, 251)
	set(buf, 4, 2, 250)

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 4, Left: 2, Bottom: 4, Right: 2}, box)
}

func TestScanReachesEdges(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf := white(t, 8, 5)
	set(buf, 0, 3, 0)
	set(buf, 7, 0, 0)
	set(buf, 2, 4, 0)

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 0, Left: 0, Bottom: 7, Right: 4}, box)
}

func TestScanDiagonalPixels(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	// Right-most pixel sits above the left-most one, bottom-most left of the top-most.
	buf := white(t, 15, 15)
	set(buf, 2, 9, 10)
	set(buf, 6, 12, 10)
	set(buf, 8, 1, 10)
	set(buf, 13, 4, 10)

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 2, Left: 1, Bottom: 13, Right: 12}, box)
}

func TestScanNoForeground(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf := white(t, 7, 9)
	box, err := s.Scan(buf)
	assert.ErrorIs(t, err, ErrNoForeground)
	assert.Equal(t, models.BoundingBox{Top: 7, Left: 9, Bottom: 7, Right: 9}, box)
}

func TestScanUsesChannelZero(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	buf, err := models.NewFilledBuffer(4, 4, 3, 255)
	require.NoError(t, err)
	// Dark in green only: still background.
	buf.Pix[buf.Offset(1, 1, 1)] = 0
	// Dark in red: foreground.
	buf.Pix[buf.Offset(2, 3, 0)] = 0

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 2, Left: 3, Bottom: 2, Right: 3}, box)
}

func TestScanCustomThresholds(t *testing.T) {
	s, err := NewScanner(config.Thresholds{Min: 10, Max: 50})
	require.NoError(t, err)

	buf := white(t, 5, 5)
	set(buf, 1, 1, 100)
	set(buf, 3, 3, 50)

	box, err := s.Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, models.BoundingBox{Top: 3, Left: 3, Bottom: 3, Right: 3}, box)
}

func TestScanContainsAllForeground(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		h, w := 1+rng.Intn(25), 1+rng.Intn(25)
		buf := white(t, h, w)
		n := 1 + rng.Intn(6)
		for j := 0; j < n; j++ {
			set(buf, rng.Intn(h), rng.Intn(w), uint8(rng.Intn(251)))
		}

		box, err := s.Scan(buf)
		require.NoError(t, err)
		require.NoError(t, box.ValidateWithin(h, w))
		assert.GreaterOrEqual(t, box.Height(), 1)
		assert.GreaterOrEqual(t, box.Width(), 1)

		minRow, minCol, maxRow, maxCol := h, w, -1, -1
		for row := 0; row < h; row++ {
			for col := 0; col < w; col++ {
				if buf.Intensity(row, col) > 250 {
					continue
				}
				require.True(t, box.Contains(row, col), "pixel (%d,%d) outside %v", row, col, box)
				minRow, minCol = min(minRow, row), min(minCol, col)
				maxRow, maxCol = max(maxRow, row), max(maxCol, col)
			}
		}
		assert.Equal(t, models.BoundingBox{Top: minRow, Left: minCol, Bottom: maxRow, Right: maxCol}, box)
	}
}

func TestScanRejectsInvalidBuffer(t *testing.T) {
	s, err := NewScanner(defaultThresholds)
	require.NoError(t, err)

	_, err = s.Scan(models.Buffer{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoForeground)
}

func TestNewScannerInvalidConfig(t *testing.T) {
	_, err := NewScanner(config.Thresholds{Min: 250, Max: 250})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
