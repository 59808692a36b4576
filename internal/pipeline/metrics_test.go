package pipeline

import (
	"context"
	"testing"

	"specimen-prep/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMetricsTiming(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.EndTiming(m.StartTiming(StageScan))
	}
	m.EndTiming(context.Background())

	assert.Equal(t, 3, m.Count(StageScan))
	assert.Equal(t, 0, m.Count(StageSave))
	assert.Zero(t, m.GetAverageTime(StageSave))

	summary := m.Summary()
	assert.Contains(t, summary, "scan_avg_ms")
	assert.Len(t, summary, 1)
}

func TestCalculateResultMetrics(t *testing.T) {
	src := models.Buffer{Height: 40, Width: 20, Channels: 1, Pix: make([]uint8, 800)}
	canvas := models.Buffer{Height: 20, Width: 20, Channels: 1, Pix: make([]uint8, 400)}

	rm := CalculateResultMetrics(src, &models.ProcessingResult{
		Box:    models.BoundingBox{Top: 0, Left: 0, Bottom: 9, Right: 9},
		Canvas: canvas,
	}, 20, 20)
	assert.InDelta(t, 0.125, rm.CropRatio, 1e-9)
	assert.InDelta(t, 0.25, rm.CanvasFill, 1e-9)
	assert.False(t, rm.Grown)

	grown := models.Buffer{Height: 40, Width: 40, Channels: 1, Pix: make([]uint8, 1600)}
	rm = CalculateResultMetrics(src, &models.ProcessingResult{NoForeground: true, Canvas: grown}, 20, 20)
	assert.InDelta(t, 1.0, rm.CropRatio, 1e-9)
	assert.InDelta(t, 0.5, rm.CanvasFill, 1e-9)
	assert.True(t, rm.Grown)

	assert.Equal(t, ResultMetrics{}, CalculateResultMetrics(src, nil, 20, 20))
}
