package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"specimen-prep/internal/models"
)

type timingKey struct{}

type timingInfo struct {
	operation string
	start     time.Time
}

// Metrics records stage timings. It is safe for concurrent use by the
// batch workers.
type Metrics struct {
	mu      sync.RWMutex
	timings map[string][]time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		timings: make(map[string][]time.Duration),
	}
}

func (m *Metrics) StartTiming(operation string) context.Context {
	return context.WithValue(context.Background(), timingKey{}, timingInfo{
		operation: operation,
		start:     time.Now(),
	})
}

func (m *Metrics) EndTiming(ctx context.Context) {
	info, ok := ctx.Value(timingKey{}).(timingInfo)
	if !ok {
		return
	}

	duration := time.Since(info.start)

	m.mu.Lock()
	m.timings[info.operation] = append(m.timings[info.operation], duration)
	m.mu.Unlock()
}

// Count returns how many timings were recorded for operation.
func (m *Metrics) Count(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timings[operation])
}

func (m *Metrics) GetAverageTime(operation string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timings := m.timings[operation]
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range timings {
		total += d
	}
	return total / time.Duration(len(timings))
}

// Summary returns the average duration in milliseconds of every recorded
// operation, suitable as log fields.
func (m *Metrics) Summary() map[string]interface{} {
	m.mu.RLock()
	ops := make([]string, 0, len(m.timings))
	for op := range m.timings {
		ops = append(ops, op)
	}
	m.mu.RUnlock()
	sort.Strings(ops)

	summary := make(map[string]interface{}, len(ops))
	for _, op := range ops {
		summary[op+"_avg_ms"] = float64(m.GetAverageTime(op).Microseconds()) / 1000
	}
	return summary
}

// ResultMetrics describes how much of an image the specimen occupies.
type ResultMetrics struct {
	// CropRatio is the crop area divided by the source area.
	CropRatio float64
	// CanvasFill is the crop area divided by the canvas area.
	CanvasFill float64
	// Grown reports whether the canvas exceeded the target size.
	Grown bool
}

// CalculateResultMetrics derives ResultMetrics for a processed image.
func CalculateResultMetrics(src models.Buffer, result *models.ProcessingResult, targetH, targetW int) ResultMetrics {
	var rm ResultMetrics
	if src.Empty() || result == nil || result.Canvas.Empty() {
		return rm
	}

	cropArea := float64(src.Height * src.Width)
	if !result.NoForeground {
		cropArea = float64(result.Box.Height() * result.Box.Width())
	}

	rm.CropRatio = cropArea / float64(src.Height*src.Width)
	rm.CanvasFill = cropArea / float64(result.Canvas.Height*result.Canvas.Width)
	rm.Grown = result.Canvas.Height > targetH || result.Canvas.Width > targetW
	return rm
}
