package models

import (
	"time"
)

// ProcessingResult is the output of running one image through the
// extraction and normalization stages.
type ProcessingResult struct {
	// Box is the box the image was cropped to. It is the refined box when
	// Refined is set.
	Box BoundingBox

	// ScanBox is the box found by the directional sweeps.
	ScanBox BoundingBox

	Refined      bool
	NoForeground bool

	// Canvas is the normalized single-channel output.
	Canvas Buffer

	// Alpha is the RGBA crop, set only when an alpha mode is enabled.
	Alpha *Buffer

	ProcessTime time.Duration
}

// BatchStats summarises a batch run.
type BatchStats struct {
	Processed    int
	NoForeground int
	Refined      int
	Failed       int
	TotalTime    time.Duration
}
