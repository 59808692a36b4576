package pipeline

import (
	"context"
)

// TimingTracker measures stage durations
type TimingTracker interface {
	StartTiming(operation string) context.Context
	EndTiming(ctx context.Context)
}

// Stage names recorded by the timing tracker.
const (
	StageLoad      = "load"
	StageScan      = "scan"
	StageRefine    = "refine"
	StageCrop      = "crop"
	StageAlpha     = "alpha"
	StageNormalize = "normalize"
	StageSave      = "save"
)
