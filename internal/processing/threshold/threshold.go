// Package threshold classifies single-channel intensities against a
// threshold pair.
package threshold

import (
	"specimen-prep/internal/config"
)

// Class is the band an intensity falls into.
type Class int

const (
	// Foreground intensities are at or below the lower threshold.
	Foreground Class = iota
	// Transition intensities lie in (Min, Max].
	Transition
	// Background intensities are above the upper threshold.
	Background
)

func (c Class) String() string {
	switch c {
	case Foreground:
		return "foreground"
	case Transition:
		return "transition"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// Thresholder applies a validated threshold pair.
type Thresholder struct {
	min uint8
	max uint8
}

// New validates th and returns a Thresholder.
func New(th config.Thresholds) (Thresholder, error) {
	if err := th.Validate(); err != nil {
		return Thresholder{}, err
	}
	return Thresholder{min: uint8(th.Min), max: uint8(th.Max)}, nil
}

// Min returns the lower bound of the transition band.
func (t Thresholder) Min() uint8 { return t.min }

// Max returns the background cutoff.
func (t Thresholder) Max() uint8 { return t.max }

// Classify places v in one of the three bands.
func (t Thresholder) Classify(v uint8) Class {
	switch {
	case v > t.max:
		return Background
	case v > t.min:
		return Transition
	default:
		return Foreground
	}
}

// IsForeground reports whether v belongs to the specimen, transition band
// included.
func (t Thresholder) IsForeground(v uint8) bool {
	return v <= t.max
}

// IsBackground is the negation of IsForeground.
func (t Thresholder) IsBackground(v uint8) bool {
	return v > t.max
}
