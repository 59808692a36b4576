// Package bounds locates the specimen inside a background-filled image.
//
// Scanner finds the box with four directional sweeps over the intensity
// channel. Refiner tightens a scanned box to the largest contour found in
// the crop, which ignores small blemishes in the background.
package bounds

import (
	"errors"
	"fmt"

	"specimen-prep/internal/config"
	"specimen-prep/internal/models"
	"specimen-prep/internal/processing/threshold"
)

// ErrNoForeground is returned when no pixel is at or below the background
// cutoff. Callers must not crop with the accompanying box.
var ErrNoForeground = errors.New("no foreground found")

// Scanner computes bounding boxes with independent directional sweeps.
type Scanner struct {
	th threshold.Thresholder
}

// NewScanner validates the thresholds.
func NewScanner(th config.Thresholds) (*Scanner, error) {
	t, err := threshold.New(th)
	if err != nil {
		return nil, err
	}
	return &Scanner{th: t}, nil
}

// Scan returns the box enclosing every pixel whose channel 0 is at or below
// the background cutoff. On an all-background image it returns the
// degenerate box (height, width, height, width) and ErrNoForeground.
func (s *Scanner) Scan(buf models.Buffer) (models.BoundingBox, error) {
	if err := buf.Validate(); err != nil {
		return models.BoundingBox{}, fmt.Errorf("scan: %w", err)
	}

	top := s.scanTop(buf)
	left := s.scanLeft(buf)
	bottom := s.scanBottom(buf, top, left)
	right := s.scanRight(buf, top, left)

	box := models.BoundingBox{Top: top, Left: left, Bottom: bottom, Right: right}
	if top == buf.Height {
		return box, ErrNoForeground
	}
	return box, nil
}

// scanTop walks columns left to right, only looking above the best row so
// far, until row 0 is reached.
func (s *Scanner) scanTop(buf models.Buffer) int {
	top := buf.Height
	for col := 0; col < buf.Width && top != 0; col++ {
		for row := 0; row < top; row++ {
			if s.th.IsForeground(buf.Intensity(row, col)) {
				top = row
				break
			}
		}
	}
	return top
}

// scanLeft walks rows top to bottom, only looking left of the best column
// so far, until column 0 is reached.
func (s *Scanner) scanLeft(buf models.Buffer) int {
	left := buf.Width
	for row := 0; row < buf.Height && left != 0; row++ {
		for col := 0; col < left; col++ {
			if s.th.IsForeground(buf.Intensity(row, col)) {
				left = col
				break
			}
		}
	}
	return left
}

// scanBottom walks columns from left, searching upward from the bottom edge
// for a foreground row below the best so far, until the last row is reached.
func (s *Scanner) scanBottom(buf models.Buffer, top, left int) int {
	bottom := top
	for col := left; col < buf.Width && bottom != buf.Height-1; col++ {
		for row := buf.Height - 1; row > bottom; row-- {
			if s.th.IsForeground(buf.Intensity(row, col)) {
				bottom = row
				break
			}
		}
	}
	return bottom
}

// scanRight walks rows from top, searching inward from the right edge for a
// foreground column right of the best so far, until the last column is
// reached.
func (s *Scanner) scanRight(buf models.Buffer, top, left int) int {
	right := left
	for row := top; row < buf.Height && right != buf.Width-1; row++ {
		for col := buf.Width - 1; col > right; col-- {
			if s.th.IsForeground(buf.Intensity(row, col)) {
				right = col
				break
			}
		}
	}
	return right
}
