package bounds

import (
	"errors"
	"fmt"

	"specimen-prep/internal/config"
	"specimen-prep/internal/models"
	"specimen-prep/internal/opencv/conversion"
	"specimen-prep/internal/opencv/safe"
	"specimen-prep/internal/processing/threshold"

	"gocv.io/x/gocv"
)

// ErrNoContour is returned when the thresholded crop has no contour at all.
// Callers keep the scanned box.
var ErrNoContour = errors.New("no contour found")

// Refiner tightens a scanned box to the bounding rectangle of the largest
// contour inside it.
type Refiner struct {
	th threshold.Thresholder
}

// NewRefiner validates the thresholds.
func NewRefiner(th config.Thresholds) (*Refiner, error) {
	t, err := threshold.New(th)
	if err != nil {
		return nil, err
	}
	return &Refiner{th: t}, nil
}

// Refine takes the region of channel 0 of buf covered by box, binarizes it
// at the background cutoff with the specimen set to 255 and returns the
// bounding rectangle of the contour with the largest area, in buf
// coordinates. When several contours share the largest area the first one
// found wins.
func (r *Refiner) Refine(buf models.Buffer, box models.BoundingBox) (models.BoundingBox, error) {
	if err := buf.Validate(); err != nil {
		return models.BoundingBox{}, fmt.Errorf("refine: %w", err)
	}

	if err := box.ValidateWithin(buf.Height, buf.Width); err != nil {
		return models.BoundingBox{}, fmt.Errorf("refine: %w", err)
	}

	gray, err := conversion.BufferToMat(buf.Gray())
	if err != nil {
		return models.BoundingBox{}, fmt.Errorf("refine: %w", err)
	}
	defer gray.Close()

	src := gray.Region(box.Rectangle())
	defer src.Close()

	if err := safe.ValidateMatForOperation(src, "contour refinement"); err != nil {
		return models.BoundingBox{}, err
	}

	// Background (> max) becomes 255, then inverted so the specimen is white.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(src, &binary, float32(r.th.Max()), 255, gocv.ThresholdBinary)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(binary, &inverted)

	contours := gocv.FindContours(inverted, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return models.BoundingBox{}, ErrNoContour
	}

	var largestIdx int
	var largestArea float64
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > largestArea {
			largestArea = area
			largestIdx = i
		}
	}

	rect := gocv.BoundingRect(contours.At(largestIdx))
	return models.FromRectangle(rect).Translate(box.Top, box.Left), nil
}
