package conversion

import (
	"fmt"

	"gocv.io/x/gocv"
)

// toOpenCVOrder returns a new Mat with RGB(A) reordered to BGR(A).
// Single-channel input is cloned.
func toOpenCVOrder(src gocv.Mat, channels int) (gocv.Mat, error) {
	dst := gocv.NewMat()

	switch channels {
	case 1:
		src.CopyTo(&dst)
	case 3:
		gocv.CvtColor(src, &dst, gocv.ColorRGBToBGR)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorRGBAToBGRA)
	default:
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", channels)
	}

	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("colour reordering produced an empty Mat")
	}
	return dst, nil
}
