package conversion

import (
	"fmt"

	"specimen-prep/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func matTypeForChannels(channels int) (gocv.MatType, error) {
	if err := safe.ValidateChannels(channels, "Mat type selection"); err != nil {
		return gocv.MatTypeCV8UC1, err
	}

	switch channels {
	case 3:
		return gocv.MatTypeCV8UC3, nil
	case 4:
		return gocv.MatTypeCV8UC4, nil
	default:
		return gocv.MatTypeCV8UC1, nil
	}
}
