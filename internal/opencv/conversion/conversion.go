package conversion

import (
	"fmt"
	"image"
	"image/color"

	"specimen-prep/internal/models"
	"specimen-prep/internal/opencv/safe"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// BufferToMat copies a buffer into a new 8-bit Mat. Colour buffers are
// reordered to OpenCV's BGR/BGRA layout. The caller owns the Mat.
func BufferToMat(buf models.Buffer) (gocv.Mat, error) {
	if err := buf.Validate(); err != nil {
		return gocv.NewMat(), fmt.Errorf("buffer to Mat conversion: %w", err)
	}
	if err := safe.ValidateDimensions(buf.Width, buf.Height, "buffer to Mat conversion"); err != nil {
		return gocv.NewMat(), err
	}

	matType, err := matTypeForChannels(buf.Channels)
	if err != nil {
		return gocv.NewMat(), err
	}

	// NewMatFromBytes may reference the slice, so hand it a private copy and
	// clone before returning.
	data := make([]byte, len(buf.Pix))
	copy(data, buf.Pix)

	view, err := gocv.NewMatFromBytes(buf.Height, buf.Width, matType, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("Mat creation failed: %w", err)
	}
	defer view.Close()

	return toOpenCVOrder(view, buf.Channels)
}

// ImageToBuffer converts a decoded image. Grey images become one channel,
// everything else four channels of non-premultiplied RGBA.
func ImageToBuffer(img image.Image) (models.Buffer, error) {
	if img == nil {
		return models.Buffer{}, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	if err := safe.ValidateDimensions(bounds.Dx(), bounds.Dy(), "image to buffer conversion"); err != nil {
		return models.Buffer{}, err
	}

	switch typedImg := img.(type) {
	case *image.Gray:
		return grayImageToBuffer(typedImg)
	case *image.Gray16:
		return genericGrayToBuffer(typedImg)
	default:
		return nrgbaImageToBuffer(imaging.Clone(img))
	}
}

// BufferToImage converts a buffer into *image.Gray or *image.NRGBA.
func BufferToImage(buf models.Buffer) (image.Image, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("buffer to image conversion: %w", err)
	}

	switch buf.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
		for y := 0; y < buf.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+buf.Width], buf.Pix[y*buf.Width:(y+1)*buf.Width])
		}
		return img, nil
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				o := buf.Offset(y, x, 0)
				img.SetNRGBA(x, y, color.NRGBA{R: buf.Pix[o], G: buf.Pix[o+1], B: buf.Pix[o+2], A: 255})
			}
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
		rowLen := buf.Width * 4
		for y := 0; y < buf.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+rowLen], buf.Pix[y*rowLen:(y+1)*rowLen])
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", buf.Channels)
	}
}

func grayImageToBuffer(img *image.Gray) (models.Buffer, error) {
	b := img.Bounds()
	buf, err := models.NewBuffer(b.Dy(), b.Dx(), 1)
	if err != nil {
		return models.Buffer{}, err
	}

	for y := 0; y < buf.Height; y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf.Pix[y*buf.Width:(y+1)*buf.Width], img.Pix[start:start+buf.Width])
	}
	return buf, nil
}

func genericGrayToBuffer(img image.Image) (models.Buffer, error) {
	b := img.Bounds()
	buf, err := models.NewBuffer(b.Dy(), b.Dx(), 1)
	if err != nil {
		return models.Buffer{}, err
	}

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			buf.Pix[y*buf.Width+x] = g.Y
		}
	}
	return buf, nil
}

func nrgbaImageToBuffer(img *image.NRGBA) (models.Buffer, error) {
	b := img.Bounds()
	buf, err := models.NewBuffer(b.Dy(), b.Dx(), 4)
	if err != nil {
		return models.Buffer{}, err
	}

	rowLen := buf.Width * 4
	for y := 0; y < buf.Height; y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf.Pix[y*rowLen:(y+1)*rowLen], img.Pix[start:start+rowLen])
	}
	return buf, nil
}
