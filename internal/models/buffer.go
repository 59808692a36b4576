package models

import (
	"fmt"
)

// Buffer is an 8-bit image held row-major with interleaved channels,
// origin top-left. Channel 0 is treated as intensity. Colour buffers are
// RGB or RGBA with alpha last.
//
// Buffers are values: every operation in this module returns a new Buffer
// and leaves its input untouched.
type Buffer struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(height, width, channels int) (Buffer, error) {
	if height <= 0 || width <= 0 {
		return Buffer{}, fmt.Errorf("invalid buffer dimensions %dx%d", width, height)
	}
	if channels != 1 && channels != 3 && channels != 4 {
		return Buffer{}, fmt.Errorf("unsupported channel count: %d", channels)
	}

	return Buffer{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]uint8, height*width*channels),
	}, nil
}

// NewFilledBuffer allocates a buffer with every sample set to value.
func NewFilledBuffer(height, width, channels int, value uint8) (Buffer, error) {
	buf, err := NewBuffer(height, width, channels)
	if err != nil {
		return Buffer{}, err
	}
	for i := range buf.Pix {
		buf.Pix[i] = value
	}
	return buf, nil
}

// NewGrayFromRows builds a single-channel buffer from rows of equal length.
// Mostly useful for tests and small fixtures.
func NewGrayFromRows(rows [][]uint8) (Buffer, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Buffer{}, fmt.Errorf("empty rows")
	}

	buf, err := NewBuffer(len(rows), len(rows[0]), 1)
	if err != nil {
		return Buffer{}, err
	}
	for y, row := range rows {
		if len(row) != buf.Width {
			return Buffer{}, fmt.Errorf("row %d has %d columns, expected %d", y, len(row), buf.Width)
		}
		copy(buf.Pix[y*buf.Width:], row)
	}
	return buf, nil
}

// Empty reports whether the buffer holds no pixels.
func (b Buffer) Empty() bool {
	return b.Height <= 0 || b.Width <= 0 || len(b.Pix) == 0
}

// Validate checks that the sample slice matches the declared geometry.
func (b Buffer) Validate() error {
	if b.Empty() {
		return fmt.Errorf("buffer is empty")
	}
	if b.Channels != 1 && b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("unsupported channel count: %d", b.Channels)
	}
	if len(b.Pix) != b.Height*b.Width*b.Channels {
		return fmt.Errorf("buffer has %d samples, expected %d for %dx%dx%d",
			len(b.Pix), b.Height*b.Width*b.Channels, b.Width, b.Height, b.Channels)
	}
	return nil
}

// Offset returns the index of channel c of pixel (row, col) in Pix.
func (b Buffer) Offset(row, col, c int) int {
	return (row*b.Width+col)*b.Channels + c
}

// At returns channel c of pixel (row, col).
func (b Buffer) At(row, col, c int) uint8 {
	return b.Pix[b.Offset(row, col, c)]
}

// Intensity returns channel 0 of pixel (row, col).
func (b Buffer) Intensity(row, col int) uint8 {
	return b.Pix[(row*b.Width+col)*b.Channels]
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return Buffer{Height: b.Height, Width: b.Width, Channels: b.Channels, Pix: pix}
}

// Equal reports whether both buffers have the same geometry and samples.
func (b Buffer) Equal(other Buffer) bool {
	if b.Height != other.Height || b.Width != other.Width || b.Channels != other.Channels {
		return false
	}
	if len(b.Pix) != len(other.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// Gray extracts channel 0 as a new single-channel buffer.
func (b Buffer) Gray() Buffer {
	if b.Channels == 1 {
		return b.Clone()
	}

	gray := Buffer{Height: b.Height, Width: b.Width, Channels: 1, Pix: make([]uint8, b.Height*b.Width)}
	for i := range gray.Pix {
		gray.Pix[i] = b.Pix[i*b.Channels]
	}
	return gray
}

// Crop copies the pixels inside the inclusive box into a new buffer,
// keeping every channel.
func (b Buffer) Crop(box BoundingBox) (Buffer, error) {
	if err := box.ValidateWithin(b.Height, b.Width); err != nil {
		return Buffer{}, fmt.Errorf("crop: %w", err)
	}

	h, w := box.Height(), box.Width()
	out := Buffer{Height: h, Width: w, Channels: b.Channels, Pix: make([]uint8, h*w*b.Channels)}
	rowLen := w * b.Channels
	for y := 0; y < h; y++ {
		src := b.Offset(box.Top+y, box.Left, 0)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], b.Pix[src:src+rowLen])
	}
	return out, nil
}

// Paste returns a copy of b with src written at (top, left). src must have
// the same channel count and fit inside b.
func (b Buffer) Paste(src Buffer, top, left int) (Buffer, error) {
	if src.Channels != b.Channels {
		return Buffer{}, fmt.Errorf("paste: channel mismatch %d vs %d", src.Channels, b.Channels)
	}
	if top < 0 || left < 0 || top+src.Height > b.Height || left+src.Width > b.Width {
		return Buffer{}, fmt.Errorf("paste: %dx%d at (%d,%d) exceeds %dx%d",
			src.Width, src.Height, left, top, b.Width, b.Height)
	}

	out := b.Clone()
	rowLen := src.Width * src.Channels
	for y := 0; y < src.Height; y++ {
		dst := out.Offset(top+y, left, 0)
		copy(out.Pix[dst:dst+rowLen], src.Pix[y*rowLen:(y+1)*rowLen])
	}
	return out, nil
}

// String implements fmt.Stringer.
func (b Buffer) String() string {
	return fmt.Sprintf("%dx%dx%d", b.Width, b.Height, b.Channels)
}
