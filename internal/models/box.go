package models

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned box in source pixel coordinates. All four
// edges are inclusive.
type BoundingBox struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int {
	return b.Bottom - b.Top + 1
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int {
	return b.Right - b.Left + 1
}

// Translate shifts the box by dy rows and dx columns.
func (b BoundingBox) Translate(dy, dx int) BoundingBox {
	return BoundingBox{
		Top:    b.Top + dy,
		Left:   b.Left + dx,
		Bottom: b.Bottom + dy,
		Right:  b.Right + dx,
	}
}

// Contains reports whether pixel (row, col) lies inside the box.
func (b BoundingBox) Contains(row, col int) bool {
	return row >= b.Top && row <= b.Bottom && col >= b.Left && col <= b.Right
}

// ValidateWithin checks 0 <= Top <= Bottom < height and 0 <= Left <= Right < width.
func (b BoundingBox) ValidateWithin(height, width int) error {
	if b.Top < 0 || b.Left < 0 || b.Top > b.Bottom || b.Left > b.Right ||
		b.Bottom >= height || b.Right >= width {
		return fmt.Errorf("box %v invalid for %dx%d image", b, width, height)
	}
	return nil
}

// FromRectangle converts a half-open image.Rectangle into an inclusive box.
func FromRectangle(r image.Rectangle) BoundingBox {
	return BoundingBox{
		Top:    r.Min.Y,
		Left:   r.Min.X,
		Bottom: r.Max.Y - 1,
		Right:  r.Max.X - 1,
	}
}

// Rectangle converts the box into a half-open image.Rectangle.
func (b BoundingBox) Rectangle() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right+1, b.Bottom+1)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(top=%d,left=%d,bottom=%d,right=%d)", b.Top, b.Left, b.Bottom, b.Right)
}
