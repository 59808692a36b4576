package models

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxRectangleRoundTrip(t *testing.T) {
	box := BoundingBox{Top: 2, Left: 3, Bottom: 6, Right: 9}

	r := box.Rectangle()
	assert.Equal(t, image.Rect(3, 2, 10, 7), r)
	assert.Equal(t, box.Width(), r.Dx())
	assert.Equal(t, box.Height(), r.Dy())
	assert.Equal(t, box, FromRectangle(r))
}

func TestBoundingBoxTranslateContains(t *testing.T) {
	box := BoundingBox{Top: 0, Left: 0, Bottom: 1, Right: 2}.Translate(4, 5)

	assert.Equal(t, BoundingBox{Top: 4, Left: 5, Bottom: 5, Right: 7}, box)
	assert.True(t, box.Contains(5, 7))
	assert.False(t, box.Contains(6, 7))
	assert.False(t, box.Contains(4, 4))
}

func TestBoundingBoxValidateWithin(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		ok   bool
	}{
		{name: "full image", box: BoundingBox{0, 0, 9, 19}, ok: true},
		{name: "single pixel", box: BoundingBox{3, 3, 3, 3}, ok: true},
		{name: "bottom past edge", box: BoundingBox{0, 0, 10, 5}},
		{name: "right past edge", box: BoundingBox{0, 0, 5, 20}},
		{name: "inverted", box: BoundingBox{5, 0, 4, 5}},
		{name: "negative", box: BoundingBox{-1, 0, 4, 5}},
		{name: "degenerate no-foreground box", box: BoundingBox{10, 20, 10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.ValidateWithin(10, 20)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBufferCropPasteLeaveInputUntouched(t *testing.T) {
	src, err := NewGrayFromRows([][]uint8{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	})
	assert.NoError(t, err)
	before := src.Clone()

	crop, err := src.Crop(BoundingBox{Top: 1, Left: 1, Bottom: 2, Right: 2})
	assert.NoError(t, err)
	assert.Equal(t, []uint8{5, 6, 8, 9}, crop.Pix)

	canvas, err := NewFilledBuffer(3, 3, 1, 0)
	assert.NoError(t, err)
	pasted, err := canvas.Paste(crop, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, []uint8{5, 6, 0, 8, 9, 0, 0, 0, 0}, pasted.Pix)
	assert.Equal(t, make([]uint8, 9), canvas.Pix)

	assert.True(t, before.Equal(src))

	_, err = canvas.Paste(crop, 2, 2)
	assert.Error(t, err)
}
