package camera

import (
	"image"

	"github.com/disintegration/imaging"
)

// Cropper cuts a fixed window out of each camera's frame. An empty window leaves that camera's
// frames untouched.
type Cropper struct {
	Left  image.Rectangle
	Right image.Rectangle
}

// Transform crops both frames. ok is false when either window does not overlap its frame.
func (c *Cropper) Transform(left, right image.Image) (image.Image, image.Image, bool) {
	if c == nil {
		return left, right, true
	}
	croppedLeft, ok := crop(left, c.Left)
	if !ok {
		return nil, nil, false
	}
	croppedRight, ok := crop(right, c.Right)
	if !ok {
		return nil, nil, false
	}
	return croppedLeft, croppedRight, true
}

func crop(img image.Image, window image.Rectangle) (image.Image, bool) {
	if img == nil {
		return nil, false
	}
	if window.Empty() {
		return img, true
	}
	overlap := window.Intersect(img.Bounds())
	if overlap.Empty() {
		return nil, false
	}
	return imaging.Crop(img, overlap), true
}
