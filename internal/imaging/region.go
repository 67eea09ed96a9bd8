// Package imaging crops and resamples NRGBA pixel buffers.
package imaging

import (
	"image"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Rect is a region in source-device pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clamp validates r against a source of sw x sh pixels and truncates any
// overhang. An origin outside the source is an error; an overhanging width
// or height is cut to what is available.
func Clamp(r Rect, sw, sh int) (Rect, error) {
	if r.X < 0 || r.Y < 0 || r.X >= sw || r.Y >= sh {
		return Rect{}, shoterr.Errorf(shoterr.KindRegionOutOfBounds, shoterr.StageTransform, "crop",
			"origin (%d,%d) outside %dx%d", r.X, r.Y, sw, sh)
	}

	w := min(r.Width, sw-r.X)
	h := min(r.Height, sh-r.Y)
	if w <= 0 || h <= 0 {
		return Rect{}, shoterr.Errorf(shoterr.KindEmptyRegion, shoterr.StageTransform, "crop",
			"%dx%d at (%d,%d)", r.Width, r.Height, r.X, r.Y)
	}
	return Rect{X: r.X, Y: r.Y, Width: w, Height: h}, nil
}

// Crop copies the clamped region of src into a new buffer anchored at the
// origin. src is left untouched.
func Crop(src *image.NRGBA, x, y, w, h int) (*image.NRGBA, error) {
	b := src.Bounds()
	r, err := Clamp(Rect{X: x, Y: y, Width: w, Height: h}, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	rowBytes := r.Width * 4
	for row := 0; row < r.Height; row++ {
		srcOff := src.PixOffset(b.Min.X+r.X, b.Min.Y+r.Y+row)
		dstOff := row * dst.Stride
		copy(dst.Pix[dstOff:dstOff+rowBytes], src.Pix[srcOff:srcOff+rowBytes])
	}
	return dst, nil
}
