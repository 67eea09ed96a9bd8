package capture

import "image"

// bgrxToNRGBA converts a ZPixmap image in 32 bits per pixel, little-endian
// BGRX order, into an opaque NRGBA buffer. stride is the source row length
// in bytes; rows shorter than width*4 are treated as truncated and left
// transparent black.
func bgrxToNRGBA(data []byte, width, height, stride int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if stride < width*4 {
		stride = width * 4
	}
	for y := 0; y < height; y++ {
		src := y * stride
		dst := y * img.Stride
		for x := 0; x < width; x++ {
			i := src + x*4
			if i+2 >= len(data) {
				break
			}
			o := dst + x*4
			img.Pix[o+0] = data[i+2]
			img.Pix[o+1] = data[i+1]
			img.Pix[o+2] = data[i]
			img.Pix[o+3] = 0xff
		}
	}
	return img
}
