// Package codec encodes pixel buffers into raster files and decodes them
// back.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// JPEGQuality is the fixed quality used for lossy output.
const JPEGQuality = 90

// Encode writes img in the requested format.
func Encode(img image.Image, format Format) ([]byte, error) {
	if img == nil {
		return nil, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageEncode, "encode", "nil image")
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case PNG:
		err = png.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case BMP:
		err = bmp.Encode(&buf, img)
	case TIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, shoterr.Errorf(shoterr.KindUnsupportedFormat, shoterr.StageEncode, "encode", "format %d", int(format))
	}
	if err != nil {
		return nil, shoterr.New(shoterr.KindInvalid, shoterr.StageEncode, "encode "+format.String(), err)
	}
	return buf.Bytes(), nil
}

// Decode reads any supported raster file into a straight-alpha NRGBA
// buffer anchored at the origin.
func Decode(data []byte) (*image.NRGBA, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, shoterr.New(shoterr.KindCorrupt, shoterr.StageEncode, "decode", err)
	}
	if _, err := ParseFormat(name); err != nil {
		return nil, shoterr.Errorf(shoterr.KindUnsupportedFormat, shoterr.StageEncode, "decode", "decoded %q", name)
	}
	return ToNRGBA(img), nil
}

// Sniff reports the format of encoded data without decoding pixels.
func Sniff(data []byte) (Format, image.Config, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, image.Config{}, shoterr.New(shoterr.KindCorrupt, shoterr.StageEncode, "sniff", err)
	}
	f, err := ParseFormat(name)
	if err != nil {
		return 0, image.Config{}, err
	}
	return f, cfg, nil
}

// ToNRGBA returns img as a straight-alpha buffer with bounds starting at
// (0,0). A decoder-owned *image.NRGBA already at the origin is returned
// as-is; every other image is converted into a fresh buffer.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Transcode decodes data and re-encodes it in format.
func Transcode(data []byte, format Format) ([]byte, *image.NRGBA, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	out, err := Encode(img, format)
	if err != nil {
		return nil, nil, fmt.Errorf("transcode to %s: %w", format, err)
	}
	return out, img, nil
}
