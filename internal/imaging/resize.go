package imaging

import (
	"image"
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	xdraw "golang.org/x/image/draw"
)

// Filter selects the resampling kernel used by Resize.
type Filter string

const (
	// CatmullRom is the high-quality cubic kernel and the default.
	CatmullRom      Filter = "catmullrom"
	BiLinear        Filter = "bilinear"
	ApproxBiLinear  Filter = "approxbilinear"
	NearestNeighbor Filter = "nearest"
)

// ParseFilter resolves a filter name; the empty string yields CatmullRom.
func ParseFilter(name string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return CatmullRom, nil
	case CatmullRom, BiLinear, ApproxBiLinear, NearestNeighbor:
		return f, nil
	default:
		return "", shoterr.Errorf(shoterr.KindInvalid, shoterr.StageTransform, "parse filter", "%q", name)
	}
}

func (f Filter) scaler() xdraw.Scaler {
	switch f {
	case BiLinear:
		return xdraw.BiLinear
	case ApproxBiLinear:
		return xdraw.ApproxBiLinear
	case NearestNeighbor:
		return xdraw.NearestNeighbor
	default:
		return xdraw.CatmullRom
	}
}

// Resize resamples src to exactly w x h. Aspect ratio is not preserved;
// use FitWithin to compute an aspect-preserving target.
func Resize(src *image.NRGBA, w, h int, filter Filter) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, shoterr.Errorf(shoterr.KindEmptyRegion, shoterr.StageTransform, "resize", "target %dx%d", w, h)
	}
	if src.Bounds().Empty() {
		return nil, shoterr.Errorf(shoterr.KindEmptyRegion, shoterr.StageTransform, "resize", "empty source")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	filter.scaler().Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// FitWithin returns the largest size with the aspect ratio of sw x sh that
// fits inside maxW x maxH. Sources already inside the box are returned as-is.
func FitWithin(sw, sh, maxW, maxH int) (int, int) {
	if sw <= 0 || sh <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	if sw <= maxW && sh <= maxH {
		return sw, sh
	}
	// Compare sw/sh against maxW/maxH without floating point.
	if sw*maxH >= sh*maxW {
		return maxW, max(1, sh*maxW/sw)
	}
	return max(1, sw*maxH/sh), maxH
}
