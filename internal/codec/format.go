package codec

import (
	"path/filepath"
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Format is the closed set of raster formats the codec can write.
// The zero value is not a valid format.
type Format int

const (
	PNG Format = iota + 1
	JPEG
	BMP
	TIFF
)

// Formats lists every supported format in preference order.
var Formats = []Format{PNG, JPEG, BMP, TIFF}

type formatInfo struct {
	name      string
	extension string
	mime      string
}

var formatTable = map[Format]formatInfo{
	PNG:  {name: "png", extension: "png", mime: "image/png"},
	JPEG: {name: "jpeg", extension: "jpg", mime: "image/jpeg"},
	BMP:  {name: "bmp", extension: "bmp", mime: "image/bmp"},
	TIFF: {name: "tiff", extension: "tiff", mime: "image/tiff"},
}

var tokens = map[string]Format{
	"png":  PNG,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"bmp":  BMP,
	"tif":  TIFF,
	"tiff": TIFF,
}

// ParseFormat resolves a user-supplied token ("png", "jpg", ".TIFF", ...).
func ParseFormat(token string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "."))
	if f, ok := tokens[key]; ok {
		return f, nil
	}
	return 0, shoterr.Errorf(shoterr.KindUnsupportedFormat, shoterr.StageEncode, "parse format", "%q", token)
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

func (f Format) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return "unknown"
}

// Extension returns the canonical file extension without a dot.
func (f Format) Extension() string {
	return formatTable[f].extension
}

// MIMEType returns the media type served for the format.
func (f Format) MIMEType() string {
	if info, ok := formatTable[f]; ok {
		return info.mime
	}
	return "application/octet-stream"
}
