package shot

import (
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Mode selects what a capture covers.
type Mode string

const (
	ModeFullScreen Mode = "fullscreen"
	ModeWindow     Mode = "window"
	ModeRegion     Mode = "region"
)

// ParseMode accepts the mode names, case-insensitively.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case ModeFullScreen, "full", "screen":
		return ModeFullScreen, nil
	case ModeWindow:
		return ModeWindow, nil
	case ModeRegion:
		return ModeRegion, nil
	}
	return "", shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "parse mode", "unknown capture mode %q", name)
}

// Size is a resize target in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptureRequest describes one run of the pipeline.
type CaptureRequest struct {
	Mode Mode `json:"mode"`
	// Region is required for ModeRegion and forbidden otherwise. It is
	// relative to the captured display.
	Region *imaging.Rect `json:"region,omitempty"`
	// Format overrides the settings' file format. Zero uses settings, or the
	// extension of TargetPath when it has one.
	Format codec.Format `json:"-"`
	// TargetPath is an absolute path or a filename inside the save
	// directory. Empty synthesizes screenshot_<unix>.<ext>.
	TargetPath string `json:"target_path,omitempty"`
	// DisplayID selects a display; empty is the primary display.
	DisplayID string `json:"display_id,omitempty"`
	// WindowID selects a window for ModeWindow; 0 is the active window.
	WindowID uint32   `json:"window_id,omitempty"`
	Resize   *Size    `json:"resize,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Validate checks the request's shape before any capture happens.
func (r CaptureRequest) Validate() error {
	switch r.Mode {
	case ModeFullScreen, ModeWindow:
		if r.Region != nil {
			return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "validate", "region given for %s capture", r.Mode)
		}
	case ModeRegion:
		if r.Region == nil {
			return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "validate", "region capture needs a region")
		}
		if r.Region.Width <= 0 || r.Region.Height <= 0 {
			return shoterr.Errorf(shoterr.KindEmptyRegion, shoterr.StageTransform, "validate", "region %dx%d", r.Region.Width, r.Region.Height)
		}
	default:
		return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "validate", "unknown capture mode %q", r.Mode)
	}

	if r.Format != 0 && !r.Format.Valid() {
		return shoterr.Errorf(shoterr.KindUnsupportedFormat, shoterr.StageEncode, "validate", "format %d", int(r.Format))
	}
	if r.Resize != nil && (r.Resize.Width <= 0 || r.Resize.Height <= 0) {
		return shoterr.Errorf(shoterr.KindEmptyRegion, shoterr.StageTransform, "validate", "resize to %dx%d", r.Resize.Width, r.Resize.Height)
	}
	return nil
}

// Result reports what a capture produced.
type Result struct {
	Path    string        `json:"path"`
	Entry   history.Entry `json:"entry"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Format  string        `json:"format"`
	Backend string        `json:"backend"`
	// WindowFallback is set when a window capture returned the primary
	// display because the backend cannot capture windows.
	WindowFallback bool `json:"window_fallback"`
	// Copied is set when the image was handed to the clipboard.
	Copied bool `json:"copied"`
}
