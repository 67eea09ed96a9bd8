// Package capture produces raw frames from a display. Each backend
// implements Source; Router picks the first one that works on this machine.
package capture

import (
	"image"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Display is one capturable monitor. Width and Height may be zero for
// backends that only learn the size from the first frame.
type Display struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Bounds returns the display rectangle in root coordinates.
func (d Display) Bounds() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// Window is a top-level application window.
type Window struct {
	ID     uint32 `json:"id"`
	Title  string `json:"title"`
	Class  string `json:"class"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Capabilities describes what a Source can do natively.
type Capabilities struct {
	// WindowCapture is false when CaptureWindow falls back to the primary
	// display.
	WindowCapture bool `json:"window_capture"`
	// ListWindows is false when the backend cannot enumerate windows.
	ListWindows bool `json:"list_windows"`
}

// Source defines the interface for screen capture backends
type Source interface {
	// Name returns a short backend name ("x11", "screenshot", ...)
	Name() string

	// ListDisplays returns the capturable displays, primary first.
	// It fails with SourceUnavailable when there are none.
	ListDisplays() ([]Display, error)

	// Capture grabs the display with the given ID. An empty ID means the
	// primary display.
	Capture(displayID string) (*image.NRGBA, error)

	// ListWindows returns the visible top-level windows.
	ListWindows() ([]Window, error)

	// CaptureWindow grabs a window. ID 0 means the active window. Without
	// native window support the primary display is returned instead.
	CaptureWindow(windowID uint32) (*image.NRGBA, error)

	Capabilities() Capabilities

	// Close releases the backend's connection.
	Close() error
}

// PrimaryDisplay returns the first display reported by src.
func PrimaryDisplay(src Source) (Display, error) {
	displays, err := src.ListDisplays()
	if err != nil {
		return Display{}, err
	}
	if len(displays) == 0 {
		return Display{}, unavailable(src.Name(), "list displays", "no displays")
	}
	return displays[0], nil
}

// findDisplay resolves a display ID, where "" selects the primary display.
func findDisplay(displays []Display, id string) (Display, error) {
	if len(displays) == 0 {
		return Display{}, shoterr.Errorf(shoterr.KindSourceUnavailable, shoterr.StageSource, "capture", "no displays")
	}
	if id == "" {
		return displays[0], nil
	}
	for _, d := range displays {
		if d.ID == id || d.Name == id {
			return d, nil
		}
	}
	return Display{}, shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSource, "capture", "display %q", id)
}

func unavailable(backend, op, format string, args ...any) error {
	return shoterr.Errorf(shoterr.KindSourceUnavailable, shoterr.StageSource, backend+": "+op, format, args...)
}

func captureFailed(backend, op string, err error) error {
	return shoterr.New(shoterr.KindCaptureFailed, shoterr.StageSource, backend+": "+op, err)
}
