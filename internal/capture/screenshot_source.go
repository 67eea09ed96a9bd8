package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/kbinani/screenshot"
)

// ScreenshotSource captures displays through github.com/kbinani/screenshot,
// which works on Linux (X11), macOS and Windows. It cannot capture single
// windows.
type ScreenshotSource struct{}

var _ Source = (*ScreenshotSource)(nil)

// NewScreenshotSource fails with SourceUnavailable when no display is active.
func NewScreenshotSource() (*ScreenshotSource, error) {
	if n := screenshot.NumActiveDisplays(); n == 0 {
		return nil, unavailable("screenshot", "probe", "no active displays")
	}
	return &ScreenshotSource{}, nil
}

// Name returns the backend name
func (s *ScreenshotSource) Name() string {
	return "screenshot"
}

// Capabilities reports no window support.
func (s *ScreenshotSource) Capabilities() Capabilities {
	return Capabilities{}
}

// Close is a no-op; the library opens a connection per call.
func (s *ScreenshotSource) Close() error {
	return nil
}

// ListDisplays returns every active display in library order.
func (s *ScreenshotSource) ListDisplays() ([]Display, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, unavailable("screenshot", "list displays", "no active displays")
	}

	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		displays = append(displays, Display{
			ID:     fmt.Sprintf("%d", i),
			Name:   fmt.Sprintf("Display %d (%dx%d)", i, b.Dx(), b.Dy()),
			X:      b.Min.X,
			Y:      b.Min.Y,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	return displays, nil
}

// Capture grabs the display's bounds.
func (s *ScreenshotSource) Capture(displayID string) (*image.NRGBA, error) {
	displays, err := s.ListDisplays()
	if err != nil {
		return nil, err
	}
	d, err := findDisplay(displays, displayID)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("screenshot-source").Debug().
		Str("display", d.ID).
		Int("width", d.Width).
		Int("height", d.Height).
		Msg("Capturing display")

	img, err := screenshot.CaptureRect(d.Bounds())
	if err != nil {
		return nil, captureFailed("screenshot", "capture display", err)
	}
	return codec.ToNRGBA(img), nil
}

// ListWindows is not supported and returns an empty list.
func (s *ScreenshotSource) ListWindows() ([]Window, error) {
	return []Window{}, nil
}

// CaptureWindow returns the primary display.
func (s *ScreenshotSource) CaptureWindow(windowID uint32) (*image.NRGBA, error) {
	return s.Capture("")
}
