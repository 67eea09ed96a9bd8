package capture

import (
	"image"
	"image/color"
	"sync"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// StaticSource serves frames held in memory. It backs tests and the
// "static" backend used on headless machines.
type StaticSource struct {
	mu       sync.Mutex
	displays []Display
	frames   map[string]*image.NRGBA
	windows  []Window
	winImgs  map[uint32]*image.NRGBA
	activeID uint32
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates an empty source. Add at least one display before
// capturing.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		frames:  make(map[string]*image.NRGBA),
		winImgs: make(map[uint32]*image.NRGBA),
	}
}

// NewSyntheticSource returns a source with a single display showing a test
// pattern of the given size.
func NewSyntheticSource(width, height int) *StaticSource {
	s := NewStaticSource()
	s.AddDisplay("0", "synthetic", TestPattern(width, height))
	return s
}

// AddDisplay registers a display whose frame is img. The first display added
// is the primary one.
func (s *StaticSource) AddDisplay(id, name string, img *image.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := img.Bounds()
	s.displays = append(s.displays, Display{ID: id, Name: name, Width: b.Dx(), Height: b.Dy()})
	s.frames[id] = img
}

// AddWindow registers a window whose content is img. The first window added
// is the active one. Adding a window turns on native window capture.
func (s *StaticSource) AddWindow(w Window, img *image.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := img.Bounds()
	w.Width, w.Height = b.Dx(), b.Dy()
	s.windows = append(s.windows, w)
	s.winImgs[w.ID] = img
	if s.activeID == 0 {
		s.activeID = w.ID
	}
}

// Name returns the backend name
func (s *StaticSource) Name() string {
	return "static"
}

// Capabilities reports window capture only once a window has been added.
func (s *StaticSource) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	has := len(s.windows) > 0
	return Capabilities{WindowCapture: has, ListWindows: has}
}

// Close is a no-op.
func (s *StaticSource) Close() error {
	return nil
}

// ListDisplays returns the registered displays.
func (s *StaticSource) ListDisplays() ([]Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.displays) == 0 {
		return nil, unavailable("static", "list displays", "no displays")
	}
	return append([]Display(nil), s.displays...), nil
}

// Capture returns a copy of the display's frame.
func (s *StaticSource) Capture(displayID string) (*image.NRGBA, error) {
	displays, err := s.ListDisplays()
	if err != nil {
		return nil, err
	}
	d, err := findDisplay(displays, displayID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneNRGBA(s.frames[d.ID]), nil
}

// ListWindows returns the registered windows.
func (s *StaticSource) ListWindows() ([]Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Window{}, s.windows...), nil
}

// CaptureWindow returns a copy of the window's content, or the primary
// display when no windows are registered.
func (s *StaticSource) CaptureWindow(windowID uint32) (*image.NRGBA, error) {
	if !s.Capabilities().WindowCapture {
		return s.Capture("")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if windowID == 0 {
		windowID = s.activeID
	}
	img, ok := s.winImgs[windowID]
	if !ok {
		return nil, shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSource, "static: capture window", "window %d", windowID)
	}
	return cloneNRGBA(img), nil
}

// TestPattern draws horizontal and vertical gradients over an opaque
// background.
func TestPattern(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 0x80,
				A: 0xff,
			})
		}
	}
	return img
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		i := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[i:i+b.Dx()*4])
	}
	return dst
}
