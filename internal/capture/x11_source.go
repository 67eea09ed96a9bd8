package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// X11Source captures the root window and individual windows over X11 or
// XWayland.
type X11Source struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	randrEnabled     bool
	mu               sync.Mutex
}

var _ Source = (*X11Source)(nil)

// NewX11Source connects to the X server named by $DISPLAY.
func NewX11Source() (*X11Source, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, unavailable("x11", "connect", "failed to connect to X server: %v", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	s := &X11Source{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}

	log := logger.WithComponent("x11-source")

	if err := composite.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - window captures may miss obscured windows")
	} else {
		s.compositeEnabled = true
	}

	if err := randr.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("RandR extension not available - treating the root window as one display")
	} else {
		s.randrEnabled = true
	}

	log.Debug().
		Uint8("depth", screen.RootDepth).
		Uint16("width", screen.WidthInPixels).
		Uint16("height", screen.HeightInPixels).
		Bool("composite", s.compositeEnabled).
		Bool("randr", s.randrEnabled).
		Msg("Connected to X server")

	return s, nil
}

// Name returns the backend name
func (s *X11Source) Name() string {
	return "x11"
}

// Capabilities reports native window capture.
func (s *X11Source) Capabilities() Capabilities {
	return Capabilities{WindowCapture: true, ListWindows: true}
}

// Close closes the X11 connection
func (s *X11Source) Close() error {
	s.conn.Close()
	return nil
}

// ListDisplays returns the active RandR CRTCs, or the whole root window
// when RandR is unavailable or reports nothing.
func (s *X11Source) ListDisplays() ([]Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDisplays()
}

func (s *X11Source) listDisplays() ([]Display, error) {
	if s.randrEnabled {
		displays, err := s.monitors()
		if err != nil {
			logger.WithComponent("x11-source").Debug().Err(err).Msg("RandR query failed, using root window")
		} else if len(displays) > 0 {
			return displays, nil
		}
	}

	if s.screen.WidthInPixels == 0 || s.screen.HeightInPixels == 0 {
		return nil, unavailable("x11", "list displays", "root window has no size")
	}
	return []Display{{
		ID:     "0",
		Name:   "screen",
		Width:  int(s.screen.WidthInPixels),
		Height: int(s.screen.HeightInPixels),
	}}, nil
}

// monitors queries each CRTC for an active output.
func (s *X11Source) monitors() ([]Display, error) {
	resources, err := randr.GetScreenResources(s.conn, s.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var displays []Display
	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(s.conn, s.root).Reply(); err == nil {
		primary = reply.Output
	}

	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(s.conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(s.conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		d := Display{
			ID:     fmt.Sprintf("%d", i),
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		}

		isPrimary := false
		for _, o := range info.Outputs {
			if primary != 0 && o == primary {
				isPrimary = true
			}
		}
		if isPrimary {
			displays = append([]Display{d}, displays...)
		} else {
			displays = append(displays, d)
		}
	}

	return displays, nil
}

// Capture grabs one display from the root window.
func (s *X11Source) Capture(displayID string) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	displays, err := s.listDisplays()
	if err != nil {
		return nil, err
	}
	d, err := findDisplay(displays, displayID)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("x11-source").Debug().
		Str("display", d.Name).
		Int("x", d.X).
		Int("y", d.Y).
		Int("width", d.Width).
		Int("height", d.Height).
		Msg("Capturing display")

	img, err := s.getImage(xproto.Drawable(s.root), d.X, d.Y, d.Width, d.Height)
	if err != nil {
		return nil, captureFailed("x11", "capture display", err)
	}
	return img, nil
}

// CaptureWindow captures a window by ID, or the active window for ID 0.
func (s *X11Source) CaptureWindow(windowID uint32) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("x11-source")

	win := xproto.Window(windowID)
	if win == 0 {
		active, err := s.activeWindow()
		if err != nil {
			return nil, shoterr.New(shoterr.KindNotFound, shoterr.StageSource, "x11: active window", err)
		}
		win = active
	}

	attrs, err := xproto.GetWindowAttributes(s.conn, win).Reply()
	if err != nil {
		return nil, shoterr.New(shoterr.KindNotFound, shoterr.StageSource, "x11: window attributes", err)
	}

	log.Debug().
		Uint32("window_id", uint32(win)).
		Uint16("class", attrs.Class).
		Uint8("map_state", attrs.MapState).
		Msg("Window attributes")

	// Frames and reparented clients are often InputOnly or unmapped; use the
	// first viewable child instead.
	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		child, err := s.findCapturableChild(win)
		if err != nil {
			return nil, captureFailed("x11", "capture window", fmt.Errorf("no capturable window found: %w", err))
		}
		log.Debug().
			Uint32("child_window_id", uint32(child)).
			Msg("Found capturable child window")
		win = child
	}

	geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, captureFailed("x11", "window geometry", err)
	}

	log.Debug().
		Uint32("window_id", uint32(win)).
		Uint16("width", geom.Width).
		Uint16("height", geom.Height).
		Msg("Capturing window")

	img, err := s.captureDrawable(win, geom)
	if err != nil {
		return nil, captureFailed("x11", "capture window", err)
	}
	return img, nil
}

// findCapturableChild recursively searches for a viewable InputOutput child.
func (s *X11Source) findCapturableChild(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(s.conn, parent).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query tree: %w", err)
	}

	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(s.conn, child).Reply()
		if err != nil {
			continue
		}
		geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}

		if attrs.Class == xproto.WindowClassInputOutput && attrs.MapState == xproto.MapStateViewable {
			if geom.Width > 10 && geom.Height > 10 {
				return child, nil
			}
		}

		if grandchild, err := s.findCapturableChild(child); err == nil {
			return grandchild, nil
		}
	}

	return 0, fmt.Errorf("no capturable child of window %d", parent)
}

// captureDrawable reads a window through a Composite pixmap when possible so
// that obscured parts are still captured.
func (s *X11Source) captureDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (*image.NRGBA, error) {
	log := logger.WithComponent("x11-source")
	drawable := xproto.Drawable(win)

	if s.compositeEnabled {
		err := composite.RedirectWindowChecked(s.conn, win, composite.RedirectAutomatic).Check()
		if err != nil {
			log.Warn().
				Err(err).
				Uint32("window_id", uint32(win)).
				Msg("Failed to redirect window via Composite, falling back to direct capture")
		} else {
			defer composite.UnredirectWindow(s.conn, win, composite.RedirectAutomatic)

			pixmap, err := xproto.NewPixmapId(s.conn)
			if err == nil {
				if err := composite.NameWindowPixmapChecked(s.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(s.conn, pixmap)
				}
			}
		}
	}

	return s.getImage(drawable, 0, 0, int(geom.Width), int(geom.Height))
}

func (s *X11Source) getImage(d xproto.Drawable, x, y, width, height int) (*image.NRGBA, error) {
	depth := s.screen.RootDepth
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported root depth %d", depth)
	}

	reply, err := xproto.GetImage(
		s.conn,
		xproto.ImageFormatZPixmap,
		d,
		int16(x), int16(y),
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return bgrxToNRGBA(reply.Data, width, height, width*4), nil
}
