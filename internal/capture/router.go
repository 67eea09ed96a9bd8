package capture

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Backend names a capture backend and how to open it.
type Backend struct {
	Name string
	Open func() (Source, error)
}

// Auto selects the first backend that opens.
const Auto = "auto"

// DefaultBackends returns the platform backends in preference order: X11
// first for window support, then the cross-platform library, then the
// desktop portal for Wayland sessions.
func DefaultBackends() []Backend {
	return []Backend{
		{Name: "x11", Open: func() (Source, error) { return NewX11Source() }},
		{Name: "screenshot", Open: func() (Source, error) { return NewScreenshotSource() }},
		{Name: "portal", Open: func() (Source, error) { return NewPortalSource() }},
		{Name: "static", Open: func() (Source, error) { return NewSyntheticSource(1920, 1080), nil }},
	}
}

// BackendNames lists the names accepted by NewRouter.
func BackendNames(backends []Backend) []string {
	names := []string{Auto}
	for _, b := range backends {
		names = append(names, b.Name)
	}
	return names
}

// Router routes capture requests to the first backend that could be opened
type Router struct {
	backends []Backend
	prefer   string
	active   Source
	mu       sync.RWMutex
}

var _ Source = (*Router)(nil)

// NewRouter creates a router over backends. prefer names one backend to use
// exclusively; "" or Auto tries them in order, skipping "static".
func NewRouter(prefer string, backends ...Backend) (*Router, error) {
	prefer = strings.ToLower(strings.TrimSpace(prefer))
	if prefer == "" {
		prefer = Auto
	}
	if prefer != Auto {
		found := false
		for _, b := range backends {
			if b.Name == prefer {
				found = true
			}
		}
		if !found {
			return nil, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSource, "router",
				"unknown backend %q (want one of %s)", prefer, strings.Join(BackendNames(backends), ", "))
		}
	}
	return &Router{backends: backends, prefer: prefer}, nil
}

// Start opens the selected backend.
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil
	}

	log := logger.WithComponent("capture-router")

	var errs []error
	for _, b := range r.backends {
		if r.prefer == Auto && b.Name == "static" {
			continue
		}
		if r.prefer != Auto && b.Name != r.prefer {
			continue
		}

		src, err := b.Open()
		if err != nil {
			log.Warn().Err(err).Str("backend", b.Name).Msg("Capture backend not available")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}

		r.active = src
		log.Info().
			Str("backend", src.Name()).
			Bool("window_capture", src.Capabilities().WindowCapture).
			Msg("Capture backend initialized")
		return nil
	}

	return shoterr.New(shoterr.KindSourceUnavailable, shoterr.StageSource, "router",
		fmt.Errorf("no capture backends available: %w", errors.Join(errs...)))
}

// Close closes the active backend.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}
	err := r.active.Close()
	r.active = nil
	return err
}

func (r *Router) source() (Source, error) {
	r.mu.RLock()
	src := r.active
	r.mu.RUnlock()
	if src != nil {
		return src, nil
	}

	if err := r.Start(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, nil
}

// Name returns the active backend's name, or "router" before Start.
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return "router"
	}
	return r.active.Name()
}

// Capabilities of the active backend.
func (r *Router) Capabilities() Capabilities {
	src, err := r.source()
	if err != nil {
		return Capabilities{}
	}
	return src.Capabilities()
}

// ListDisplays lists the active backend's displays.
func (r *Router) ListDisplays() ([]Display, error) {
	src, err := r.source()
	if err != nil {
		return nil, err
	}
	return src.ListDisplays()
}

// Capture captures a display with the active backend.
func (r *Router) Capture(displayID string) (*image.NRGBA, error) {
	src, err := r.source()
	if err != nil {
		return nil, err
	}
	logger.WithComponent("capture-router").Debug().
		Str("backend", src.Name()).
		Str("display", displayID).
		Msg("Routing display capture")
	return src.Capture(displayID)
}

// ListWindows lists the active backend's windows.
func (r *Router) ListWindows() ([]Window, error) {
	src, err := r.source()
	if err != nil {
		return nil, err
	}
	return src.ListWindows()
}

// CaptureWindow captures a window with the active backend.
func (r *Router) CaptureWindow(windowID uint32) (*image.NRGBA, error) {
	src, err := r.source()
	if err != nil {
		return nil, err
	}
	logger.WithComponent("capture-router").Debug().
		Str("backend", src.Name()).
		Uint32("window_id", windowID).
		Bool("native", src.Capabilities().WindowCapture).
		Msg("Routing window capture")
	return src.CaptureWindow(windowID)
}
