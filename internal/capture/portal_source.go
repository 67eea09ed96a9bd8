package capture

import (
	"fmt"
	"image"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/godbus/dbus/v5"
)

// Portal D-Bus constants
const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// PortalResponseTimeout bounds the wait for the portal's Response signal.
// Interactive portals may show a dialog first.
var PortalResponseTimeout = 60 * time.Second

// PortalSource captures the whole desktop through
// org.freedesktop.portal.Screenshot. It is the only option on most Wayland
// compositors. The portal exposes no display list, so the single display's
// size is learned from the first capture.
type PortalSource struct {
	conn    *dbus.Conn
	mu      sync.Mutex
	width   int
	height  int
	counter int
}

var _ Source = (*PortalSource)(nil)

// NewPortalSource connects to the session bus and checks that the
// Screenshot portal is present.
func NewPortalSource() (*PortalSource, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, unavailable("portal", "connect", "failed to connect to session bus: %v", err)
	}

	obj := conn.Object(portalService, portalPath)
	version, err := obj.GetProperty(screenshotIface + ".version")
	if err != nil {
		conn.Close()
		return nil, unavailable("portal", "probe", "screenshot portal not available: %v", err)
	}

	logger.WithComponent("portal-source").Debug().
		Interface("version", version.Value()).
		Msg("Screenshot portal found")

	return &PortalSource{conn: conn}, nil
}

// Name returns the backend name
func (p *PortalSource) Name() string {
	return "portal"
}

// Capabilities reports no window support.
func (p *PortalSource) Capabilities() Capabilities {
	return Capabilities{}
}

// Close closes the bus connection.
func (p *PortalSource) Close() error {
	return p.conn.Close()
}

// ListDisplays returns the desktop as one display. Width and Height stay
// zero until something has been captured.
func (p *PortalSource) ListDisplays() ([]Display, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []Display{{ID: "0", Name: "desktop", Width: p.width, Height: p.height}}, nil
}

// Capture asks the portal for a non-interactive screenshot of the desktop.
func (p *PortalSource) Capture(displayID string) (*image.NRGBA, error) {
	displays, _ := p.ListDisplays()
	if _, err := findDisplay(displays, displayID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	uri, err := p.screenshot()
	if err != nil {
		return nil, captureFailed("portal", "screenshot", err)
	}

	path, err := fileFromURI(uri)
	if err != nil {
		return nil, captureFailed("portal", "screenshot", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, captureFailed("portal", "read screenshot", err)
	}
	// The portal writes a fresh file for every request.
	if err := os.Remove(path); err != nil {
		logger.WithComponent("portal-source").Debug().Err(err).Str("path", path).Msg("Failed to remove portal screenshot")
	}

	img, err := codec.Decode(data)
	if err != nil {
		return nil, captureFailed("portal", "decode screenshot", err)
	}
	p.width, p.height = img.Bounds().Dx(), img.Bounds().Dy()
	return img, nil
}

// ListWindows is not supported and returns an empty list.
func (p *PortalSource) ListWindows() ([]Window, error) {
	return []Window{}, nil
}

// CaptureWindow returns the whole desktop.
func (p *PortalSource) CaptureWindow(windowID uint32) (*image.NRGBA, error) {
	return p.Capture("")
}

// screenshot issues the request and waits for its Response signal.
func (p *PortalSource) screenshot() (string, error) {
	log := logger.WithComponent("portal-source")
	obj := p.conn.Object(portalService, portalPath)

	p.counter++
	token := fmt.Sprintf("focusshot%d_%d", os.Getpid(), p.counter)
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(false),
	}

	// Set up response channel BEFORE making the call
	responseChan := make(chan *dbus.Signal, 10)

	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}

	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.Call(screenshotIface+".Screenshot", 0, "", options).Store(&requestPath); err != nil {
		return "", fmt.Errorf("Screenshot call failed: %w", err)
	}

	log.Debug().Str("request_path", string(requestPath)).Msg("Waiting for Screenshot response")

	timeout := time.After(PortalResponseTimeout)
	for {
		select {
		case <-timeout:
			return "", fmt.Errorf("timeout waiting for Screenshot response")
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			return parseScreenshotResponse(sig.Body)
		}
	}
}

// parseScreenshotResponse extracts the image URI from a Request.Response
// signal body of (u response, a{sv} results).
func parseScreenshotResponse(body []any) (string, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("invalid response")
	}
	code, ok := body[0].(uint32)
	if !ok {
		return "", fmt.Errorf("unexpected response code type %T", body[0])
	}
	if code != 0 {
		return "", fmt.Errorf("screenshot request denied (code %d)", code)
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("unexpected results type %T", body[1])
	}
	v, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("no uri in response")
	}
	uri, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected uri type %T", v.Value())
	}
	return uri, nil
}

func fileFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid screenshot uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported screenshot uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}
