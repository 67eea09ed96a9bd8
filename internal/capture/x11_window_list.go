package capture

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
)

// ListWindows returns client windows from _NET_CLIENT_LIST, falling back to
// the root window's children when the window manager does not publish it.
func (s *X11Source) ListWindows() ([]Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.WithComponent("x11-source")

	ids, err := s.clientList()
	if err == nil && len(ids) > 0 {
		log.Debug().Int("count", len(ids)).Msg("ListWindows: using EWMH _NET_CLIENT_LIST")
	} else {
		log.Debug().Err(err).Msg("ListWindows: EWMH unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(s.conn, s.root).Reply()
		if err != nil {
			return nil, captureFailed("x11", "list windows", err)
		}
		ids = tree.Children
	}

	windows := make([]Window, 0, len(ids))
	for _, id := range ids {
		w := s.windowInfo(id)
		// Skip windows without titles or class (usually not user windows)
		if w.Title == "" && w.Class == "" {
			continue
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func (s *X11Source) clientList() ([]xproto.Window, error) {
	atom, err := s.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(s.conn, false, s.root, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}
	return decodeWindowIDs(reply.Value), nil
}

func (s *X11Source) activeWindow() (xproto.Window, error) {
	atom, err := s.atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return 0, err
	}
	reply, err := xproto.GetProperty(s.conn, false, s.root, atom, xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get _NET_ACTIVE_WINDOW: %w", err)
	}
	ids := decodeWindowIDs(reply.Value)
	if len(ids) == 0 || ids[0] == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return ids[0], nil
}

func (s *X11Source) windowInfo(win xproto.Window) Window {
	w := Window{ID: uint32(win)}

	if geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply(); err == nil {
		w.X, w.Y = int(geom.X), int(geom.Y)
		w.Width, w.Height = int(geom.Width), int(geom.Height)
	}

	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if title, err := s.stringProperty(win, name); err == nil && title != "" {
			w.Title = title
			break
		}
	}

	if raw, err := s.stringProperty(win, "WM_CLASS"); err == nil {
		w.Class = parseWMClass(raw)
	}

	return w
}

func (s *X11Source) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

func (s *X11Source) stringProperty(win xproto.Window, name string) (string, error) {
	atom, err := s.atom(name)
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(s.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", name)
	}
	return string(reply.Value), nil
}

// decodeWindowIDs parses a property holding an array of 32-bit window IDs.
func decodeWindowIDs(value []byte) []xproto.Window {
	ids := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(value[i:])))
	}
	return ids
}

// parseWMClass returns the class part of WM_CLASS ("instance\0class\0"),
// or the instance when the class is empty.
func parseWMClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}
