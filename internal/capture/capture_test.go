package capture

import (
	"errors"
	"go/build"
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	"github.com/godbus/dbus/v5"
	"github.com/google/go-cmp/cmp"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestStaticSource_PrimaryIsFirstDisplay(t *testing.T) {
	src := NewStaticSource()
	src.AddDisplay("a", "left", solid(50, 200, color.NRGBA{R: 1, A: 255}))
	src.AddDisplay("b", "right", solid(30, 30, color.NRGBA{G: 1, A: 255}))

	d, err := PrimaryDisplay(src)
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	want := Display{ID: "a", Name: "left", Width: 50, Height: 200}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("primary mismatch (-want +got):\n%s", diff)
	}

	img, err := src.Capture("")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 50, 200) {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	img, err = src.Capture("right")
	if err != nil || img.Pix[1] != 1 {
		t.Fatalf("capture by name = %v, %v", img.Pix[:4], err)
	}
}

func TestStaticSource_CaptureReturnsCopy(t *testing.T) {
	frame := solid(4, 4, color.NRGBA{R: 9, A: 255})
	src := NewStaticSource()
	src.AddDisplay("0", "d", frame)

	img, err := src.Capture("0")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	img.Pix[0] = 0
	if frame.Pix[0] != 9 {
		t.Fatal("capture aliases the stored frame")
	}
}

func TestStaticSource_NoDisplays(t *testing.T) {
	src := NewStaticSource()
	if _, err := src.ListDisplays(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("ListDisplays error = %v", err)
	}
	if _, err := src.Capture(""); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("Capture error = %v", err)
	}
	if _, err := PrimaryDisplay(src); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("PrimaryDisplay error = %v", err)
	}
}

func TestStaticSource_UnknownDisplay(t *testing.T) {
	src := NewSyntheticSource(8, 8)
	if _, err := src.Capture("nope"); !errors.Is(err, shoterr.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStaticSource_WindowFallback(t *testing.T) {
	src := NewSyntheticSource(64, 32)
	if src.Capabilities().WindowCapture {
		t.Fatal("expected no native window capture without windows")
	}
	img, err := src.CaptureWindow(0)
	if err != nil {
		t.Fatalf("capture window: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Fatalf("fallback bounds = %v, want primary display", img.Bounds())
	}
}

func TestStaticSource_Windows(t *testing.T) {
	src := NewSyntheticSource(64, 32)
	src.AddWindow(Window{ID: 7, Title: "editor", Class: "Code"}, solid(10, 5, color.NRGBA{B: 3, A: 255}))
	src.AddWindow(Window{ID: 8, Title: "term"}, solid(6, 6, color.NRGBA{A: 255}))

	if !src.Capabilities().WindowCapture {
		t.Fatal("expected window capture once windows exist")
	}

	windows, err := src.ListWindows()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []Window{
		{ID: 7, Title: "editor", Class: "Code", Width: 10, Height: 5},
		{ID: 8, Title: "term", Width: 6, Height: 6},
	}
	if diff := cmp.Diff(want, windows); diff != "" {
		t.Fatalf("windows mismatch (-want +got):\n%s", diff)
	}

	active, err := src.CaptureWindow(0)
	if err != nil || active.Bounds().Dx() != 10 {
		t.Fatalf("active window = %v, %v", active.Bounds(), err)
	}
	if _, err := src.CaptureWindow(99); !errors.Is(err, shoterr.ErrNotFound) {
		t.Fatalf("missing window error = %v", err)
	}
}

func TestTestPatternIsOpaque(t *testing.T) {
	img := TestPattern(3, 2)
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			t.Fatalf("alpha at %d = %d", i, img.Pix[i])
		}
	}
}

func TestRouter_PicksFirstAvailable(t *testing.T) {
	failing := Backend{Name: "broken", Open: func() (Source, error) {
		return nil, unavailable("broken", "probe", "nope")
	}}
	working := Backend{Name: "memory", Open: func() (Source, error) {
		return NewSyntheticSource(20, 10), nil
	}}

	r, err := NewRouter("", failing, working)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	img, err := r.Capture("")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if r.Name() != "static" {
		t.Fatalf("active backend = %q", r.Name())
	}
}

func TestRouter_NoBackends(t *testing.T) {
	failing := Backend{Name: "broken", Open: func() (Source, error) {
		return nil, errors.New("no display")
	}}
	r, err := NewRouter(Auto, failing)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if err := r.Start(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("start error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := r.ListDisplays(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("list error = %v", err)
	}
}

func TestRouter_AutoSkipsStatic(t *testing.T) {
	r, err := NewRouter(Auto, Backend{Name: "static", Open: func() (Source, error) {
		return NewSyntheticSource(1, 1), nil
	}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if err := r.Start(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("auto must not select static, got %v", err)
	}
}

func TestRouter_Preference(t *testing.T) {
	opened := ""
	mk := func(name string) Backend {
		return Backend{Name: name, Open: func() (Source, error) {
			opened = name
			return NewSyntheticSource(2, 2), nil
		}}
	}

	r, err := NewRouter("second", mk("first"), mk("second"))
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if opened != "second" {
		t.Fatalf("opened %q, want second", opened)
	}

	if _, err := NewRouter("bogus", mk("first")); !errors.Is(err, shoterr.ErrInvalid) {
		t.Fatalf("unknown backend error = %v", err)
	}
}

func TestParseScreenshotResponse(t *testing.T) {
	body := []any{uint32(0), map[string]dbus.Variant{
		"uri": dbus.MakeVariant("file:///tmp/shot.png"),
	}}
	uri, err := parseScreenshotResponse(body)
	if err != nil || uri != "file:///tmp/shot.png" {
		t.Fatalf("parse = %q, %v", uri, err)
	}

	if _, err := parseScreenshotResponse([]any{uint32(1), nil}); err == nil {
		t.Fatal("expected denial error")
	}
	if _, err := parseScreenshotResponse([]any{uint32(0)}); err == nil {
		t.Fatal("expected short body error")
	}
}

func TestFileFromURI(t *testing.T) {
	got, err := fileFromURI("file:///home/me/Pictures/Screenshot%20from%202025.png")
	if err != nil {
		t.Fatalf("fileFromURI: %v", err)
	}
	if got != "/home/me/Pictures/Screenshot from 2025.png" {
		t.Fatalf("path = %q", got)
	}
	if _, err := fileFromURI("https://example.com/a.png"); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestParseWMClass(t *testing.T) {
	tests := map[string]string{
		"navigator\x00Firefox\x00": "Firefox",
		"xterm\x00\x00":            "xterm",
		"":                         "",
	}
	for raw, want := range tests {
		if got := parseWMClass(raw); got != want {
			t.Errorf("parseWMClass(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDecodeWindowIDs(t *testing.T) {
	got := decodeWindowIDs([]byte{0x01, 0x00, 0x40, 0x00, 0x02, 0x00, 0x60, 0x00, 0xff})
	if len(got) != 2 || got[0] != 0x400001 || got[1] != 0x600002 {
		t.Fatalf("decodeWindowIDs = %#v", got)
	}
}

func TestX11FilesBuildOnLinux(t *testing.T) {
	ctxt := build.Default
	ctxt.GOOS = "linux"
	ctxt.CgoEnabled = false

	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	var checked int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "x11_") || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		ok, err := ctxt.MatchFile(".", name)
		if err != nil {
			t.Fatalf("match %s: %v", name, err)
		}
		if !ok {
			t.Errorf("%s is excluded from linux builds", name)
		}
		checked++
	}
	if checked < 2 {
		t.Fatalf("found %d x11 source files, want at least 2", checked)
	}
}
