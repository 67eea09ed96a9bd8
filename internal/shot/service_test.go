package shot

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/capture"
	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	"github.com/google/go-cmp/cmp"
)

type fakeClipboard struct {
	mu     sync.Mutex
	width  int
	height int
	pixels []byte
	calls  int
	err    error
}

func (c *fakeClipboard) SetImage(width, height int, rgba []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return c.err
	}
	c.width, c.height = width, height
	c.pixels = append([]byte(nil), rgba...)
	return nil
}

type fakeRegistrar struct {
	bound map[string]func()
	fail  string
}

func (r *fakeRegistrar) Register(combo string, fn func()) error {
	if combo == r.fail {
		return errors.New("combo already grabbed")
	}
	if r.bound == nil {
		r.bound = make(map[string]func())
	}
	r.bound[combo] = fn
	return nil
}

type fixedSelector struct{ rect imaging.Rect }

func (f fixedSelector) SelectRegion(capture.Display, *image.NRGBA) (imaging.Rect, error) {
	return f.rect, nil
}

// changingSource returns a differently coloured frame on every capture.
type changingSource struct {
	*capture.StaticSource
	calls int
}

func (c *changingSource) Capture(displayID string) (*image.NRGBA, error) {
	c.calls++
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(c.calls*40), uint8(i/256), 9, 255
	}
	return img, nil
}

type recordingSelector struct {
	rect  imaging.Rect
	frame *image.NRGBA
}

func (r *recordingSelector) SelectRegion(_ capture.Display, frame *image.NRGBA) (imaging.Rect, error) {
	r.frame = frame
	return r.rect, nil
}

type fixture struct {
	svc     *Service
	src     *capture.StaticSource
	saveDir string
	clip    *fakeClipboard
}

// newFixture builds a service over a 50x200 display with settings pointing
// the save directory into a temp dir.
func newFixture(t *testing.T, autoCopy bool) *fixture {
	t.Helper()

	root := t.TempDir()
	src := capture.NewStaticSource()
	src.AddDisplay("0", "primary", capture.TestPattern(50, 200))

	clip := &fakeClipboard{}
	svc, err := New(Options{
		DataDir:   filepath.Join(root, "data"),
		Source:    src,
		Clipboard: clip,
		Selector:  fixedSelector{rect: imaging.Rect{X: 10, Y: 10, Width: 20, Height: 30}},
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	saveDir := filepath.Join(root, "shots")
	settings := config.Defaults()
	settings.SaveDirectory = saveDir
	settings.AutoCopy = autoCopy
	if err := svc.SaveSettings(settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	return &fixture{svc: svc, src: src, saveDir: saveDir, clip: clip}
}

func decodeFile(t *testing.T, path string) *image.NRGBA {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	img, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func opaquePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := codec.Encode(capture.TestPattern(w, h), codec.PNG)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestNew_RequiresDataDir(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, shoterr.ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
}

func TestLoadSettings_FreshDirectoryHasDefaults(t *testing.T) {
	svc, err := New(Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := svc.LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.FileFormat != "png" || !got.AutoCopy {
		t.Fatalf("settings = %+v", got)
	}
	want := map[string]string{
		config.ActionCaptureFullScreen: "CmdOrCtrl+Shift+S",
		config.ActionCaptureRegion:     "CmdOrCtrl+Shift+R",
		config.ActionCaptureWindow:     "CmdOrCtrl+Shift+W",
	}
	if diff := cmp.Diff(want, got.Hotkeys); diff != "" {
		t.Fatalf("hotkeys mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureFullScreen(t *testing.T) {
	f := newFixture(t, false)

	path, err := f.svc.CaptureFullScreen()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if want := filepath.Join(f.saveDir, "screenshot_1700000000.png"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	img := decodeFile(t, path)
	if img.Bounds() != image.Rect(0, 0, 50, 200) {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	// Same second: the first artifact must survive.
	second, err := f.svc.CaptureFullScreen()
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if filepath.Base(second) != "screenshot_1700000000_1.png" {
		t.Fatalf("second path = %q", second)
	}

	entries, err := f.svc.GetHistory()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 || entries[0].FilePath != path || entries[1].FilePath != second {
		t.Fatalf("history = %+v", entries)
	}
	if entries[0].Width != 50 || entries[0].Height != 200 {
		t.Fatalf("entry dims = %dx%d", entries[0].Width, entries[0].Height)
	}
}

func TestCaptureRegion_ClampsToDisplay(t *testing.T) {
	f := newFixture(t, false)

	path, err := f.svc.CaptureRegion(0, 0, 100, 100)
	if err != nil {
		t.Fatalf("capture region: %v", err)
	}

	img := decodeFile(t, path)
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 100 {
		t.Fatalf("region size = %dx%d, want 50x100", img.Bounds().Dx(), img.Bounds().Dy())
	}

	entries, _ := f.svc.GetHistory()
	if len(entries) != 1 || entries[0].Width != 50 || entries[0].Height != 100 {
		t.Fatalf("history = %+v", entries)
	}
}

func TestCaptureRegion_PixelsComeFromRegion(t *testing.T) {
	f := newFixture(t, false)

	path, err := f.svc.CaptureRegion(5, 7, 3, 2)
	if err != nil {
		t.Fatalf("capture region: %v", err)
	}
	want := capture.TestPattern(50, 200).SubImage(image.Rect(5, 7, 8, 9)).(*image.NRGBA)
	got := decodeFile(t, path)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got.NRGBAAt(x, y) != want.NRGBAAt(5+x, 7+y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.NRGBAAt(x, y), want.NRGBAAt(5+x, 7+y))
			}
		}
	}
}

func TestCaptureRegion_Errors(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name string
		x, y int
		w, h int
		want error
	}{
		{"origin right of display", 50, 0, 10, 10, shoterr.ErrRegionOutOfBounds},
		{"origin below display", 0, 200, 10, 10, shoterr.ErrRegionOutOfBounds},
		{"negative origin", -1, 0, 10, 10, shoterr.ErrRegionOutOfBounds},
		{"zero width", 0, 0, 0, 10, shoterr.ErrEmptyRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CaptureRegion(tt.x, tt.y, tt.w, tt.h)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	entries, _ := f.svc.GetHistory()
	if len(entries) != 0 {
		t.Fatalf("failed captures recorded history: %+v", entries)
	}
	names, _ := f.svc.ListArtifacts("")
	if len(names) != 0 {
		t.Fatalf("failed captures wrote files: %v", names)
	}
}

func TestCaptureWindow_FallsBackToPrimaryDisplay(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.Capture(CaptureRequest{Mode: ModeWindow})
	if err != nil {
		t.Fatalf("capture window: %v", err)
	}
	if !res.WindowFallback {
		t.Fatal("expected window fallback")
	}
	if res.Width != 50 || res.Height != 200 {
		t.Fatalf("fallback size = %dx%d", res.Width, res.Height)
	}
	if diff := cmp.Diff([]string{"window", TagWindowFallback}, res.Entry.Tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
}

func TestCaptureWindow_Native(t *testing.T) {
	f := newFixture(t, false)
	f.src.AddWindow(capture.Window{ID: 42, Title: "editor"}, capture.TestPattern(12, 8))

	path, err := f.svc.CaptureWindow(42)
	if err != nil {
		t.Fatalf("capture window: %v", err)
	}
	img := decodeFile(t, path)
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
		t.Fatalf("window size = %v", img.Bounds())
	}

	if _, err := f.svc.CaptureWindow(7); !errors.Is(err, shoterr.ErrNotFound) {
		t.Fatalf("unknown window error = %v", err)
	}
}

func TestCapture_ResizeFormatAndTarget(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.Capture(CaptureRequest{
		Mode:       ModeFullScreen,
		TargetPath: "custom.bmp",
		Resize:     &Size{Width: 25, Height: 40},
		Tags:       []string{"docs"},
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Path != filepath.Join(f.saveDir, "custom.bmp") || res.Format != "bmp" {
		t.Fatalf("result = %+v", res)
	}
	img := decodeFile(t, res.Path)
	if img.Bounds().Dx() != 25 || img.Bounds().Dy() != 40 {
		t.Fatalf("size = %v", img.Bounds())
	}
	if diff := cmp.Diff([]string{"fullscreen", "docs"}, res.Entry.Tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}

	// An explicit name that exists is not replaced.
	again, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, TargetPath: "custom.bmp"})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if filepath.Base(again.Path) != "custom_1.bmp" {
		t.Fatalf("path = %q", again.Path)
	}

	if _, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, TargetPath: "../escape.png"}); !errors.Is(err, shoterr.ErrInvalid) {
		t.Fatalf("traversal error = %v", err)
	}
	if _, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, TargetPath: "a.gif"}); !errors.Is(err, shoterr.ErrUnsupportedFormat) {
		t.Fatalf("gif error = %v", err)
	}
}

func TestCapture_FormatAndTargetExtension(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, Format: codec.JPEG, TargetPath: "shot.png"})
	if !errors.Is(err, shoterr.ErrInvalid) {
		t.Fatalf("mismatch error = %v, want ErrInvalid", err)
	}
	if names, _ := f.svc.ListArtifacts(""); len(names) != 0 {
		t.Fatalf("mismatched request wrote %v", names)
	}

	res, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, Format: codec.JPEG, TargetPath: "shot.jpeg"})
	if err != nil || res.Format != "jpeg" {
		t.Fatalf("jpeg alias = %+v, %v", res, err)
	}

	res, err = f.svc.Capture(CaptureRequest{Mode: ModeFullScreen, Format: codec.BMP, TargetPath: "noext"})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if filepath.Base(res.Path) != "noext.bmp" {
		t.Fatalf("path = %q, want noext.bmp", res.Path)
	}
	data, _ := os.ReadFile(res.Path)
	if got, _, err := codec.Sniff(data); err != nil || got != codec.BMP {
		t.Fatalf("sniff = %v, %v", got, err)
	}
}

func TestCapture_SettingsFormat(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.UpdateSettings(func(s *config.Settings) error {
		s.FileFormat = "jpg"
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	path, err := f.svc.CaptureFullScreen()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Fatalf("path = %q, want .jpg", path)
	}
	data, _ := os.ReadFile(path)
	if format, _, err := codec.Sniff(data); err != nil || format != codec.JPEG {
		t.Fatalf("sniff = %v, %v", format, err)
	}
}

func TestCapture_AutoCopy(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.svc.Capture(CaptureRequest{Mode: ModeRegion, Region: &imaging.Rect{Width: 4, Height: 3}})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !res.Copied || f.clip.width != 4 || f.clip.height != 3 || len(f.clip.pixels) != 4*3*4 {
		t.Fatalf("clipboard = %dx%d (%d bytes), copied=%v", f.clip.width, f.clip.height, len(f.clip.pixels), res.Copied)
	}

	// A clipboard failure does not fail the capture.
	f.clip.err = errors.New("no display")
	if _, err := f.svc.CaptureRegion(0, 0, 4, 3); err != nil {
		t.Fatalf("capture with failing clipboard: %v", err)
	}
}

func TestCapture_NoAutoCopy(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.CaptureFullScreen(); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if f.clip.calls != 0 {
		t.Fatalf("clipboard called %d times with auto_copy off", f.clip.calls)
	}
}

func TestCapture_NoSource(t *testing.T) {
	svc, err := New(Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := svc.CaptureFullScreen(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("error = %v", err)
	}
	if _, err := svc.ListDisplays(); !errors.Is(err, shoterr.ErrSourceUnavailable) {
		t.Fatalf("list displays error = %v", err)
	}
}

func TestCapture_EmptySource(t *testing.T) {
	svc, err := New(Options{DataDir: t.TempDir(), Source: capture.NewStaticSource()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = svc.CaptureFullScreen()
	if !errors.Is(err, shoterr.ErrSourceUnavailable) || shoterr.StageOf(err) != shoterr.StageSource {
		t.Fatalf("error = %v (stage %q)", err, shoterr.StageOf(err))
	}
}

func TestCaptureRequestValidate(t *testing.T) {
	region := &imaging.Rect{Width: 1, Height: 1}
	tests := []struct {
		name string
		req  CaptureRequest
		want error
	}{
		{"fullscreen", CaptureRequest{Mode: ModeFullScreen}, nil},
		{"region", CaptureRequest{Mode: ModeRegion, Region: region}, nil},
		{"region missing", CaptureRequest{Mode: ModeRegion}, shoterr.ErrInvalid},
		{"region on window", CaptureRequest{Mode: ModeWindow, Region: region}, shoterr.ErrInvalid},
		{"unknown mode", CaptureRequest{Mode: "video"}, shoterr.ErrInvalid},
		{"bad format", CaptureRequest{Mode: ModeFullScreen, Format: codec.Format(99)}, shoterr.ErrUnsupportedFormat},
		{"bad resize", CaptureRequest{Mode: ModeFullScreen, Resize: &Size{Width: 0, Height: 5}}, shoterr.ErrEmptyRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"fullscreen": ModeFullScreen, "Window": ModeWindow, " region ": ModeRegion, "full": ModeFullScreen} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("video"); !errors.Is(err, shoterr.ErrInvalid) {
		t.Errorf("ParseMode(video) error = %v", err)
	}
}

func TestHistoryOperations(t *testing.T) {
	f := newFixture(t, false)

	entry := history.Entry{
		ID:        "0b6c2a8e-3f51-4d6b-9a0e-6d2d3f1f0a11",
		FilePath:  "/tmp/x.png",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Width:     10,
		Height:    20,
		Tags:      []string{},
	}
	if err := f.svc.AddHistory(entry); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := f.svc.GetHistory()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff([]history.Entry{entry}, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	if err := f.svc.ClearHistory(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = f.svc.GetHistory()
	if err != nil || len(got) != 0 {
		t.Fatalf("history after clear = %v, %v", got, err)
	}
}

func TestConcurrentAddHistory(t *testing.T) {
	f := newFixture(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := f.svc.AddHistory(history.NewEntry(fmt.Sprintf("/tmp/%d.png", i), 1, 1)); err != nil {
				t.Errorf("add: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := f.svc.GetHistory()
	if err != nil || len(got) != 2 {
		t.Fatalf("history = %d entries, %v; want 2", len(got), err)
	}
}

func TestConcurrentCapturesKeepEveryArtifact(t *testing.T) {
	f := newFixture(t, false)

	const n = 16
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path, err := f.svc.CaptureFullScreen()
			if err != nil {
				t.Errorf("capture %d: %v", i, err)
				return
			}
			paths[i] = path
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("two captures share %q", p)
		}
		seen[p] = true
	}
	names, err := f.svc.ListArtifacts("")
	if err != nil || len(names) != n {
		t.Fatalf("save dir holds %d files, %v; want %d", len(names), err, n)
	}

	entries, err := f.svc.GetHistory()
	if err != nil || len(entries) != n {
		t.Fatalf("history = %d entries, %v; want %d", len(entries), err, n)
	}
	for _, e := range entries {
		if !seen[e.FilePath] {
			t.Fatalf("history entry points at unknown file %q", e.FilePath)
		}
		delete(seen, e.FilePath)
	}
}

func TestConvertArtifactFormat(t *testing.T) {
	f := newFixture(t, false)
	src := opaquePNG(t, 16, 9)
	if _, err := f.svc.SaveImageBytes("shot.png", src); err != nil {
		t.Fatalf("save bytes: %v", err)
	}

	name, err := f.svc.ConvertArtifactFormat("shot.png", "bmp")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if name != "shot.bmp" {
		t.Fatalf("name = %q, want shot.bmp", name)
	}

	kept, err := os.ReadFile(filepath.Join(f.saveDir, "shot.png"))
	if err != nil {
		t.Fatalf("source gone: %v", err)
	}
	if string(kept) != string(src) {
		t.Fatal("source bytes changed")
	}

	data, err := f.svc.LoadArtifact("shot.bmp")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if format, cfg, err := codec.Sniff(data); err != nil || format != codec.BMP || cfg.Width != 16 || cfg.Height != 9 {
		t.Fatalf("sniff = %v %+v %v", format, cfg, err)
	}

	again, err := f.svc.ConvertArtifactFormat("shot.png", "bmp")
	if err != nil || again != "shot_1.bmp" {
		t.Fatalf("second convert = %q, %v", again, err)
	}
	same, err := f.svc.ConvertArtifactFormat("shot.png", "PNG")
	if err != nil || same != "shot_1.png" {
		t.Fatalf("same-format convert = %q, %v", same, err)
	}

	if _, err := f.svc.ConvertArtifactFormat("shot.png", "gif"); !errors.Is(err, shoterr.ErrUnsupportedFormat) {
		t.Fatalf("gif error = %v", err)
	}
	if _, err := f.svc.ConvertArtifactFormat("missing.png", "bmp"); !errors.Is(err, shoterr.ErrNotFound) {
		t.Fatalf("missing error = %v", err)
	}
}

func TestResizeArtifact(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.SaveImageBytes("shot.png", opaquePNG(t, 64, 48)); err != nil {
		t.Fatalf("save bytes: %v", err)
	}

	name, err := f.svc.ResizeArtifact("shot.png", 640, 480)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if name != "shot_640x480.png" {
		t.Fatalf("name = %q", name)
	}
	img := decodeFile(t, filepath.Join(f.saveDir, name))
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("size = %v", img.Bounds())
	}

	entries, _ := f.svc.GetHistory()
	if len(entries) != 1 || entries[0].Width != 640 || entries[0].Tags[0] != TagResized {
		t.Fatalf("history = %+v", entries)
	}

	if _, err := f.svc.ResizeArtifact("shot.png", 0, 10); !errors.Is(err, shoterr.ErrEmptyRegion) {
		t.Fatalf("zero width error = %v", err)
	}
}

func TestCorruptArtifact(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.SaveImageBytes("broken.png", []byte("not an image")); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := f.svc.ResizeArtifact("broken.png", 10, 10)
	if !errors.Is(err, shoterr.ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
	if !strings.Contains(err.Error(), "broken.png") {
		t.Fatalf("error %q should name the file", err)
	}
}

func TestListArtifactsNewestFirst(t *testing.T) {
	f := newFixture(t, false)
	for _, n := range []string{"screenshot_1700000001.png", "screenshot_1700000003.png", "screenshot_1700000002.png"} {
		if _, err := f.svc.SaveImageBytes(n, opaquePNG(t, 1, 1)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := f.svc.ListArtifacts("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"screenshot_1700000003.png", "screenshot_1700000002.png", "screenshot_1700000001.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	empty, err := f.svc.ListArtifacts(filepath.Join(t.TempDir(), "nowhere"))
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing dir = %v, %v", empty, err)
	}
}

func TestSaveImageBytes_Overwrites(t *testing.T) {
	f := newFixture(t, false)
	abs := filepath.Join(t.TempDir(), "nested", "raw.bin")
	if _, err := f.svc.SaveImageBytes(abs, []byte("one")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.svc.SaveImageBytes(abs, []byte("two")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := f.svc.LoadArtifact(abs)
	if err != nil || string(got) != "two" {
		t.Fatalf("load = %q, %v", got, err)
	}
}

func TestCopyToClipboard(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.svc.SaveImageBytes("shot.png", opaquePNG(t, 3, 2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.svc.CopyToClipboard("shot.png"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if diff := cmp.Diff(capture.TestPattern(3, 2).Pix, f.clip.pixels); diff != "" {
		t.Fatalf("clipboard pixels (-want +got):\n%s", diff)
	}

	noClip, _ := New(Options{DataDir: t.TempDir()})
	if err := noClip.CopyToClipboard("shot.png"); !errors.Is(err, shoterr.ErrInvalid) {
		t.Fatalf("no clipboard error = %v", err)
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.Dispatch(config.ActionCaptureFullScreen)
	if err != nil || res.Width != 50 {
		t.Fatalf("fullscreen = %+v, %v", res, err)
	}
	res, err = f.svc.Dispatch(config.ActionCaptureRegion)
	if err != nil || res.Width != 20 || res.Height != 30 {
		t.Fatalf("region = %+v, %v", res, err)
	}
	res, err = f.svc.Dispatch(config.ActionCaptureWindow)
	if err != nil || !res.WindowFallback {
		t.Fatalf("window = %+v, %v", res, err)
	}
	if _, err := f.svc.Dispatch("record_video"); !errors.Is(err, shoterr.ErrNotFound) {
		t.Fatalf("unknown action error = %v", err)
	}
}

func TestDispatchRegionCropsTheSelectedFrame(t *testing.T) {
	root := t.TempDir()
	src := &changingSource{StaticSource: capture.NewSyntheticSource(64, 64)}
	sel := &recordingSelector{rect: imaging.Rect{X: 8, Y: 4, Width: 16, Height: 12}}
	svc, err := New(Options{DataDir: filepath.Join(root, "data"), Source: src, Selector: sel})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.UpdateSettings(func(s *config.Settings) error {
		s.SaveDirectory = filepath.Join(root, "shots")
		s.AutoCopy = false
		return nil
	}); err != nil {
		t.Fatalf("settings: %v", err)
	}

	res, err := svc.Dispatch(config.ActionCaptureRegion)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("display captured %d times, want 1", src.calls)
	}

	want, err := imaging.Crop(sel.frame, 8, 4, 16, 12)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if diff := cmp.Diff(want.Pix, decodeFile(t, res.Path).Pix); diff != "" {
		t.Fatalf("saved region differs from the selected frame (-want +got):\n%s", diff)
	}
}

func TestBindHotkeys(t *testing.T) {
	f := newFixture(t, false)
	settings := config.Defaults()
	settings.Hotkeys["open_editor"] = "Ctrl+E"

	reg := &fakeRegistrar{}
	bound, err := f.svc.BindHotkeys(reg, settings)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	want := []string{config.ActionCaptureFullScreen, config.ActionCaptureRegion, config.ActionCaptureWindow}
	if diff := cmp.Diff(want, bound); diff != "" {
		t.Fatalf("bound (-want +got):\n%s", diff)
	}
	if _, ok := reg.bound["Ctrl+E"]; ok {
		t.Fatal("unknown action must not be registered")
	}

	reg.bound["CmdOrCtrl+Shift+S"]()
	entries, _ := f.svc.GetHistory()
	if len(entries) != 1 {
		t.Fatalf("hotkey callback produced %d entries", len(entries))
	}

	failing := &fakeRegistrar{fail: "CmdOrCtrl+Shift+W"}
	bound, err = f.svc.BindHotkeys(failing, config.Defaults())
	if !errors.Is(err, shoterr.ErrInvalid) || len(bound) != 2 {
		t.Fatalf("bind with failure = %v, %v", bound, err)
	}
}

func TestSubscribeReceivesHistoryEvents(t *testing.T) {
	f := newFixture(t, false)
	ch := f.svc.Subscribe()
	defer f.svc.Unsubscribe(ch)

	path, err := f.svc.CaptureFullScreen()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	ev := <-ch
	if ev.Type != EventAdded || ev.Entry == nil || ev.Entry.FilePath != path {
		t.Fatalf("event = %+v", ev)
	}

	if err := f.svc.ClearHistory(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ev := <-ch; ev.Type != EventCleared {
		t.Fatalf("event = %+v", ev)
	}
}

func TestCapture_HistoryFailureKeepsArtifact(t *testing.T) {
	f := newFixture(t, false)
	if err := os.WriteFile(f.svc.HistoryPath(), []byte("{oops"), 0644); err != nil {
		t.Fatalf("corrupt history: %v", err)
	}

	res, err := f.svc.Capture(CaptureRequest{Mode: ModeFullScreen})
	if !errors.Is(err, shoterr.ErrCorrupt) || shoterr.StageOf(err) != shoterr.StageHistory {
		t.Fatalf("error = %v (stage %q)", err, shoterr.StageOf(err))
	}
	if _, statErr := os.Stat(res.Path); statErr != nil {
		t.Fatalf("artifact missing after history failure: %v", statErr)
	}
}

func TestDisplaysAndWindows(t *testing.T) {
	f := newFixture(t, false)
	displays, err := f.svc.ListDisplays()
	if err != nil || len(displays) != 1 || displays[0].Height != 200 {
		t.Fatalf("displays = %+v, %v", displays, err)
	}
	f.src.AddWindow(capture.Window{ID: 3, Title: "t"}, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	windows, err := f.svc.ListWindows()
	if err != nil || len(windows) != 1 || windows[0].ID != 3 {
		t.Fatalf("windows = %+v, %v", windows, err)
	}
	info, err := f.svc.Source()
	if err != nil || info.Name != "static" || !info.Capabilities.WindowCapture {
		t.Fatalf("source = %+v, %v", info, err)
	}
}
