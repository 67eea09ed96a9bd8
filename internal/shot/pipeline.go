package shot

import (
	"image"
	"path/filepath"

	"github.com/bryanchriswhite/FocusShot/internal/capture"
	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// TagWindowFallback marks history entries whose window capture fell back
// to the primary display.
const TagWindowFallback = "window_fallback"

// CaptureFullScreen captures the primary display and returns the artifact
// path.
func (s *Service) CaptureFullScreen() (string, error) {
	res, err := s.Capture(CaptureRequest{Mode: ModeFullScreen})
	return res.Path, err
}

// CaptureRegion captures a rectangle of the primary display. A rectangle
// overhanging the display is clipped; one whose origin lies outside it
// fails with RegionOutOfBounds.
func (s *Service) CaptureRegion(x, y, width, height int) (string, error) {
	res, err := s.Capture(CaptureRequest{
		Mode:   ModeRegion,
		Region: &imaging.Rect{X: x, Y: y, Width: width, Height: height},
	})
	return res.Path, err
}

// CaptureWindow captures a window, or the active window for id 0.
func (s *Service) CaptureWindow(id uint32) (string, error) {
	res, err := s.Capture(CaptureRequest{Mode: ModeWindow, WindowID: id})
	return res.Path, err
}

// Capture runs the full pipeline for req. On a history failure the artifact
// has already been written and Result.Path names it.
func (s *Service) Capture(req CaptureRequest) (Result, error) {
	return s.capture(req, nil)
}

// capture is Capture with an optional frame already grabbed from the
// display. A region request crops that frame instead of capturing again.
func (s *Service) capture(req CaptureRequest, frame *image.NRGBA) (Result, error) {
	log := logger.WithComponent("shot")

	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	src, err := s.requireSource()
	if err != nil {
		return Result{}, err
	}

	settings, err := s.settings.Load()
	if err != nil {
		return Result{}, err
	}
	format, err := s.outputFormat(req, settings)
	if err != nil {
		return Result{}, err
	}

	res := Result{Backend: src.Name(), Format: format.String()}

	img, fallback, err := s.grab(src, req, frame)
	if err != nil {
		return Result{}, err
	}
	res.WindowFallback = fallback

	if req.Resize != nil {
		img, err = imaging.Resize(img, req.Resize.Width, req.Resize.Height, imaging.CatmullRom)
		if err != nil {
			return Result{}, err
		}
	}

	data, err := codec.Encode(img, format)
	if err != nil {
		return Result{}, err
	}

	path, err := s.targetPath(req.TargetPath, format, settings)
	if err != nil {
		return Result{}, err
	}
	if path, err = s.artifacts.Create(path, data); err != nil {
		return Result{}, err
	}

	b := img.Bounds()
	res.Path, res.Width, res.Height = path, b.Dx(), b.Dy()

	tags := append([]string{string(req.Mode)}, req.Tags...)
	if fallback {
		tags = append(tags, TagWindowFallback)
	}
	res.Entry = history.NewEntry(path, res.Width, res.Height, tags...)
	if err := s.AddHistory(res.Entry); err != nil {
		return res, err
	}

	if settings.AutoCopy && s.clipboard != nil {
		if err := s.clipboard.SetImage(res.Width, res.Height, img.Pix); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to copy capture to clipboard")
		} else {
			res.Copied = true
		}
	}

	log.Info().
		Str("path", path).
		Str("mode", string(req.Mode)).
		Str("backend", res.Backend).
		Str("format", res.Format).
		Int("width", res.Width).
		Int("height", res.Height).
		Int("bytes", len(data)).
		Bool("window_fallback", fallback).
		Msg("Screenshot saved")

	return res, nil
}

// grab captures the pixels for req and applies the region. The returned
// bool reports a window fallback.
func (s *Service) grab(src capture.Source, req CaptureRequest, frame *image.NRGBA) (*image.NRGBA, bool, error) {
	log := logger.WithComponent("shot")

	switch req.Mode {
	case ModeWindow:
		if !src.Capabilities().WindowCapture {
			log.Warn().
				Str("backend", src.Name()).
				Uint32("window_id", req.WindowID).
				Msg("Backend cannot capture windows, capturing the primary display instead")
			img, err := src.Capture(req.DisplayID)
			return img, true, sourceErr(err)
		}
		img, err := src.CaptureWindow(req.WindowID)
		return img, false, sourceErr(err)

	case ModeRegion:
		r := *req.Region
		if frame == nil {
			// Reject a bad origin before grabbing pixels when the display
			// size is known up front.
			if d, err := s.display(src, req.DisplayID); err == nil && d.Width > 0 && d.Height > 0 {
				if _, err := imaging.Clamp(r, d.Width, d.Height); err != nil {
					return nil, false, err
				}
			}
			var err error
			if frame, err = src.Capture(req.DisplayID); err != nil {
				return nil, false, sourceErr(err)
			}
		}
		cropped, err := imaging.Crop(frame, r.X, r.Y, r.Width, r.Height)
		return cropped, false, err

	default:
		img, err := src.Capture(req.DisplayID)
		return img, false, sourceErr(err)
	}
}

func (s *Service) display(src capture.Source, id string) (capture.Display, error) {
	if id == "" {
		return capture.PrimaryDisplay(src)
	}
	displays, err := src.ListDisplays()
	if err != nil {
		return capture.Display{}, err
	}
	for _, d := range displays {
		if d.ID == id || d.Name == id {
			return d, nil
		}
	}
	return capture.Display{}, shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSource, "display", "display %q", id)
}

// outputFormat picks the encoding: the request's format, then the target
// file's extension, then the settings. A request format that disagrees with
// the target's extension is rejected.
func (s *Service) outputFormat(req CaptureRequest, settings config.Settings) (codec.Format, error) {
	var fromExt codec.Format
	if ext := filepath.Ext(req.TargetPath); ext != "" {
		f, err := codec.ParseFormat(ext)
		if err != nil {
			return 0, err
		}
		fromExt = f
	}

	switch {
	case req.Format != 0 && fromExt != 0 && req.Format != fromExt:
		return 0, shoterr.Errorf(shoterr.KindInvalid, shoterr.StageEncode, "output format",
			"target %q does not match format %s", filepath.Base(req.TargetPath), req.Format)
	case req.Format != 0:
		return req.Format, nil
	case fromExt != 0:
		return fromExt, nil
	}
	return settings.Format()
}

// targetPath resolves the preferred destination of a new artifact. A target
// without an extension gets the output format's. Collisions are settled by
// artifact.Store.Create.
func (s *Service) targetPath(target string, format codec.Format, settings config.Settings) (string, error) {
	if target != "" && filepath.Ext(target) == "" {
		target += "." + format.Extension()
	}
	if target != "" && filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}
	return s.artifacts.ResolvePath(settings, target)
}

func sourceErr(err error) error {
	return shoterr.InStage(err, shoterr.StageSource, shoterr.KindCaptureFailed, "capture")
}
