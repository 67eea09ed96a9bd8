package shot

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/bryanchriswhite/FocusShot/internal/artifact"
	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/history"
	"github.com/bryanchriswhite/FocusShot/internal/imaging"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// Tags recorded on history entries for derived artifacts.
const (
	TagResized   = "resized"
	TagConverted = "converted"
)

// SaveImageBytes writes data to path as-is, replacing any existing file.
// A relative path is a filename inside the save directory. It returns the
// absolute path written.
func (s *Service) SaveImageBytes(path string, data []byte) (string, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := s.artifacts.Write(resolved, data); err != nil {
		return "", err
	}
	logger.WithComponent("shot").Info().
		Str("path", resolved).
		Int("bytes", len(data)).
		Msg("Image bytes saved")
	return resolved, nil
}

// SaveDirectory returns the expanded save directory, creating it if needed.
func (s *Service) SaveDirectory() (string, error) {
	settings, err := s.settings.Load()
	if err != nil {
		return "", err
	}
	return s.artifacts.SaveDir(settings)
}

// ListArtifacts lists the files in dir, newest first. An empty dir means
// the save directory.
func (s *Service) ListArtifacts(dir string) ([]string, error) {
	if dir == "" {
		var err error
		if dir, err = s.SaveDirectory(); err != nil {
			return nil, err
		}
	}
	return s.artifacts.List(dir)
}

// LoadArtifact returns the encoded bytes of an artifact. name is an
// absolute path or a filename inside the save directory.
func (s *Service) LoadArtifact(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return s.artifacts.Read(path)
}

// ResizeArtifact writes a copy of name scaled to exactly width x height next
// to the original, as <stem>_<w>x<h>.<ext>. It returns the new filename.
func (s *Service) ResizeArtifact(name string, width, height int) (string, error) {
	path, img, format, err := s.decodeArtifact(name)
	if err != nil {
		return "", err
	}

	resized, err := imaging.Resize(img, width, height, imaging.CatmullRom)
	if err != nil {
		return "", err
	}

	suffix := fmt.Sprintf("_%dx%d", width, height)
	return s.writeDerived(path, suffix, format, resized, TagResized)
}

// ConvertArtifactFormat re-encodes name into formatName next to the
// original. The source is never overwritten: converting to the same format,
// or onto an existing file, adds a _N suffix. It returns the new filename.
func (s *Service) ConvertArtifactFormat(name, formatName string) (string, error) {
	format, err := codec.ParseFormat(formatName)
	if err != nil {
		return "", err
	}
	path, img, _, err := s.decodeArtifact(name)
	if err != nil {
		return "", err
	}
	return s.writeDerived(path, "", format, img, TagConverted)
}

// CopyToClipboard decodes an artifact and hands it to the clipboard sink.
func (s *Service) CopyToClipboard(name string) error {
	if s.clipboard == nil {
		return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageStorage, "copy to clipboard", "no clipboard configured")
	}
	path, img, _, err := s.decodeArtifact(name)
	if err != nil {
		return err
	}

	b := img.Bounds()
	if err := s.clipboard.SetImage(b.Dx(), b.Dy(), img.Pix); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "copy to clipboard", err).WithPath(path)
	}

	logger.WithComponent("shot").Info().
		Str("path", path).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Msg("Image copied to clipboard")
	return nil
}

func (s *Service) decodeArtifact(name string) (string, *image.NRGBA, codec.Format, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", nil, 0, err
	}
	data, err := s.artifacts.Read(path)
	if err != nil {
		return "", nil, 0, err
	}
	format, _, err := codec.Sniff(data)
	if err != nil {
		return "", nil, 0, withPath(err, path)
	}
	img, err := codec.Decode(data)
	if err != nil {
		return "", nil, 0, withPath(err, path)
	}
	return path, img, format, nil
}

func (s *Service) writeDerived(src, suffix string, format codec.Format, img *image.NRGBA, tag string) (string, error) {
	data, err := codec.Encode(img, format)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(filepath.Dir(src), artifact.DerivedName(filepath.Base(src), suffix, format))
	dst, err = s.artifacts.Create(dst, data)
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	entry := history.NewEntry(dst, b.Dx(), b.Dy(), tag)
	if err := s.AddHistory(entry); err != nil {
		return filepath.Base(dst), err
	}

	logger.WithComponent("shot").Info().
		Str("source", src).
		Str("path", dst).
		Str("format", format.String()).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Msg("Derived artifact saved")
	return filepath.Base(dst), nil
}

// resolve maps an artifact reference to a path: absolute paths are used
// as-is, bare filenames are looked up in the save directory.
func (s *Service) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	dir, err := s.SaveDirectory()
	if err != nil {
		return "", err
	}
	return artifact.Locate(dir, name)
}

func withPath(err error, path string) error {
	var e *shoterr.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
