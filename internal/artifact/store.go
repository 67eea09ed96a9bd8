// Package artifact places encoded captures on disk and reads them back.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/fileutil"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// FilePrefix starts every synthesized artifact name
const FilePrefix = "screenshot_"

// Store resolves artifact paths and performs the file I/O
type Store struct {
	now func() time.Time
}

// NewStore creates an artifact store using the wall clock
func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock creates an artifact store with a fixed time source
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// SaveDir expands the settings' save directory and makes sure it exists
func (s *Store) SaveDir(settings config.Settings) (string, error) {
	dir, err := config.ExpandHome(settings.SaveDirectory)
	if err != nil {
		return "", shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "resolve save directory", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "create save directory", err).WithPath(dir)
	}
	return dir, nil
}

// ResolvePath returns the preferred destination for a new artifact. An
// explicit filename is joined to the save directory; otherwise the name is
// screenshot_<unix>.<ext>. Create settles collisions.
func (s *Store) ResolvePath(settings config.Settings, explicitName string) (string, error) {
	dir, err := s.SaveDir(settings)
	if err != nil {
		return "", err
	}

	if explicitName != "" {
		return Locate(dir, explicitName)
	}

	format, err := settings.Format()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%d.%s", FilePrefix, s.now().Unix(), format.Extension())
	return filepath.Join(dir, name), nil
}

// Locate joins a bare filename to dir, rejecting anything that would
// escape it.
func Locate(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsRune(name, '/') {
		return "", shoterr.Errorf(shoterr.KindInvalid, shoterr.StageStorage, "locate", "invalid artifact name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// Write stores data at path, creating parent directories. The write goes
// through a temporary file so a crash never leaves a truncated artifact.
func (s *Store) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "create directory", err).WithPath(dir)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "write", err).WithPath(path)
	}

	logger.WithComponent("artifact").Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Artifact written")
	return nil
}

// maxCollisions bounds the _N suffixes Create tries before giving up.
const maxCollisions = 10000

// Create stores data under path, or under path with a _N suffix before the
// extension when that name is taken, and returns the path used. Claiming
// the name and writing the content happen in one step, so concurrent
// captures never replace each other's files.
func (s *Store) Create(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "create directory", err).WithPath(dir)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 1; i <= maxCollisions; i++ {
		err := fileutil.CreateFileAtomic(candidate, data, 0644)
		if err == nil {
			logger.WithComponent("artifact").Debug().
				Str("path", candidate).
				Int("bytes", len(data)).
				Msg("Artifact created")
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "create", err).WithPath(candidate)
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return "", shoterr.Errorf(shoterr.KindStorageUnavailable, shoterr.StageStorage, "create",
		"no free name after %d attempts", maxCollisions).WithPath(path)
}

// Read returns the bytes stored at path
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shoterr.New(shoterr.KindNotFound, shoterr.StageStorage, "read", err).WithPath(path)
	}
	if err != nil {
		return nil, shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "read", err).WithPath(path)
	}
	return data, nil
}

// Exists reports whether a regular file exists at path
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// List returns the regular files in dir sorted by name, newest first.
// Synthesized names embed a unix timestamp, so descending name order is
// descending capture order. A missing directory lists as empty.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageStorage, "list", err).WithPath(dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Hidden files include in-flight temp files from WriteFileAtomic.
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// DerivedName builds the filename for an artifact derived from name:
// the stem, an optional suffix, and the extension of format.
//
//	DerivedName("shot.png", "_640x480", codec.PNG) == "shot_640x480.png"
//	DerivedName("shot.png", "", codec.BMP)         == "shot.bmp"
func DerivedName(name, suffix string, format codec.Format) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return stem + suffix + "." + format.Extension()
}
