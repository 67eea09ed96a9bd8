package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/FocusShot/internal/fileutil"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
)

// SettingsFileName is the settings file inside the application-data directory
const SettingsFileName = "settings.json"

// Store persists Settings as a single JSON document
type Store struct {
	path  string
	guard *fileutil.Guard
}

// NewStore creates a settings store rooted at the application-data directory
func NewStore(dataDir string) *Store {
	path := filepath.Join(dataDir, SettingsFileName)
	return &Store{
		path:  path,
		guard: fileutil.NewGuard(path),
	}
}

// Path returns the settings file path
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored settings. A missing file yields Defaults(); a
// corrupt file is logged and also yields Defaults(). Only I/O failures are
// returned as errors.
func (s *Store) Load() (Settings, error) {
	settings, err := s.LoadStrict()
	if err == nil {
		return settings, nil
	}
	if shoterr.KindOf(err) == shoterr.KindCorrupt {
		logger.WithComponent("settings").Warn().
			Err(err).
			Str("path", s.path).
			Msg("Settings file is corrupt, using defaults")
		return Defaults(), nil
	}
	return Settings{}, err
}

// LoadStrict is Load that reports a corrupt file as a Corrupt error instead
// of recovering, so callers can distinguish "absent" from "unreadable".
func (s *Store) LoadStrict() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WithComponent("settings").Debug().
			Str("path", s.path).
			Msg("Settings file not found, using defaults")
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageSettings, "read", err).WithPath(s.path)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, shoterr.New(shoterr.KindCorrupt, shoterr.StageSettings, "parse", err).WithPath(s.path)
	}

	if filled := settings.fillDefaults(); len(filled) > 0 {
		logger.WithComponent("settings").Debug().
			Strs("fields", filled).
			Msg("Filled missing settings with defaults")
	}
	return settings, nil
}

// Save overwrites the settings file with settings
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.guard.Do(func() error {
		return s.write(settings)
	})
}

// Update performs a locked read-modify-write. fn receives the current
// settings (defaults if absent) and may return an error to abort.
func (s *Store) Update(fn func(*Settings) error) (Settings, error) {
	var out Settings
	err := s.guard.Do(func() error {
		current, err := s.Load()
		if err != nil {
			return err
		}
		current = current.Clone()
		if err := fn(&current); err != nil {
			return err
		}
		if err := current.Validate(); err != nil {
			return err
		}
		if err := s.write(current); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return Settings{}, shoterr.InStage(err, shoterr.StageSettings, shoterr.KindInvalid, "update")
	}
	return out, nil
}

func (s *Store) write(settings Settings) error {
	log := logger.WithComponent("settings")

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageSettings, "create directory", err).WithPath(filepath.Dir(s.path))
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return shoterr.New(shoterr.KindInvalid, shoterr.StageSettings, "marshal", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", s.path).
			Msg("Failed to write settings")
		return shoterr.New(shoterr.KindStorageUnavailable, shoterr.StageSettings, "write", err).WithPath(s.path)
	}

	log.Info().
		Str("path", s.path).
		Msg("Settings saved")
	return nil
}
