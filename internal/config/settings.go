package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/codec"
	"github.com/bryanchriswhite/FocusShot/internal/shoterr"
	"github.com/spf13/cast"
)

// Hotkey action identifiers understood by the capture service. Bindings for
// any other action name are kept in the file but ignored.
const (
	ActionCaptureFullScreen = "capture_fullscreen"
	ActionCaptureRegion     = "capture_region"
	ActionCaptureWindow     = "capture_window"
)

// Version is written to last_version for newly created settings.
const Version = "0.1.0"

// Settings is the persisted user configuration
type Settings struct {
	SaveDirectory string            `json:"save_directory" yaml:"save_directory"`
	FileFormat    string            `json:"file_format" yaml:"file_format"`
	AutoCopy      bool              `json:"auto_copy" yaml:"auto_copy"`
	Hotkeys       map[string]string `json:"hotkeys" yaml:"hotkeys"`
	LastVersion   string            `json:"last_version" yaml:"last_version"`
}

// Defaults returns the first-run settings
func Defaults() Settings {
	return Settings{
		SaveDirectory: "~/Pictures/Screenshots",
		FileFormat:    "png",
		AutoCopy:      true,
		Hotkeys: map[string]string{
			ActionCaptureFullScreen: "CmdOrCtrl+Shift+S",
			ActionCaptureRegion:     "CmdOrCtrl+Shift+R",
			ActionCaptureWindow:     "CmdOrCtrl+Shift+W",
		},
		LastVersion: Version,
	}
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	out := s
	out.Hotkeys = maps.Clone(s.Hotkeys)
	return out
}

// Format returns the capture format. Only png and jpg are valid capture
// formats; bmp and tiff exist for artifact conversion only.
func (s Settings) Format() (codec.Format, error) {
	f, err := codec.ParseFormat(s.FileFormat)
	if err != nil {
		return 0, shoterr.InStage(err, shoterr.StageSettings, shoterr.KindUnsupportedFormat, "file_format")
	}
	if f != codec.PNG && f != codec.JPEG {
		return 0, shoterr.Errorf(shoterr.KindUnsupportedFormat, shoterr.StageSettings, "file_format",
			"%q is not a capture format (use png or jpg)", s.FileFormat)
	}
	return f, nil
}

// Validate checks the fields a capture depends on
func (s Settings) Validate() error {
	if strings.TrimSpace(s.SaveDirectory) == "" {
		return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSettings, "validate", "save_directory is required")
	}
	if _, err := s.Format(); err != nil {
		return err
	}
	for action, combo := range s.Hotkeys {
		if strings.TrimSpace(action) == "" {
			return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSettings, "validate", "empty hotkey action for %q", combo)
		}
	}
	return nil
}

// fillDefaults replaces missing or unusable fields with their defaults and
// reports which ones were replaced.
func (s *Settings) fillDefaults() []string {
	def := Defaults()
	var filled []string

	if strings.TrimSpace(s.SaveDirectory) == "" {
		s.SaveDirectory = def.SaveDirectory
		filled = append(filled, "save_directory")
	}
	if _, err := s.Format(); err != nil {
		s.FileFormat = def.FileFormat
		filled = append(filled, "file_format")
	}
	if s.Hotkeys == nil {
		s.Hotkeys = def.Hotkeys
		filled = append(filled, "hotkeys")
	}
	if s.LastVersion == "" {
		s.LastVersion = def.LastVersion
		filled = append(filled, "last_version")
	}
	return filled
}

// Get returns a single setting by key. Hotkeys are addressed as
// "hotkeys.<action>".
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "save_directory":
		return s.SaveDirectory, nil
	case "file_format":
		return s.FileFormat, nil
	case "auto_copy":
		return fmt.Sprintf("%t", s.AutoCopy), nil
	case "last_version":
		return s.LastVersion, nil
	}
	if action, ok := strings.CutPrefix(key, "hotkeys."); ok {
		if combo, ok := s.Hotkeys[action]; ok {
			return combo, nil
		}
	}
	return "", shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSettings, "get", "setting %q", key)
}

// Set parses value into the field named by key
func (s *Settings) Set(key, value string) error {
	switch key {
	case "save_directory":
		s.SaveDirectory = value
	case "file_format":
		candidate := Settings{FileFormat: value}
		if _, err := candidate.Format(); err != nil {
			return err
		}
		s.FileFormat = strings.ToLower(strings.TrimSpace(value))
	case "auto_copy":
		enabled, err := cast.ToBoolE(strings.TrimSpace(value))
		if err != nil {
			return shoterr.Errorf(shoterr.KindInvalid, shoterr.StageSettings, "set",
				"invalid boolean: %s (use: true or false)", value)
		}
		s.AutoCopy = enabled
	case "last_version":
		s.LastVersion = value
	default:
		action, ok := strings.CutPrefix(key, "hotkeys.")
		if !ok || action == "" {
			return shoterr.Errorf(shoterr.KindNotFound, shoterr.StageSettings, "set", "setting %q", key)
		}
		if s.Hotkeys == nil {
			s.Hotkeys = map[string]string{}
		}
		if value == "" {
			delete(s.Hotkeys, action)
		} else {
			s.Hotkeys[action] = value
		}
	}
	return nil
}
