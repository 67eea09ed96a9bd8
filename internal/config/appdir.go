package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the application-data directory
const AppName = "focusshot"

// DataDir resolves the application-data directory holding settings.json and
// history.json. Priority:
// 1) override (flag or FOCUSSHOT_DATA_DIR via viper), with ~ expanded
// 2) os.UserConfigDir()/focusshot
// 3) $HOME/.config/focusshot
func DataDir(override string) (string, error) {
	if override != "" {
		return ExpandHome(override)
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}

// ExpandHome replaces a leading "~" (alone or followed by a separator) with
// the current user's home directory and returns an absolute path.
func ExpandHome(path string) (string, error) {
	if path == "~" || len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}
	return filepath.Abs(path)
}
