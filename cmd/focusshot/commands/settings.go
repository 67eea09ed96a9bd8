package commands

import (
	"fmt"

	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage FocusShot settings",
	Long:  `View and change the user settings stored in settings.json.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Example: `  # Show settings as YAML (default)
  focusshot settings show

  # Show settings as JSON
  focusshot settings show --format json`,
	RunE: runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a setting",
	Long: `Set a single setting. Keys are save_directory, file_format, auto_copy,
last_version and hotkeys.<action>. An empty hotkey value removes the binding.`,
	Example: `  # Save captures as JPEG
  focusshot settings set file_format jpg

  # Rebind full-screen capture
  focusshot settings set hotkeys.capture_fullscreen "CmdOrCtrl+Alt+S"`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a setting",
	Example: `  focusshot settings get save_directory
  focusshot settings get hotkeys.capture_region`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsGet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the settings and history file paths",
	RunE:  runSettingsPath,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE:  runSettingsReset,
}

var settingsFormat string

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsResetCmd)

	settingsShowCmd.Flags().StringVarP(&settingsFormat, "format", "f", "yaml", "output format (yaml or json)")
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	settings, err := svc.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return printStructured(cmd.OutOrStdout(), settingsFormat, settings)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	if _, err := svc.UpdateSettings(func(s *config.Settings) error {
		return s.Set(key, value)
	}); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Settings updated: %s = %s\n", key, value)
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	settings, err := svc.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	value, err := settings.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runSettingsPath(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.SettingsPath())
	fmt.Fprintln(cmd.OutOrStdout(), svc.HistoryPath())
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	svc, _, err := newService(false)
	if err != nil {
		return err
	}
	if err := svc.SaveSettings(config.Defaults()); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
	return nil
}
