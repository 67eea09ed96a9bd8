package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bryanchriswhite/FocusShot/internal/capture"
	"github.com/bryanchriswhite/FocusShot/internal/config"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/bryanchriswhite/FocusShot/internal/shot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FOCUSSHOT_DATA_DIR.
const EnvPrefix = "FOCUSSHOT"

var rootCmd = &cobra.Command{
	Use:   "focusshot",
	Short: "FocusShot - screenshot capture and history",
	Long: `FocusShot captures still images of a display, a region or a window,
encodes them as PNG, JPEG, BMP or TIFF and keeps a history of every capture.

Features:
  • Full-screen, region and window capture (X11, portal, cross-platform)
  • Crop, resize and format conversion of saved captures
  • Durable capture history and user settings
  • REST API and live history feed for front ends`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)
		return nil
	},
}

func initLogging(cmd *cobra.Command) {
	logger.InitWithWriter(viper.GetString("log_level"), viper.GetBool("pretty_log"), cmd.ErrOrStderr())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("data-dir", "", "application data directory (default is $XDG_CONFIG_HOME/focusshot)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty-log", false, "human-readable log output")
	rootCmd.PersistentFlags().String("backend", capture.Auto, "capture backend (auto, x11, screenshot, portal, static)")

	// Bind flags to viper
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty_log", rootCmd.PersistentFlags().Lookup("pretty-log"))
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dataDir resolves --data-dir / FOCUSSHOT_DATA_DIR.
func dataDir() (string, error) {
	return config.DataDir(viper.GetString("data_dir"))
}

// newService builds a service. With withSource the selected capture backend
// is opened; the returned func closes it.
func newService(withSource bool) (*shot.Service, func(), error) {
	dir, err := dataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	opts := shot.Options{DataDir: dir}
	cleanup := func() {}

	if withSource {
		router, err := capture.NewRouter(viper.GetString("backend"), capture.DefaultBackends()...)
		if err != nil {
			return nil, nil, err
		}
		if err := router.Start(); err != nil {
			return nil, nil, err
		}
		opts.Source = router
		cleanup = func() { router.Close() }
	}

	svc, err := shot.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// printStructured writes v as JSON or YAML.
func printStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
	}
}
