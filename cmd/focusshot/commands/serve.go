package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/FocusShot/internal/api"
	"github.com/bryanchriswhite/FocusShot/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FocusShot API server",
	Long: `Start the HTTP API. It exposes capture, settings, history and saved
images under /api and streams history changes on /api/history/stream.`,
	Example: `  # Start server on the default address
  focusshot serve

  # Listen on another port with debug logging
  focusshot serve --addr :9090 --log-level debug

  # Serve without a display
  focusshot serve --backend static`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	svc, cleanup, err := newService(true)
	if err != nil {
		return fmt.Errorf("failed to initialize capture service: %w", err)
	}
	defer cleanup()

	info, _ := svc.Source()
	log.Info().
		Str("data_dir", svc.DataDir()).
		Str("backend", info.Name).
		Msg("Capture service ready")

	server := api.NewServer(svc)
	addr := viper.GetString("addr")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info().
		Str("api", fmt.Sprintf("http://%s/api", addr)).
		Msg("FocusShot is running - press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
		log.Info().Msg("Shutting down gracefully...")
		return nil
	}
}
