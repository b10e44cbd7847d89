package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfvision/shelfscan/internal/handlers"
	"github.com/shelfvision/shelfscan/internal/registry"
	"github.com/shelfvision/shelfscan/internal/scan"
)

func newServeCmd() *cobra.Command {
	var port string
	var registryPath string
	var modelhostURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scan HTTP API",
		Long: `Starts an HTTP API that runs the shelf-scan pipeline on demand.

POST an image path (and optionally a target product) to /api/scan to
receive the assembled result records.`,
		Example: `  # Start server on default port 8888
  shelfscan serve

  # Start server on custom port with a registry
  shelfscan serve --port 3000 --registry products.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New()
			if _, err := os.Stat(registryPath); err == nil {
				loaded, err := registry.Load(registryPath)
				if err != nil {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = loaded
			} else {
				slog.Warn("Registry file missing, serving with an empty registry", "registry", registryPath)
			}

			service := scan.NewService(buildCollaborators(modelhostURL), reg, nil)
			handler := handlers.New(service, scan.DefaultOptions())

			mux := http.NewServeMux()
			mux.HandleFunc("/api/scan", handler.HandleScan)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfscan API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&registryPath, "registry", "products.yaml", "Product registry file")
	cmd.Flags().StringVar(&modelhostURL, "modelhost", "", "Inference service base URL")

	return cmd
}
