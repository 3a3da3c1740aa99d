package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/roomstyler/internal/config"
	"github.com/lehigh-university-libraries/roomstyler/internal/handlers"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the redesign API server",
		Long: `Starts the Roomstyler HTTP API on the specified port.

Sessions live in memory: upload a room photo to POST /api/sessions, then drive
scans, edits and generations through /api/sessions/{id}/... . The stateless
POST /api/geminiProxy endpoint serves browser clients that keep their own
history.`,
		Example: `  # Start server on default port 8888
  roomstyler serve

  # Start server on custom port with the REST transport
  GEMINI_TRANSPORT=rest roomstyler serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			client, closeClient, err := newClient(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create model client: %w", err)
			}
			defer closeClient()

			handler := handlers.New(client, handlers.Options{
				DefaultPrompt:  cfg.Studio.DefaultPrompt,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
			})

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)
			mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + strconv.Itoa(cfg.Server.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Roomstyler API available", "addr", addr, "url", "http://localhost"+addr, "transport", cfg.Gemini.Transport)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give in-flight generations a moment to finish
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

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on (overrides PORT and server.port)")

	return cmd
}
