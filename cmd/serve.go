package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port     string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an HTTP server that drives the recognition pipeline",
		Long: `Starts an HTTP server on the specified port that accepts images and
exposes the state of the recognition pipeline.

Endpoints:
  POST /api/requests          multipart "file" or JSON {"image_url": "..."}
  POST /api/requests/camera   capture with the configured camera command
  GET  /api/state             current state (?generation=N&wait=10s to block)
  POST /api/reset             cancel in-flight work and return to idle
  POST /api/retry             re-issue the most recent request

Add ?wait=<duration> to a POST to block until the request completes.`,
		Example: `  # Start server on default port 8888
  textsnap serve

  # Start server on custom port with OpenAI
  textsnap serve --port 3000 --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, provider)
			if err != nil {
				return err
			}
			defer a.Close()

			camera, err := a.cameraSource()
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			handlers.New(a.pipeline, camera).Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Textsnap server available", "addr", addr, "url", "http://localhost"+addr, "provider", a.client.ProviderName())
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
	cmd.Flags().StringVar(&provider, "provider", "", "OCR engine (defaults to OCR_PROVIDER)")

	return cmd
}
