package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmueller/voxscribe/internal/relay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	port        int
	upstreamURL string
	model       string
	maxUploadMB int
}

func newServeCmd(app *appState) *cobra.Command {
	opts := &serveOptions{
		port:        relay.PortFromEnv(),
		upstreamURL: relay.DefaultUpstreamURL,
		model:       relay.DefaultModel,
		maxUploadMB: int(relay.DefaultMaxUploadBytes >> 20),
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.port <= 0 || opts.port > 65535 {
				return fmt.Errorf("invalid port %d", opts.port)
			}
			if opts.maxUploadMB <= 0 {
				return fmt.Errorf("invalid --max-upload-mb %d", opts.maxUploadMB)
			}

			serveFn := app.serveFn
			if serveFn == nil {
				serveFn = app.serveRelay
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serveFn(ctx, relay.Config{
				Port:           opts.port,
				UpstreamURL:    opts.upstreamURL,
				Model:          opts.model,
				MaxUploadBytes: int64(opts.maxUploadMB) << 20,
				Logger:         app.log(),
			})
		},
	}

	bindLoggingFlags(cmd, app)
	cmd.Flags().IntVar(&opts.port, "port", opts.port, "Port to listen on (defaults to $PORT or 3001)")
	cmd.Flags().StringVar(&opts.upstreamURL, "upstream-url", opts.upstreamURL, "Speech-to-text provider endpoint")
	cmd.Flags().StringVar(&opts.model, "model", opts.model, "Provider model identifier")
	cmd.Flags().IntVar(&opts.maxUploadMB, "max-upload-mb", opts.maxUploadMB, "Largest accepted upload in MiB")

	return cmd
}

func (a *appState) serveRelay(ctx context.Context, cfg relay.Config) error {
	server := relay.New(cfg)
	a.log().Info("starting relay", zap.String("addr", server.Addr()), zap.String("model", cfg.Model))
	return server.ListenAndServe(ctx)
}
