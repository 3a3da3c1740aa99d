package cmd

import (
	"context"
	"log/slog"

	"github.com/lehigh-university-libraries/roomstyler/internal/config"
	"github.com/lehigh-university-libraries/roomstyler/internal/gemini"
	"github.com/lehigh-university-libraries/roomstyler/internal/geminirest"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

// newClient builds the model client for the configured transport. The
// returned func releases it.
func newClient(ctx context.Context, cfg config.Config) (providers.Client, func(), error) {
	settings := cfg.Providers()

	switch cfg.Gemini.Transport {
	case config.TransportREST:
		client, err := geminirest.New(settings)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("Using Gemini REST transport", "detect_model", settings.DetectModel, "image_model", settings.ImageModel)
		return client, func() {}, nil
	default:
		client, err := gemini.New(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("Using Gemini SDK transport", "detect_model", settings.DetectModel, "image_model", settings.ImageModel)
		return client, func() {
			if err := client.Close(); err != nil {
				slog.Error("Failed to close Gemini client", "err", err)
			}
		}, nil
	}
}
