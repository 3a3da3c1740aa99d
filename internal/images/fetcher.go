package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// MaxDownloadSize caps images fetched by URL
const MaxDownloadSize = 10 * 1024 * 1024

// Fetcher retrieves room images from URLs and local paths
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Download fetches an image over HTTP and validates it
func (f *Fetcher) Download(ctx context.Context, imageURL string) (*Ref, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", imageURL, MaxDownloadSize)
	}

	ref, err := New(data)
	if err != nil {
		return nil, err
	}

	slog.Info("Downloaded image", "url", imageURL, "mime_type", ref.MIMEType(), "bytes", ref.Size())
	return ref, nil
}

// Load reads an image from disk
func (f *Fetcher) Load(path string) (*Ref, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return New(data)
}
