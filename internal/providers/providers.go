package providers

import (
	"context"
	"time"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// Config represents the configuration for an image model provider
type Config struct {
	APIKey      string
	BaseURL     string
	DetectModel string
	ImageModel  string
	Timeout     time.Duration
}

// Detector lists things visible in a room image
type Detector interface {
	// DetectObjects lists distinct editable furnishings (sofa, rug, lamp).
	DetectObjects(ctx context.Context, img *images.Ref) ([]string, error)
	// DetectStructuralElements lists floor, ceiling and individual walls.
	DetectStructuralElements(ctx context.Context, img *images.Ref) ([]string, error)
}

// Generator produces redesigned room images
type Generator interface {
	// Generate returns up to req.OutputCount images. Failed slots are dropped;
	// zero images is reported as ErrEmptyResult.
	Generate(ctx context.Context, req GenerationRequest) ([]*images.Ref, error)
}

// Client is the full remote generation contract
type Client interface {
	Detector
	Generator
}

// ScanKind selects which detector call a scan uses
type ScanKind string

const (
	ScanObjects   ScanKind = "objects"
	ScanStructure ScanKind = "structure"
)

// Valid reports whether k names a known scan
func (k ScanKind) Valid() bool {
	return k == ScanObjects || k == ScanStructure
}

// Detect dispatches to the detector call for kind
func Detect(ctx context.Context, d Detector, kind ScanKind, img *images.Ref) ([]string, error) {
	switch kind {
	case ScanObjects:
		return d.DetectObjects(ctx, img)
	case ScanStructure:
		return d.DetectStructuralElements(ctx, img)
	default:
		return nil, ErrInvalidRequest
	}
}
