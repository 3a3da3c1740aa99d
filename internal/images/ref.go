package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage indicates zero image bytes were supplied
	ErrEmptyImage = errors.New("empty image data")
	// ErrUnsupportedType indicates the bytes are not png, jpeg or webp
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrAssetConversion indicates a generated image could not be turned into an editable input
	ErrAssetConversion = errors.New("image could not be converted for editing")
)

// SupportedTypes lists the MIME types accepted for room and reference images
var SupportedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// Ref is an immutable handle to image bytes. The zero value is not valid; use New.
type Ref struct {
	id        string
	data      []byte
	mimeType  string
	width     int
	height    int
	createdAt time.Time
}

// New validates the bytes and wraps a private copy of them in a Ref.
// The MIME type is sniffed from content; declared types are not trusted.
func New(data []byte) (*Ref, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mimeType := DetectType(data)
	if !IsSupported(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(owned)); err != nil {
		slog.Warn("Failed to get image dimensions", "mime_type", mimeType, "error", err)
	} else {
		width, height = cfg.Width, cfg.Height
	}

	return &Ref{
		id:        uuid.New().String(),
		data:      owned,
		mimeType:  mimeType,
		width:     width,
		height:    height,
		createdAt: time.Now(),
	}, nil
}

// FromBase64 decodes standard base64 (without a data URI prefix)
func FromBase64(encoded string) (*Ref, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return New(data)
}

// FromDataURI materializes a "data:<mime>;base64,<payload>" string, as produced by
// the generation client for result images. Any failure is an ErrAssetConversion.
func FromDataURI(uri string) (*Ref, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: malformed data URI", ErrAssetConversion)
	}

	ref, err := FromBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetConversion, err)
	}
	return ref, nil
}

// DetectType sniffs the MIME type of image bytes
func DetectType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

// IsSupported reports whether mimeType is one of SupportedTypes
func IsSupported(mimeType string) bool {
	for _, t := range SupportedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

func (r *Ref) ID() string           { return r.id }
func (r *Ref) MIMEType() string     { return r.mimeType }
func (r *Ref) Width() int           { return r.width }
func (r *Ref) Height() int          { return r.height }
func (r *Ref) Size() int            { return len(r.data) }
func (r *Ref) CreatedAt() time.Time { return r.createdAt }

// URL is the path the HTTP layer serves this image from
func (r *Ref) URL() string {
	return "/api/images/" + r.id
}

// Bytes returns a copy of the image data
func (r *Ref) Bytes() []byte {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return data
}

// Base64 returns the image data as standard base64
func (r *Ref) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// DataURI returns the image as a data URI
func (r *Ref) DataURI() string {
	return "data:" + r.mimeType + ";base64," + r.Base64()
}

// Extension returns a file extension matching the MIME type
func (r *Ref) Extension() string {
	switch r.mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
