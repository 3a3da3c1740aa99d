// Package imagestest builds small real images for tests.
package imagestest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// PNG encodes a solid w x h PNG. The shade varies the pixel data so refs differ.
func PNG(t testing.TB, w, h int, shade uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, shade)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a solid w x h JPEG
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, 128), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// Ref wraps a fresh PNG in an images.Ref
func Ref(t testing.TB, shade uint8) *images.Ref {
	t.Helper()
	ref, err := images.New(PNG(t, 4, 3, shade))
	if err != nil {
		t.Fatalf("new ref: %v", err)
	}
	return ref
}

func solid(w, h int, shade uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: 90, B: 200, A: 255})
		}
	}
	return img
}
