package images_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/images/imagestest"
)

func TestFetcherDownload(t *testing.T) {
	png := imagestest.PNG(t, 5, 5, 9)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/room.png":
			_, _ = w.Write(png)
		case "/notes.txt":
			_, _ = w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := images.NewFetcher()

	ref, err := f.Download(context.Background(), srv.URL+"/room.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ref.MIMEType())
	assert.Equal(t, 5, ref.Width())

	_, err = f.Download(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.Download(context.Background(), srv.URL+"/notes.txt")
	assert.ErrorIs(t, err, images.ErrUnsupportedType)
}

func TestFetcherLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.png")
	require.NoError(t, os.WriteFile(path, imagestest.PNG(t, 2, 2, 1), 0644))

	ref, err := images.NewFetcher().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ref.Height())

	_, err = images.NewFetcher().Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
