package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// multipartOverhead is headroom for form boundaries and fields around the file
const multipartOverhead = 1 << 20

// readImage extracts one image from a multipart form ("files" or "file"),
// or from a JSON body carrying image_data (base64 or data URI) or image_url.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) (*images.Ref, error) {
	// base64 inflates the payload by a third
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*4/3+multipartOverhead)

	var (
		img *images.Ref
		err error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		img, err = h.readJSONImage(r)
	} else {
		img, err = h.readFileImage(r)
	}
	if err != nil {
		return nil, err
	}

	if int64(img.Size()) > h.maxUploadBytes {
		return nil, fmt.Errorf("file too large (max %d bytes)", h.maxUploadBytes)
	}
	return img, nil
}

func (h *Handler) readJSONImage(r *http.Request) (*images.Ref, error) {
	var request struct {
		ImageURL  string `json:"image_url"`
		ImageData string `json:"image_data"`
	}
	if err := decodeJSON(r, &request); err != nil {
		return nil, err
	}

	switch {
	case request.ImageData != "":
		return decodeImageData(request.ImageData)
	case request.ImageURL != "":
		return h.fetcher.Download(r.Context(), request.ImageURL)
	default:
		return nil, errNoImage
	}
}

func (h *Handler) readFileImage(r *http.Request) (*images.Ref, error) {
	file, _, err := r.FormFile("files")
	if err != nil {
		file, _, err = r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNoImage, err)
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, fmt.Errorf("file too large (max %d bytes)", h.maxUploadBytes)
	}
	return images.New(data)
}

// decodeImageData accepts plain base64 or a data URI
func decodeImageData(data string) (*images.Ref, error) {
	if strings.HasPrefix(data, "data:") {
		_, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, errors.New("malformed data URI")
		}
		data = payload
	}
	return images.FromBase64(data)
}
