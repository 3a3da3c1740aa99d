package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
)

// HandleImage serves stored image bytes. With ?download=1 the browser is
// asked to save the file instead of displaying it.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.imageStore.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(img.Size()))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Disposition", `attachment; filename="roomstyler-`+img.ID()+img.Extension()+`"`)
	}

	if _, err := w.Write(img.Bytes()); err != nil {
		slog.Error("Unable to write image", "image_id", img.ID(), "err", err)
	}
}
