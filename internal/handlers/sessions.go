package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/roomstyler/internal/models"
	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]models.DesignSession, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, session.View())
	}
	h.writeJSON(w, sessionList)
}

// HandleCreateSession starts a session from an uploaded room photo
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	img, err := h.readImage(w, r)
	if err != nil {
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
		return
	}

	session := h.newSession()
	if err := session.Upload(img); err != nil {
		h.sessionStore.Delete(session.ID())
		h.writeActionError(w, studio.ActionUpload, err)
		return
	}

	slog.Info("Session created", "session_id", session.ID(), "image_id", img.ID(), "bytes", img.Size())
	h.writeSession(w, session)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.View())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionStore.Delete(r.PathValue("id"))
	if !ok {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}

	released := h.releaseImages(session.ID())
	slog.Info("Session deleted", "session_id", session.ID(), "images", released)
	w.WriteHeader(http.StatusNoContent)
}
