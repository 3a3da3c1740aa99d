package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
	"github.com/lehigh-university-libraries/roomstyler/internal/storage"
	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

type Handler struct {
	sessionStore   *storage.SessionStore
	imageStore     *images.Store
	imagesMu       sync.Mutex // orders session snapshots into imageStore
	fetcher        *images.Fetcher
	client         providers.Client
	studioOptions  studio.Options
	maxUploadBytes int64
}

// Options configures a Handler
type Options struct {
	DefaultPrompt  string
	MaxUploadBytes int64
	Fetcher        *images.Fetcher
}

func New(client providers.Client, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Fetcher == nil {
		opts.Fetcher = images.NewFetcher()
	}
	return &Handler{
		sessionStore:   storage.New(),
		imageStore:     images.NewStore(),
		fetcher:        opts.Fetcher,
		client:         client,
		studioOptions:  studio.Options{DefaultPrompt: opts.DefaultPrompt},
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// Register adds every API route to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)

	mux.HandleFunc("POST /api/sessions/{id}/undo", h.HandleUndo)
	mux.HandleFunc("POST /api/sessions/{id}/redo", h.HandleRedo)
	mux.HandleFunc("POST /api/sessions/{id}/scan", h.HandleScan)
	mux.HandleFunc("POST /api/sessions/{id}/object", h.HandleSelectObject)
	mux.HandleFunc("POST /api/sessions/{id}/tool", h.HandleSetTool)
	mux.HandleFunc("POST /api/sessions/{id}/tool-value", h.HandleSetToolValue)
	mux.HandleFunc("POST /api/sessions/{id}/prompt", h.HandleSetPrompt)
	mux.HandleFunc("POST /api/sessions/{id}/reference", h.HandleAttachReference)
	mux.HandleFunc("DELETE /api/sessions/{id}/reference", h.HandleRemoveReference)
	mux.HandleFunc("POST /api/sessions/{id}/generate", h.HandleGenerate)
	mux.HandleFunc("POST /api/sessions/{id}/results/{index}/edit", h.HandleSelectResult)
	mux.HandleFunc("POST /api/sessions/{id}/edit", h.HandleSelectImageData)

	mux.HandleFunc("GET /api/images/{id}", h.HandleImage)
	mux.HandleFunc("POST /api/geminiProxy", h.HandleGeminiProxy)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSONStatus(w, code, map[string]string{"error": message})
}

// writeActionError reports err with the status for its kind and the
// user-facing message for action.
func (h *Handler) writeActionError(w http.ResponseWriter, action studio.Action, err error) {
	kind := studio.KindOf(err)
	slog.Debug("Action failed", "action", action, "kind", kind, "error", err)
	h.writeError(w, studio.Describe(action, err), statusFor(kind))
}

func statusFor(kind studio.Kind) int {
	switch kind {
	case studio.KindValidation:
		return http.StatusBadRequest
	case studio.KindBusy:
		return http.StatusConflict
	case studio.KindEmptyResult, studio.KindTransport:
		return http.StatusBadGateway
	case studio.KindAssetConversion:
		return http.StatusUnprocessableEntity
	case studio.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*studio.Studio, bool) {
	session, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) newSession() *studio.Studio {
	session := studio.New(uuid.NewString(), h.client, h.studioOptions)
	h.sessionStore.Set(session)
	return session
}

// writeSession makes every image the session holds servable, releases the
// ones it has discarded and writes its view
func (h *Handler) writeSession(w http.ResponseWriter, session *studio.Studio) {
	h.syncImages(session)
	h.writeJSON(w, session.View())
}

func (h *Handler) syncImages(session *studio.Studio) {
	h.imagesMu.Lock()
	defer h.imagesMu.Unlock()

	// a request that finishes after the session was deleted must not
	// re-register its images
	if _, ok := h.sessionStore.Get(session.ID()); !ok {
		return
	}
	if released := h.imageStore.Sync(session.ID(), session.Images()...); released > 0 {
		slog.Debug("Released session images", "session_id", session.ID(), "images", released)
	}
}

// releaseImages drops every image registered for a deleted session
func (h *Handler) releaseImages(sessionID string) int {
	h.imagesMu.Lock()
	defer h.imagesMu.Unlock()
	return h.imageStore.Release(sessionID)
}

var errNoImage = errors.New("an image file, image_url or image_data is required")
