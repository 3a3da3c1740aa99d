package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/edit"
	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

// proxyPayload is the union of the payloads a browser client sends for the
// identifyObjects, identifyElements and generateDesigns actions.
type proxyPayload struct {
	Base64Image            string `json:"base64Image"`
	MimeType               string `json:"mimeType"`
	UserPrompt             string `json:"userPrompt"`
	IsEditing              bool   `json:"isEditing"`
	SelectedObject         string `json:"selectedObject"`
	ActiveTool             string `json:"activeTool"`
	ToolValue              string `json:"toolValue"`
	ReferenceImageBase64   string `json:"referenceImageBase64"`
	ReferenceImageMimeType string `json:"referenceImageMimeType"`
}

// HandleGeminiProxy is a stateless single-endpoint API: the client keeps the
// history and edit state and sends everything needed with each call.
func (h *Handler) HandleGeminiProxy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*(h.maxUploadBytes*4/3)+multipartOverhead)

	var request struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.Action == "" || len(request.Payload) == 0 || string(request.Payload) == "null" {
		h.writeError(w, "Missing action or payload", http.StatusBadRequest)
		return
	}

	var payload proxyPayload
	if err := json.Unmarshal(request.Payload, &payload); err != nil {
		h.writeError(w, "Invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch request.Action {
	case "identifyObjects":
		h.proxyDetect(w, r, payload, providers.ScanObjects, "objects")
	case "identifyElements":
		h.proxyDetect(w, r, payload, providers.ScanStructure, "elements")
	case "generateDesigns":
		h.proxyGenerate(w, r, payload)
	default:
		h.writeError(w, "Invalid action", http.StatusBadRequest)
	}
}

func (h *Handler) proxyDetect(w http.ResponseWriter, r *http.Request, payload proxyPayload, kind providers.ScanKind, key string) {
	action := studio.ActionScanObjects
	if kind == providers.ScanStructure {
		action = studio.ActionScanStructure
	}

	img, err := images.FromBase64(payload.Base64Image)
	if err != nil {
		h.writeError(w, "Invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	labels, err := providers.Detect(r.Context(), h.client, kind, img)
	if err != nil {
		h.writeActionError(w, action, err)
		return
	}
	h.writeJSON(w, map[string][]string{key: providers.DedupeLabels(nil, labels)})
}

func (h *Handler) proxyGenerate(w http.ResponseWriter, r *http.Request, payload proxyPayload) {
	img, err := images.FromBase64(payload.Base64Image)
	if err != nil {
		h.writeError(w, "Invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, err := proxySession(payload)
	if err != nil {
		h.writeError(w, "Invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, err := edit.BuildRequest(session, img, payload.IsEditing)
	if err != nil {
		h.writeActionError(w, studio.ActionGenerate, err)
		return
	}

	results, err := h.client.Generate(r.Context(), req)
	if err == nil && len(results) == 0 {
		err = fmt.Errorf("%w: no designs returned", providers.ErrEmptyResult)
	}
	if err != nil {
		h.writeActionError(w, studio.ActionGenerate, err)
		return
	}

	designs := make([]string, 0, len(results))
	for _, ref := range results {
		designs = append(designs, ref.DataURI())
	}
	slog.Info("Proxy designs generated", "intent", req.Intent, "requested", req.OutputCount, "received", len(designs))
	h.writeJSON(w, map[string][]string{"designs": designs})
}

// proxySession rebuilds the edit session a stateless client describes. A
// tool value or reference counts toward a submittable request even when no
// object is targeted.
func proxySession(payload proxyPayload) (edit.Session, error) {
	var session edit.Session
	if strings.TrimSpace(payload.SelectedObject) != "" {
		session = session.SelectObject(payload.SelectedObject)
		if payload.ActiveTool != "" {
			tool, err := edit.ParseTool(payload.ActiveTool)
			if err != nil {
				return edit.Session{}, err
			}
			session = session.SetActiveTool(tool)
		}
	}
	session = session.SetPrompt(payload.UserPrompt).SetToolValue(payload.ToolValue)

	if payload.ReferenceImageBase64 != "" {
		ref, err := images.FromBase64(payload.ReferenceImageBase64)
		if err != nil {
			return edit.Session{}, fmt.Errorf("reference image: %w", err)
		}
		session = session.AttachReference(ref)
	}
	return session, nil
}
