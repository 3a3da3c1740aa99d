package handlers

import (
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/roomstyler/internal/edit"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

func (h *Handler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, studio.ActionUndo, (*studio.Studio).Undo)
}

func (h *Handler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, studio.ActionRedo, (*studio.Studio).Redo)
}

// navigate answers with the session view whether or not the position moved;
// undo at the first entry and redo at the last are no-ops, not errors.
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request, action studio.Action, move func(*studio.Studio) (bool, error)) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if _, err := move(session); err != nil {
		h.writeActionError(w, action, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Kind providers.ScanKind `json:"kind"`
	}
	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.Kind == "" {
		request.Kind = providers.ScanObjects
	}

	action := studio.ActionScanObjects
	if request.Kind == providers.ScanStructure {
		action = studio.ActionScanStructure
	}
	if _, err := session.Scan(r.Context(), request.Kind); err != nil {
		h.writeActionError(w, action, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) HandleSelectObject(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Label string `json:"label"`
	}
	h.edit(w, r, &request, func(s *studio.Studio) error { return s.SelectObject(request.Label) })
}

func (h *Handler) HandleSetTool(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Tool string `json:"tool"`
	}
	h.edit(w, r, &request, func(s *studio.Studio) error {
		tool, err := edit.ParseTool(request.Tool)
		if err != nil {
			return err
		}
		return s.SetActiveTool(tool)
	})
}

func (h *Handler) HandleSetToolValue(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Value string `json:"value"`
	}
	h.edit(w, r, &request, func(s *studio.Studio) error { return s.SetToolValue(request.Value) })
}

func (h *Handler) HandleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Prompt string `json:"prompt"`
	}
	h.edit(w, r, &request, func(s *studio.Studio) error { return s.SetPrompt(request.Prompt) })
}

// edit decodes the JSON body into request, then applies fn to the session
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, request any, fn func(*studio.Studio) error) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := decodeJSON(r, request); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := fn(session); err != nil {
		h.writeActionError(w, studio.ActionEdit, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) HandleAttachReference(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, err := h.readImage(w, r)
	if err != nil {
		h.writeError(w, "Failed to read reference image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.AttachReference(img); err != nil {
		h.writeActionError(w, studio.ActionEdit, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) HandleRemoveReference(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.RemoveReference(); err != nil {
		h.writeActionError(w, studio.ActionEdit, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if _, err := session.Generate(r.Context()); err != nil {
		h.writeActionError(w, studio.ActionGenerate, err)
		return
	}
	h.writeSession(w, session)
}

// HandleSelectResult moves a generated candidate into the history
func (h *Handler) HandleSelectResult(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, "Invalid result index: "+r.PathValue("index"), http.StatusBadRequest)
		return
	}
	if err := session.SelectResult(index); err != nil {
		h.writeActionError(w, studio.ActionSelectForEditing, err)
		return
	}
	h.writeSession(w, session)
}

// HandleSelectImageData selects a design the client holds as a data URI
func (h *Handler) HandleSelectImageData(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		ImageData string `json:"image_data"`
	}
	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := session.SelectDataURI(request.ImageData); err != nil {
		h.writeActionError(w, studio.ActionSelectForEditing, err)
		return
	}
	h.writeSession(w, session)
}
