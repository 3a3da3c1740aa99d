package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/roomstyler/internal/images/imagestest"
	"github.com/lehigh-university-libraries/roomstyler/internal/models"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers/providerstest"
)

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux, *providerstest.Fake) {
	t.Helper()
	fake := providerstest.New(t)
	fake.Objects = []string{"sofa", "rug"}
	fake.Elements = []string{"floor", "left wall"}

	h := New(fake, Options{DefaultPrompt: "Make it modern.", MaxUploadBytes: 1 << 20})
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux, fake
}

func newTestMux(t *testing.T) (*http.ServeMux, *providerstest.Fake) {
	t.Helper()
	_, mux, fake := newTestHandler(t)
	return mux, fake
}

func do(mux http.Handler, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func doJSON(mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	return do(mux, method, path, "application/json", bytes.NewReader(data))
}

func multipartBody(t *testing.T, field string, data []byte) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "room.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.DesignSession {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view models.DesignSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func createSession(t *testing.T, mux http.Handler) models.DesignSession {
	t.Helper()
	contentType, body := multipartBody(t, "file", imagestest.PNG(t, 8, 6, 1))
	return decodeSession(t, do(mux, http.MethodPost, "/api/sessions", contentType, body))
}

func TestCreateSessionMultipart(t *testing.T) {
	mux, _ := newTestMux(t)
	png := imagestest.PNG(t, 8, 6, 1)
	contentType, body := multipartBody(t, "files", png)

	view := decodeSession(t, do(mux, http.MethodPost, "/api/sessions", contentType, body))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "idle", view.State)
	require.Len(t, view.History, 1)
	require.NotNil(t, view.Current)
	assert.Equal(t, 8, view.Current.ImageWidth)
	assert.Equal(t, 6, view.Current.ImageHeight)
	assert.Equal(t, "image/png", view.Current.MIMEType)
	assert.Equal(t, "Make it modern.", view.Edit.Prompt)
	assert.Equal(t, "none", view.Edit.ActiveTool)

	rec := do(mux, http.MethodGet, view.Current.ImageURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = do(mux, http.MethodGet, view.Current.ImageURL+"?download=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="roomstyler-`+view.Current.ID+`.png"`, rec.Header().Get("Content-Disposition"))

	list := do(mux, http.MethodGet, "/api/sessions", "", nil)
	var sessions []models.DesignSession
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, view.ID, sessions[0].ID)
}

func TestCreateSessionJSON(t *testing.T) {
	mux, _ := newTestMux(t)
	png := imagestest.PNG(t, 4, 4, 2)

	t.Run("data URI", func(t *testing.T) {
		view := decodeSession(t, doJSON(mux, http.MethodPost, "/api/sessions", map[string]string{
			"image_data": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		}))
		assert.Len(t, view.History, 1)
	})

	t.Run("plain base64", func(t *testing.T) {
		view := decodeSession(t, doJSON(mux, http.MethodPost, "/api/sessions", map[string]string{
			"image_data": base64.StdEncoding.EncodeToString(png),
		}))
		assert.Len(t, view.History, 1)
	})

	t.Run("image url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(png)
		}))
		defer srv.Close()

		view := decodeSession(t, doJSON(mux, http.MethodPost, "/api/sessions", map[string]string{
			"image_url": srv.URL + "/room.png",
		}))
		assert.Len(t, view.History, 1)
	})
}

func TestCreateSessionRejectsBadImages(t *testing.T) {
	mux, _ := newTestMux(t)

	tests := []struct {
		name        string
		contentType string
		body        io.Reader
	}{
		{"text file", "", nil},
		{"missing image", "application/json", strings.NewReader(`{}`)},
		{"bad json", "application/json", strings.NewReader(`{`)},
		{"gif", "application/json", strings.NewReader(`{"image_data":"` + base64.StdEncoding.EncodeToString([]byte("GIF89a....")) + `"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, body := tt.contentType, tt.body
			if body == nil {
				contentType, body = multipartBody(t, "file", []byte("just some text"))
			}
			rec := do(mux, http.MethodPost, "/api/sessions", contentType, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}

	t.Run("too large", func(t *testing.T) {
		big := imagestest.PNG(t, 2, 2, 3)
		big = append(big, make([]byte, 2<<20)...)
		contentType, body := multipartBody(t, "file", big)
		rec := do(mux, http.MethodPost, "/api/sessions", contentType, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	list := do(mux, http.MethodGet, "/api/sessions", "", nil)
	assert.JSONEq(t, `[]`, list.Body.String())
}

func TestEditAndGenerateFlow(t *testing.T) {
	mux, fake := newTestMux(t)
	view := createSession(t, mux)
	base := "/api/sessions/" + view.ID

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/scan", map[string]string{"kind": "objects"}))
	assert.Equal(t, []string{"sofa", "rug"}, view.Edit.Labels)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/scan", map[string]string{"kind": "structure"}))
	assert.Equal(t, []string{"sofa", "rug", "floor", "left wall"}, view.Edit.Labels)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/generate", nil))
	require.Len(t, view.Results, 4)
	assert.Equal(t, providers.IntentFreshGeneration, fake.Requests()[0].Intent)

	rec := do(mux, http.MethodGet, view.Results[3].ImageURL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/results/1/edit", nil))
	assert.Len(t, view.History, 2)
	assert.Equal(t, 1, view.Index)
	assert.True(t, view.IsEditing)
	assert.Empty(t, view.Results)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/object", map[string]string{"label": "sofa"}))
	assert.Equal(t, "sofa", view.Edit.SelectedObject)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/tool", map[string]string{"tool": "resize"}))
	assert.Equal(t, "resize", view.Edit.ActiveTool)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/tool-value", map[string]string{"value": "20% larger"}))
	assert.Equal(t, "20% larger", view.Edit.ToolValue)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/prompt", map[string]string{"prompt": "leather"}))
	assert.Equal(t, "leather", view.Edit.Prompt)

	contentType, body := multipartBody(t, "file", imagestest.PNG(t, 2, 2, 9))
	view = decodeSession(t, do(mux, http.MethodPost, base+"/reference", contentType, body))
	require.NotNil(t, view.Edit.Reference)
	assert.Equal(t, http.StatusOK, do(mux, http.MethodGet, view.Edit.Reference.ImageURL, "", nil).Code)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/generate", nil))
	require.Len(t, view.Results, 1)
	req := fake.Requests()[1]
	assert.Equal(t, providers.IntentTargetedEdit, req.Intent)
	assert.Equal(t, "sofa", req.Target.Label)
	assert.Equal(t, "20% larger", req.Target.Transform)
	assert.NotNil(t, req.Target.Reference)
	assert.Empty(t, view.Edit.SelectedObject)
	assert.Nil(t, view.Edit.Reference)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/undo", nil))
	assert.Equal(t, 0, view.Index)
	assert.True(t, view.CanRedo)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/undo", nil))
	assert.Equal(t, 0, view.Index, "undo at the first entry is a no-op")
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/redo", nil))
	assert.Equal(t, 1, view.Index)

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/object", map[string]string{"label": "rug"}))
	contentType, body = multipartBody(t, "file", imagestest.PNG(t, 2, 2, 7))
	view = decodeSession(t, do(mux, http.MethodPost, base+"/reference", contentType, body))
	require.NotNil(t, view.Edit.Reference)
	view = decodeSession(t, do(mux, http.MethodDelete, base+"/reference", "", nil))
	assert.Nil(t, view.Edit.Reference)
}

func TestSelectImageData(t *testing.T) {
	mux, _ := newTestMux(t)
	view := createSession(t, mux)
	base := "/api/sessions/" + view.ID

	design := imagestest.Ref(t, 60)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/edit", map[string]string{"image_data": design.DataURI()}))
	assert.Len(t, view.History, 2)
	assert.Equal(t, http.StatusOK, do(mux, http.MethodGet, view.Current.ImageURL, "", nil).Code)

	rec := doJSON(mux, http.MethodPost, base+"/edit", map[string]string{"image_data": "data:image/png;base64,###"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Could not select the image for editing.", errorMessage(t, rec))
}

func TestActionErrors(t *testing.T) {
	mux, fake := newTestMux(t)
	view := createSession(t, mux)
	base := "/api/sessions/" + view.ID

	rec := doJSON(mux, http.MethodPost, "/api/sessions/nope/undo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(mux, http.MethodPost, base+"/results/0/edit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(mux, http.MethodPost, base+"/results/first/edit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(mux, http.MethodPost, base+"/tool", map[string]string{"tool": "shear"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(mux, http.MethodPost, base+"/scan", map[string]string{"kind": "walls"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	decodeSession(t, doJSON(mux, http.MethodPost, base+"/prompt", map[string]string{"prompt": "  "}))
	rec = doJSON(mux, http.MethodPost, base+"/generate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload an image and enter a style description or transformation.", errorMessage(t, rec))
	assert.Empty(t, fake.Requests())

	decodeSession(t, doJSON(mux, http.MethodPost, base+"/prompt", map[string]string{"prompt": "scandinavian"}))
	fake.SlotOK = func(int) bool { return false }
	rec = doJSON(mux, http.MethodPost, base+"/generate", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not create designs. Please try again.", errorMessage(t, rec))

	fake.Objects = nil
	rec = doJSON(mux, http.MethodPost, base+"/scan", map[string]string{"kind": "objects"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	after := decodeSession(t, do(mux, http.MethodGet, base, "", nil))
	assert.Len(t, after.History, 1)
	assert.Empty(t, after.Results)
	assert.Equal(t, "scandinavian", after.Edit.Prompt)
	assert.NotEmpty(t, after.Error)

	rec = do(mux, http.MethodGet, "/api/images/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBusySessionRejectsActions(t *testing.T) {
	mux, fake := newTestMux(t)
	view := createSession(t, mux)
	base := "/api/sessions/" + view.ID

	fake.Started = make(chan struct{})
	fake.Gate = make(chan struct{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doJSON(mux, http.MethodPost, base+"/generate", nil)
	}()
	<-fake.Started

	current := decodeSession(t, do(mux, http.MethodGet, base, "", nil))
	assert.Equal(t, "generating", current.State)

	for _, path := range []string{"/undo", "/generate"} {
		rec := doJSON(mux, http.MethodPost, base+path, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, path)
	}
	rec := doJSON(mux, http.MethodPost, base+"/object", map[string]string{"label": "sofa"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(fake.Gate)
	finished := decodeSession(t, <-done)
	assert.Len(t, finished.Results, 4)
	assert.Equal(t, "idle", finished.State)
}

func TestDeleteSession(t *testing.T) {
	mux, _ := newTestMux(t)
	view := createSession(t, mux)

	rec := do(mux, http.MethodDelete, "/api/sessions/"+view.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/api/sessions/"+view.ID, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, view.Current.ImageURL, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodDelete, "/api/sessions/"+view.ID, "", nil).Code)
}

func heldImages(view models.DesignSession) int {
	n := len(view.History) + len(view.Results)
	if view.Edit.Reference != nil {
		n++
	}
	return n
}

func TestSessionImagesReleased(t *testing.T) {
	h, mux, _ := newTestHandler(t)
	other := createSession(t, mux)
	view := createSession(t, mux)
	base := "/api/sessions/" + view.ID
	assert.Equal(t, 2, h.imageStore.Count())

	first := decodeSession(t, doJSON(mux, http.MethodPost, base+"/generate", nil))
	require.Len(t, first.Results, 4)
	assert.Equal(t, 1+heldImages(first), h.imageStore.Count())

	second := decodeSession(t, doJSON(mux, http.MethodPost, base+"/generate", nil))
	require.Len(t, second.Results, 4)
	assert.Equal(t, 1+heldImages(second), h.imageStore.Count())
	for _, result := range first.Results {
		assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, result.ImageURL, "", nil).Code, "replaced result")
	}

	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/results/0/edit", nil))
	require.Len(t, view.History, 2)
	assert.Equal(t, 1+heldImages(view), h.imageStore.Count())
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, second.Results[1].ImageURL, "", nil).Code, "unselected result")

	contentType, body := multipartBody(t, "file", imagestest.PNG(t, 2, 2, 9))
	view = decodeSession(t, do(mux, http.MethodPost, base+"/reference", contentType, body))
	require.NotNil(t, view.Edit.Reference)
	reference := view.Edit.Reference
	assert.Equal(t, 1+heldImages(view), h.imageStore.Count())
	view = decodeSession(t, do(mux, http.MethodDelete, base+"/reference", "", nil))
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, reference.ImageURL, "", nil).Code, "detached reference")

	edited := view.History[1]
	decodeSession(t, doJSON(mux, http.MethodPost, base+"/undo", nil))
	decodeSession(t, doJSON(mux, http.MethodPost, base+"/prompt", map[string]string{"prompt": "japandi"}))
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/generate", nil))
	require.NotEmpty(t, view.Results)
	view = decodeSession(t, doJSON(mux, http.MethodPost, base+"/results/0/edit", nil))
	require.Len(t, view.History, 2)
	assert.NotEqual(t, edited.ID, view.History[1].ID)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, edited.ImageURL, "", nil).Code, "truncated redo entry")
	assert.Equal(t, 1+heldImages(view), h.imageStore.Count())

	rec := do(mux, http.MethodDelete, base, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, h.imageStore.Count())
	for _, item := range append(view.History, first.Results...) {
		assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, item.ImageURL, "", nil).Code)
	}
	assert.Equal(t, http.StatusOK, do(mux, http.MethodGet, other.Current.ImageURL, "", nil).Code)
}

func proxy(t *testing.T, mux http.Handler, action string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(mux, http.MethodPost, "/api/geminiProxy", map[string]any{"action": action, "payload": payload})
}

func TestGeminiProxy(t *testing.T) {
	mux, fake := newTestMux(t)
	room := base64.StdEncoding.EncodeToString(imagestest.PNG(t, 4, 4, 5))

	t.Run("identify objects", func(t *testing.T) {
		rec := proxy(t, mux, "identifyObjects", map[string]string{"base64Image": room, "mimeType": "image/png"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"objects":["sofa","rug"]}`, rec.Body.String())
	})

	t.Run("identify elements", func(t *testing.T) {
		rec := proxy(t, mux, "identifyElements", map[string]string{"base64Image": room, "mimeType": "image/png"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"elements":["floor","left wall"]}`, rec.Body.String())
	})

	tests := []struct {
		name      string
		payload   map[string]any
		designs   int
		intent    providers.Intent
		reference bool
	}{
		{"fresh", map[string]any{"userPrompt": "boho"}, 4, providers.IntentFreshGeneration, false},
		{"whole image edit", map[string]any{"userPrompt": "add plants", "isEditing": true}, 1, providers.IntentWholeImageEdit, false},
		{"targeted edit", map[string]any{
			"userPrompt": "velvet", "selectedObject": "sofa", "activeTool": "rotate", "toolValue": "45 degrees",
			"referenceImageBase64": room, "referenceImageMimeType": "image/png", "isEditing": false,
		}, 1, providers.IntentTargetedEdit, true},
		{"tool value only", map[string]any{"toolValue": "make it bigger", "isEditing": true}, 1, providers.IntentWholeImageEdit, false},
		{"reference only", map[string]any{"referenceImageBase64": room, "referenceImageMimeType": "image/png"}, 4, providers.IntentFreshGeneration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.payload["base64Image"] = room
			tt.payload["mimeType"] = "image/png"
			before := len(fake.Requests())

			rec := proxy(t, mux, "generateDesigns", tt.payload)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body struct {
				Designs []string `json:"designs"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body.Designs, tt.designs)
			for _, d := range body.Designs {
				assert.True(t, strings.HasPrefix(d, "data:image/png;base64,"), d)
			}

			requests := fake.Requests()
			require.Len(t, requests, before+1)
			req := requests[before]
			assert.Equal(t, tt.intent, req.Intent)
			if tt.intent == providers.IntentTargetedEdit {
				assert.Equal(t, "45 degrees", req.Target.Transform)
				assert.Equal(t, "velvet", req.Target.StyleText)
				assert.Equal(t, tt.reference, req.Target.Reference != nil)
			}
		})
	}

	t.Run("bad requests", func(t *testing.T) {
		for _, body := range []string{`{"action":"identifyObjects"}`, `{"payload":{}}`, `{"action":"dance","payload":{}}`, `{`} {
			rec := do(mux, http.MethodPost, "/api/geminiProxy", "application/json", strings.NewReader(body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}

		rec := proxy(t, mux, "generateDesigns", map[string]any{"base64Image": room})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "empty prompt with nothing else to do")

		rec = proxy(t, mux, "identifyObjects", map[string]any{"base64Image": "%%%"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		fake.DetectErr = fmt.Errorf("%w: quota", providers.ErrTransport)
		defer func() { fake.DetectErr = nil }()

		rec := proxy(t, mux, "identifyObjects", map[string]string{"base64Image": room})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Could not identify objects in the image. Please try again.", errorMessage(t, rec))
	})
}
