// Package studio owns one interactive redesign session: the image history,
// the pending edit, the latest generated candidates and the busy state.
//
// A Studio is safe for concurrent use, but it does not queue work. Only one
// scan or generation may be outstanding at a time (Idle -> Scanning -> Idle,
// Idle -> Generating -> Idle); any other call made meanwhile that would touch
// the history or the edit session fails with ErrBusy. The lock is never held
// across a remote call.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/roomstyler/internal/edit"
	"github.com/lehigh-university-libraries/roomstyler/internal/history"
	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/models"
	"github.com/lehigh-university-libraries/roomstyler/internal/prompts"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

// State is the studio's busy state
type State int

const (
	StateIdle State = iota
	StateScanning
	StateGenerating
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateGenerating:
		return "generating"
	default:
		return "idle"
	}
}

// Options configures a Studio
type Options struct {
	// DefaultPrompt is the brief offered after a fresh upload.
	DefaultPrompt string
}

// Studio is one user's redesign session
type Studio struct {
	mu sync.Mutex

	id            string
	client        providers.Client
	defaultPrompt string

	history *history.Navigator
	session edit.Session
	results []*images.Ref
	state   State
	lastErr string

	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty studio
func New(id string, client providers.Client, opts Options) *Studio {
	if opts.DefaultPrompt == "" {
		opts.DefaultPrompt = prompts.DefaultBrief
	}
	now := time.Now()
	return &Studio{
		id:            id,
		client:        client,
		defaultPrompt: opts.DefaultPrompt,
		history:       history.New(),
		session:       edit.Reset(opts.DefaultPrompt),
		createdAt:     now,
		updatedAt:     now,
	}
}

func (s *Studio) ID() string { return s.id }

// checkIdleLocked rejects the call while a scan or generation is outstanding,
// otherwise it clears the last error. A rejected call leaves lastErr alone so
// the in-flight action still reports its own outcome.
func (s *Studio) checkIdleLocked(action Action) error {
	if s.state != StateIdle {
		slog.Debug("Rejected busy studio call", "session_id", s.id, "action", action, "state", s.state)
		return fmt.Errorf("%w: %s in progress", ErrBusy, s.state)
	}
	s.lastErr = ""
	return nil
}

// failLocked records the user-visible message for err and returns err
func (s *Studio) failLocked(action Action, err error) error {
	s.lastErr = Describe(action, err)
	s.updatedAt = time.Now()
	slog.Warn("Studio action failed", "session_id", s.id, "action", action, "kind", KindOf(err), "error", err)
	return err
}

func (s *Studio) touchLocked() {
	s.updatedAt = time.Now()
}

// Upload starts over from a new room photo
func (s *Studio) Upload(img *images.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(ActionUpload); err != nil {
		return err
	}

	if err := s.history.RecordNewRoot(img); err != nil {
		return s.failLocked(ActionUpload, err)
	}
	s.session = edit.Reset(s.defaultPrompt)
	s.results = nil
	s.touchLocked()

	slog.Info("Room image uploaded", "session_id", s.id, "image_id", img.ID(), "mime_type", img.MIMEType())
	return nil
}

// SelectResult moves generated candidate i into the history for further editing
func (s *Studio) SelectResult(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(ActionSelectForEditing); err != nil {
		return err
	}

	if i < 0 || i >= len(s.results) {
		return s.failLocked(ActionSelectForEditing, fmt.Errorf("%w: %d", ErrResultNotFound, i))
	}
	return s.selectLocked(s.results[i])
}

// SelectDataURI materializes a design a client holds as a data URI and
// selects it for further editing.
func (s *Studio) SelectDataURI(uri string) (*images.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(ActionSelectForEditing); err != nil {
		return nil, err
	}

	ref, err := images.FromDataURI(uri)
	if err != nil {
		return nil, s.failLocked(ActionSelectForEditing, err)
	}
	if err := s.selectLocked(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Studio) selectLocked(ref *images.Ref) error {
	if err := s.history.SelectForFurtherEditing(ref); err != nil {
		return s.failLocked(ActionSelectForEditing, fmt.Errorf("%w: %v", images.ErrAssetConversion, err))
	}
	s.session = edit.Reset("")
	s.results = nil
	s.touchLocked()

	slog.Info("Result selected for editing", "session_id", s.id, "image_id", ref.ID(), "history_len", s.history.Len())
	return nil
}

// Undo steps back one history entry. It reports whether the position moved;
// at the first entry it is a no-op that leaves the edit session alone.
func (s *Studio) Undo() (bool, error) {
	return s.navigate(ActionUndo, s.history.Undo)
}

// Redo steps forward one history entry, or does nothing at the last entry
func (s *Studio) Redo() (bool, error) {
	return s.navigate(ActionRedo, s.history.Redo)
}

func (s *Studio) navigate(action Action, move func() bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(action); err != nil {
		return false, err
	}

	if !move() {
		return false, nil
	}
	s.session = edit.Reset("")
	s.results = nil
	s.touchLocked()
	return true, nil
}

// mutate applies a pure session transition while idle
func (s *Studio) mutate(action Action, fn func(edit.Session) edit.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(action); err != nil {
		return err
	}

	s.session = fn(s.session)
	s.touchLocked()
	return nil
}

// SelectObject toggles the targeted object
func (s *Studio) SelectObject(label string) error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.SelectObject(label) })
}

// SetActiveTool toggles the transform tool
func (s *Studio) SetActiveTool(tool edit.Tool) error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.SetActiveTool(tool) })
}

func (s *Studio) SetToolValue(value string) error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.SetToolValue(value) })
}

func (s *Studio) SetPrompt(prompt string) error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.SetPrompt(prompt) })
}

func (s *Studio) AttachReference(ref *images.Ref) error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.AttachReference(ref) })
}

func (s *Studio) RemoveReference() error {
	return s.mutate(ActionEdit, func(e edit.Session) edit.Session { return e.RemoveReference() })
}

// Scan asks the detector for labels in the current image and merges them
// into the detected set. It returns the full merged set.
func (s *Studio) Scan(ctx context.Context, kind providers.ScanKind) ([]string, error) {
	action := ActionScanObjects
	if kind == providers.ScanStructure {
		action = ActionScanStructure
	}

	img, err := s.startScan(action, kind)
	if err != nil {
		return nil, err
	}

	slog.Info("Scanning room", "session_id", s.id, "kind", kind, "image_id", img.ID())
	labels, err := providers.Detect(ctx, s.client, kind, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle

	if err != nil {
		return nil, s.failLocked(action, err)
	}
	if len(labels) == 0 {
		return nil, s.failLocked(action, fmt.Errorf("%w: no labels detected", providers.ErrEmptyResult))
	}

	s.session = s.session.MergeLabels(labels)
	s.touchLocked()
	return append([]string(nil), s.session.Labels...), nil
}

func (s *Studio) startScan(action Action, kind providers.ScanKind) (*images.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(action); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, s.failLocked(action, fmt.Errorf("%w: unknown scan kind %q", providers.ErrInvalidRequest, kind))
	}
	img, ok := s.history.Current()
	if !ok {
		return nil, s.failLocked(action, edit.ErrNoImage)
	}
	s.state = StateScanning
	return img, nil
}

// Generate builds a request from the pending edit and runs it. On success the
// results replace the candidate list and the object target is cleared; on any
// error the history, edit session and previous candidates are untouched.
func (s *Studio) Generate(ctx context.Context) ([]*images.Ref, error) {
	req, err := s.startGenerate()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slog.Info("Generating", "session_id", s.id, "intent", req.Intent, "outputs", req.OutputCount)
	results, err := s.client.Generate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle

	if err == nil && len(results) == 0 {
		err = fmt.Errorf("%w: no designs returned", providers.ErrEmptyResult)
	}
	if err != nil {
		return nil, s.failLocked(ActionGenerate, err)
	}

	s.results = results
	s.session = s.session.ClearTarget()
	s.touchLocked()

	slog.Info("Designs generated", "session_id", s.id, "requested", req.OutputCount, "received", len(results), "duration", time.Since(start))
	return append([]*images.Ref(nil), results...), nil
}

func (s *Studio) startGenerate() (providers.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(ActionGenerate); err != nil {
		return providers.GenerationRequest{}, err
	}
	img, _ := s.history.Current()
	req, err := edit.BuildRequest(s.session, img, s.history.IsEditing())
	if err != nil {
		return providers.GenerationRequest{}, s.failLocked(ActionGenerate, err)
	}
	s.state = StateGenerating
	return req, nil
}

// State returns the current busy state
func (s *Studio) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the pending edit
func (s *Studio) Session() edit.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session
	out.Labels = append([]string(nil), s.session.Labels...)
	return out
}

// Current returns the image at the current history position
func (s *Studio) Current() (*images.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// Results returns the latest generated candidates
func (s *Studio) Results() []*images.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*images.Ref(nil), s.results...)
}

// LastError returns the user-visible message of the last failed action
func (s *Studio) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Images returns every image the studio holds
func (s *Studio) Images() []*images.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*images.Ref
	for _, e := range s.history.Entries() {
		out = append(out, e.Image)
	}
	out = append(out, s.results...)
	if s.session.Reference != nil {
		out = append(out, s.session.Reference)
	}
	return out
}

// View renders the studio for the HTTP API
func (s *Studio) View() models.DesignSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := models.DesignSession{
		ID:        s.id,
		State:     s.state.String(),
		History:   []models.ImageItem{},
		Index:     s.history.Index(),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		IsEditing: s.history.IsEditing(),
		Results:   []models.ImageItem{},
		Error:     s.lastErr,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Edit: models.EditState{
			Prompt:         s.session.Prompt,
			SelectedObject: s.session.SelectedObject,
			ActiveTool:     s.session.ActiveTool.String(),
			ToolValue:      s.session.ToolValue,
			Labels:         append([]string{}, s.session.Labels...),
		},
	}

	for _, e := range s.history.Entries() {
		view.History = append(view.History, ImageItem(e.Image))
	}
	if cur, ok := s.history.Current(); ok {
		item := ImageItem(cur)
		view.Current = &item
	}
	for _, r := range s.results {
		view.Results = append(view.Results, ImageItem(r))
	}
	if s.session.Reference != nil {
		item := ImageItem(s.session.Reference)
		view.Edit.Reference = &item
	}
	return view
}

// ImageItem converts a ref to its JSON view
func ImageItem(ref *images.Ref) models.ImageItem {
	return models.ImageItem{
		ID:          ref.ID(),
		ImageURL:    ref.URL(),
		MIMEType:    ref.MIMEType(),
		ImageWidth:  ref.Width(),
		ImageHeight: ref.Height(),
	}
}
