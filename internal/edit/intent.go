package edit

import (
	"errors"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

var (
	// ErrNothingToSubmit is the validation failure raised when prompt, tool
	// value and reference image are all empty.
	ErrNothingToSubmit = errors.New("nothing to do: enter a prompt, a transformation or a reference image")
	// ErrNoImage is raised when no room image is loaded
	ErrNoImage = errors.New("no room image loaded")
)

// BuildRequest reduces the session, the current image and the edit-mode flag
// to one request. Precedence: targeted edit, whole-image edit, fresh generation.
func BuildRequest(s Session, img *images.Ref, editing bool) (providers.GenerationRequest, error) {
	if img == nil {
		return providers.GenerationRequest{}, ErrNoImage
	}

	prompt := strings.TrimSpace(s.Prompt)
	toolValue := strings.TrimSpace(s.ToolValue)
	if prompt == "" && toolValue == "" && s.Reference == nil {
		return providers.GenerationRequest{}, ErrNothingToSubmit
	}

	req := providers.GenerationRequest{Image: img}

	switch {
	case s.HasObject():
		req.Intent = providers.IntentTargetedEdit
		target := &providers.TargetedEdit{
			Label:     s.SelectedObject,
			StyleText: prompt,
			Reference: s.Reference,
		}
		if s.ActiveTool != ToolNone && toolValue != "" {
			target.Transform = toolValue
		}
		req.Target = target
	case editing:
		req.Intent = providers.IntentWholeImageEdit
		req.Prompt = prompt
	default:
		req.Intent = providers.IntentFreshGeneration
		req.Prompt = prompt
	}

	req.OutputCount = req.Intent.OutputCount()
	return req, nil
}
