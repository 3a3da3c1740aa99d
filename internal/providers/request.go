package providers

import (
	"fmt"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// Intent is the kind of generation a request asks for
type Intent int

const (
	// IntentFreshGeneration redesigns an unedited upload from a style brief.
	IntentFreshGeneration Intent = iota
	// IntentWholeImageEdit applies one change to an already edited image.
	IntentWholeImageEdit
	// IntentTargetedEdit changes a single detected object.
	IntentTargetedEdit
)

// Output counts per intent. Fixed, not configurable per call.
const (
	FreshOutputCount = 4
	EditOutputCount  = 1
)

func (i Intent) String() string {
	switch i {
	case IntentFreshGeneration:
		return "fresh_generation"
	case IntentWholeImageEdit:
		return "whole_image_edit"
	case IntentTargetedEdit:
		return "targeted_edit"
	default:
		return fmt.Sprintf("intent(%d)", int(i))
	}
}

// OutputCount returns how many images the intent requests
func (i Intent) OutputCount() int {
	if i == IntentFreshGeneration {
		return FreshOutputCount
	}
	return EditOutputCount
}

// TargetedEdit scopes a request to one object in the room
type TargetedEdit struct {
	Label     string
	Transform string // resize/rotate/reposition text, empty when no tool applies
	StyleText string
	Reference *images.Ref
}

// GenerationRequest is built fresh from the edit session at submit time
type GenerationRequest struct {
	Image       *images.Ref
	Intent      Intent
	Prompt      string        // style brief or whole-image instruction
	Target      *TargetedEdit // set only for IntentTargetedEdit
	OutputCount int
}

// Validate checks the request is internally consistent
func (r GenerationRequest) Validate() error {
	if r.Image == nil {
		return fmt.Errorf("%w: image is required", ErrInvalidRequest)
	}
	if r.OutputCount < 1 {
		return fmt.Errorf("%w: output count must be positive", ErrInvalidRequest)
	}
	if (r.Intent == IntentTargetedEdit) != (r.Target != nil) {
		return fmt.Errorf("%w: target must be set exactly for targeted edits", ErrInvalidRequest)
	}
	if r.Target != nil && r.Target.Label == "" {
		return fmt.Errorf("%w: target label is required", ErrInvalidRequest)
	}
	return nil
}
