package studio

import (
	"errors"

	"github.com/lehigh-university-libraries/roomstyler/internal/edit"
	"github.com/lehigh-university-libraries/roomstyler/internal/history"
	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

var (
	// ErrBusy rejects a call made while a scan or generation is in flight
	ErrBusy = errors.New("another request is in progress")
	// ErrResultNotFound indicates an out-of-range result index
	ErrResultNotFound = errors.New("generated result not found")
)

// Action names the user action an error originated from
type Action string

const (
	ActionUpload           Action = "upload"
	ActionScanObjects      Action = "scan_objects"
	ActionScanStructure    Action = "scan_structure"
	ActionGenerate         Action = "generate"
	ActionSelectForEditing Action = "select_for_editing"
	ActionUndo             Action = "undo"
	ActionRedo             Action = "redo"
	ActionEdit             Action = "edit"
)

// Kind classifies errors for presentation
type Kind string

const (
	KindNone            Kind = ""
	KindValidation      Kind = "validation"
	KindTransport       Kind = "transport"
	KindEmptyResult     Kind = "empty_result"
	KindAssetConversion Kind = "asset_conversion"
	KindBusy            Kind = "busy"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal"
)

// KindOf classifies err. An empty result wins over the transport failures
// it may wrap, since a fan-out that lost every slot is reported as empty.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, edit.ErrNothingToSubmit),
		errors.Is(err, edit.ErrNoImage),
		errors.Is(err, edit.ErrUnknownTool),
		errors.Is(err, history.ErrNilImage),
		errors.Is(err, providers.ErrInvalidRequest),
		errors.Is(err, images.ErrEmptyImage),
		errors.Is(err, images.ErrUnsupportedType):
		return KindValidation
	case errors.Is(err, images.ErrAssetConversion):
		return KindAssetConversion
	case errors.Is(err, providers.ErrEmptyResult):
		return KindEmptyResult
	case errors.Is(err, providers.ErrTransport), errors.Is(err, providers.ErrMissingAPIKey):
		return KindTransport
	case errors.Is(err, ErrResultNotFound), errors.Is(err, images.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Describe turns err into the single user-visible message for action
func Describe(action Action, err error) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindBusy:
		return "Another request is still running. Please wait for it to finish."
	case KindValidation:
		if errors.Is(err, edit.ErrNothingToSubmit) || errors.Is(err, edit.ErrNoImage) {
			return "Please upload an image and enter a style description or transformation."
		}
		if errors.Is(err, edit.ErrUnknownTool) {
			return "Please choose resize, rotate or reposition."
		}
		return "The image could not be used. Please upload a PNG, JPEG or WebP image."
	case KindAssetConversion:
		return "Could not select the image for editing."
	case KindNotFound:
		return "That design is no longer available."
	}

	switch action {
	case ActionScanObjects:
		return "Could not identify objects in the image. Please try again."
	case ActionScanStructure:
		return "Could not identify the major elements in the image. Please try again."
	case ActionGenerate:
		return "Could not create designs. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
