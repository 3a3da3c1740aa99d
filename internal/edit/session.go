// Package edit holds the per-image edit context and reduces it to a
// generation request.
//
// A Session is a value. Every transition returns a new, fully specified
// Session so a change of selection can never leave stale tool or reference
// fields behind.
package edit

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

// ErrUnknownTool rejects a tool name outside resize, rotate and reposition
var ErrUnknownTool = errors.New("unknown tool")

// Tool is the geometric transform applied to a targeted object
type Tool string

const (
	ToolNone       Tool = ""
	ToolResize     Tool = "resize"
	ToolRotate     Tool = "rotate"
	ToolReposition Tool = "reposition"
)

// ParseTool accepts "resize", "rotate", "reposition", and "" or "none"
func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case ToolResize, ToolRotate, ToolReposition, ToolNone:
		return t, nil
	case "none":
		return ToolNone, nil
	default:
		return ToolNone, fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
}

func (t Tool) String() string {
	if t == ToolNone {
		return "none"
	}
	return string(t)
}

// Session is the mutable-by-replacement edit context for the current image
type Session struct {
	SelectedObject string
	ActiveTool     Tool
	ToolValue      string
	Reference      *images.Ref
	Prompt         string
	Labels         []string
}

// Reset returns a clean session carrying only prompt
func Reset(prompt string) Session {
	return Session{Prompt: prompt}
}

// MergeLabels unions labels into the detected set, keeping first-seen order
func (s Session) MergeLabels(labels []string) Session {
	s.Labels = providers.DedupeLabels(s.Labels, labels)
	return s
}

// SelectObject toggles the targeted object. Any change of target starts from
// a clean slate: prompt, tool, tool value and reference are cleared.
func (s Session) SelectObject(label string) Session {
	label = strings.TrimSpace(label)
	next := Session{Labels: slices.Clone(s.Labels)}
	if label != "" && label != s.SelectedObject {
		next.SelectedObject = label
	}
	return next
}

// SetActiveTool toggles tool. Re-selecting the active tool turns it off and
// clears the tool value; switching tools keeps the typed value.
func (s Session) SetActiveTool(tool Tool) Session {
	if tool == s.ActiveTool || tool == ToolNone {
		s.ActiveTool = ToolNone
		s.ToolValue = ""
		return s
	}
	s.ActiveTool = tool
	return s
}

func (s Session) SetToolValue(value string) Session {
	s.ToolValue = value
	return s
}

func (s Session) SetPrompt(prompt string) Session {
	s.Prompt = prompt
	return s
}

func (s Session) AttachReference(ref *images.Ref) Session {
	s.Reference = ref
	return s
}

func (s Session) RemoveReference() Session {
	s.Reference = nil
	return s
}

// ClearTarget drops the target and its parameters after a successful
// generation; the prompt and labels stay.
func (s Session) ClearTarget() Session {
	s.SelectedObject = ""
	s.ActiveTool = ToolNone
	s.ToolValue = ""
	s.Reference = nil
	return s
}

// HasObject reports whether a label is currently targeted
func (s Session) HasObject() bool {
	return s.SelectedObject != ""
}
