// Package history keeps the linear undo/redo sequence of room images.
//
// Entries are immutable; the Navigator only ever appends, truncates future
// entries, or moves its position. Every transition leaves a non-empty history
// with a valid position once an image has been recorded.
package history

import (
	"errors"
	"time"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// ErrNilImage is returned when a transition is asked to record a nil image
var ErrNilImage = errors.New("history entry requires an image")

// Entry is one image state reachable by undo/redo
type Entry struct {
	Image     *images.Ref
	CreatedAt time.Time
}

// Navigator is a slice of entries plus a position. The zero value is an empty
// navigator. It is not safe for concurrent use; callers serialize access.
type Navigator struct {
	entries []Entry
	index   int
}

// New returns an empty navigator
func New() *Navigator {
	return &Navigator{index: -1}
}

// RecordNewRoot replaces the whole history with a single entry
func (n *Navigator) RecordNewRoot(img *images.Ref) error {
	if img == nil {
		return ErrNilImage
	}
	n.entries = []Entry{{Image: img, CreatedAt: time.Now()}}
	n.index = 0
	return nil
}

// SelectForFurtherEditing drops every entry after the current position,
// appends img and moves to it. On an empty navigator it behaves like RecordNewRoot.
func (n *Navigator) SelectForFurtherEditing(img *images.Ref) error {
	if img == nil {
		return ErrNilImage
	}
	if n.Len() == 0 {
		return n.RecordNewRoot(img)
	}

	kept := make([]Entry, n.index+1, n.index+2)
	copy(kept, n.entries[:n.index+1])
	n.entries = append(kept, Entry{Image: img, CreatedAt: time.Now()})
	n.index = len(n.entries) - 1
	return nil
}

// Undo moves back one entry and reports whether it moved
func (n *Navigator) Undo() bool {
	if !n.CanUndo() {
		return false
	}
	n.index--
	return true
}

// Redo moves forward one entry and reports whether it moved
func (n *Navigator) Redo() bool {
	if !n.CanRedo() {
		return false
	}
	n.index++
	return true
}

func (n *Navigator) CanUndo() bool {
	return n.Len() > 0 && n.index > 0
}

func (n *Navigator) CanRedo() bool {
	return n.Len() > 0 && n.index < len(n.entries)-1
}

// IsEditing is true once the current image is itself a selected result rather
// than the original upload. It changes prompt defaults and output cardinality.
func (n *Navigator) IsEditing() bool {
	return n.CanUndo()
}

// Current returns the image at the current position
func (n *Navigator) Current() (*images.Ref, bool) {
	if n.Len() == 0 {
		return nil, false
	}
	return n.entries[n.index].Image, true
}

// Index returns the current position, or -1 when empty
func (n *Navigator) Index() int {
	if n.Len() == 0 {
		return -1
	}
	return n.index
}

func (n *Navigator) Len() int {
	return len(n.entries)
}

// Entries returns a copy of the history
func (n *Navigator) Entries() []Entry {
	out := make([]Entry, len(n.entries))
	copy(out, n.entries)
	return out
}
