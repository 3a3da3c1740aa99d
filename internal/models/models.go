package models

import "time"

// DesignSession is the JSON view of one room redesign session
type DesignSession struct {
	ID        string      `json:"id"`
	State     string      `json:"state"` // "idle", "scanning", "generating"
	History   []ImageItem `json:"history"`
	Index     int         `json:"history_index"`
	CanUndo   bool        `json:"can_undo"`
	CanRedo   bool        `json:"can_redo"`
	IsEditing bool        `json:"is_editing"`
	Current   *ImageItem  `json:"current,omitempty"`
	Edit      EditState   `json:"edit"`
	Results   []ImageItem `json:"results"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// EditState is the pending edit context for the current image
type EditState struct {
	Prompt         string     `json:"prompt"`
	SelectedObject string     `json:"selected_object,omitempty"`
	ActiveTool     string     `json:"active_tool"` // "resize", "rotate", "reposition", "none"
	ToolValue      string     `json:"tool_value"`
	Reference      *ImageItem `json:"reference,omitempty"`
	Labels         []string   `json:"labels"`
}

// ImageItem represents one stored image
type ImageItem struct {
	ID          string `json:"id"`
	ImageURL    string `json:"image_url"`
	MIMEType    string `json:"mime_type"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}
