// Package batch runs a file of redesign jobs through the studio without the
// HTTP layer and records the outcome of each one.
package batch

// Job is one redesign request read from a .jsonl or .parquet jobs file
type Job struct {
	ID            string `json:"id" parquet:"id"`
	ImagePath     string `json:"image_path" parquet:"image_path"`
	Prompt        string `json:"prompt" parquet:"prompt"`
	Object        string `json:"object" parquet:"object"`                 // target a single detected object
	Tool          string `json:"tool" parquet:"tool"`                     // resize, rotate or reposition
	ToolValue     string `json:"tool_value" parquet:"tool_value"`         // e.g. "20% larger"
	ReferencePath string `json:"reference_path" parquet:"reference_path"` // style reference for the object
	Edit          bool   `json:"edit" parquet:"edit"`                     // treat the image as a design under edit
}

// Result is the outcome of one job
type Result struct {
	ID         string   `yaml:"id"`
	Status     string   `yaml:"status"`
	Intent     string   `yaml:"intent,omitempty"`
	Outputs    []string `yaml:"outputs,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	Detail     string   `yaml:"detail,omitempty"`
	DurationMS int64    `yaml:"duration_ms"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)
