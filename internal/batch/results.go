package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig records how a batch was run
type RunConfig struct {
	JobsPath    string `yaml:"jobspath"`
	Transport   string `yaml:"transport"`
	DetectModel string `yaml:"detectmodel"`
	ImageModel  string `yaml:"imagemodel"`
	Concurrency int    `yaml:"concurrency"`
	Timestamp   string `yaml:"timestamp"`
}

// Summary counts job outcomes
type Summary struct {
	Total     int `yaml:"total"`
	Succeeded int `yaml:"succeeded"`
	Failed    int `yaml:"failed"`
	Designs   int `yaml:"designs"`
}

// Report is the complete results file
type Report struct {
	Config  RunConfig `yaml:"config"`
	Summary Summary   `yaml:"summary"`
	Results []Result  `yaml:"results"`
}

// Summarize counts the outcomes in results
func Summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}
	for _, r := range results {
		if r.Status == StatusOK {
			summary.Succeeded++
			summary.Designs += len(r.Outputs)
		} else {
			summary.Failed++
		}
	}
	return summary
}

// SaveToYAML writes the report to <dir>/<timestamp>.yaml and returns the path
func SaveToYAML(dir string, config RunConfig, results []Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	if config.Timestamp == "" {
		config.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}

	report := Report{
		Config:  config,
		Summary: Summarize(results),
		Results: results,
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := filepath.Join(dir, config.Timestamp+".yaml")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}
