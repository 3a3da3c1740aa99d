package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrDuplicateJob is returned when two jobs would write to the same output files
var ErrDuplicateJob = errors.New("duplicate job id")

// Loader reads jobs from a JSONL or Parquet file
type Loader struct {
	jobsPath string
}

// NewLoader creates a new jobs loader
func NewLoader(jobsPath string) *Loader {
	return &Loader{
		jobsPath: jobsPath,
	}
}

// Load reads every job. Relative image and reference paths are resolved
// against the directory of the jobs file, and jobs without an ID are
// numbered by position.
func (l *Loader) Load() ([]Job, error) {
	var (
		jobs []Job
		err  error
	)

	ext := strings.ToLower(filepath.Ext(l.jobsPath))
	switch ext {
	case ".parquet":
		jobs, err = l.loadParquet()
	case ".jsonl", ".json":
		jobs, err = l.loadJSONL()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(l.jobsPath)
	bases := make(map[string]string, len(jobs))
	for i := range jobs {
		if strings.TrimSpace(jobs[i].ID) == "" {
			jobs[i].ID = fmt.Sprintf("job-%d", i+1)
		}
		base := outputBase(jobs[i].ID)
		if prev, dup := bases[base]; dup {
			return nil, fmt.Errorf("%w: %q and %q both save designs as %s-N", ErrDuplicateJob, prev, jobs[i].ID, base)
		}
		bases[base] = jobs[i].ID

		jobs[i].ImagePath = resolve(dir, jobs[i].ImagePath)
		jobs[i].ReferencePath = resolve(dir, jobs[i].ReferencePath)
	}

	slog.Debug("Loaded jobs", "path", l.jobsPath, "jobs", len(jobs))
	return jobs, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (l *Loader) loadJSONL() ([]Job, error) {
	file, err := os.Open(l.jobsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open jobs file: %w", err)
	}
	defer file.Close()

	var jobs []Job
	scanner := bufio.NewScanner(file)

	// Increase buffer size for long lines
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(line), &job); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading jobs: %w", err)
	}
	return jobs, nil
}

func (l *Loader) loadParquet() ([]Job, error) {
	file, err := os.Open(l.jobsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Job](pf)
	defer reader.Close()

	var jobs []Job
	rows := make([]Job, 128)
	for {
		n, err := reader.Read(rows)
		jobs = append(jobs, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return jobs, nil
}
