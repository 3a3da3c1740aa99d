package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/roomstyler/internal/edit"
	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
	"github.com/lehigh-university-libraries/roomstyler/internal/studio"
)

// Options configures a Runner
type Options struct {
	Concurrency   int
	OutputDir     string
	DefaultPrompt string
}

// Runner executes jobs, each in its own studio session
type Runner struct {
	client  providers.Client
	fetcher *images.Fetcher
	opts    Options
}

func NewRunner(client providers.Client, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "results"
	}
	return &Runner{
		client:  client,
		fetcher: images.NewFetcher(),
		opts:    opts,
	}
}

// ImagesDir is where generated designs are written
func (r *Runner) ImagesDir() string {
	return filepath.Join(r.opts.OutputDir, "images")
}

// Run processes jobs with bounded concurrency. A failed job is recorded in
// its Result and never stops the others; results keep the order of jobs.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if err := os.MkdirAll(r.ImagesDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	slog.Info("Processing jobs", "jobs", len(jobs), "concurrency", r.opts.Concurrency)

	results := make([]Result, len(jobs))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.runJob(ctx, job)
			slog.Info("Job finished",
				"id", job.ID,
				"status", results[i].Status,
				"progress", fmt.Sprintf("%d/%d", done.Add(1), len(jobs)))
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{ID: job.ID}

	outputs, intent, action, err := r.generate(ctx, job)
	result.DurationMS = time.Since(start).Milliseconds()
	result.Intent = intent
	if err != nil {
		result.Status = StatusFailed
		result.Error = studio.Describe(action, err)
		result.Detail = err.Error()
		slog.Warn("Job failed", "id", job.ID, "kind", studio.KindOf(err), "error", err)
		return result
	}

	result.Status = StatusOK
	result.Outputs = outputs
	return result
}

// generate drives one studio session through the job's steps, in the order
// a user would take them, and writes the designs to disk.
func (r *Runner) generate(ctx context.Context, job Job) ([]string, string, studio.Action, error) {
	img, err := r.fetcher.Load(job.ImagePath)
	if err != nil {
		return nil, "", studio.ActionUpload, err
	}

	session := studio.New(job.ID, r.client, studio.Options{DefaultPrompt: r.opts.DefaultPrompt})
	if err := session.Upload(img); err != nil {
		return nil, "", studio.ActionUpload, err
	}

	if job.Edit {
		if _, err := session.SelectDataURI(img.DataURI()); err != nil {
			return nil, "", studio.ActionSelectForEditing, err
		}
	}

	if err := r.applyEdit(session, job); err != nil {
		return nil, "", studio.ActionEdit, err
	}

	cur, _ := session.Current()
	req, err := edit.BuildRequest(session.Session(), cur, job.Edit)
	if err != nil {
		return nil, "", studio.ActionGenerate, err
	}

	results, err := session.Generate(ctx)
	if err != nil {
		return nil, req.Intent.String(), studio.ActionGenerate, err
	}

	outputs, err := r.writeImages(job.ID, results)
	if err != nil {
		return nil, req.Intent.String(), studio.ActionGenerate, err
	}
	return outputs, req.Intent.String(), studio.ActionGenerate, nil
}

// applyEdit sets the object first because changing the target resets the
// other edit fields.
func (r *Runner) applyEdit(session *studio.Studio, job Job) error {
	if job.Object != "" {
		if err := session.SelectObject(job.Object); err != nil {
			return err
		}
	}
	if job.Tool != "" {
		tool, err := edit.ParseTool(job.Tool)
		if err != nil {
			return err
		}
		if err := session.SetActiveTool(tool); err != nil {
			return err
		}
	}
	if job.ToolValue != "" {
		if err := session.SetToolValue(job.ToolValue); err != nil {
			return err
		}
	}
	// An empty prompt keeps the default brief for plain redesigns only.
	if job.Prompt != "" || job.Object != "" || job.Edit {
		if err := session.SetPrompt(job.Prompt); err != nil {
			return err
		}
	}
	if job.ReferencePath != "" {
		ref, err := r.fetcher.Load(job.ReferencePath)
		if err != nil {
			return fmt.Errorf("failed to load reference image: %w", err)
		}
		if err := session.AttachReference(ref); err != nil {
			return err
		}
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outputBase is the file name prefix for a job's designs
func outputBase(jobID string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(jobID, "_"), "._")
	if base == "" {
		return "job"
	}
	return base
}

func (r *Runner) writeImages(jobID string, results []*images.Ref) ([]string, error) {
	base := outputBase(jobID)

	outputs := make([]string, 0, len(results))
	for i, ref := range results {
		path := filepath.Join(r.ImagesDir(), fmt.Sprintf("%s-%d%s", base, i+1, ref.Extension()))
		if err := os.WriteFile(path, ref.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("failed to save design: %w", err)
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}
