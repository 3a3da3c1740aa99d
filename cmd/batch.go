package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/roomstyler/internal/batch"
	"github.com/lehigh-university-libraries/roomstyler/internal/config"
)

func newBatchCmd(configPath *string) *cobra.Command {
	var (
		jobsPath    string
		concurrency int
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a file of redesign jobs",
		Long: `Runs every job in a JSONL or Parquet file through the redesign pipeline.

Each job names a room image and what to do with it: a fresh redesign from a
prompt, a whole-image edit ("edit": true), or a targeted change to one object
with an optional transform and style reference. Designs are written under
<output>/images and a summary to <output>/<timestamp>.yaml.`,
		Example: `  # Run jobs two at a time
  roomstyler batch --jobs jobs.jsonl

  # Parquet input, more workers, custom output directory
  roomstyler batch --jobs jobs.parquet --concurrency 8 --output runs/today`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Batch.Concurrency = concurrency
			}
			if cmd.Flags().Changed("output") {
				cfg.Batch.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			jobs, err := batch.NewLoader(jobsPath).Load()
			if err != nil {
				return fmt.Errorf("failed to load jobs: %w", err)
			}
			slog.Info("Jobs loaded", "jobs", len(jobs), "path", jobsPath)

			client, closeClient, err := newClient(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create model client: %w", err)
			}
			defer closeClient()

			runner := batch.NewRunner(client, batch.Options{
				Concurrency:   cfg.Batch.Concurrency,
				OutputDir:     cfg.Batch.OutputDir,
				DefaultPrompt: cfg.Studio.DefaultPrompt,
			})
			results, err := runner.Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}

			path, err := batch.SaveToYAML(cfg.Batch.OutputDir, batch.RunConfig{
				JobsPath:    jobsPath,
				Transport:   cfg.Gemini.Transport,
				DetectModel: cfg.Gemini.DetectModel,
				ImageModel:  cfg.Gemini.ImageModel,
				Concurrency: cfg.Batch.Concurrency,
			}, results)
			if err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}

			summary := batch.Summarize(results)
			absPath, _ := filepath.Abs(path)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d jobs succeeded, %d designs written\n", summary.Succeeded, summary.Total, summary.Designs)
			fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", absPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobsPath, "jobs", "", "Path to a .jsonl or .parquet jobs file")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 2, "Number of jobs to run at once")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "results", "Directory for designs and the results file")
	_ = cmd.MarkFlagRequired("jobs")

	return cmd
}
