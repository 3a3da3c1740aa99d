package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		logLevel   string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "roomstyler",
		Short: "AI interior redesign studio backed by Gemini image models",
		Long: `Roomstyler turns a photo of a room into AI-generated interior redesigns.

Upload a room, scan it for furniture and structural elements, target a single
object with a transform or a style reference, and walk back and forth through
the edit history. Run it as a web service, or push a file of jobs through the
same pipeline in batch.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(logLevel),
			})))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default roomstyler.yaml if present)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newBatchCmd(&configPath))

	return cmd
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
