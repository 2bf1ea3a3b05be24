package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	outputFormat string
	logLevel     string
	frameDir     string
	interval     time.Duration
	count        int
)

var rootCmd = &cobra.Command{
	Use:   "vision-capture",
	Short: "Feed captured frames to the vision relay",
	Long: `Captures frames from a directory of images and sends them to a running
vision relay, either one request at a time over HTTP (capture) or over the
real-time websocket (stream).

Quick Start:
  vision-capture capture --dir ./frames            # analyze through POST /api/analyze
  vision-capture stream --dir ./frames --count 10  # analyze through /api/websocket
  vision-capture capture --format yaml             # emit results as YAML documents`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := newPrinter(io.Discard, outputFormat)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", envOr("CAPTURE_FORMAT", formatText), "Output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level written to stderr")
	rootCmd.PersistentFlags().StringVarP(&frameDir, "dir", "d", envOr("CAPTURE_DIR", "."), "Directory of frames to cycle through")
	rootCmd.PersistentFlags().DurationVarP(&interval, "interval", "i", envDuration("CAPTURE_INTERVAL", time.Second), "Capture interval")
	rootCmd.PersistentFlags().IntVarP(&count, "count", "n", envInt("CAPTURE_COUNT", 0), "Stop after this many results (0 runs until interrupted)")
}

func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
