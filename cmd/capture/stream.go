package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/realtime"
	"github.com/eleven-am/vision-relay/internal/vision"
	"github.com/spf13/cobra"
)

var (
	realtimeURL string
	windowSize  int
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Send frames over the real-time websocket",
	Long: `Connects to the relay websocket and sends one analyze_frame message every
interval. Frames captured while the socket is down are skipped; dropped
connections are retried with a growing delay.`,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVarP(&realtimeURL, "url", "u", envOr("REALTIME_URL", "ws://localhost:3000/api/websocket?upgrade=websocket"), "Websocket URL")
	streamCmd.Flags().IntVar(&windowSize, "window", envInt("CAPTURE_WINDOW", analysis.DefaultWindowSize), "Results kept for rolling stats")

	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := newPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr())
	errw := cmd.ErrOrStderr()
	counter := newResultCounter(count)
	window := analysis.NewWindow(windowSize)

	client := realtime.NewClient(realtime.Config{
		URL: realtimeURL,
		OnResult: func(result analysis.AnalysisResult) {
			window.Insert(result)
			if err := out.Result(result); err != nil {
				logger.Error("failed to write result", "error", err)
			}
			counter.add()
		},
		OnConnectionChange: func(connected bool) {
			logger.Info("connection changed", "connected", connected)
		},
		OnError: func(message string) {
			fmt.Fprintf(errw, "error: %s\n", message)
		},
		Logger: logger,
	})

	if err := client.Connect(ctx); err != nil {
		logger.Warn("initial connect failed", "error", err)
	}
	defer client.Disconnect()

	src, err := vision.NewDirectoryCamera(frameDir, logger).Open(ctx)
	if err != nil {
		var devErr *vision.DeviceError
		if errors.As(err, &devErr) {
			return errors.New(devErr.UserMessage())
		}
		return err
	}
	defer src.Close()

	capturer := vision.NewFrameCapturer(vision.CapturerConfig{Logger: logger})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return out.Summary(window.Stats())
		case <-counter.Done():
			return out.Summary(window.Stats())
		case <-ticker.C:
		}

		if !client.IsConnected() {
			continue
		}

		frame, err := capturer.Capture(src)
		if err != nil {
			if !errors.Is(err, vision.ErrNotReady) {
				logger.Warn("frame capture failed", "error", err)
			}
			continue
		}

		if err := client.SendFrame(frame.DataURL()); err != nil {
			logger.Warn("send frame failed", "error", err)
		}
	}
}
