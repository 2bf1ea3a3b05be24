package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/session"
	"github.com/eleven-am/vision-relay/internal/vision"
	"github.com/spf13/cobra"
)

var (
	serverURL      string
	requestTimeout time.Duration
	showLive       bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Analyze frames one request at a time through the HTTP relay",
	Long: `Runs a capture session against POST /api/analyze. A frame is taken every
interval while no request is outstanding; streamed text is shown as it arrives
when --live is set.`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&serverURL, "server", "s", envOr("RELAY_URL", "http://localhost:3000"), "Relay base URL")
	captureCmd.Flags().DurationVar(&requestTimeout, "timeout", envDuration("CAPTURE_TIMEOUT", session.DefaultRequestTimeout), "Per-request timeout")
	captureCmd.Flags().BoolVar(&showLive, "live", false, "Show streamed text on stderr while a request is running")

	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := newPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr())
	counter := newResultCounter(count)

	ctrl := session.NewController(session.Config{
		Camera:         vision.NewDirectoryCamera(frameDir, logger),
		Analyzer:       session.NewRelayClient(serverURL, nil, logger),
		Observer:       &captureObserver{out: out, errw: cmd.ErrOrStderr(), live: showLive, counter: counter, logger: logger},
		Interval:       interval,
		RequestTimeout: requestTimeout,
		Logger:         logger,
	})

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-counter.Done():
	}

	if err := ctrl.Close(); err != nil {
		return err
	}
	return out.Summary(ctrl.Stats())
}

type captureObserver struct {
	out     *printer
	errw    io.Writer
	live    bool
	counter *resultCounter
	logger  *slog.Logger
}

func (o *captureObserver) OnLiveText(text string) {
	if o.live && text != "" {
		fmt.Fprintf(o.errw, "\r%s", text)
	}
}

func (o *captureObserver) OnResult(result analysis.AnalysisResult, stats analysis.RollingStats) {
	if o.live {
		fmt.Fprintln(o.errw)
	}
	if err := o.out.Result(result); err != nil {
		o.logger.Error("failed to write result", "error", err)
	}
	o.counter.add()
}

func (o *captureObserver) OnError(message string) {
	fmt.Fprintf(o.errw, "error: %s\n", message)
}

func (o *captureObserver) OnStateChange(state session.State) {
	o.logger.Debug("state changed", "state", state)
}
