package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/vision"
)

const (
	DefaultInterval       = time.Second
	DefaultRequestTimeout = 30 * time.Second
)

type Config struct {
	Camera         vision.Camera
	Capturer       *vision.FrameCapturer
	Analyzer       Analyzer
	Builder        *analysis.Builder
	Window         *analysis.Window
	Observer       Observer
	Interval       time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Controller drives periodic capture and keeps at most one analysis request
// outstanding. Results accumulate in its window across stop and start.
type Controller struct {
	camera         vision.Camera
	capturer       *vision.FrameCapturer
	analyzer       Analyzer
	builder        *analysis.Builder
	window         *analysis.Window
	observer       Observer
	interval       time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger

	mu         sync.Mutex
	capturing  bool
	requesting bool
	source     vision.FrameSource
	stopTicker context.CancelFunc
	tickerDone chan struct{}
	liveText   strings.Builder

	inflight sync.WaitGroup
}

func NewController(cfg Config) *Controller {
	if cfg.Capturer == nil {
		cfg.Capturer = vision.NewFrameCapturer(vision.CapturerConfig{Logger: cfg.Logger})
	}
	if cfg.Builder == nil {
		cfg.Builder = analysis.NewBuilder(nil)
	}
	if cfg.Window == nil {
		cfg.Window = analysis.NewWindow(analysis.DefaultWindowSize)
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		camera:         cfg.Camera,
		capturer:       cfg.Capturer,
		analyzer:       cfg.Analyzer,
		builder:        cfg.Builder,
		window:         cfg.Window,
		observer:       cfg.Observer,
		interval:       cfg.Interval,
		requestTimeout: cfg.RequestTimeout,
		logger:         cfg.Logger.With("component", "session-controller"),
	}
}

// Start acquires the camera and begins capturing. A device failure leaves the
// controller idle and is reported through OnError with a user-facing message.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()
		return nil
	}

	src, err := c.camera.Open(ctx)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("camera open failed", "error", err)

		var devErr *vision.DeviceError
		if errors.As(err, &devErr) {
			c.observer.OnError(devErr.UserMessage())
		} else {
			c.observer.OnError("Webcam error: " + err.Error())
		}
		return err
	}

	tickerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.source = src
	c.capturing = true
	c.stopTicker = cancel
	c.tickerDone = done
	state := c.stateLocked()
	c.mu.Unlock()

	go c.run(tickerCtx, done)

	c.logger.Info("capture started", "interval", c.interval)
	c.observer.OnStateChange(state)
	return nil
}

func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick submits one frame unless capture is off, a request is outstanding, or
// the source has no frame yet.
func (c *Controller) tick() {
	c.mu.Lock()
	if !c.capturing || c.requesting || c.source == nil {
		c.mu.Unlock()
		return
	}

	frame, err := c.capturer.Capture(c.source)
	if err != nil {
		c.mu.Unlock()
		if !errors.Is(err, vision.ErrNotReady) {
			c.logger.Warn("frame capture failed", "error", err)
		}
		return
	}

	c.requesting = true
	c.liveText.Reset()
	c.inflight.Add(1)
	state := c.stateLocked()
	c.mu.Unlock()

	c.observer.OnStateChange(state)
	c.observer.OnLiveText("")

	go c.analyze(frame)
}

func (c *Controller) analyze(frame *vision.Frame) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	start := time.Now()
	description, err := c.analyzer.Analyze(ctx, frame.Data, c.appendLive)
	if err != nil {
		c.logger.Error("analysis failed", "error", err)
		c.finishRequest()
		c.observer.OnError(AnalysisFailedMessage)
		return
	}

	result := c.builder.Build(description, time.Since(start))
	stats := c.window.Insert(result)

	c.logger.Debug("analysis complete", "id", result.ID, "processing_ms", result.ProcessingTimeMs)
	c.observer.OnResult(result, stats)
	c.finishRequest()
}

func (c *Controller) appendLive(delta string) {
	c.mu.Lock()
	c.liveText.WriteString(delta)
	text := c.liveText.String()
	c.mu.Unlock()

	c.observer.OnLiveText(text)
}

func (c *Controller) finishRequest() {
	c.mu.Lock()
	c.requesting = false
	state := c.stateLocked()
	c.mu.Unlock()

	c.observer.OnStateChange(state)
}

// Stop halts capture and releases the camera. Results, stats and an
// outstanding request are left alone.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return
	}

	c.capturing = false
	c.stopTicker()
	done := c.tickerDone
	src := c.source
	c.source = nil
	state := c.stateLocked()
	c.mu.Unlock()

	<-done
	if err := src.Close(); err != nil {
		c.logger.Warn("camera close failed", "error", err)
	}

	c.logger.Info("capture stopped")
	c.observer.OnStateChange(state)
}

// Reset discards accumulated results, stats and live text.
func (c *Controller) Reset() {
	c.window.Clear()

	c.mu.Lock()
	c.liveText.Reset()
	c.mu.Unlock()

	c.observer.OnLiveText("")
}

// Close stops capture and waits for an outstanding request to finish.
func (c *Controller) Close() error {
	c.Stop()
	c.inflight.Wait()
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.capturing && c.requesting:
		return StateRequesting
	case c.capturing:
		return StateCapturing
	default:
		return StateIdle
	}
}

func (c *Controller) Requesting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requesting
}

func (c *Controller) LiveText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveText.String()
}

func (c *Controller) Results() []analysis.AnalysisResult {
	return c.window.Results()
}

func (c *Controller) Stats() analysis.RollingStats {
	return c.window.Stats()
}
