package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/eleven-am/vision-relay/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	DefaultMaxImageBytes = 20 << 20
	multipartOverhead    = 1 << 20
)

type Upstream interface {
	Stream(ctx context.Context, imageB64 string) (*inference.Stream, error)
}

type RelayHandler struct {
	upstream      Upstream
	stats         *relaystats.Store
	maxImageBytes int64
	logger        *slog.Logger
}

func NewRelayHandler(upstream Upstream, stats *relaystats.Store, maxImageBytes int64, logger *slog.Logger) *RelayHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{
		upstream:      upstream,
		stats:         stats,
		maxImageBytes: maxImageBytes,
		logger:        logger.With("component", "relay"),
	}
}

func (h *RelayHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/analyze", h.Analyze)
}

// Analyze godoc
// @Summary      Describe an image
// @Description  Relays a single frame to the vision model and streams the description back as server-sent events
// @Tags         relay
// @Accept       multipart/form-data
// @Produce      text/event-stream
// @Param        image  formData  file  true  "JPEG frame"
// @Success      200  {string}  string  "data: {\"content\":\"...\"} events terminated by data: [DONE]"
// @Failure      400  {object}  shared.APIError
// @Failure      413  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /analyze [post]
func (h *RelayHandler) Analyze(c echo.Context) error {
	start := time.Now()
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxImageBytes+multipartOverhead)

	data, err := h.readImage(c)
	if err != nil {
		h.record(req.Context(), "", relaystats.ResultBadRequest, start)
		return err
	}

	h.logger.Debug("image received", "bytes", len(data))

	stream, err := h.upstream.Stream(req.Context(), inference.EncodeImage(data))
	if err != nil {
		h.logger.Error("upstream request failed", "error", err)
		h.record(req.Context(), "", relaystats.ResultUpstreamError, start)
		return analysisFailed(err)
	}
	defer stream.Close()

	first, err := nextContent(stream)
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("upstream stream failed before first token", "model", stream.Model(), "error", err)
		h.record(req.Context(), stream.Model(), relaystats.ResultUpstreamError, start)
		return analysisFailed(err)
	}

	sse, sseErr := newSSEWriter(c.Response())
	if sseErr != nil {
		return shared.InternalError("Streaming not supported", sseErr.Error())
	}
	sse.start()

	for err == nil {
		if writeErr := sse.writeContent(first); writeErr != nil {
			h.logger.Warn("client went away", "error", writeErr)
			h.record(req.Context(), stream.Model(), relaystats.ResultStreamError, start)
			return nil
		}
		first, err = nextContent(stream)
	}

	if !errors.Is(err, io.EOF) {
		h.logger.Error("upstream stream failed", "model", stream.Model(), "error", err)
		h.record(req.Context(), stream.Model(), relaystats.ResultStreamError, start)
		panic(http.ErrAbortHandler)
	}

	if err := sse.writeDone(); err != nil {
		h.logger.Warn("failed to write stream terminator", "error", err)
	}

	h.logger.Info("analysis streamed", "model", stream.Model(), "duration_ms", time.Since(start).Milliseconds())
	h.record(req.Context(), stream.Model(), relaystats.ResultSuccess, start)
	return nil
}

func (h *RelayHandler) readImage(c echo.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, shared.NewAPIError("Image too large").ToHTTP(http.StatusRequestEntityTooLarge)
		}
		return nil, shared.BadRequest("No image provided")
	}
	if fh.Size > h.maxImageBytes {
		return nil, shared.NewAPIError("Image too large").ToHTTP(http.StatusRequestEntityTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, shared.BadRequest("No image provided")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return nil, shared.BadRequest("No image provided")
	}
	return data, nil
}

func (h *RelayHandler) record(ctx context.Context, model string, result relaystats.Result, start time.Time) {
	outcome := relaystats.Outcome{Model: model, Result: result, Latency: time.Since(start)}
	if err := h.stats.Record(context.WithoutCancel(ctx), outcome); err != nil {
		h.logger.Warn("failed to record relay outcome", "error", err)
	}
}

// nextContent skips empty deltas.
func nextContent(stream *inference.Stream) (string, error) {
	for {
		tok, err := stream.Next()
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
}

func analysisFailed(err error) *echo.HTTPError {
	message := err.Error()
	if message == "" {
		message = "Analysis failed"
	}

	var details any = err.Error()
	var exhausted *inference.ExhaustedError
	if errors.As(err, &exhausted) {
		details = exhausted.Details()
	}

	return shared.InternalError(message, details)
}
