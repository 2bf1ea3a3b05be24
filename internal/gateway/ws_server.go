package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/eleven-am/vision-relay/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type WSServer struct {
	upstream Upstream
	builder  *analysis.Builder
	stats    *relaystats.Store
	logger   *slog.Logger
}

func NewWSServer(upstream Upstream, builder *analysis.Builder, stats *relaystats.Store, logger *slog.Logger) *WSServer {
	if builder == nil {
		builder = analysis.NewBuilder(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WSServer{
		upstream: upstream,
		builder:  builder,
		stats:    stats,
		logger:   logger.With("component", "ws_server"),
	}
}

func (s *WSServer) RegisterRoutes(g *echo.Group) {
	g.GET("/websocket", s.HandleConnection)
}

// HandleConnection godoc
// @Summary      Real-time analysis socket
// @Description  Upgrades to a websocket that accepts analyze_frame messages and answers each with analysis_result or error
// @Tags         relay
// @Param        upgrade  query  string  true  "must be websocket"
// @Success      101
// @Failure      400  {string}  string  "Expected websocket"
// @Router       /websocket [get]
func (s *WSServer) HandleConnection(c echo.Context) error {
	if c.QueryParam("upgrade") != "websocket" {
		return c.String(http.StatusBadRequest, "Expected websocket")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}

	conn := newWSConnection(ws, uuid.NewString(), s.logger)
	conn.logger.Info("client connected")

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	go func() {
		<-conn.done
		cancel()
	}()

	go conn.writePump()
	go s.processFrames(ctx, conn)
	conn.readPump()

	conn.logger.Info("client disconnected")
	return nil
}

func (s *WSServer) processFrames(ctx context.Context, conn *wsConnection) {
	for msg := range conn.frames {
		reply := s.analyze(ctx, msg.Frame)
		if err := conn.Send(ctx, reply); err != nil {
			return
		}
	}
}

func (s *WSServer) analyze(ctx context.Context, frame string) *transport.Message {
	start := time.Now()

	image := stripDataURL(frame)
	if image == "" {
		s.record(ctx, "", relaystats.ResultBadRequest, start)
		return transport.NewError("No image provided")
	}

	stream, err := s.upstream.Stream(ctx, image)
	if err != nil {
		s.logger.Error("upstream request failed", "error", err)
		s.record(ctx, "", relaystats.ResultUpstreamError, start)
		return transport.NewError(err.Error())
	}
	defer stream.Close()

	var description strings.Builder
	for {
		tok, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error("upstream stream failed", "model", stream.Model(), "error", err)
			s.record(ctx, stream.Model(), relaystats.ResultStreamError, start)
			return transport.NewError(err.Error())
		}
		description.WriteString(tok)
	}

	s.record(ctx, stream.Model(), relaystats.ResultSuccess, start)
	return transport.NewAnalysisResult(s.builder.Build(description.String(), time.Since(start)))
}

func (s *WSServer) record(ctx context.Context, model string, result relaystats.Result, start time.Time) {
	outcome := relaystats.Outcome{Model: model, Result: result, Latency: time.Since(start)}
	if err := s.stats.Record(context.WithoutCancel(ctx), outcome); err != nil {
		s.logger.Warn("failed to record relay outcome", "error", err)
	}
}

// stripDataURL returns the base64 payload of a data URL, or frame unchanged.
func stripDataURL(frame string) string {
	if !strings.HasPrefix(frame, "data:") {
		return frame
	}
	if i := strings.Index(frame, ","); i >= 0 {
		return frame[i+1:]
	}
	return ""
}
