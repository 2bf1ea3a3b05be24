package bootstrap

import (
	"log/slog"
	"os"

	_ "github.com/eleven-am/vision-relay/docs"
	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/gateway"
	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	RelayHandler   *gateway.RelayHandler
	WSServer       *gateway.WSServer
	MetricsHandler *relaystats.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api")

	params.RelayHandler.RegisterRoutes(api)
	params.WSServer.RegisterRoutes(api)
	params.MetricsHandler.RegisterRoutes(api)

	e.GET("/swagger/*", echoSwagger.EchoWrapHandlerV3())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

func ProvideRelayHandler(upstream *inference.Client, stats *relaystats.Store, cfg *Config, logger *slog.Logger) *gateway.RelayHandler {
	return gateway.NewRelayHandler(upstream, stats, cfg.MaxImageBytes, logger.With("handler", "relay"))
}

func ProvideWSServer(upstream *inference.Client, builder *analysis.Builder, stats *relaystats.Store, logger *slog.Logger) *gateway.WSServer {
	return gateway.NewWSServer(upstream, builder, stats, logger.With("handler", "websocket"))
}

func ProvideMetricsHandler(stats *relaystats.Store, logger *slog.Logger) *relaystats.Handler {
	return relaystats.NewHandler(stats, logger.With("handler", "metrics"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRelayHandler,
		ProvideWSServer,
		ProvideMetricsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
