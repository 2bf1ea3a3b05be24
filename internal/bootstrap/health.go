package bootstrap

import (
	"github.com/eleven-am/vision-relay/internal/health"
	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const version = "1.0.0"

func ProvideHealthHandler(redis *redis.Client, upstream *inference.Client, stats *relaystats.Store) *health.Handler {
	return health.NewHandler(redis, upstream, stats, version)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.Middleware())
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
