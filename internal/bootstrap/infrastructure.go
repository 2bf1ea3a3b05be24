package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/vision-relay/internal/analysis"
	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/eleven-am/vision-relay/internal/relaystats"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedisClient returns nil when no address is configured; the relay
// then runs without counters.
func ProvideRedisClient(cfg *Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, relay counters disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideInferenceClient(cfg *Config, logger *slog.Logger) *inference.Client {
	if cfg.InferenceAPIKey == "" {
		logger.Warn("GRAVIXLAYER_API_KEY is not set, analysis requests will fail")
	}
	return inference.NewClient(inference.Config{
		BaseURL:     cfg.InferenceBaseURL,
		APIKey:      cfg.InferenceAPIKey,
		Models:      cfg.InferenceModels,
		MaxTokens:   cfg.InferenceMaxTokens,
		Temperature: cfg.InferenceTemperature,
		Timeout:     cfg.InferenceTimeout,
	}, logger)
}

func ProvideRelayStats(redisClient *redis.Client) *relaystats.Store {
	return relaystats.NewStore(redisClient)
}

func ProvideResultBuilder() *analysis.Builder {
	return analysis.NewBuilder(nil)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideInferenceClient,
		ProvideRelayStats,
		ProvideResultBuilder,
	),
)
