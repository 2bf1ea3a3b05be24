package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/vision-relay/internal/gateway"
	"github.com/eleven-am/vision-relay/internal/inference"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	InferenceAPIKey      string
	InferenceBaseURL     string
	InferenceModels      []string
	InferenceMaxTokens   int
	InferenceTemperature float64
	InferenceTimeout     time.Duration

	MaxImageBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadConfig reads the environment, after merging a .env file from the
// working directory when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":3000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		InferenceAPIKey:      getEnv("GRAVIXLAYER_API_KEY", ""),
		InferenceBaseURL:     getEnv("INFERENCE_BASE_URL", inference.DefaultBaseURL),
		InferenceModels:      parseList(getEnv("INFERENCE_MODELS", strings.Join(inference.DefaultModels, ","))),
		InferenceMaxTokens:   getEnvInt("INFERENCE_MAX_TOKENS", inference.DefaultMaxTokens),
		InferenceTemperature: getEnvFloat("INFERENCE_TEMPERATURE", inference.DefaultTemperature),
		InferenceTimeout:     getEnvDuration("INFERENCE_TIMEOUT", inference.DefaultTimeout),

		MaxImageBytes: int64(getEnvInt("MAX_IMAGE_BYTES", gateway.DefaultMaxImageBytes)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(envValue string) []string {
	var items []string
	for _, item := range strings.Split(envValue, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
