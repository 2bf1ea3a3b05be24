package realtime

import (
	"log/slog"
	"time"

	"github.com/eleven-am/vision-relay/internal/analysis"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	dialTimeout        = 10 * time.Second
	writeWait          = 10 * time.Second
)

type Config struct {
	URL                string
	MaxAttempts        int
	BaseDelay          time.Duration
	OnResult           func(result analysis.AnalysisResult)
	OnConnectionChange func(connected bool)
	OnError            func(message string)
	Logger             *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.OnResult == nil {
		c.OnResult = func(analysis.AnalysisResult) {}
	}
	if c.OnConnectionChange == nil {
		c.OnConnectionChange = func(bool) {}
	}
	if c.OnError == nil {
		c.OnError = func(string) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
