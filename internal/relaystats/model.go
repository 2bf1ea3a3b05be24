package relaystats

import (
	"fmt"
	"strings"
	"time"
)

type Result string

const (
	ResultSuccess       Result = "success"
	ResultBadRequest    Result = "bad_request"
	ResultUpstreamError Result = "upstream_error"
	ResultStreamError   Result = "stream_error"
)

const (
	fieldRequests    = "requests"
	fieldLatency     = "latency_ms"
	modelFieldPrefix = "model:"
	dateLayout       = "2006-01-02"
)

// Outcome describes one finished relay request. Model is empty when no
// upstream model accepted the request.
type Outcome struct {
	Model   string
	Result  Result
	Latency time.Duration
}

type HourlyMetrics struct {
	Date          string           `json:"date"`
	Hour          int              `json:"hour"`
	Requests      int64            `json:"requests"`
	Success       int64            `json:"success"`
	BadRequest    int64            `json:"bad_request"`
	UpstreamError int64            `json:"upstream_error"`
	StreamError   int64            `json:"stream_error"`
	AvgLatencyMs  int64            `json:"avg_latency_ms"`
	Models        map[string]int64 `json:"models,omitempty"`
}

func MetricsRedisKey(date string, hour int) string {
	return fmt.Sprintf("relay:metrics:%s:%02d", date, hour)
}

func modelField(model string) string {
	return modelFieldPrefix + model
}

func isModelField(field string) (string, bool) {
	if !strings.HasPrefix(field, modelFieldPrefix) {
		return "", false
	}
	return strings.TrimPrefix(field, modelFieldPrefix), true
}
