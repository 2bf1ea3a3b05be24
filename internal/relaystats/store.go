package relaystats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const metricsTTL = 7 * 24 * time.Hour

var ErrInvalidDate = errors.New("invalid date")

// Store keeps hourly relay counters in redis. A Store without a client
// accepts every call and records nothing.
type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient, now: time.Now}
}

func (s *Store) Enabled() bool {
	return s != nil && s.redis != nil
}

func (s *Store) Record(ctx context.Context, outcome Outcome) error {
	if !s.Enabled() {
		return nil
	}

	now := s.now().UTC()
	key := MetricsRedisKey(now.Format(dateLayout), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, fieldRequests, 1)
	if outcome.Result != "" {
		pipe.HIncrBy(ctx, key, string(outcome.Result), 1)
	}
	if outcome.Result == ResultSuccess {
		pipe.HIncrBy(ctx, key, fieldLatency, outcome.Latency.Milliseconds())
	}
	if outcome.Model != "" {
		pipe.HIncrBy(ctx, key, modelField(outcome.Model), 1)
	}
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetDay returns the populated hours of a UTC day in ascending order.
func (s *Store) GetDay(ctx context.Context, date string) ([]*HourlyMetrics, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDate, date, err)
	}

	metrics := []*HourlyMetrics{}
	if !s.Enabled() {
		return metrics, nil
	}

	for hour := 0; hour < 24; hour++ {
		data, err := s.redis.HGetAll(ctx, MetricsRedisKey(date, hour)).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		metrics = append(metrics, parseHour(date, hour, data))
	}

	return metrics, nil
}

func (s *Store) Today(ctx context.Context) ([]*HourlyMetrics, error) {
	return s.GetDay(ctx, s.now().UTC().Format(dateLayout))
}

func parseHour(date string, hour int, data map[string]string) *HourlyMetrics {
	m := &HourlyMetrics{Date: date, Hour: hour}

	for field, raw := range data {
		v, _ := strconv.ParseInt(raw, 10, 64)
		switch Result(field) {
		case ResultSuccess:
			m.Success = v
			continue
		case ResultBadRequest:
			m.BadRequest = v
			continue
		case ResultUpstreamError:
			m.UpstreamError = v
			continue
		case ResultStreamError:
			m.StreamError = v
			continue
		}

		if field == fieldRequests {
			m.Requests = v
			continue
		}
		if model, ok := isModelField(field); ok {
			if m.Models == nil {
				m.Models = make(map[string]int64)
			}
			m.Models[model] = v
		}
	}

	if m.Success > 0 {
		totalLatency, _ := strconv.ParseInt(data[fieldLatency], 10, 64)
		m.AvgLatencyMs = totalLatency / m.Success
	}
	return m
}
