package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	metricsKeyPrefix = "intent_metrics:"
	recentKey        = "intent_events:recent"
	recentCap        = 100
)

// Redis stores aggregates as JSON documents, one key per intent, plus a
// capped list of the most recent events.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis wraps client. A zero ttl keeps keys forever.
func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, log: log}
}

func metricsKey(intent string) string { return metricsKeyPrefix + intent }

func (r *Redis) Record(ctx context.Context, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	key := metricsKey(evt.Intent)
	m, err := r.load(ctx, evt.Intent)
	if err != nil {
		return err
	}
	m.apply(evt)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn("⚠️ [METRICS] redis set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to store metrics in redis: %w", err)
	}

	evtData, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentKey, evtData)
	pipe.LTrim(ctx, recentKey, 0, recentCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add to recent events: %w", err)
	}

	r.log.Debug("📊 [METRICS] recorded",
		zap.String("intent", evt.Intent),
		zap.String("action", evt.Action),
		zap.Int64("total", m.Total))
	return nil
}

func (r *Redis) load(ctx context.Context, intent string) (IntentMetrics, error) {
	m := IntentMetrics{Intent: intent, Actions: map[string]int64{}}
	raw, err := r.client.Get(ctx, metricsKey(intent)).Bytes()
	if errors.Is(err, redis.Nil) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read metrics: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		// A corrupt document starts over rather than blocking every update.
		r.log.Warn("⚠️ [METRICS] discarding unreadable metrics", zap.String("intent", intent), zap.Error(err))
		return IntentMetrics{Intent: intent, Actions: map[string]int64{}}, nil
	}
	if m.Actions == nil {
		m.Actions = map[string]int64{}
	}
	return m, nil
}

func (r *Redis) Snapshot(ctx context.Context, intent string) (IntentMetrics, error) {
	return r.load(ctx, intent)
}

func (r *Redis) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > recentCap {
		limit = recentCap
	}
	items, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent events: %w", err)
	}
	out := make([]Event, 0, len(items))
	for _, it := range items {
		var evt Event
		if err := json.Unmarshal([]byte(it), &evt); err == nil {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (r *Redis) Forget(ctx context.Context, intent string) error {
	if err := r.client.Del(ctx, metricsKey(intent)).Err(); err != nil {
		return fmt.Errorf("failed to delete metrics: %w", err)
	}
	return nil
}
