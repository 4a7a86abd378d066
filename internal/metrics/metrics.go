// Package metrics keeps per-intent counters of lifecycle operations.
package metrics

import (
	"context"
	"time"
)

// Actions recorded by the lifecycle service.
const (
	ActionGenerate = "generate"
	ActionValidate = "validate"
	ActionFix      = "fix"
	ActionEdit     = "edit"
	ActionParams   = "params"
	ActionDelete   = "delete"
	ActionCreate   = "create"
)

// Event is a single lifecycle operation on an intent.
type Event struct {
	ID         string    `json:"id"`
	Intent     string    `json:"intent"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// IntentMetrics aggregates the events of one intent.
type IntentMetrics struct {
	Intent        string           `json:"intent"`
	Total         int64            `json:"total"`
	Successes     int64            `json:"successes"`
	Failures      int64            `json:"failures"`
	Actions       map[string]int64 `json:"actions"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	LastAction    string           `json:"last_action,omitempty"`
	LastSuccess   bool             `json:"last_success"`
	LastMessage   string           `json:"last_message,omitempty"`
	LastSeen      time.Time        `json:"last_seen"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Recorder stores events and serves aggregates.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
	Snapshot(ctx context.Context, intent string) (IntentMetrics, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	Forget(ctx context.Context, intent string) error
}

// apply folds evt into m.
func (m *IntentMetrics) apply(evt Event) {
	if m.Actions == nil {
		m.Actions = map[string]int64{}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = evt.Timestamp
	}
	m.Intent = evt.Intent
	m.Total++
	m.Actions[evt.Action]++
	if evt.Success {
		m.Successes++
	} else {
		m.Failures++
	}
	if evt.DurationMS > 0 {
		m.AvgDurationMS = (m.AvgDurationMS*float64(m.Total-1) + float64(evt.DurationMS)) / float64(m.Total)
	}
	m.LastAction = evt.Action
	m.LastSuccess = evt.Success
	m.LastMessage = evt.Message
	m.LastSeen = evt.Timestamp
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func (Nop) Snapshot(_ context.Context, intent string) (IntentMetrics, error) {
	return IntentMetrics{Intent: intent, Actions: map[string]int64{}}, nil
}

func (Nop) Recent(context.Context, int) ([]Event, error) { return []Event{}, nil }

func (Nop) Forget(context.Context, string) error { return nil }
