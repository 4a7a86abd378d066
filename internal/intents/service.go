// Package intents implements the intent lifecycle: generate, persist,
// validate and repair, on top of the store, the oracle and a code runner.
package intents

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"intents/internal/eventbus"
	"intents/internal/metrics"
	"intents/internal/oracle"
	"intents/internal/runner"
	"intents/internal/store"
	"intents/internal/toolkind"
)

// ErrBadRequest marks requests that are missing required data.
var ErrBadRequest = errors.New("bad request")

const eventSource = "intents"

// Deps wires a Service. Metrics, Events and Log may be nil.
type Deps struct {
	Store   *store.Store
	Oracle  oracle.Oracle
	Runner  runner.Runner
	Metrics metrics.Recorder
	Events  eventbus.Publisher
	Log     *zap.Logger
}

// Service runs one lifecycle operation per call. It holds no per-intent
// state; concurrent calls on the same name race at the filesystem.
type Service struct {
	store   *store.Store
	oracle  oracle.Oracle
	runner  runner.Runner
	metrics metrics.Recorder
	events  eventbus.Publisher
	log     *zap.Logger
	now     func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		store:   d.Store,
		oracle:  d.Oracle,
		runner:  d.Runner,
		metrics: d.Metrics,
		events:  d.Events,
		log:     d.Log,
		now:     time.Now,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.events == nil {
		s.events = eventbus.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Read returns the stored source of name.
func (s *Service) Read(ctx context.Context, name string) (string, error) {
	return s.store.Read(name)
}

// List returns every stored intent filename.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List()
}

// SaveEdited fully replaces the code of an existing intent.
func (s *Service) SaveEdited(ctx context.Context, name, code string) error {
	start := s.now()
	err := s.store.Replace(name, code)
	s.observe(ctx, name, metrics.ActionEdit, eventbus.TypeEdited, start, err == nil, errText(err))
	if err != nil {
		return err
	}
	s.log.Info("✏️ [INTENTS] code replaced", zap.String("intent", store.Normalize(name)))
	return nil
}

// SaveParameters appends the given assignments to an existing intent. The
// code is not re-extracted.
func (s *Service) SaveParameters(ctx context.Context, name string, params []store.Param) error {
	start := s.now()
	err := s.store.AppendParams(name, params)
	s.observe(ctx, name, metrics.ActionParams, eventbus.TypeParams, start, err == nil, errText(err))
	if err != nil {
		return err
	}
	s.log.Info("📝 [INTENTS] parameters appended",
		zap.String("intent", store.Normalize(name)),
		zap.Int("count", len(params)))
	return nil
}

// Delete removes an intent and its metrics.
func (s *Service) Delete(ctx context.Context, name string) error {
	start := s.now()
	err := s.store.Delete(name)
	s.observe(ctx, name, metrics.ActionDelete, eventbus.TypeDeleted, start, err == nil, errText(err))
	if err != nil {
		return err
	}
	if ferr := s.metrics.Forget(ctx, store.Normalize(name)); ferr != nil {
		s.log.Warn("⚠️ [METRICS] failed to forget intent", zap.String("intent", name), zap.Error(ferr))
	}
	s.log.Info("🗑️ [INTENTS] deleted", zap.String("intent", store.Normalize(name)))
	return nil
}

// Scaffold creates a new intent from the template of kind. Existing intents
// are never overwritten.
func (s *Service) Scaffold(ctx context.Context, kind, name string) (string, error) {
	k, err := toolkind.Parse(kind)
	if err != nil {
		return "", err
	}
	start := s.now()
	err = s.store.Create(name, k.Template())
	s.observe(ctx, name, metrics.ActionCreate, eventbus.TypeCreated, start, err == nil, errText(err))
	if err != nil {
		return "", err
	}
	path, _ := s.store.Path(name)
	s.log.Info("✅ [INTENTS] scaffolded", zap.String("kind", k.String()), zap.String("path", path))
	return path, nil
}

// Status returns the recorded metrics of an existing intent.
func (s *Service) Status(ctx context.Context, name string) (metrics.IntentMetrics, error) {
	if _, err := s.store.Read(name); err != nil {
		return metrics.IntentMetrics{}, err
	}
	return s.metrics.Snapshot(ctx, store.Normalize(name))
}

// Recent returns the latest recorded lifecycle events, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]metrics.Event, error) {
	return s.metrics.Recent(ctx, limit)
}

// observe records a metrics event and publishes a lifecycle event. Neither
// failure is surfaced to the caller.
func (s *Service) observe(ctx context.Context, name, action, evtType string, start time.Time, ok bool, msg string) {
	now := s.now()
	intent := ""
	if name != "" {
		intent = store.Normalize(name)
	}

	if intent != "" {
		evt := metrics.Event{
			Intent:     intent,
			Action:     action,
			Success:    ok,
			Message:    msg,
			DurationMS: now.Sub(start).Milliseconds(),
			Timestamp:  now.UTC(),
		}
		if err := s.metrics.Record(ctx, evt); err != nil {
			s.log.Warn("⚠️ [METRICS] failed to record", zap.String("intent", intent), zap.Error(err))
		}
	}

	pub := eventbus.IntentEvent{
		EventID:   eventbus.NewEventID("evt_", now),
		Source:    eventSource,
		Type:      evtType,
		Timestamp: now.UTC(),
		Intent:    intent,
		Success:   ok,
		Message:   msg,
	}
	if err := s.events.Publish(ctx, pub); err != nil {
		s.log.Warn("⚠️ [EVENTS] failed to publish", zap.String("type", evtType), zap.Error(err))
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
