// Package eventbus publishes intent lifecycle events over NATS core subjects.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when none is configured.
const DefaultSubject = "intents.events"

// Event types.
const (
	TypeGenerated = "intent.generated"
	TypeValidated = "intent.validated"
	TypeFixed     = "intent.fixed"
	TypeEdited    = "intent.edited"
	TypeParams    = "intent.params_saved"
	TypeDeleted   = "intent.deleted"
	TypeCreated   = "intent.created"
)

var errInvalidEvent = errors.New("invalid event: missing required fields")

// IntentEvent is the envelope published for every lifecycle operation.
type IntentEvent struct {
	EventID   string            `json:"event_id"`
	Source    string            `json:"source"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Intent    string            `json:"intent"`
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEventID generates a unique event id with a date prefix.
func NewEventID(prefix string, t time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + t.UTC().Format("20060102") + "_" + id[:16]
}

// Valid reports whether the required fields are set.
func (e *IntentEvent) Valid() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, evt IntentEvent) error
	Close()
}

// NATSConfig selects the server and subject.
type NATSConfig struct {
	URL     string
	Subject string
	Name    string
}

// NATSBus publishes events to one subject.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "intents"
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

func (b *NATSBus) Publish(ctx context.Context, evt IntentEvent) error {
	if !evt.Valid() {
		return errInvalidEvent
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

// Subscribe delivers decoded events to handler until ctx is done.
func (b *NATSBus) Subscribe(ctx context.Context, handler func(IntentEvent)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var evt IntentEvent
		if err := json.Unmarshal(msg.Data, &evt); err == nil {
			handler(evt)
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

func (b *NATSBus) Close() { b.nc.Close() }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, IntentEvent) error { return nil }
func (Nop) Close()                                     {}
