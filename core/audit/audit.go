// Package audit defines the structured events the pricing engine
// emits. Persistence is the embedder's concern; the engine only needs
// a Sink to hand events to.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies an audit event
type Kind string

const (
	// KindCalculationCompleted is emitted after a final price was produced
	KindCalculationCompleted Kind = "calculation_completed"

	// KindCacheInvalidated is emitted when cache entries were removed explicitly
	KindCacheInvalidated Kind = "cache_invalidated"

	// KindMethodFallback is emitted when a line fell back to per-piece
	KindMethodFallback Kind = "method_fallback"

	// KindValidationFailed is emitted when a request was rejected
	KindValidationFailed Kind = "validation_failed"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Event is one engine occurrence worth recording
type Event struct {
	// ID uniquely identifies the event
	ID uuid.UUID `json:"id"`

	// Time is when the event occurred
	Time time.Time `json:"time"`

	// Kind classifies the event
	Kind Kind `json:"kind"`

	// RequestID ties the event to the calculation request, if any
	RequestID string `json:"request_id,omitempty"`

	// Fields carries kind-specific detail
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// NewEvent builds an event stamped with a fresh id and the current time
func NewEvent(kind Kind, requestID string, fields map[string]interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Time:      time.Now().UTC(),
		Kind:      kind,
		RequestID: requestID,
		Fields:    fields,
	}
}

// Sink receives engine events. Implementations must be safe for
// concurrent use; Record must not block the calculation path.
type Sink interface {
	Record(event Event)
}

// ZapSink logs every event through a zap logger
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink returns a sink writing to the given logger
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// Record logs the event at info level with its fields flattened
func (s *ZapSink) Record(event Event) {
	zapFields := make([]zap.Field, 0, len(event.Fields)+3)
	zapFields = append(zapFields,
		zap.String("event_id", event.ID.String()),
		zap.Time("event_time", event.Time),
	)
	if event.RequestID != "" {
		zapFields = append(zapFields, zap.String("request_id", event.RequestID))
	}
	for key, value := range event.Fields {
		zapFields = append(zapFields, zap.Any(key, value))
	}
	s.logger.Info(event.Kind.String(), zapFields...)
}

// NopSink discards every event
type NopSink struct{}

// Record does nothing
func (NopSink) Record(Event) {}

// MemorySink retains events in memory, oldest first. Intended for
// tests and short-lived CLI runs, not for long-running embedders.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink returns an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the event
func (s *MemorySink) Record(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events in arrival order
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByKind returns the recorded events of one kind in arrival order
func (s *MemorySink) ByKind(kind Kind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
