package audit

import (
	"testing"

	"github.com/google/uuid"
)

// TestNewEvent tests event construction
func TestNewEvent(t *testing.T) {
	event := NewEvent(KindMethodFallback, "req-1", map[string]interface{}{
		"method": "banana",
	})

	if event.ID == uuid.Nil {
		t.Error("expected a non-nil event id")
	}
	if event.Time.IsZero() {
		t.Error("expected a timestamp")
	}
	if event.Kind != KindMethodFallback {
		t.Errorf("expected %s, got %s", KindMethodFallback, event.Kind)
	}
	if event.RequestID != "req-1" {
		t.Errorf("expected req-1, got %q", event.RequestID)
	}
	if event.Fields["method"] != "banana" {
		t.Errorf("expected fields to carry detail, got %v", event.Fields)
	}
}

// TestMemorySink tests recording and filtering
func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()

	sink.Record(NewEvent(KindCalculationCompleted, "req-1", nil))
	sink.Record(NewEvent(KindCacheInvalidated, "", nil))
	sink.Record(NewEvent(KindCalculationCompleted, "req-2", nil))

	if len(sink.Events()) != 3 {
		t.Fatalf("expected 3 events, got %d", len(sink.Events()))
	}

	completed := sink.ByKind(KindCalculationCompleted)
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed events, got %d", len(completed))
	}
	if completed[0].RequestID != "req-1" || completed[1].RequestID != "req-2" {
		t.Error("expected events in arrival order")
	}
}

// TestNopSink tests that the no-op sink accepts events
func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.Record(NewEvent(KindValidationFailed, "req-1", nil))
}

// TestZapSinkNilLogger tests that a nil logger is tolerated
func TestZapSinkNilLogger(t *testing.T) {
	sink := NewZapSink(nil)
	sink.Record(NewEvent(KindCacheInvalidated, "", map[string]interface{}{
		"count": 3,
	}))
}
