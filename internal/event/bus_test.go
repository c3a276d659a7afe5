package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/conclave/internal/logging"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus(nil)

	var received []Event
	id := bus.Subscribe(TypeRunStarted, func(e Event) { received = append(received, e) })
	if id == "" {
		t.Fatal("Subscribe should return a non-empty ID")
	}

	bus.Publish(NewRunStartedEvent("run-1", "doc-1"))
	bus.Publish(NewStageStartedEvent("run-1", "ideation", 4))

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	started, ok := received[0].(RunStartedEvent)
	if !ok || started.TargetID != "doc-1" || started.RunID != "run-1" {
		t.Errorf("received %#v", received[0])
	}
	if started.Timestamp().IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestBus_DispatchOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeStageProgress, func(Event) { order = append(order, "specific-1") })
	bus.Subscribe(TypeStageProgress, func(Event) { order = append(order, "specific-2") })

	bus.Publish(NewStageProgressEvent("r", "ideation", "p1", 1, 2, true))

	want := []string{"specific-1", "specific-2", "wildcard"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	first := bus.Subscribe(TypeTaskFailed, func(Event) { calls++ })
	bus.Subscribe(TypeTaskFailed, func(Event) { calls += 10 })

	if !bus.Unsubscribe(first) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(first) {
		t.Error("second Unsubscribe should report false")
	}

	bus.Publish(NewTaskFailedEvent("r", "execution", "e1", "no text"))
	if calls != 10 {
		t.Errorf("calls = %d, want only the remaining handler", calls)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d", bus.SubscriptionCount())
	}
}

func TestBus_PanickingHandler(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewLoggerTo(&buf, logging.LevelError))

	delivered := false
	bus.Subscribe(TypeRunFailed, func(Event) { panic("handler bug") })
	bus.Subscribe(TypeRunFailed, func(Event) { delivered = true })

	bus.Publish(NewRunFailedEvent("r", "doc-1", "ideation", nil))

	if !delivered {
		t.Error("a panicking handler must not block later handlers")
	}
	if !strings.Contains(buf.String(), `"event_type":"run.failed"`) {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(TypeRunStarted, func(Event) {})
	bus.SubscribeAll(func(Event) {})
	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Clear", bus.SubscriptionCount())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewSettingsUpdatedEvent("test"))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{NewRunStartedEvent("r", "t"), TypeRunStarted},
		{NewRunCompletedEvent("r", "t", "executor2", []string{"a.md"}, 0), TypeRunCompleted},
		{NewRunFailedEvent("r", "t", "", nil), TypeRunFailed},
		{NewRunRejectedEvent("t"), TypeRunRejected},
		{NewStageStartedEvent("r", "judgment", 1), TypeStageStarted},
		{NewStageProgressEvent("r", "ideation", "p", 1, 1, false), TypeStageProgress},
		{NewStageCompletedEvent("r", "ideation", 1, 1), TypeStageCompleted},
		{NewTaskFailedEvent("r", "ideation", "p", "x"), TypeTaskFailed},
		{NewJudgmentUnavailableEvent("r"), TypeJudgmentUnavailable},
		{NewSettingsUpdatedEvent("file"), TypeSettingsUpdated},
	}
	for _, tt := range tests {
		if tt.event.EventType() != tt.want {
			t.Errorf("EventType() = %q, want %q", tt.event.EventType(), tt.want)
		}
	}
}
