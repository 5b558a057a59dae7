package event

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a2a-aptos/bidagent/internal/logging"
)

// batch is what the agent publishes for one poll that found two tasks, one
// bid landing and one failing.
func batch() []Event {
	return []Event{
		NewStateChangedEvent("IDLE", "POLLING"),
		NewPollCompletedEvent(10, 2),
		NewStateChangedEvent("POLLING", "PROCESSING"),
		NewBidPlacedEvent(11, "task-a", 800, "0x01", false),
		NewCheckpointSavedEvent(11, false),
		NewBidFailedEvent(12, "task-b", 1, errors.New("node unreachable"), 10*time.Second),
		NewStateChangedEvent("PROCESSING", "IDLE"),
	}
}

func TestBus_RoutesByEventType(t *testing.T) {
	tests := []struct {
		eventType string
		want      int
	}{
		{TypeStateChanged, 3},
		{TypePollCompleted, 1},
		{TypeBidPlaced, 1},
		{TypeBidFailed, 1},
		{TypeCheckpointSaved, 1},
		{TypeBidSkipped, 0},
		{TypeFeedError, 0},
	}

	bus := NewBus()
	got := make(map[string]int)
	for _, tt := range tests {
		bus.Subscribe(tt.eventType, func(e Event) {
			if e.EventType() != tt.eventType {
				t.Errorf("%s handler received %s", tt.eventType, e.EventType())
			}
			got[tt.eventType]++
		})
	}
	if n := bus.SubscriptionCount(); n != len(tests) {
		t.Fatalf("SubscriptionCount() = %d, want %d", n, len(tests))
	}

	for _, e := range batch() {
		bus.Publish(e)
	}

	for _, tt := range tests {
		if got[tt.eventType] != tt.want {
			t.Errorf("%s delivered %d times, want %d", tt.eventType, got[tt.eventType], tt.want)
		}
	}
}

func TestBus_PayloadSurvivesDelivery(t *testing.T) {
	bus := NewBus()

	var placed []BidPlacedEvent
	bus.Subscribe(TypeBidPlaced, func(e Event) {
		placed = append(placed, e.(BidPlacedEvent))
	})
	bus.Publish(NewBidPlacedEvent(7, "task-1", 80_000_000, "0xabc", false))
	bus.Publish(NewBidPlacedEvent(9, "task-2", 0, "", true))

	if len(placed) != 2 {
		t.Fatalf("received %d BidPlacedEvents, want 2", len(placed))
	}
	if p := placed[0]; p.Sequence != 7 || p.TaskID != "task-1" || p.Price != 80_000_000 || p.TxHash != "0xabc" || p.Duplicate {
		t.Errorf("first bid = %+v", p)
	}
	if p := placed[1]; !p.Duplicate || p.TaskID != "task-2" {
		t.Errorf("second bid = %+v", p)
	}
}

func TestBus_WildcardSeesBatchInOrder(t *testing.T) {
	bus := NewBus()

	var trail []string
	bus.Subscribe(TypeCheckpointSaved, func(e Event) {
		trail = append(trail, "saved")
	})
	bus.SubscribeAll(func(e Event) {
		trail = append(trail, e.EventType())
	})

	for _, e := range batch() {
		bus.Publish(e)
	}

	want := []string{
		TypeStateChanged,
		TypePollCompleted,
		TypeStateChanged,
		TypeBidPlaced,
		"saved", TypeCheckpointSaved,
		TypeBidFailed,
		TypeStateChanged,
	}
	if !slices.Equal(trail, want) {
		t.Errorf("delivery order = %v, want %v", trail, want)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var printer, recorder int
	printerID := bus.SubscribeAll(func(e Event) { printer++ })
	bus.Subscribe(TypeBidFailed, func(e Event) { recorder++ })

	bus.Publish(NewBidFailedEvent(3, "task-c", 1, errors.New("timeout"), time.Second))
	if !bus.Unsubscribe(printerID) {
		t.Fatal("Unsubscribe() = false for a live subscription")
	}
	if bus.Unsubscribe(printerID) {
		t.Error("Unsubscribe() = true for an already removed subscription")
	}
	bus.Publish(NewBidFailedEvent(3, "task-c", 2, errors.New("timeout"), 2*time.Second))

	if printer != 1 || recorder != 2 {
		t.Errorf("printer = %d, recorder = %d; want 1 and 2", printer, recorder)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(WithLogger(logging.NewWriterLogger(&buf, logging.LevelError)))

	var finals []uint64
	bus.Subscribe(TypeCheckpointSaved, func(e Event) {
		panic("printer closed")
	})
	bus.SubscribeAll(func(e Event) {
		if cs, ok := e.(CheckpointSavedEvent); ok && cs.Final {
			finals = append(finals, cs.Sequence)
		}
	})

	bus.Publish(NewCheckpointSavedEvent(42, true))

	if !slices.Equal(finals, []uint64{42}) {
		t.Errorf("final saves seen = %v, want [42]", finals)
	}
	for _, want := range []string{"event handler panicked", TypeCheckpointSaved, "printer closed"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log %q missing %q", buf.String(), want)
		}
	}
}

func TestBus_NilBusDropsEvents(t *testing.T) {
	var bus *Bus
	bus.Publish(NewPollCompletedEvent(0, 0))
}

func TestBus_ConcurrentPublishers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	bus.Subscribe(TypeCheckpointSaved, func(e Event) {
		mu.Lock()
		seen[e.(CheckpointSavedEvent).Sequence] = true
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for seq := range uint64(100) {
		wg.Go(func() {
			bus.Publish(NewCheckpointSavedEvent(seq, false))
		})
		wg.Go(func() {
			id := bus.Subscribe(TypeFeedError, func(Event) {})
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if len(seen) != 100 {
		t.Errorf("saw %d distinct checkpoints, want 100", len(seen))
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
}

func TestEventConstructors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"state changed", NewStateChangedEvent("IDLE", "POLLING"), TypeStateChanged},
		{"poll completed", NewPollCompletedEvent(4, 2), TypePollCompleted},
		{"feed error", NewFeedErrorEvent(4, boom), TypeFeedError},
		{"bid placed", NewBidPlacedEvent(5, "t", 1, "", true), TypeBidPlaced},
		{"bid skipped", NewBidSkippedEvent(5, "t", "deadline passed"), TypeBidSkipped},
		{"bid failed", NewBidFailedEvent(5, "t", 2, boom, time.Second), TypeBidFailed},
		{"checkpoint saved", NewCheckpointSavedEvent(5, true), TypeCheckpointSaved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.EventType(); got != tt.want {
				t.Errorf("EventType() = %q, want %q", got, tt.want)
			}
			if tt.event.Timestamp().IsZero() {
				t.Error("Timestamp() should be set")
			}
		})
	}

	sc := NewStateChangedEvent("IDLE", "POLLING")
	if sc.From != "IDLE" || sc.To != "POLLING" {
		t.Errorf("StateChangedEvent = %+v", sc)
	}
	failed := NewBidFailedEvent(5, "t", 2, boom, time.Second)
	if failed.Attempt != 2 || failed.RetryIn != time.Second || !errors.Is(failed.Err, boom) {
		t.Errorf("BidFailedEvent = %+v", failed)
	}
}
