package events

import (
	"testing"
)

// TestSubscribePublish tests typed subscription delivery
func TestSubscribePublish(t *testing.T) {
	bus := NewEventBus()

	var received []Event
	bus.Subscribe(EventSignalGenerated, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(EventSignalGenerated, map[string]interface{}{"symbol": "US30"})
	bus.Publish(EventOrderPlaced, map[string]interface{}{"ticket": int64(1)})

	if len(received) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(received))
	}
	if received[0].Type != EventSignalGenerated {
		t.Errorf("wrong event type %s", received[0].Type)
	}
	if received[0].Data["symbol"] != "US30" {
		t.Errorf("event data lost: %v", received[0].Data)
	}
	if received[0].Timestamp.IsZero() {
		t.Error("event should carry a timestamp")
	}
}

// TestSubscribeAll tests the catch-all subscription
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()

	count := 0
	bus.SubscribeAll(func(e Event) { count++ })

	bus.Publish(EventSignalGenerated, nil)
	bus.Publish(EventOrderExpired, nil)
	bus.Publish(EventCycleComplete, nil)

	if count != 3 {
		t.Errorf("expected 3 deliveries, got %d", count)
	}
}

// TestMultipleSubscribers tests fan-out to several subscribers
func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	a, b := 0, 0
	bus.Subscribe(EventOrderPlaced, func(e Event) { a++ })
	bus.Subscribe(EventOrderPlaced, func(e Event) { b++ })

	bus.Publish(EventOrderPlaced, nil)

	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers hit once, got %d and %d", a, b)
	}
}
