// Package events provides the in-process event bus connecting the engine
// to the API websocket hub and the persistence layer.
package events

import (
	"sync"
	"time"
)

// EventType represents different kinds of engine events
type EventType string

const (
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventSignalRejected  EventType = "SIGNAL_REJECTED"
	EventOrderPlaced     EventType = "ORDER_PLACED"
	EventOrderCancelled  EventType = "ORDER_CANCELLED"
	EventOrderExpired    EventType = "ORDER_EXPIRED"
	EventOrderClosed     EventType = "ORDER_CLOSED"
	EventCycleComplete   EventType = "CYCLE_COMPLETE"
	EventError           EventType = "ERROR"
)

// Event represents one engine event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish delivers an event to every matching subscriber. Delivery is
// synchronous; subscribers must not block.
func (eb *EventBus) Publish(eventType EventType, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	eb.mu.RLock()
	subs := make([]Subscriber, 0, len(eb.subscribers[eventType])+len(eb.allSubs))
	subs = append(subs, eb.subscribers[eventType]...)
	subs = append(subs, eb.allSubs...)
	eb.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}
