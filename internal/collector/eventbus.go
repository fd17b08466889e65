package collector

import (
	"fmt"
	"sync"
)

// ChangeKind classifies a change notification the Collector publishes to
// the HTTP boundary's polling/streaming clients.
type ChangeKind string

const (
	ChangeSlotState    ChangeKind = "slot_state"
	ChangeRunOpened    ChangeKind = "run_opened"
	ChangeRunClosed    ChangeKind = "run_closed"
	ChangeScope        ChangeKind = "scope"
	ChangePriceLearned ChangeKind = "price_learned"
)

// ChangeEvent is fired synchronously to every subscriber of its Kind.
type ChangeEvent struct {
	Kind ChangeKind
	Data any
}

// Handler receives a fired ChangeEvent.
type Handler func(ChangeEvent)

// EventBus is a synchronous pub/sub bus for Collector change notifications,
// grounded on the teacher's internal/proxy/streaming/event_bus.go.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[ChangeKind]map[string]Handler
	nextID      int
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[ChangeKind]map[string]Handler)}
}

// Subscribe registers handler for kind and returns a subscription id for
// Unsubscribe.
func (b *EventBus) Subscribe(kind ChangeKind, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := fmt.Sprintf("sub_%d", b.nextID)
	if b.subscribers[kind] == nil {
		b.subscribers[kind] = make(map[string]Handler)
	}
	b.subscribers[kind][id] = handler
	return id
}

func (b *EventBus) Unsubscribe(kind ChangeKind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.subscribers[kind]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subscribers, kind)
		}
	}
}

// Fire synchronously delivers event to every subscriber of its Kind. A
// handler panic is recovered and dropped so one bad subscriber cannot take
// down the ingest path.
func (b *EventBus) Fire(event ChangeEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Kind]))
	for _, h := range b.subscribers[event.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(event)
		}()
	}
}

func (b *EventBus) GetSubscriberCount(kind ChangeKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[kind])
}
