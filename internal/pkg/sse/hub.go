package sse

import (
	"sync"
)

// Event is a message delivered to stream subscribers of a topic.
type Event struct {
	ID    string
	Topic string
	Event string
	Data  interface{}
}

// Hub fans events out to subscribers grouped by topic (a shop id, or "*" for
// network-wide listeners).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
}

// Wildcard receives every published event.
const Wildcard = "*"

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber for topic and returns its channel and cleanup function.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)

	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[topic], ch)
			close(ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
		})
	}

	return ch, cleanup
}

// Publish delivers event to subscribers of event.Topic and to wildcard
// subscribers. It returns the number of channels that accepted the event;
// full channels are skipped.
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	send := func(subs map[chan Event]struct{}) {
		for ch := range subs {
			select {
			case ch <- event:
				delivered++
			default:
			}
		}
	}

	send(h.subscribers[event.Topic])
	if event.Topic != Wildcard {
		send(h.subscribers[Wildcard])
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers for topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// TotalSubscribers returns the number of active subscribers across all topics
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
