// Package hub is the in-process pub/sub fanning out game events to SSE
// subscribers on the public and admin streams.
package hub

import (
	"encoding/json"
	"sync"
)

// Event is a named payload published to a stream. Data is marshaled once at
// publish time.
type Event struct {
	Name string
	Data []byte
}

// NewEvent marshals payload for publication.
func NewEvent(name string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Name: name, Data: data}
}

// Hub is one broadcast stream. Subscribers get a bounded channel; a
// subscriber that falls behind is dropped rather than backpressuring the
// publisher.
type Hub struct {
	stream string

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func New(stream string) *Hub {
	return &Hub{stream: stream, subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel; safe to call twice.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Publish sends the event to every live subscriber, dropping the ones whose
// queues are full.
func (h *Hub) Publish(ev Event) {
	eventsTotal.WithLabelValues(h.stream).Inc()
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; cut it loose.
			delete(h.subs, ch)
			droppedTotal.WithLabelValues(h.stream).Inc()
		}
	}
	h.mu.Unlock()
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
