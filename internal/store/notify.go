package store

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const DefaultNotifyBuffer = 64

// Notification is a fire-and-forget broadcast of an event the typed
// stores did not fully consume, so other observers can react without the
// router knowing about them.
type Notification struct {
	EventType  string          `json:"event_type"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// Notifier fans notifications out to subscribers over bounded channels.
// A slow subscriber loses notifications rather than stalling the
// pipeline.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]chan Notification
	nextID int
	buffer int
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultNotifyBuffer
	}
	return &Notifier{
		subs:   make(map[int]chan Notification),
		buffer: buffer,
	}
}

// Subscribe registers a new observer. The returned cancel func must be
// called to release the channel.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Notification, n.buffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if ch, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish broadcasts to every subscriber, dropping on full buffers.
func (n *Notifier) Publish(eventType string, properties json.RawMessage) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	note := Notification{EventType: eventType, Properties: properties}
	for id, ch := range n.subs {
		select {
		case ch <- note:
		default:
			slog.Warn("Notification dropped, subscriber buffer full",
				"subscriber", id,
				"event_type", eventType)
		}
	}
}

func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
