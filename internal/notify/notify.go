// Package notify broadcasts engine occurrences to observers. Delivery is
// fire-and-forget: a slow or absent consumer never blocks a tick, and order
// relative to other broadcasts is not guaranteed.
package notify

import (
	"encoding/json"
	"log/slog"
)

// Kind tags a notification.
type Kind string

const (
	KindEventTriggered Kind = "event_triggered"
	KindEventResolved  Kind = "event_resolved"
	KindEffectsApplied Kind = "effects_applied"
	KindPricesUpdated  Kind = "prices_updated"
)

// Notification is the envelope for every broadcast.
type Notification struct {
	Kind    Kind `json:"kind"`
	Week    int  `json:"week"`
	Payload any  `json:"payload,omitempty"`
}

// Bus fans notifications out to an in-process subscriber channel and,
// when attached, a websocket hub.
type Bus struct {
	ch  chan Notification
	hub *Hub
}

// subscriberBuffer absorbs a burst of per-tick notifications. Roughly two
// ticks worth for a full catalogue refresh plus an event.
const subscriberBuffer = 64

// NewBus returns a bus with a buffered subscriber channel.
func NewBus() *Bus {
	return &Bus{ch: make(chan Notification, subscriberBuffer)}
}

// AttachHub mirrors every notification to the websocket hub.
func (b *Bus) AttachHub(h *Hub) { b.hub = h }

// Subscribe returns the in-process notification channel.
func (b *Bus) Subscribe() <-chan Notification { return b.ch }

// Publish sends without blocking; notifications are dropped when the
// subscriber buffer is full.
func (b *Bus) Publish(n Notification) {
	if b == nil {
		return
	}
	select {
	case b.ch <- n:
	default:
		slog.Debug("notification dropped, subscriber buffer full", "kind", n.Kind)
	}

	if b.hub != nil {
		raw, err := json.Marshal(n)
		if err != nil {
			slog.Debug("notification marshal failed", "kind", n.Kind, "error", err)
			return
		}
		b.hub.Send(raw)
	}
}
