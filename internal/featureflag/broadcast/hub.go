package broadcast

import (
	"sync"

	"github.com/seftec/platform/internal/featureflag/domain"
)

const defaultSubscriberBuffer = 16

// Hub fans flag change events out to in-process subscribers. Every call to
// Subscribe yields an independent registration; subscriptions are never
// deduplicated.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan domain.ChangeEvent
	nextID uint64

	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan domain.ChangeEvent
	done chan struct{}
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan domain.ChangeEvent),
		subscriberBuffer: defaultSubscriberBuffer,
	}
}

// Publish delivers the event to every live subscriber. Slow subscribers are
// skipped rather than blocking the publisher; a dropped notification only
// delays recomputation until the next one.
func (h *Hub) Publish(event domain.ChangeEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	subs := make([]chan domain.ChangeEvent, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan domain.ChangeEvent, h.subscriberBuffer)
	h.subs[id] = ch
	h.mu.Unlock()

	return &Subscription{hub: h, id: id, ch: ch, done: make(chan struct{})}
}

// unsubscribe only removes the channel from the map. A publisher may still
// hold a pre-removal snapshot, so the channel is never closed; consumers
// learn about termination through the subscription's done channel.
func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan domain.ChangeEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

// Done is closed once the subscription has been released.
func (s *Subscription) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}

// Close stops delivery to this subscription only; other registrations keep
// receiving events.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
		close(s.done)
	})
}
