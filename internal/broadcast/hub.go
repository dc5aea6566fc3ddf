package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/metrics"
)

var (
	// ErrSubscriberClosed is returned by Register when the hub closed the
	// subscriber before its replay.
	ErrSubscriberClosed = errors.New("subscriber closed")
	// ErrDuplicateSubscriber signals a registry invariant violation.
	ErrDuplicateSubscriber = errors.New("duplicate subscriber identity")
)

// Source yields the value replayed to new subscribers, if any.
type Source[T any] func() (T, bool)

// Hub keeps the set of active subscribers and pushes values to all of them.
// A subscriber whose delivery fails is dropped; the rest still receive the value.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscriber[T]
	replay Source[T]
	log    *logrus.Entry
}

// NewHub creates a new Hub. replay may be nil to disable replay-on-connect.
func NewHub[T any](replay Source[T]) *Hub[T] {
	return &Hub[T]{
		subs:   make(map[uuid.UUID]*Subscriber[T]),
		replay: replay,
		log:    logging.WithComponent("broadcast"),
	}
}

// Register adds a subscriber and, if a current value exists, delivers it
// once before returning. If that replay fails the subscriber is removed and
// the error is returned.
func (h *Hub[T]) Register(sink Sink[T]) (*Subscriber[T], error) {
	sub := newSubscriber(sink)

	// Add before reading the replay value: a push racing with this call may
	// be delivered twice but is never missed.
	if err := h.add(sub); err != nil {
		return nil, err
	}

	if h.replay != nil {
		if v, ok := h.replay(); ok {
			sent, err := sub.deliver(v)
			if err != nil {
				h.remove(sub)
				metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
				h.log.WithField("subscriber", sub.id).WithError(err).Debug("replay failed, subscriber dropped")
				return nil, err
			}
			if !sent {
				// Closed by Hub.Close while registering.
				return nil, ErrSubscriberClosed
			}
			metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
		}
	}

	h.log.WithFields(logrus.Fields{"subscriber": sub.id, "total": h.Count()}).Debug("subscriber connected")
	return sub, nil
}

// Push delivers v to every subscriber in the active set at the time of the
// call. It returns the number of successful deliveries.
func (h *Hub[T]) Push(v T) int {
	h.mu.RLock()
	targets := make([]*Subscriber[T], 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		sent, err := sub.deliver(v)
		if err != nil {
			h.remove(sub)
			metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
			h.log.WithFields(logrus.Fields{
				"subscriber": sub.id,
				"total":      h.Count(),
			}).WithError(err).Debug("subscriber dropped")
			continue
		}
		if !sent {
			// Left between the snapshot and this delivery.
			continue
		}
		delivered++
		metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
	}
	return delivered
}

// Unregister removes a subscriber. Removing an absent subscriber is a no-op.
func (h *Hub[T]) Unregister(sub *Subscriber[T]) {
	if sub == nil {
		return
	}
	if h.remove(sub) {
		h.log.WithFields(logrus.Fields{"subscriber": sub.id, "total": h.Count()}).Debug("subscriber disconnected")
	}
}

// Count returns the number of active subscribers.
func (h *Hub[T]) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uuid.UUID]*Subscriber[T])
	metrics.BroadcastSubscribers.Set(0)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.beginClose()
		sub.markClosed()
	}
}

func (h *Hub[T]) add(sub *Subscriber[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.subs[sub.id]; exists {
		h.log.WithField("subscriber", sub.id).Error("registry invariant violated: duplicate subscriber identity")
		return ErrDuplicateSubscriber
	}
	h.subs[sub.id] = sub
	metrics.BroadcastSubscribers.Set(float64(len(h.subs)))
	return nil
}

// remove drives sub to Closed and deletes it from the set. It reports whether
// this call performed the removal.
func (h *Hub[T]) remove(sub *Subscriber[T]) bool {
	sub.beginClose()

	h.mu.Lock()
	current, ok := h.subs[sub.id]
	if ok && current == sub {
		delete(h.subs, sub.id)
		metrics.BroadcastSubscribers.Set(float64(len(h.subs)))
	}
	h.mu.Unlock()

	sub.markClosed()
	return ok && current == sub
}
