package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// State is a subscriber's lifecycle position.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink is the transport-side send operation for one subscriber.
type Sink[T any] interface {
	Send(v T) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc[T any] func(v T) error

func (f SinkFunc[T]) Send(v T) error { return f(v) }

// Subscriber is one registered delivery path.
type Subscriber[T any] struct {
	id    uuid.UUID
	sink  Sink[T]
	state atomic.Int32

	// sendMu keeps a replay and a push from interleaving on the same sink.
	sendMu sync.Mutex
}

func newSubscriber[T any](sink Sink[T]) *Subscriber[T] {
	return &Subscriber[T]{id: uuid.New(), sink: sink}
}

// ID returns the subscriber's identity.
func (s *Subscriber[T]) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Subscriber[T]) State() State { return State(s.state.Load()) }

// beginClose moves Open -> Closing. It reports false if the subscriber was
// already leaving.
func (s *Subscriber[T]) beginClose() bool {
	return s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
}

func (s *Subscriber[T]) markClosed() {
	s.state.Store(int32(StateClosed))
}

// deliver sends v to the sink. It reports sent=false without an error when
// the subscriber has already left; any error comes from the sink itself.
func (s *Subscriber[T]) deliver(v T) (sent bool, err error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.State() != StateOpen {
		return false, nil
	}
	if err := s.sink.Send(v); err != nil {
		return false, err
	}
	return true, nil
}
