package relay

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/metrics"
)

// ErrSessionClosed is returned when sending to a session that has disconnected.
var ErrSessionClosed = errors.New("relay session closed")

// Message is an opaque payload forwarded verbatim between sessions.
type Message struct {
	Data   []byte
	Binary bool
}

// Peer is the transport-side send operation for one session.
type Peer interface {
	Send(msg Message) error
}

// Session is one connected relay peer.
type Session struct {
	id   uuid.UUID
	peer Peer
	open atomic.Bool

	// sendMu serializes writes to the peer; with a sequential reader per
	// sender this keeps every sender->recipient pair in order.
	sendMu sync.Mutex
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Open reports whether the session is still connected.
func (s *Session) Open() bool { return s.open.Load() }

func (s *Session) send(msg Message) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.open.Load() {
		return ErrSessionClosed
	}
	return s.peer.Send(msg)
}

// Hub forwards each message from one session to every other session.
// Forwarding failures are logged; the recipient stays connected until its
// own transport reports a disconnect.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	log      *logrus.Entry
}

// NewHub creates an empty relay hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]*Session),
		log:      logging.WithComponent("relay"),
	}
}

// Connect registers a new session for peer. There is no replay.
func (h *Hub) Connect(peer Peer) *Session {
	s := &Session{id: uuid.New(), peer: peer}
	s.open.Store(true)

	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	metrics.RelaySessions.Set(float64(total))
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"session": s.id, "total": total}).Info("relay session connected")
	return s
}

// OnMessage forwards msg to every open session except sender and returns the
// number of successful deliveries.
func (h *Hub) OnMessage(sender *Session, msg Message) int {
	metrics.RelayMessages.Inc()

	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if sender != nil && id == sender.id {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.send(msg); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				continue
			}
			metrics.RelayDeliveryFailures.Inc()
			h.log.WithFields(logrus.Fields{
				"session": s.id,
				"from":    senderID(sender),
			}).WithError(err).Warn("relay forward failed")
			continue
		}
		delivered++
	}
	return delivered
}

// Disconnect removes a session. Disconnecting twice is a no-op.
func (h *Hub) Disconnect(s *Session) {
	if s == nil || !s.open.CompareAndSwap(true, false) {
		return
	}

	h.mu.Lock()
	delete(h.sessions, s.id)
	total := len(h.sessions)
	metrics.RelaySessions.Set(float64(total))
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"session": s.id, "total": total}).Info("relay session disconnected")
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func senderID(s *Session) string {
	if s == nil {
		return ""
	}
	return s.id.String()
}
