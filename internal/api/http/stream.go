package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/homehub/internal/weather"
)

const (
	weatherEvent      = "weather"
	streamQueueLength = 8
)

var (
	errStreamClosed  = errors.New("event stream closed")
	errStreamTimeout = errors.New("event stream write timed out")
)

// sseStream hands snapshots from the hub to one client's stream writer.
// Send returns an error once the writer has gone away or cannot keep up
// within the write timeout.
type sseStream struct {
	events    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	clock     clockwork.Clock
	timeout   time.Duration
}

func newSSEStream(clock clockwork.Clock, timeout time.Duration) *sseStream {
	return &sseStream{
		events:  make(chan []byte, streamQueueLength),
		done:    make(chan struct{}),
		clock:   clock,
		timeout: timeout,
	}
}

// Send implements broadcast.Sink.
func (s *sseStream) Send(snap weather.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	select {
	case <-s.done:
		return errStreamClosed
	default:
	}

	timer := s.clock.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case s.events <- data:
		return nil
	case <-s.done:
		return errStreamClosed
	case <-timer.Chan():
		return errStreamTimeout
	}
}

func (s *sseStream) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// pump writes queued events to w until the client goes away or quit closes.
// A keep-alive comment is written every keepAlive so dead clients surface as
// write errors.
func (s *sseStream) pump(w *bufio.Writer, keepAlive time.Duration, quit <-chan struct{}) error {
	defer s.close()

	ticker := s.clock.NewTicker(keepAlive)
	defer ticker.Stop()

	// Tell the client the stream is open before the first event.
	if err := writeAndFlush(w, ": connected\n\n"); err != nil {
		return err
	}

	for {
		select {
		case <-quit:
			return nil
		case data := <-s.events:
			if err := writeAndFlush(w, fmt.Sprintf("event: %s\ndata: %s\n\n", weatherEvent, data)); err != nil {
				return err
			}
		case <-ticker.Chan():
			if err := writeAndFlush(w, ": keepalive\n\n"); err != nil {
				return err
			}
		}
	}
}

func writeAndFlush(w *bufio.Writer, chunk string) error {
	if _, err := w.WriteString(chunk); err != nil {
		return err
	}
	return w.Flush()
}
