package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/homehub/internal/metrics"
)

type fakePeer struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (p *fakePeer) Send(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, string(msg.Data))
	return nil
}

func (p *fakePeer) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.got...)
}

func text(s string) Message { return Message{Data: []byte(s)} }

func TestOnMessage_NeverEchoesToSender(t *testing.T) {
	h := NewHub()
	a, b, c := &fakePeer{}, &fakePeer{}, &fakePeer{}
	sa := h.Connect(a)
	h.Connect(b)
	h.Connect(c)

	delivered := h.OnMessage(sa, text("ding"))

	assert.Equal(t, 2, delivered)
	assert.Empty(t, a.messages())
	assert.Equal(t, []string{"ding"}, b.messages())
	assert.Equal(t, []string{"ding"}, c.messages())
}

func TestOnMessage_SingleSessionDeliversNothing(t *testing.T) {
	h := NewHub()
	a := &fakePeer{}
	sa := h.Connect(a)

	assert.Equal(t, 0, h.OnMessage(sa, text("alone")))
	assert.Empty(t, a.messages())
}

func TestOnMessage_FailedRecipientStaysConnected(t *testing.T) {
	h := NewHub()
	a, b := &fakePeer{}, &fakePeer{}
	broken := &fakePeer{fail: errors.New("broken pipe")}
	sa := h.Connect(a)
	h.Connect(b)
	sBroken := h.Connect(broken)

	failures := testutil.ToFloat64(metrics.RelayDeliveryFailures)
	assert.Equal(t, 1, h.OnMessage(sa, text("one")))
	assert.Equal(t, []string{"one"}, b.messages())
	assert.Equal(t, failures+1, testutil.ToFloat64(metrics.RelayDeliveryFailures))

	assert.Equal(t, 3, h.Count())
	assert.True(t, sBroken.Open())
}

func TestOnMessage_PreservesOrderPerPair(t *testing.T) {
	h := NewHub()
	a, b := &fakePeer{}, &fakePeer{}
	sa := h.Connect(a)
	h.Connect(b)

	want := []string{"1", "2", "3", "4", "5"}
	for _, m := range want {
		h.OnMessage(sa, text(m))
	}

	assert.Equal(t, want, b.messages())
}

func TestOnMessage_ConcurrentSendersKeepTheirOwnOrder(t *testing.T) {
	h := NewHub()
	recv := &fakePeer{}
	h.Connect(recv)

	senders := []string{"a", "b", "c"}
	var wg sync.WaitGroup
	for _, name := range senders {
		s := h.Connect(&fakePeer{})
		wg.Add(1)
		go func(name string, s *Session) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				h.OnMessage(s, text(name+string(rune('A'+i))))
			}
		}(name, s)
	}
	wg.Wait()

	last := map[byte]byte{}
	for _, m := range recv.messages() {
		require.Len(t, m, 2)
		prev, seen := last[m[0]]
		if seen {
			assert.Greater(t, m[1], prev, "out of order from %c", m[0])
		}
		last[m[0]] = m[1]
	}
	assert.Len(t, recv.messages(), 60)
}

func TestDisconnect_Idempotent(t *testing.T) {
	h := NewHub()
	a, b := &fakePeer{}, &fakePeer{}
	sa := h.Connect(a)
	sb := h.Connect(b)

	h.Disconnect(sb)
	h.Disconnect(sb)
	h.Disconnect(nil)

	assert.Equal(t, 1, h.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RelaySessions))
	assert.False(t, sb.Open())
	assert.Equal(t, 0, h.OnMessage(sa, text("x")))
	assert.Empty(t, b.messages())
}

func TestOnMessage_BinaryPassedThrough(t *testing.T) {
	h := NewHub()
	var got Message
	sa := h.Connect(&fakePeer{})
	h.Connect(peerFunc(func(m Message) error { got = m; return nil }))

	h.OnMessage(sa, Message{Data: []byte{0x00, 0xff}, Binary: true})

	assert.True(t, got.Binary)
	assert.Equal(t, []byte{0x00, 0xff}, got.Data)
}

type peerFunc func(Message) error

func (f peerFunc) Send(m Message) error { return f(m) }

func TestSessionGauge_TracksConcurrentConnects(t *testing.T) {
	h := NewHub()

	var wg sync.WaitGroup
	sessions := make([]*Session, 20)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = h.Connect(&fakePeer{})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.RelaySessions))

	for _, s := range sessions[:15] {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			h.Disconnect(s)
		}(s)
	}
	wg.Wait()
	assert.Equal(t, 5, h.Count())
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.RelaySessions))
}
