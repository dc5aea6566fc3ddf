package httpapi

import (
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/i474232898/homehub/internal/relay"
)

// wsPeer adapts a websocket connection to relay.Peer. The relay hub
// serializes calls to Send per session.
type wsPeer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (p *wsPeer) Send(msg relay.Message) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	kind := websocket.TextMessage
	if msg.Binary {
		kind = websocket.BinaryMessage
	}
	return p.conn.WriteMessage(kind, msg.Data)
}
