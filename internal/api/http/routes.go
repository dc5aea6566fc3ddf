package httpapi

import (
	"bufio"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/homehub/internal/broadcast"
	"github.com/i474232898/homehub/internal/chime"
	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/relay"
	"github.com/i474232898/homehub/internal/weather"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Weather *weather.Service
	Stream  *broadcast.Hub[weather.Snapshot]
	Relay   *relay.Hub
	Chime   *chime.Service

	Clock               clockwork.Clock
	StreamWriteTimeout  time.Duration
	StreamKeepAlive     time.Duration
	RelayWriteTimeout   time.Duration
	RelayAllowedOrigins []string

	// Quit ends open event streams on shutdown.
	Quit <-chan struct{}
}

func (d *Deps) setDefaults() {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.StreamWriteTimeout <= 0 {
		d.StreamWriteTimeout = 10 * time.Second
	}
	if d.StreamKeepAlive <= 0 {
		d.StreamKeepAlive = 30 * time.Second
	}
	if d.RelayWriteTimeout <= 0 {
		d.RelayWriteTimeout = 10 * time.Second
	}
	if d.Quit == nil {
		d.Quit = make(chan struct{})
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	d.setDefaults()

	api := app.Group("/api")

	api.Get("/weather", currentWeather(d))
	api.Get("/weather/stream", weatherStream(d))
	api.Post("/chime/play", playChime(d))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(relaySession(d), websocket.Config{
		Origins: d.RelayAllowedOrigins,
	}))
}

func currentWeather(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, ok := d.Weather.Current()
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(snap)
	}
}

func weatherStream(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stream := newSSEStream(d.Clock, d.StreamWriteTimeout)

		// The replay is queued on the stream and written once the body
		// writer starts.
		sub, err := d.Stream.Register(stream)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "failed to open weather stream")
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer d.Stream.Unregister(sub)
			if err := stream.pump(w, d.StreamKeepAlive, d.Quit); err != nil {
				logging.WithComponent("http").
					WithField("subscriber", sub.ID()).
					WithError(err).
					Debug("weather stream closed by client")
			}
		}))
		return nil
	}
}

func relaySession(d Deps) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		session := d.Relay.Connect(&wsPeer{conn: conn, writeTimeout: d.RelayWriteTimeout})
		defer d.Relay.Disconnect(session)

		log := logging.WithComponent("http").WithField("session", session.ID())
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("relay read failed")
				}
				return
			}
			switch kind {
			case websocket.TextMessage, websocket.BinaryMessage:
				d.Relay.OnMessage(session, relay.Message{Data: data, Binary: kind == websocket.BinaryMessage})
			}
		}
	}
}

func playChime(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		src, err := d.Chime.Resolve()
		if err != nil {
			if errors.Is(err, chime.ErrNoSource) {
				logging.WithComponent("http").
					WithField("candidates", d.Chime.Candidates()).
					Warn("chime source not found")
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error":      "not_found",
					"candidates": d.Chime.Candidates(),
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve chime")
		}

		logging.WithComponent("http").
			WithField("source", src.Path).
			WithField("format", src.Format).
			Info("chime play requested")
		d.Chime.PlayAsync(src)

		return c.JSON(fiber.Map{
			"started": true,
			"source":  src.Path,
		})
	}
}
