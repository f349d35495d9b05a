// Package channel implements the long-lived websocket transport shared by
// the meeting and signaling sockets. A Channel is single-use: reconnecting
// means dialing a fresh instance, never reviving an old one.
package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/wire"
)

// ErrSendBuffer is returned internally when the outbound buffer is full;
// Send converts it to a false result.
var ErrSendBuffer = errors.New("send buffer full")

const (
	defaultPingPeriod = 5 * time.Second
	writeWait         = 5 * time.Second
	sendBufferSize    = 32
)

// Event is a transport-level or message-level occurrence on one channel.
type Event interface{ channelEvent() }

// Opened fires once after the socket (and any subscriptions) are up.
type Opened struct{}

// Closed fires when the peer closes the socket gracefully.
type Closed struct {
	Code   int
	Reason string
}

// Failed fires when the socket breaks without a close handshake.
type Failed struct {
	Err error
}

// Inbound carries one decoded control message.
type Inbound struct {
	Msg wire.Message
}

func (Opened) channelEvent()  {}
func (Closed) channelEvent()  {}
func (Failed) channelEvent()  {}
func (Inbound) channelEvent() {}

// Config describes one channel connection.
type Config struct {
	URL       string
	AuthToken string
	// Decode maps a raw frame to a control message (meeting vs. signaling
	// framing differ).
	Decode func([]byte) (wire.Message, error)
	// Subscriptions are logical channel names subscribed right after
	// connect (meeting socket only).
	Subscriptions []string
	PingPeriod    time.Duration
	Logger        *zerolog.Logger
}

type Channel struct {
	conn   *websocket.Conn
	send   chan []byte
	events chan Event
	done   chan struct{}
	decode func([]byte) (wire.Message, error)
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Dial connects, issues subscriptions and starts the read/write pumps.
func Dial(ctx context.Context, cfg Config) (*Channel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	var header http.Header
	if cfg.AuthToken != "" {
		header = http.Header{"Authorization": []string{"Bearer " + cfg.AuthToken}}
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, err
	}

	pingPeriod := cfg.PingPeriod
	if pingPeriod == 0 {
		pingPeriod = defaultPingPeriod
	}

	c := &Channel{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		events: make(chan Event, sendBufferSize),
		done:   make(chan struct{}),
		decode: cfg.Decode,
		logger: cfg.Logger.With().Str("component", "channel").Str("url", cfg.URL).Logger(),
	}

	for _, sub := range cfg.Subscriptions {
		frame, err := wire.EncodeSubscribe(sub)
		if err != nil {
			conn.Close()
			return nil, err
		}
		c.send <- frame
	}

	pongWait := 3 * pingPeriod
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump(pingPeriod)
	go c.readPump(pongWait)

	c.emit(Opened{})
	return c, nil
}

// Events is the stream of transport signals and decoded messages. It is
// closed after Closed or Failed is delivered.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send queues one raw frame, best effort. A full buffer or closed channel
// reports failure without blocking; the caller decides whether that is
// fatal.
func (c *Channel) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Err(ErrSendBuffer).Msg("dropping outbound frame")
		return false
	}
}

// Disconnect attempts a graceful close (code 1001) and tears the pumps down.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = c.conn.Close()
}

func (c *Channel) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Channel) readPump(pongWait time.Duration) {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.deliverReadError(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := c.decode(data)
		if err != nil {
			// Malformed frames are skipped, never fatal.
			c.logger.Debug().Err(err).Msg("skipping undecodable frame")
			continue
		}
		switch m := msg.(type) {
		case wire.Ping:
			// Keep-alive, no event, no log.
		case wire.Unknown:
			c.logger.Debug().Str("type", m.RawType).Msg("dropping unknown message")
		default:
			c.emit(Inbound{Msg: msg})
		}
	}
}

func (c *Channel) deliverReadError(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if wasClosed {
		// Local Disconnect already tore the socket down.
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.emit(Closed{Code: closeErr.Code, Reason: closeErr.Text})
		return
	}
	c.emit(Failed{Err: err})
}

func (c *Channel) emit(ev Event) {
	// Protocol messages must arrive in order, so delivery blocks on a slow
	// consumer. Disconnect releases the pump once the consumer is gone.
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
