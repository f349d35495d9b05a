package sim

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const simWriteWait = 5 * time.Second

// simConn serializes writes to one socket through a buffered send channel so
// handlers and the pinger never interleave frames.
type simConn struct {
	ws     *websocket.Conn
	out    chan []byte
	done   chan struct{}
	logger *zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newSimConn(ws *websocket.Conn, logger *zerolog.Logger) *simConn {
	return &simConn{
		ws:     ws,
		out:    make(chan []byte, 32),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// send queues one frame, dropping it under backpressure.
func (c *simConn) send(data []byte) {
	select {
	case c.out <- data:
	case <-c.done:
	default:
		c.logger.Warn().Msg("dropping frame, send buffer full")
	}
}

func (c *simConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(simWriteWait)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("write failed")
				c.Close()
				return
			}
		}
	}
}

func (c *simConn) pinger(period time.Duration, frame []byte) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.send(frame)
		}
	}
}

func (c *simConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.ws.Close()
}
