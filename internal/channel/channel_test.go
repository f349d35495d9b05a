package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eyeson-team/gosdk/internal/wire"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer is a minimal socket peer: received frames land on inbound, the
// test writes frames through the returned conn channel.
type wsServer struct {
	srv      *httptest.Server
	inbound  chan []byte
	conns    chan *websocket.Conn
	headers  chan http.Header
	readErrs chan error
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		inbound:  make(chan []byte, 32),
		conns:    make(chan *websocket.Conn, 4),
		headers:  make(chan http.Header, 4),
		readErrs: make(chan error, 4),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.headers <- r.Header.Clone()
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- ws
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				s.readErrs <- err
				return
			}
			s.inbound <- data
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-s.conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("no server-side connection")
		return nil
	}
}

func (s *wsServer) recv(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-s.inbound:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound frame")
		return nil
	}
}

func dialTest(t *testing.T, s *wsServer, cfg Config) *Channel {
	t.Helper()
	logger := zerolog.Nop()
	cfg.URL = s.url()
	cfg.Logger = &logger
	if cfg.Decode == nil {
		cfg.Decode = wire.DecodeMeeting
	}
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c
}

func nextEvent(t *testing.T, c *Channel) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return nil
	}
}

func TestDialEmitsOpenedAndSubscribes(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{Subscriptions: []string{"RoomChannel", "UserChannel"}})

	require.IsType(t, Opened{}, nextEvent(t, c))

	var subs []string
	for i := 0; i < 2; i++ {
		var cmd struct {
			Command    string `json:"command"`
			Identifier string `json:"identifier"`
		}
		require.NoError(t, json.Unmarshal(s.recv(t), &cmd))
		require.Equal(t, "subscribe", cmd.Command)
		subs = append(subs, cmd.Identifier)
	}
	require.Contains(t, subs[0], "RoomChannel")
	require.Contains(t, subs[1], "UserChannel")
}

func TestDialSendsBearerToken(t *testing.T) {
	s := newWSServer(t)
	dialTest(t, s, Config{AuthToken: "tok-1"})

	header := <-s.headers
	require.Equal(t, "Bearer tok-1", header.Get("Authorization"))
}

func TestInboundDecodedMessages(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{})
	require.IsType(t, Opened{}, nextEvent(t, c))

	ws := s.conn(t)
	// Garbage, keep-alives and unknown types are skipped; only decodable
	// control messages come through, in order.
	frames := []string{
		`this is not json at all`,
		`{"type":"ping"}`,
		`{"message":{"type":"never_heard_of_it"}}`,
		`{"message":{"type":"lock","locked":true}}`,
		`{"message":{"type":"chat","cid":"u1","content":"hi"}}`,
	}
	for _, frame := range frames {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	ev := nextEvent(t, c)
	require.Equal(t, Inbound{Msg: wire.Lock{Locked: true}}, ev)

	ev = nextEvent(t, c)
	require.Equal(t, Inbound{Msg: wire.Chat{From: "u1", Content: "hi"}}, ev)
}

func TestServerCloseYieldsClosedEvent(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{})
	require.IsType(t, Opened{}, nextEvent(t, c))

	ws := s.conn(t)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, msg))

	ev := nextEvent(t, c)
	closed, ok := ev.(Closed)
	require.True(t, ok)
	require.Equal(t, websocket.CloseNormalClosure, closed.Code)
	require.Equal(t, "bye", closed.Reason)
}

func TestAbruptDropYieldsFailed(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{})
	require.IsType(t, Opened{}, nextEvent(t, c))

	require.NoError(t, s.conn(t).UnderlyingConn().Close())

	ev := nextEvent(t, c)
	failed, ok := ev.(Failed)
	require.True(t, ok)
	require.Error(t, failed.Err)
}

func TestDisconnectReleasesStalledDelivery(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{})

	// Saturate the event buffer with nobody reading, parking the read pump
	// on one more delivery.
	ws := s.conn(t)
	frame := []byte(`{"message":{"type":"lock","locked":true}}`)
	for i := 0; i < sendBufferSize+8; i++ {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
	}
	require.Eventually(t, func() bool {
		return len(c.events) == sendBufferSize
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	c.Disconnect()

	// The pump abandons the in-flight delivery and closes the stream; only
	// the buffered backlog remains.
	var got int
	drained := make(chan struct{})
	go func() {
		for range c.Events() {
			got++
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream never closed")
	}
	require.Equal(t, sendBufferSize, got)
}

func TestDisconnectSendsGoingAway(t *testing.T) {
	s := newWSServer(t)
	c := dialTest(t, s, Config{})
	require.IsType(t, Opened{}, nextEvent(t, c))

	c.Disconnect()

	select {
	case err := <-s.readErrs:
		require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("no close frame received")
	}

	// No Closed or Failed event for a local disconnect; the stream just ends.
	for ev := range c.Events() {
		t.Fatalf("unexpected event after disconnect: %#v", ev)
	}

	require.False(t, c.Send([]byte("late")))
}
