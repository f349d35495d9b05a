package sim

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const simPingPeriod = 5 * time.Second

// MeetingWSController serves the cable-style meeting socket: it confirms
// subscriptions, then announces room_setup and room_ready so a client can
// proceed to the signaling socket.
type MeetingWSController struct {
	Registry *Registry
	Logger   *zerolog.Logger
}

func (ctl *MeetingWSController) Handle(c *gin.Context) {
	room := ctl.Registry.RoomForAccessKey(c.Query("key"))
	user, ok := room.User(domain.UserID(c.Query("client")))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown client"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.Logger.Error().Err(err).Msg("meeting ws upgrade")
		return
	}
	logger := ctl.Logger.With().Str("client", string(user.ID)).Logger()
	logger.Info().Msg("meeting socket connected")

	conn := newSimConn(ws, &logger)
	go conn.writePump()
	go conn.pinger(simPingPeriod, []byte(`{"type":"ping"}`))

	conn.send(mustJSON(map[string]string{"type": "welcome"}))

	host := c.Request.Host
	go func() {
		defer conn.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				logger.Info().Err(err).Msg("meeting socket closed")
				return
			}
			ctl.handleCommand(conn, room, user, host, data, &logger)
		}
	}()
}

func (ctl *MeetingWSController) handleCommand(conn *simConn, room *Room, user domain.UserInfo, host string, data []byte, logger *zerolog.Logger) {
	var cmd struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
		Data       string `json:"data"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		logger.Warn().Err(err).Msg("bad meeting command")
		return
	}

	switch cmd.Command {
	case "subscribe":
		conn.send(mustJSON(map[string]string{
			"type":       "confirm_subscription",
			"identifier": cmd.Identifier,
		}))
		if channelOf(cmd.Identifier) == "RoomChannel" {
			conn.send(meetingFrame(cmd.Identifier, "room_setup", room.Descriptor(host, user, false)))
			conn.send(meetingFrame(cmd.Identifier, "room_ready", room.Descriptor(host, user, true)))
		}

	case "message":
		// Room-wide commands (e.g. stfu) are reflected back at the room.
		conn.send(meetingFrameRaw(cmd.Identifier, []byte(cmd.Data)))
	}
}

func channelOf(identifier string) string {
	var ident struct {
		Channel string `json:"channel"`
	}
	_ = json.Unmarshal([]byte(identifier), &ident)
	return ident.Channel
}

// meetingFrame wraps a payload into a cable frame, splicing the type
// discriminant into the message object.
func meetingFrame(identifier, msgType string, payload any) []byte {
	raw := mustJSON(payload)
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	fields["type"] = mustJSON(msgType)
	return meetingFrameRaw(identifier, mustJSON(fields))
}

func meetingFrameRaw(identifier string, message []byte) []byte {
	return mustJSON(struct {
		Identifier string          `json:"identifier"`
		Message    json.RawMessage `json:"message"`
	}{Identifier: identifier, Message: message})
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
