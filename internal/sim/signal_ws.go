package sim

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
	"github.com/eyeson-team/gosdk/internal/wire"
)

// SignalWSController serves the call-level socket: it accepts call_start with
// a canned answer, reflects chat, and keeps member and source lists current.
type SignalWSController struct {
	Registry *Registry
	Logger   *zerolog.Logger
}

func (ctl *SignalWSController) Handle(c *gin.Context) {
	room := ctl.Registry.RoomForAccessKey(c.Query("key"))
	user, ok := room.User(domain.UserID(c.Query("client")))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown client"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.Logger.Error().Err(err).Msg("signal ws upgrade")
		return
	}
	logger := ctl.Logger.With().Str("client", string(user.ID)).Logger()
	logger.Info().Msg("signal socket connected")

	conn := newSimConn(ws, &logger)
	go conn.writePump()

	call := &simCall{conn: conn, user: user, logger: &logger}
	go func() {
		defer conn.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				logger.Info().Err(err).Msg("signal socket closed")
				return
			}
			call.handle(data)
		}
	}()
}

type simCall struct {
	conn   *simConn
	user   domain.UserInfo
	logger *zerolog.Logger

	callID string
	answer string
}

func (s *simCall) handle(data []byte) {
	var env wire.SignalingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn().Err(err).Msg("bad signal frame")
		return
	}

	switch env.Type {
	case wire.TypeCallStart:
		var start wire.CallStart
		if err := json.Unmarshal(env.Data, &start); err != nil {
			s.logger.Warn().Err(err).Msg("bad call_start")
			return
		}
		s.callID = uuid.NewString()
		s.answer = answerSDP(start.SDP)
		s.reply(wire.CallAccepted{CallID: s.callID, SDP: s.answer})
		s.reply(wire.MemberList{Added: []domain.UserID{s.user.ID}, Count: 1})
		s.reply(wire.SourceUpdate{Sources: []domain.UserID{s.user.ID}})

	case wire.TypeCallResume:
		s.reply(wire.CallResumed{CallID: s.callID, SDP: s.answer})

	case wire.TypeCallTerminate:
		s.reply(wire.CallTerminated{TermCode: 200})
		s.conn.Close()

	case wire.TypeChat:
		var chat wire.Chat
		if err := json.Unmarshal(env.Data, &chat); err != nil {
			return
		}
		chat.From = s.user.ID
		s.reply(chat)
	}
}

func (s *simCall) reply(msg wire.Message) {
	frame, err := wire.EncodeSignaling(msg, "sim", string(s.user.ID))
	if err != nil {
		s.logger.Error().Err(err).Msg("encode signal reply")
		return
	}
	s.conn.send(frame)
}

// answerSDP derives a canned answer from the offer, marking forwarded mode
// so clients report SFU routing.
func answerSDP(offer string) string {
	newline := "\n"
	if strings.Contains(offer, "\r\n") {
		newline = "\r\n"
	}
	marker := "a=sfu-mode:on" + newline
	if idx := strings.Index(offer, newline+"m="); idx >= 0 {
		return offer[:idx+len(newline)] + marker + offer[idx+len(newline):]
	}
	return offer + marker
}
