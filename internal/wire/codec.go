package wire

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// Meeting socket framing follows the cable style: client commands wrap an
// identifier naming a logical channel, server frames carry either a bare
// transport type (ping, welcome, confirm_subscription) or an application
// message object with its own type discriminant.

type meetingCommand struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type channelIdentifier struct {
	Channel string `json:"channel"`
}

// EncodeSubscribe builds the subscribe command for a logical channel
// ("RoomChannel", "UserChannel").
func EncodeSubscribe(channel string) ([]byte, error) {
	ident, err := json.Marshal(channelIdentifier{Channel: channel})
	if err != nil {
		return nil, err
	}
	return json.Marshal(meetingCommand{Command: "subscribe", Identifier: string(ident)})
}

// EncodeMeetingMessage wraps an outbound control message for a logical
// meeting channel (e.g. a room-wide mute request on "RoomChannel").
func EncodeMeetingMessage(channelName string, msg Message) ([]byte, error) {
	ident, err := json.Marshal(channelIdentifier{Channel: channelName})
	if err != nil {
		return nil, err
	}
	payload, err := EncodeFlat(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
		Data       string `json:"data"`
	}{Command: "message", Identifier: string(ident), Data: string(payload)})
}

type meetingFrame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

// DecodeMeeting decodes one meeting socket frame. Malformed JSON is the only
// error case; unrecognized message types come back as Unknown.
func DecodeMeeting(data []byte) (Message, error) {
	var frame meetingFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("meeting frame: %w", err)
	}

	switch frame.Type {
	case "ping":
		return Ping{}, nil
	case "welcome", "confirm_subscription", "reject_subscription":
		return Unknown{RawType: frame.Type}, nil
	}
	if len(frame.Message) == 0 {
		return Unknown{RawType: frame.Type}, nil
	}
	return decodeTagged(frame.Message, decodeMeetingPayload)
}

func decodeMeetingPayload(tag Type, raw json.RawMessage) (Message, error) {
	switch tag {
	case TypeRoomSetup:
		var d domain.MeetingDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return RoomSetup{Descriptor: d}, nil
	case TypeRoomReady:
		var d domain.MeetingDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return RoomReady{Descriptor: d}, nil
	case TypeChat:
		return unmarshalAs[Chat](raw)
	case TypeSnapshotUpdate:
		return unmarshalAs[SnapshotUpdate](raw)
	case TypePlaybackUpdate:
		return unmarshalAs[PlaybackUpdate](raw)
	case TypeRecordingUpdate:
		return unmarshalAs[RecordingUpdate](raw)
	case TypeBroadcastsUpdate:
		return unmarshalAs[BroadcastsUpdate](raw)
	case TypeMuteLocalAudio:
		return unmarshalAs[MuteLocalAudio](raw)
	case TypeLock:
		return unmarshalAs[Lock](raw)
	case TypeCustom:
		return unmarshalAs[Custom](raw)
	case TypePresentationUpdate:
		return unmarshalAs[PresentationUpdate](raw)
	}
	return Unknown{RawType: string(tag), Raw: raw}, nil
}

// SignalingEnvelope is the outer frame on the call socket.
type SignalingEnvelope struct {
	Type  Type            `json:"type"`
	MsgID string          `json:"msg_id"`
	From  string          `json:"from,omitempty"`
	To    string          `json:"to,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeSignaling wraps a message into a signaling envelope with a fresh
// msg_id.
func EncodeSignaling(msg Message, from, to string) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("signaling payload: %w", err)
	}
	return json.Marshal(SignalingEnvelope{
		Type:  msg.MessageType(),
		MsgID: uuid.NewString(),
		From:  from,
		To:    to,
		Data:  data,
	})
}

// DecodeSignaling decodes one signaling socket frame.
func DecodeSignaling(data []byte) (Message, error) {
	var env SignalingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("signaling frame: %w", err)
	}

	raw := env.Data
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch env.Type {
	case TypeCallAccepted:
		return unmarshalAs[CallAccepted](raw)
	case TypeCallRejected:
		return unmarshalAs[CallRejected](raw)
	case TypeCallTerminated:
		return unmarshalAs[CallTerminated](raw)
	case TypeCallResumed:
		return unmarshalAs[CallResumed](raw)
	case TypeChat:
		msg, err := unmarshalAs[Chat](raw)
		if err != nil {
			return nil, err
		}
		chat := msg.(Chat)
		if chat.From == "" {
			chat.From = domain.UserID(env.From)
		}
		return chat, nil
	case TypeSourceUpdate:
		return unmarshalAs[SourceUpdate](raw)
	case TypeMemberList:
		return unmarshalAs[MemberList](raw)
	case TypeRecording:
		return unmarshalAs[Recording](raw)
	case TypePing:
		return Ping{}, nil
	}
	return Unknown{RawType: string(env.Type), Raw: raw}, nil
}

// EncodeFlat builds a flat tagged control frame, as used on the data
// channel and inside outbound meeting commands.
func EncodeFlat(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("data channel payload: %w", err)
	}
	// Splice the discriminant into the flat object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	tag, _ := json.Marshal(msg.MessageType())
	fields["type"] = tag
	return json.Marshal(fields)
}

// DecodeDataChannel decodes one flat data channel control frame.
func DecodeDataChannel(data []byte) (Message, error) {
	return decodeTagged(data, func(tag Type, raw json.RawMessage) (Message, error) {
		switch tag {
		case TypePing:
			return Ping{}, nil
		case TypePong:
			return Pong{}, nil
		case TypeVoiceActivity:
			return unmarshalAs[VoiceActivity](raw)
		case TypeChat:
			return unmarshalAs[Chat](raw)
		case TypeMuteVideo:
			return unmarshalAs[MuteVideo](raw)
		case TypeSetPresenter:
			return unmarshalAs[SetPresenter](raw)
		case TypeDesktopStreaming:
			return unmarshalAs[DesktopStreaming](raw)
		}
		return Unknown{RawType: string(tag), Raw: raw}, nil
	})
}

func decodeTagged(raw json.RawMessage, dispatch func(Type, json.RawMessage) (Message, error)) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("message head: %w", err)
	}
	return dispatch(Type(head.Type), raw)
}

func unmarshalAs[T Message](raw json.RawMessage) (Message, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%s payload: %w", msg.MessageType(), err)
	}
	return msg, nil
}
