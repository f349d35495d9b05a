package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eyeson-team/gosdk/internal/domain"
)

func TestDecodeMeetingTransportFrames(t *testing.T) {
	msg, err := DecodeMeeting([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	require.IsType(t, Ping{}, msg)

	for _, typ := range []string{"welcome", "confirm_subscription", "reject_subscription"} {
		msg, err := DecodeMeeting([]byte(`{"type":"` + typ + `"}`))
		require.NoError(t, err)
		require.IsType(t, Unknown{}, msg)
	}
}

func TestDecodeMeetingRoomReady(t *testing.T) {
	frame := `{"identifier":"{\"channel\":\"RoomChannel\"}","message":{` +
		`"type":"room_ready","access_key":"ak","ready":true,` +
		`"room":{"id":"r1","name":"demo"},` +
		`"user":{"id":"u1","name":"alice"},` +
		`"signaling":{"endpoint":"wss://sig","auth_token":"tok"}}}`

	msg, err := DecodeMeeting([]byte(frame))
	require.NoError(t, err)

	ready, ok := msg.(RoomReady)
	require.True(t, ok)
	require.Equal(t, "ak", ready.Descriptor.AccessKey)
	require.True(t, ready.Descriptor.Ready)
	require.Equal(t, domain.RoomID("r1"), ready.Descriptor.Room.ID)
	require.Equal(t, "wss://sig", ready.Descriptor.Signaling.Endpoint)
}

func TestDecodeMeetingUnknownTypeIsNotAnError(t *testing.T) {
	frame := `{"message":{"type":"added_in_a_future_release","whatever":1}}`
	msg, err := DecodeMeeting([]byte(frame))
	require.NoError(t, err)

	unknown, ok := msg.(Unknown)
	require.True(t, ok)
	require.Equal(t, "added_in_a_future_release", unknown.RawType)
}

func TestDecodeMeetingMalformedJSON(t *testing.T) {
	_, err := DecodeMeeting([]byte(`{"message":`))
	require.Error(t, err)
}

func TestDecodeMeetingMuteUsesAuthorID(t *testing.T) {
	frame := `{"message":{"type":"stfu","cid":"moderator-1"}}`
	msg, err := DecodeMeeting([]byte(frame))
	require.NoError(t, err)
	require.Equal(t, MuteLocalAudio{By: "moderator-1"}, msg)
}

func TestEncodeSubscribe(t *testing.T) {
	frame, err := EncodeSubscribe("RoomChannel")
	require.NoError(t, err)

	var cmd struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
	}
	require.NoError(t, json.Unmarshal(frame, &cmd))
	require.Equal(t, "subscribe", cmd.Command)

	// The identifier is itself a JSON document naming the channel.
	var ident struct {
		Channel string `json:"channel"`
	}
	require.NoError(t, json.Unmarshal([]byte(cmd.Identifier), &ident))
	require.Equal(t, "RoomChannel", ident.Channel)
}

func TestEncodeMeetingMessage(t *testing.T) {
	frame, err := EncodeMeetingMessage("RoomChannel", MuteLocalAudio{By: "u1"})
	require.NoError(t, err)

	var cmd struct {
		Command    string `json:"command"`
		Identifier string `json:"identifier"`
		Data       string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &cmd))
	require.Equal(t, "message", cmd.Command)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(cmd.Data), &payload))
	require.Equal(t, "stfu", payload["type"])
	require.Equal(t, "u1", payload["cid"])
}

func TestSignalingRoundTrip(t *testing.T) {
	frame, err := EncodeSignaling(CallStart{SDP: "v=0", DisplayName: "alice"}, "client-1", "")
	require.NoError(t, err)

	var env SignalingEnvelope
	require.NoError(t, json.Unmarshal(frame, &env))
	require.Equal(t, TypeCallStart, env.Type)
	require.Equal(t, "client-1", env.From)
	require.NotEmpty(t, env.MsgID)

	var start CallStart
	require.NoError(t, json.Unmarshal(env.Data, &start))
	require.Equal(t, "v=0", start.SDP)
}

func TestDecodeSignalingChatBackfillsSender(t *testing.T) {
	frame := `{"type":"chat","msg_id":"m1","from":"u7","data":{"content":"hi"}}`
	msg, err := DecodeSignaling([]byte(frame))
	require.NoError(t, err)

	chat, ok := msg.(Chat)
	require.True(t, ok)
	require.Equal(t, domain.UserID("u7"), chat.From)
	require.Equal(t, "hi", chat.Content)

	// An explicit cid in the payload wins over the envelope sender.
	frame = `{"type":"chat","msg_id":"m2","from":"u7","data":{"cid":"u9","content":"hi"}}`
	msg, err = DecodeSignaling([]byte(frame))
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u9"), msg.(Chat).From)
}

func TestDecodeSignalingCallAccepted(t *testing.T) {
	frame := `{"type":"call_accepted","msg_id":"m1","data":{"call_id":"c1","sdp":"v=0"}}`
	msg, err := DecodeSignaling([]byte(frame))
	require.NoError(t, err)
	require.Equal(t, CallAccepted{CallID: "c1", SDP: "v=0"}, msg)
}

func TestDecodeSignalingUnknown(t *testing.T) {
	msg, err := DecodeSignaling([]byte(`{"type":"brand_new","msg_id":"m1"}`))
	require.NoError(t, err)
	require.IsType(t, Unknown{}, msg)
}

func TestEncodeFlatSplicesDiscriminant(t *testing.T) {
	frame, err := EncodeFlat(MuteVideo{From: "u1", Muted: true})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame, &payload))
	require.Equal(t, "mute_video", payload["type"])
	require.Equal(t, "u1", payload["cid"])
	require.Equal(t, true, payload["muted"])
}

func TestDataChannelDecode(t *testing.T) {
	msg, err := DecodeDataChannel([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	require.IsType(t, Ping{}, msg)

	msg, err = DecodeDataChannel([]byte(`{"type":"voice_activity","cid":"u3","on":true}`))
	require.NoError(t, err)
	require.Equal(t, VoiceActivity{User: "u3", On: true}, msg)

	msg, err = DecodeDataChannel([]byte(`{"type":"mystery"}`))
	require.NoError(t, err)
	require.IsType(t, Unknown{}, msg)

	_, err = DecodeDataChannel([]byte(`not json`))
	require.Error(t, err)
}
