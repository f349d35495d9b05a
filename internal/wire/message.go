// Package wire defines the over-the-wire control message catalog for the
// meeting socket, the signaling socket and the in-call data channel, plus
// the polymorphic decoders. Decoding dispatches on the "type" discriminant;
// an unmatched tag yields the explicit Unknown variant and never an error.
package wire

import (
	"encoding/json"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// Type is the message discriminant shared by all three transports.
type Type string

const (
	// Meeting channel catalog.
	TypeRoomSetup          Type = "room_setup"
	TypeRoomReady          Type = "room_ready"
	TypeChat               Type = "chat"
	TypeSnapshotUpdate     Type = "snapshot_update"
	TypePlaybackUpdate     Type = "playback_update"
	TypeRecordingUpdate    Type = "recording_update"
	TypeBroadcastsUpdate   Type = "broadcasts_update"
	TypeMuteLocalAudio     Type = "stfu"
	TypeLock               Type = "lock"
	TypeCustom             Type = "custom"
	TypePresentationUpdate Type = "presentation_update"

	// Signaling channel catalog, inbound.
	TypeCallAccepted   Type = "call_accepted"
	TypeCallRejected   Type = "call_rejected"
	TypeCallTerminated Type = "call_terminated"
	TypeCallResumed    Type = "call_resumed"
	TypeSourceUpdate   Type = "source_update"
	TypeMemberList     Type = "memberlist"
	TypeRecording      Type = "recording"

	// Signaling channel catalog, outbound.
	TypeCallStart        Type = "call_start"
	TypeCallTerminate    Type = "call_terminate"
	TypeCallResume       Type = "call_resume"
	TypeSetPresenter     Type = "set_presenter"
	TypeDesktopStreaming Type = "desktopstreaming"
	TypeMuteVideo        Type = "mute_video"

	// Data channel catalog.
	TypePing          Type = "ping"
	TypePong          Type = "pong"
	TypeVoiceActivity Type = "voice_activity"
)

// Message is a decoded control message from any of the three transports.
type Message interface {
	MessageType() Type
}

// Unknown is the fallback for unrecognized discriminants. It is never
// forwarded to the application; channels drop it after decode.
type Unknown struct {
	RawType string
	Raw     json.RawMessage
}

func (Unknown) MessageType() Type { return "unknown" }

// RoomSetup announces the room before it is ready to carry a call.
type RoomSetup struct {
	Descriptor domain.MeetingDescriptor
}

func (RoomSetup) MessageType() Type { return TypeRoomSetup }

// RoomReady carries the fresh meeting descriptor that gates the signaling
// channel connect.
type RoomReady struct {
	Descriptor domain.MeetingDescriptor
}

func (RoomReady) MessageType() Type { return TypeRoomReady }

// Chat is a room chat line; appears on the meeting socket, the signaling
// socket and the data channel with the same shape.
type Chat struct {
	From      domain.UserID `json:"cid"`
	Content   string        `json:"content"`
	Timestamp int64         `json:"ts,omitempty"`
}

func (Chat) MessageType() Type { return TypeChat }

type SnapshotUpdate struct {
	Snapshots []domain.SnapshotInfo `json:"snapshots"`
}

func (SnapshotUpdate) MessageType() Type { return TypeSnapshotUpdate }

// Playback is one media playback entry in a playback_update.
type Playback struct {
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	Audio   bool   `json:"audio"`
	Playing bool   `json:"playing"`
}

type PlaybackUpdate struct {
	Playing []Playback `json:"playing"`
}

func (PlaybackUpdate) MessageType() Type { return TypePlaybackUpdate }

type RecordingUpdate struct {
	Recording domain.RecordingInfo `json:"recording"`
}

func (RecordingUpdate) MessageType() Type { return TypeRecordingUpdate }

type BroadcastsUpdate struct {
	Broadcasts []domain.BroadcastInfo `json:"broadcasts"`
}

func (BroadcastsUpdate) MessageType() Type { return TypeBroadcastsUpdate }

// MuteLocalAudio asks this client to mute its own microphone. By carries the
// author so the application can name who muted.
type MuteLocalAudio struct {
	By domain.UserID `json:"cid"`
}

func (MuteLocalAudio) MessageType() Type { return TypeMuteLocalAudio }

type Lock struct {
	Locked bool `json:"locked"`
}

func (Lock) MessageType() Type { return TypeLock }

// Custom is an application-defined payload passed through opaque.
type Custom struct {
	Content json.RawMessage `json:"content"`
}

func (Custom) MessageType() Type { return TypeCustom }

type PresentationUpdate struct {
	Presenter domain.UserID `json:"cid"`
	Active    bool          `json:"active"`
}

func (PresentationUpdate) MessageType() Type { return TypePresentationUpdate }

// CallAccepted confirms the outbound offer; CallID must be retained for any
// later call_terminate.
type CallAccepted struct {
	CallID string `json:"call_id"`
	SDP    string `json:"sdp"`
}

func (CallAccepted) MessageType() Type { return TypeCallAccepted }

type CallRejected struct {
	RejectCode int `json:"reject_code"`
}

func (CallRejected) MessageType() Type { return TypeCallRejected }

type CallTerminated struct {
	TermCode int `json:"term_code"`
}

func (CallTerminated) MessageType() Type { return TypeCallTerminated }

// CallResumed carries an updated remote SDP mid-call.
type CallResumed struct {
	CallID string `json:"call_id"`
	SDP    string `json:"sdp"`
}

func (CallResumed) MessageType() Type { return TypeCallResumed }

// SourceUpdate lists who currently feeds video and who presents.
type SourceUpdate struct {
	Sources          []domain.UserID `json:"sources"`
	Presenter        domain.UserID   `json:"presenter,omitempty"`
	DesktopStreaming bool            `json:"desktopstreaming,omitempty"`
}

func (SourceUpdate) MessageType() Type { return TypeSourceUpdate }

type MemberList struct {
	Added   []domain.UserID `json:"add,omitempty"`
	Deleted []domain.UserID `json:"del,omitempty"`
	Count   int             `json:"count"`
}

func (MemberList) MessageType() Type { return TypeMemberList }

type Recording struct {
	Recording domain.RecordingInfo `json:"recording"`
}

func (Recording) MessageType() Type { return TypeRecording }

// CallStart carries the augmented local SDP offer.
type CallStart struct {
	SDP          string `json:"sdp"`
	AudioOnly    bool   `json:"audio_only,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	ConferenceID string `json:"conf_id,omitempty"`
}

func (CallStart) MessageType() Type { return TypeCallStart }

type CallTerminate struct {
	CallID   string `json:"call_id"`
	TermCode int    `json:"term_code"`
}

func (CallTerminate) MessageType() Type { return TypeCallTerminate }

type CallResume struct {
	CallID string `json:"call_id"`
}

func (CallResume) MessageType() Type { return TypeCallResume }

type SetPresenter struct {
	On bool `json:"on"`
}

func (SetPresenter) MessageType() Type { return TypeSetPresenter }

type DesktopStreaming struct {
	On bool `json:"on"`
}

func (DesktopStreaming) MessageType() Type { return TypeDesktopStreaming }

// MuteVideo tells the remote side the local video mute state so its UI can
// reflect it.
type MuteVideo struct {
	From  domain.UserID `json:"cid,omitempty"`
	Muted bool          `json:"muted"`
}

func (MuteVideo) MessageType() Type { return TypeMuteVideo }

type Ping struct{}

func (Ping) MessageType() Type { return TypePing }

type Pong struct{}

func (Pong) MessageType() Type { return TypePong }

type VoiceActivity struct {
	User domain.UserID `json:"cid"`
	On   bool          `json:"on"`
}

func (VoiceActivity) MessageType() Type { return TypeVoiceActivity }
