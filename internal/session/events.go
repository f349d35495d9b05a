package session

import (
	"encoding/json"

	"github.com/eyeson-team/gosdk/internal/domain"
	"github.com/eyeson-team/gosdk/internal/media"
	"github.com/eyeson-team/gosdk/internal/wire"
)

// Event is one occurrence on the coordinator's unified stream. The facade
// translates these into the application-facing surface; reason codes stay
// raw integers here.
type Event interface{ sessionEvent() }

// Joining fires once when the session starts connecting.
type Joining struct{}

// Joined fires when the media path is up.
type Joined struct{}

// Rejected is terminal: the server refused the call.
type Rejected struct{ Code int }

// Terminated is terminal: the session ended, by either side.
type Terminated struct{ Code int }

type Locked struct{ Locked bool }

// StreamingModeChanged reports p2p vs. SFU routing after negotiation.
type StreamingModeChanged struct{ P2P bool }

type SourcesChanged struct {
	Sources          []domain.UserID
	Presenter        domain.UserID
	DesktopStreaming bool
}

// SourceVideoMuted reports a remote participant muting their video.
type SourceVideoMuted struct {
	User  domain.UserInfo
	Muted bool
}

// AudioMutedBy reports that another participant muted this client.
type AudioMutedBy struct{ By domain.UserInfo }

type PlaybackChanged struct{ Playing []wire.Playback }

type BroadcastsChanged struct{ Broadcasts []domain.BroadcastInfo }

type RecordingChanged struct{ Recording domain.RecordingInfo }

type SnapshotsChanged struct{ Snapshots []domain.SnapshotInfo }

type ConnectionStats struct{ Stats media.ConnectionStats }

type UserJoined struct{ User domain.UserInfo }

type UserLeft struct{ User domain.UserInfo }

type MemberCountChanged struct{ Count int }

type VoiceActivityChanged struct {
	User domain.UserInfo
	On   bool
}

type ChatReceived struct {
	From      domain.UserInfo
	Content   string
	Timestamp int64
}

type CustomReceived struct{ Content json.RawMessage }

type PresentationChanged struct {
	Presenter domain.UserInfo
	Active    bool
}

type CameraSwitchDone struct{ Front bool }

type CameraSwitchError struct{ Err error }

func (Joining) sessionEvent()              {}
func (Joined) sessionEvent()               {}
func (Rejected) sessionEvent()             {}
func (Terminated) sessionEvent()           {}
func (Locked) sessionEvent()               {}
func (StreamingModeChanged) sessionEvent() {}
func (SourcesChanged) sessionEvent()       {}
func (SourceVideoMuted) sessionEvent()     {}
func (AudioMutedBy) sessionEvent()         {}
func (PlaybackChanged) sessionEvent()      {}
func (BroadcastsChanged) sessionEvent()    {}
func (RecordingChanged) sessionEvent()     {}
func (SnapshotsChanged) sessionEvent()     {}
func (ConnectionStats) sessionEvent()      {}
func (UserJoined) sessionEvent()           {}
func (UserLeft) sessionEvent()             {}
func (MemberCountChanged) sessionEvent()   {}
func (VoiceActivityChanged) sessionEvent() {}
func (ChatReceived) sessionEvent()         {}
func (CustomReceived) sessionEvent()       {}
func (PresentationChanged) sessionEvent()  {}
func (CameraSwitchDone) sessionEvent()     {}
func (CameraSwitchError) sessionEvent()    {}
