package meeting

import "encoding/json"

// Event is one occurrence on the meeting's unified stream. The application
// receives every session and call event through this single ordered channel,
// regardless of which internal transport produced it.
type Event interface{ meetingEvent() }

// UserInfo is a participant as the application sees them. Name may be empty
// when the participant could not be resolved.
type UserInfo struct {
	ID     string
	Name   string
	Avatar string
	Guest  bool
}

// Playback is one running media playback in the room.
type Playback struct {
	URL     string
	Name    string
	Audio   bool
	Playing bool
}

// Recording is the room's recording state.
type Recording struct {
	ID        string
	Active    bool
	CreatedAt int64
}

// Broadcast is one active broadcast target.
type Broadcast struct {
	ID        string
	Platform  string
	PlayerURL string
}

// Snapshot is one snapshot artifact.
type Snapshot struct {
	ID        string
	Name      string
	Links     map[string]string
	CreatedAt int64
}

// ConnectionStats is a periodic transport throughput sample.
type ConnectionStats struct {
	BytesSent     uint64
	BytesReceived uint64
}

// PermissionsNeeded fires when a join was aborted before any network call
// because the host platform lacks device permissions. The application should
// obtain them and call Join again; the SDK does not retry.
type PermissionsNeeded struct {
	Microphone bool
	Camera     bool
}

// Joining fires once when a join starts connecting.
type Joining struct{}

// Joined fires when the media path is established.
type Joined struct{}

// JoinFailed is terminal for the attempt: the REST join or the call offer
// was refused.
type JoinFailed struct{ Reason Reason }

// Terminated is terminal: the session ended, by either side.
type Terminated struct{ Reason Reason }

// Locked reports the room's lock state.
type Locked struct{ Locked bool }

// StreamingModeChanged reports peer-to-peer vs. forwarded routing after
// each negotiation.
type StreamingModeChanged struct{ P2P bool }

// VideoSourcesChanged lists who currently feeds video into the room.
type VideoSourcesChanged struct {
	Sources          []string
	Presenter        string
	DesktopStreaming bool
}

// SourceVideoMuted reports a remote participant muting or unmuting their
// video.
type SourceVideoMuted struct {
	User  UserInfo
	Muted bool
}

// AudioMutedBy reports that another participant muted this client's
// microphone. The local microphone is already off when this fires.
type AudioMutedBy struct{ By UserInfo }

type MediaPlaybackChanged struct{ Playing []Playback }

type BroadcastsChanged struct{ Broadcasts []Broadcast }

type RecordingChanged struct{ Recording Recording }

type SnapshotsChanged struct{ Snapshots []Snapshot }

type ConnectionStatsUpdated struct{ Stats ConnectionStats }

type UserJoined struct{ User UserInfo }

type UserLeft struct{ User UserInfo }

type MemberCountChanged struct{ Count int }

type VoiceActivity struct {
	User UserInfo
	On   bool
}

type ChatReceived struct {
	From      UserInfo
	Content   string
	Timestamp int64
}

// CustomReceived passes an application-defined payload through opaque.
type CustomReceived struct{ Content json.RawMessage }

type PresentationChanged struct {
	Presenter UserInfo
	Active    bool
}

type CameraSwitchDone struct{ Front bool }

type CameraSwitchError struct{ Err error }

func (PermissionsNeeded) meetingEvent()      {}
func (Joining) meetingEvent()                {}
func (Joined) meetingEvent()                 {}
func (JoinFailed) meetingEvent()             {}
func (Terminated) meetingEvent()             {}
func (Locked) meetingEvent()                 {}
func (StreamingModeChanged) meetingEvent()   {}
func (VideoSourcesChanged) meetingEvent()    {}
func (SourceVideoMuted) meetingEvent()       {}
func (AudioMutedBy) meetingEvent()           {}
func (MediaPlaybackChanged) meetingEvent()   {}
func (BroadcastsChanged) meetingEvent()      {}
func (RecordingChanged) meetingEvent()       {}
func (SnapshotsChanged) meetingEvent()       {}
func (ConnectionStatsUpdated) meetingEvent() {}
func (UserJoined) meetingEvent()             {}
func (UserLeft) meetingEvent()               {}
func (MemberCountChanged) meetingEvent()     {}
func (VoiceActivity) meetingEvent()          {}
func (ChatReceived) meetingEvent()           {}
func (CustomReceived) meetingEvent()         {}
func (PresentationChanged) meetingEvent()    {}
func (CameraSwitchDone) meetingEvent()       {}
func (CameraSwitchError) meetingEvent()      {}
