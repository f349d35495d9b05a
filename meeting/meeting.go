// Package meeting is the public SDK surface. A Meeting joins a video room,
// republishes everything that happens in it as one ordered event stream and
// accepts the in-call commands (mute, chat, camera switch, presenter state).
// One Meeting carries at most one active session; after a terminal event the
// same Meeting can join again.
package meeting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/api"
	"github.com/eyeson-team/gosdk/internal/domain"
	"github.com/eyeson-team/gosdk/internal/media"
	"github.com/eyeson-team/gosdk/internal/session"
)

// PermissionChecker is the host platform hook consulted before any network
// activity. A join that lacks a required permission aborts with a
// PermissionsNeeded event instead of touching the network.
type PermissionChecker interface {
	HasMicrophonePermission() bool
	HasCameraPermission() bool
}

// GrantAll is the default PermissionChecker for platforms without a
// permission model.
type GrantAll struct{}

func (GrantAll) HasMicrophonePermission() bool { return true }
func (GrantAll) HasCameraPermission() bool     { return true }

// GuestInfo is the optional identity a guest presents on join.
type GuestInfo struct {
	Name   string
	ID     string
	Avatar string
}

type Config struct {
	// APIBaseURL is the REST endpoint prefix for join and user lookup.
	APIBaseURL string

	// Permissions defaults to GrantAll when nil.
	Permissions PermissionChecker

	// AudioOnly sessions never request the camera permission and never
	// open a capturer.
	AudioOnly bool

	// Initial device state. Zero values mean microphone on, video on
	// (unless AudioOnly), rear camera.
	FrontCamera   bool
	MicrophoneOff bool
	VideoOff      bool

	// Cameras enumerates the host's capture devices.
	Cameras []media.CameraDevice

	RequestTimeout time.Duration
	PingPeriod     time.Duration
	Logger         *zerolog.Logger

	// Test seams. Production leaves both nil.
	engine media.Engine
	dial   session.Dialer
}

// Meeting is the application's handle on the SDK.
type Meeting struct {
	cfg    Config
	perms  PermissionChecker
	logger zerolog.Logger
	api    *api.Client

	joined atomic.Bool
	events chan Event

	mu    sync.Mutex
	coord *session.Coordinator
}

func New(cfg Config) *Meeting {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "meeting").Logger()
	}
	perms := cfg.Permissions
	if perms == nil {
		perms = GrantAll{}
	}
	return &Meeting{
		cfg:    cfg,
		perms:  perms,
		logger: logger,
		api: api.NewClient(api.Config{
			BaseURL: cfg.APIBaseURL,
			Timeout: cfg.RequestTimeout,
			Logger:  &logger,
		}),
		events: make(chan Event, 64),
	}
}

// Events is the unified stream. It stays open for the Meeting's lifetime;
// the application must keep draining it.
func (m *Meeting) Events() <-chan Event {
	return m.events
}

// Join enters the room behind an access key. A second call while a session
// is active is a silent no-op. All outcomes, including failure, arrive on
// Events; a join refused for missing permissions never touches the network.
func (m *Meeting) Join(ctx context.Context, accessKey string) {
	m.join(ctx, func(ctx context.Context) (*domain.MeetingDescriptor, error) {
		return m.api.JoinAsOwner(ctx, accessKey)
	})
}

// JoinAsGuest enters the room behind a guest token, registering the guest
// identity first. Same guarantees as Join.
func (m *Meeting) JoinAsGuest(ctx context.Context, guestToken string, guest GuestInfo) {
	m.join(ctx, func(ctx context.Context) (*domain.MeetingDescriptor, error) {
		return m.api.JoinAsGuest(ctx, guestToken, api.GuestJoin{
			Name:   guest.Name,
			ID:     guest.ID,
			Avatar: guest.Avatar,
		})
	})
}

func (m *Meeting) join(ctx context.Context, fetch func(context.Context) (*domain.MeetingDescriptor, error)) {
	if !m.joined.CompareAndSwap(false, true) {
		m.logger.Debug().Msg("join ignored, session active")
		return
	}

	needMic := !m.perms.HasMicrophonePermission()
	needCam := !m.cfg.AudioOnly && !m.cfg.VideoOff && !m.perms.HasCameraPermission()
	if needMic || needCam {
		m.joined.Store(false)
		m.emit(PermissionsNeeded{Microphone: needMic, Camera: needCam})
		return
	}

	m.emit(Joining{})
	desc, err := fetch(ctx)
	if err != nil {
		m.joined.Store(false)
		m.emit(JoinFailed{Reason: joinFailureReason(err)})
		return
	}

	coord := session.NewCoordinator(session.Config{
		API:    m.api,
		Dial:   m.cfg.dial,
		Engine: m.engine(),
		Options: session.StartOptions{
			FrontCamera: m.cfg.FrontCamera,
			Microphone:  !m.cfg.MicrophoneOff,
			Video:       !m.cfg.AudioOnly && !m.cfg.VideoOff,
		},
		PingPeriod: m.cfg.PingPeriod,
		Logger:     &m.logger,
	})
	m.mu.Lock()
	m.coord = coord
	m.mu.Unlock()

	go m.pump(coord)
	coord.Start(ctx, desc)
}

func (m *Meeting) engine() media.Engine {
	if m.cfg.engine != nil {
		return m.cfg.engine
	}
	return media.NewPionEngine(media.PionConfig{
		Cameras: m.cfg.Cameras,
		Logger:  &m.logger,
	})
}

// joinFailureReason maps a REST join error to a Reason. Typed faulty-info
// errors carry the HTTP status; anything else is ERROR.
func joinFailureReason(err error) Reason {
	var faulty *api.FaultyInfoError
	if errors.As(err, &faulty) {
		return RejectReasonFromCode(faulty.StatusCode)
	}
	return ReasonError
}

// Leave ends the active session cooperatively. A Meeting without an active
// session ignores the call.
func (m *Meeting) Leave() {
	m.mu.Lock()
	coord := m.coord
	m.mu.Unlock()
	if coord != nil {
		coord.Leave()
	}
}

// SetMicrophoneEnabled toggles local audio capture.
func (m *Meeting) SetMicrophoneEnabled(enabled bool) {
	if c := m.coordinator(); c != nil {
		c.SetMicrophoneEnabled(enabled)
	}
}

// SetVideoEnabled toggles local video capture and announces the new state to
// the room.
func (m *Meeting) SetVideoEnabled(enabled bool) {
	if c := m.coordinator(); c != nil {
		c.SetVideoEnabled(enabled)
	}
}

// SwitchCamera flips between the front and rear capture device. Completion
// arrives as CameraSwitchDone or CameraSwitchError.
func (m *Meeting) SwitchCamera() {
	if c := m.coordinator(); c != nil {
		c.SwitchCamera()
	}
}

// SendChatMessage sends a chat line to the room.
func (m *Meeting) SendChatMessage(content string) {
	if c := m.coordinator(); c != nil {
		c.SendChat(content)
	}
}

// MuteAllOthers asks the room to mute every other participant's microphone.
func (m *Meeting) MuteAllOthers() {
	if c := m.coordinator(); c != nil {
		c.MuteAllOthers()
	}
}

// SetPresenter announces this client as (no longer) presenting.
func (m *Meeting) SetPresenter(on bool) {
	if c := m.coordinator(); c != nil {
		c.SetPresenter(on)
	}
}

// SetDesktopStreaming announces this client's desktop streaming state.
func (m *Meeting) SetDesktopStreaming(on bool) {
	if c := m.coordinator(); c != nil {
		c.SetDesktopStreaming(on)
	}
}

func (m *Meeting) IsVideoEnabled() bool {
	c := m.coordinator()
	return c != nil && c.IsVideoEnabled()
}

func (m *Meeting) IsMicrophoneEnabled() bool {
	c := m.coordinator()
	return c != nil && c.IsMicrophoneEnabled()
}

func (m *Meeting) IsFrontCamera() bool {
	c := m.coordinator()
	return c != nil && c.IsFrontCamera()
}

func (m *Meeting) coordinator() *session.Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coord
}

// pump translates the coordinator's stream onto the public one until the
// session dies, then clears the joined flag so the Meeting can join again.
func (m *Meeting) pump(coord *session.Coordinator) {
	for {
		select {
		case ev := <-coord.Events():
			m.forward(ev)
		case <-coord.Done():
			// Drain what the coordinator buffered before it died.
			for {
				select {
				case ev := <-coord.Events():
					m.forward(ev)
				default:
					m.mu.Lock()
					if m.coord == coord {
						m.coord = nil
					}
					m.mu.Unlock()
					m.joined.Store(false)
					return
				}
			}
		}
	}
}

func (m *Meeting) forward(ev session.Event) {
	switch e := ev.(type) {
	case session.Joining:
		// Already announced before the REST call went out.
	case session.Joined:
		m.emit(Joined{})
	case session.Rejected:
		m.emit(JoinFailed{Reason: RejectReasonFromCode(e.Code)})
	case session.Terminated:
		m.emit(Terminated{Reason: TerminationReasonFromCode(e.Code)})
	case session.Locked:
		m.emit(Locked{Locked: e.Locked})
	case session.StreamingModeChanged:
		m.emit(StreamingModeChanged{P2P: e.P2P})
	case session.SourcesChanged:
		sources := make([]string, len(e.Sources))
		for i, id := range e.Sources {
			sources[i] = string(id)
		}
		m.emit(VideoSourcesChanged{
			Sources:          sources,
			Presenter:        string(e.Presenter),
			DesktopStreaming: e.DesktopStreaming,
		})
	case session.SourceVideoMuted:
		m.emit(SourceVideoMuted{User: publicUser(e.User), Muted: e.Muted})
	case session.AudioMutedBy:
		m.emit(AudioMutedBy{By: publicUser(e.By)})
	case session.PlaybackChanged:
		playing := make([]Playback, len(e.Playing))
		for i, p := range e.Playing {
			playing[i] = Playback{URL: p.URL, Name: p.Name, Audio: p.Audio, Playing: p.Playing}
		}
		m.emit(MediaPlaybackChanged{Playing: playing})
	case session.BroadcastsChanged:
		broadcasts := make([]Broadcast, len(e.Broadcasts))
		for i, b := range e.Broadcasts {
			broadcasts[i] = Broadcast{ID: b.ID, Platform: b.Platform, PlayerURL: b.PlayerURL}
		}
		m.emit(BroadcastsChanged{Broadcasts: broadcasts})
	case session.RecordingChanged:
		m.emit(RecordingChanged{Recording: Recording{
			ID:        e.Recording.ID,
			Active:    e.Recording.Active,
			CreatedAt: e.Recording.CreatedAt,
		}})
	case session.SnapshotsChanged:
		snapshots := make([]Snapshot, len(e.Snapshots))
		for i, s := range e.Snapshots {
			snapshots[i] = Snapshot{ID: s.ID, Name: s.Name, Links: s.Links, CreatedAt: s.CreatedAt}
		}
		m.emit(SnapshotsChanged{Snapshots: snapshots})
	case session.ConnectionStats:
		m.emit(ConnectionStatsUpdated{Stats: ConnectionStats{
			BytesSent:     e.Stats.BytesSent,
			BytesReceived: e.Stats.BytesReceived,
		}})
	case session.UserJoined:
		m.emit(UserJoined{User: publicUser(e.User)})
	case session.UserLeft:
		m.emit(UserLeft{User: publicUser(e.User)})
	case session.MemberCountChanged:
		m.emit(MemberCountChanged{Count: e.Count})
	case session.VoiceActivityChanged:
		m.emit(VoiceActivity{User: publicUser(e.User), On: e.On})
	case session.ChatReceived:
		m.emit(ChatReceived{From: publicUser(e.From), Content: e.Content, Timestamp: e.Timestamp})
	case session.CustomReceived:
		m.emit(CustomReceived{Content: e.Content})
	case session.PresentationChanged:
		m.emit(PresentationChanged{Presenter: publicUser(e.Presenter), Active: e.Active})
	case session.CameraSwitchDone:
		m.emit(CameraSwitchDone{Front: e.Front})
	case session.CameraSwitchError:
		m.emit(CameraSwitchError{Err: e.Err})
	}
}

func publicUser(u domain.UserInfo) UserInfo {
	return UserInfo{
		ID:     string(u.ID),
		Name:   u.Name,
		Avatar: u.Avatar,
		Guest:  u.Guest,
	}
}

func (m *Meeting) emit(ev Event) {
	m.events <- ev
}
