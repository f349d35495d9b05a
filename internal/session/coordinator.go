// Package session implements the meeting session state machine: it owns the
// meeting and signaling channels, sequences their lifecycles (the meeting
// channel must report room ready before the signaling channel connects),
// drives the call session, and recovers from signaling channel loss without
// dropping an active call.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/call"
	"github.com/eyeson-team/gosdk/internal/channel"
	"github.com/eyeson-team/gosdk/internal/domain"
	"github.com/eyeson-team/gosdk/internal/media"
	"github.com/eyeson-team/gosdk/internal/wire"
)

// State is the coordinator's lifecycle position. Transitions are driven by
// inbound channel events or an explicit Leave.
type State int32

const (
	StateIdle State = iota
	StateJoining
	StateAwaitingRoomReady
	StateAwaitingCallAccept
	StateInCall
	StateTerminated
)

const (
	termCodeOK    = 200
	termCodeError = 500

	roomChannelName = "RoomChannel"
	userChannelName = "UserChannel"
)

// Transport is the coordinator-facing surface of one websocket channel.
type Transport interface {
	Events() <-chan channel.Event
	Send(data []byte) bool
	Disconnect()
}

// Dialer constructs a connected Transport; reconnects always dial a fresh
// instance.
type Dialer func(ctx context.Context, cfg channel.Config) (Transport, error)

// DialChannel is the production Dialer.
func DialChannel(ctx context.Context, cfg channel.Config) (Transport, error) {
	return channel.Dial(ctx, cfg)
}

// RestAPI is the slice of the REST client the coordinator needs.
type RestAPI interface {
	UserFetcher
	JoinAsOwner(ctx context.Context, accessKey string) (*domain.MeetingDescriptor, error)
}

// StartOptions describe the initial device state for the call.
type StartOptions struct {
	FrontCamera bool
	Microphone  bool
	Video       bool
}

type Config struct {
	API        RestAPI
	Dial       Dialer
	Engine     media.Engine
	Options    StartOptions
	PingPeriod time.Duration
	Logger     *zerolog.Logger
}

// Coordinator runs one meeting session from descriptor to termination.
type Coordinator struct {
	cfg    Config
	logger zerolog.Logger

	directory *Directory
	callSess  *call.Session

	// mu guards the descriptor and channel handles, which outside callers
	// (MuteAllOthers) read while the supervisor replaces them.
	mu          sync.Mutex
	desc        *domain.MeetingDescriptor
	meetingCh   Transport
	signalingCh Transport

	state   atomic.Int32
	leaving atomic.Bool
	events  chan Event
	dead    chan struct{}
	cancel  context.CancelFunc

	// Supervisor-goroutine state, never touched elsewhere.
	meetingEvents <-chan channel.Event
	sigEvents     <-chan channel.Event
	callID        string
	callStarted   bool
	offerSDP      string
	terminalSent  bool

	wg sync.WaitGroup
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Dial == nil {
		cfg.Dial = DialChannel
	}
	return &Coordinator{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "session").Logger(),
		events: make(chan Event, 64),
		dead:   make(chan struct{}),
	}
}

// Events is the unified stream the facade republishes. Closed once the
// session reaches its terminal state.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle position.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done is closed once teardown has completed; remaining buffered events
// should still be drained.
func (c *Coordinator) Done() <-chan struct{} {
	return c.dead
}

// Start begins the session with a freshly fetched descriptor. It returns
// immediately; progress and failure arrive on Events.
func (c *Coordinator) Start(ctx context.Context, desc *domain.MeetingDescriptor) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setDesc(desc)
	c.directory = NewDirectory(c.cfg.API, desc.AccessKey, &c.logger)
	c.callSess = call.NewSession(call.Config{
		Engine: c.cfg.Engine,
		Self:   desc.User.ID,
		Logger: &c.logger,
	})
	c.state.Store(int32(StateJoining))
	c.emit(Joining{})

	c.wg.Add(1)
	go c.supervise(ctx)
}

// Leave terminates the session cooperatively: the call is told to end, both
// channels get an explicit graceful disconnect, and the scope is cancelled.
func (c *Coordinator) Leave() {
	if c.cancel == nil {
		return
	}
	// Flag consumed by the supervisor during teardown.
	c.leaving.Store(true)
	c.cancel()
	c.wg.Wait()
}

// SetMicrophoneEnabled forwards to the call session.
func (c *Coordinator) SetMicrophoneEnabled(enabled bool) {
	if s := c.callSess; s != nil {
		s.SetMicrophoneEnabled(enabled)
	}
}

// SetVideoEnabled forwards to the call session (dual effect: local toggle
// plus mute_video on the data channel).
func (c *Coordinator) SetVideoEnabled(enabled bool) {
	if s := c.callSess; s != nil {
		s.SetVideoEnabled(enabled)
	}
}

func (c *Coordinator) SwitchCamera() {
	if s := c.callSess; s != nil {
		s.SwitchCamera()
	}
}

func (c *Coordinator) SendChat(content string) {
	if s := c.callSess; s != nil {
		s.SendChat(content)
	}
}

func (c *Coordinator) SetPresenter(on bool) {
	if s := c.callSess; s != nil {
		s.SetPresenter(on)
	}
}

func (c *Coordinator) SetDesktopStreaming(on bool) {
	if s := c.callSess; s != nil {
		s.SetDesktopStreaming(on)
	}
}

// MuteAllOthers asks the room to mute everyone else's microphone.
func (c *Coordinator) MuteAllOthers() {
	c.mu.Lock()
	ch := c.meetingCh
	self := domain.UserID("")
	if c.desc != nil {
		self = c.desc.User.ID
	}
	c.mu.Unlock()
	if ch == nil {
		return
	}
	frame, err := wire.EncodeMeetingMessage(roomChannelName, wire.MuteLocalAudio{By: self})
	if err != nil {
		c.logger.Error().Err(err).Msg("encode mute-all")
		return
	}
	ch.Send(frame)
}

func (c *Coordinator) IsFrontCamera() bool { return c.callSess != nil && c.callSess.IsFrontCamera() }
func (c *Coordinator) IsMicrophoneEnabled() bool {
	return c.callSess != nil && c.callSess.IsMicrophoneEnabled()
}
func (c *Coordinator) IsVideoEnabled() bool { return c.callSess != nil && c.callSess.IsVideoEnabled() }
func (c *Coordinator) IsSFUMode() bool      { return c.callSess != nil && c.callSess.IsSFUMode() }

// supervise is the single goroutine that owns all coordinator state.
func (c *Coordinator) supervise(ctx context.Context) {
	defer c.wg.Done()
	defer c.teardown()

	meeting, err := c.cfg.Dial(ctx, channel.Config{
		URL:           c.describe().MeetingWS,
		Decode:        wire.DecodeMeeting,
		Subscriptions: []string{roomChannelName, userChannelName},
		PingPeriod:    c.cfg.PingPeriod,
		Logger:        &c.logger,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("meeting channel dial failed")
		c.emitTerminal(Terminated{Code: termCodeError})
		return
	}
	c.setMeetingCh(meeting)
	c.meetingEvents = meeting.Events()
	c.state.Store(int32(StateAwaitingRoomReady))

	callEvents := c.callSess.Events()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-c.meetingEvents:
			if !ok {
				c.meetingEvents = nil
				continue
			}
			if !c.handleMeetingEvent(ctx, ev) {
				return
			}

		case ev, ok := <-c.sigEvents:
			if !ok {
				c.sigEvents = nil
				continue
			}
			if !c.handleSignalingEvent(ctx, ev) {
				return
			}

		case ev, ok := <-callEvents:
			if !ok {
				callEvents = nil
				continue
			}
			if !c.handleCallEvent(ctx, ev) {
				return
			}
		}
	}
}

// handleMeetingEvent reacts to room-level traffic. Returns false when the
// session must end.
func (c *Coordinator) handleMeetingEvent(ctx context.Context, ev channel.Event) bool {
	switch e := ev.(type) {
	case channel.Opened:
		c.logger.Debug().Msg("meeting channel open")

	case channel.Closed:
		// Meeting channel loss is fatal.
		c.logger.Warn().Int("code", e.Code).Msg("meeting channel closed")
		c.emitTerminal(Terminated{Code: termCodeError})
		return false

	case channel.Failed:
		c.logger.Error().Err(e.Err).Msg("meeting channel failed")
		c.emitTerminal(Terminated{Code: termCodeError})
		return false

	case channel.Inbound:
		return c.handleMeetingMessage(ctx, e.Msg)
	}
	return true
}

func (c *Coordinator) handleMeetingMessage(ctx context.Context, msg wire.Message) bool {
	switch m := msg.(type) {
	case wire.RoomSetup:
		c.emit(Locked{Locked: m.Descriptor.Locked})

	case wire.RoomReady:
		// Snapshot the fresh descriptor wholesale, then open signaling.
		desc := m.Descriptor
		prev := c.describe()
		if desc.AccessKey == "" {
			desc.AccessKey = prev.AccessKey
		}
		if desc.Signaling.Endpoint == "" {
			desc.Signaling = prev.Signaling
		}
		c.setDesc(&desc)
		if c.signaling() == nil {
			if !c.connectSignaling(ctx) {
				return false
			}
		}

	case wire.Lock:
		c.emit(Locked{Locked: m.Locked})

	case wire.Chat:
		c.resolveAndEmit(ctx, m.From, func(info domain.UserInfo) Event {
			return ChatReceived{From: info, Content: m.Content, Timestamp: m.Timestamp}
		})

	case wire.MuteLocalAudio:
		if m.By == c.describe().User.ID {
			break
		}
		c.callSess.SetMicrophoneEnabled(false)
		c.resolveAndEmit(ctx, m.By, func(info domain.UserInfo) Event {
			return AudioMutedBy{By: info}
		})

	case wire.RecordingUpdate:
		c.emit(RecordingChanged{Recording: m.Recording})

	case wire.BroadcastsUpdate:
		c.emit(BroadcastsChanged{Broadcasts: m.Broadcasts})

	case wire.SnapshotUpdate:
		c.emit(SnapshotsChanged{Snapshots: m.Snapshots})

	case wire.PlaybackUpdate:
		c.emit(PlaybackChanged{Playing: m.Playing})

	case wire.PresentationUpdate:
		c.resolveAndEmit(ctx, m.Presenter, func(info domain.UserInfo) Event {
			return PresentationChanged{Presenter: info, Active: m.Active}
		})

	case wire.Custom:
		c.emit(CustomReceived{Content: m.Content})
	}
	return true
}

// connectSignaling dials the call socket named by the current descriptor.
// Only reached after room ready, which preserves the ordering invariant.
func (c *Coordinator) connectSignaling(ctx context.Context) bool {
	desc := c.describe()
	signaling, err := c.cfg.Dial(ctx, channel.Config{
		URL:        desc.Signaling.Endpoint,
		AuthToken:  desc.Signaling.AuthToken,
		Decode:     wire.DecodeSignaling,
		PingPeriod: c.cfg.PingPeriod,
		Logger:     &c.logger,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("signaling channel dial failed")
		c.emitTerminal(Terminated{Code: termCodeError})
		return false
	}
	c.setSignalingCh(signaling)
	c.sigEvents = signaling.Events()
	return true
}

// handleSignalingEvent reacts to call-level traffic. Returns false when the
// session must end.
func (c *Coordinator) handleSignalingEvent(ctx context.Context, ev channel.Event) bool {
	switch e := ev.(type) {
	case channel.Opened:
		c.logger.Debug().Msg("signaling channel open")
		if !c.callStarted {
			// Internal start-call trigger: the call session produces
			// the initial offer.
			c.callStarted = true
			c.state.Store(int32(StateAwaitingCallAccept))
			c.callSess.StartCall(ctx, c.desc.ICEServers,
				c.cfg.Options.FrontCamera, c.cfg.Options.Microphone, c.cfg.Options.Video)
		} else if c.callID != "" {
			// Reconnected mid-call: ask the server to resume.
			c.sendSignaling(wire.CallResume{CallID: c.callID})
		} else if c.offerSDP != "" {
			// The old socket died before call_accepted; that offer will
			// never be answered, so start the call again.
			if !c.sendCallStart() {
				c.emitTerminal(Terminated{Code: termCodeError})
				return false
			}
		}

	case channel.Closed:
		c.logger.Warn().Int("code", e.Code).Msg("signaling channel closed, reconnecting")
		return c.reconnectSignaling(ctx)

	case channel.Failed:
		c.logger.Error().Err(e.Err).Msg("signaling channel failed, reconnecting")
		return c.reconnectSignaling(ctx)

	case channel.Inbound:
		return c.handleSignalingMessage(ctx, e.Msg)
	}
	return true
}

func (c *Coordinator) handleSignalingMessage(ctx context.Context, msg wire.Message) bool {
	switch m := msg.(type) {
	case wire.CallAccepted:
		c.callID = m.CallID
		c.state.Store(int32(StateInCall))
		c.callSess.SetRemoteDescription("answer", m.SDP)

	case wire.CallResumed:
		if m.CallID != "" {
			c.callID = m.CallID
		}
		c.callSess.SetRemoteDescription("answer", m.SDP)

	case wire.CallRejected:
		c.logger.Info().Int("code", m.RejectCode).Msg("call rejected")
		c.emitTerminal(Rejected{Code: m.RejectCode})
		return false

	case wire.CallTerminated:
		c.logger.Info().Int("code", m.TermCode).Msg("call terminated by server")
		c.callID = ""
		c.emitTerminal(Terminated{Code: m.TermCode})
		return false

	case wire.Chat:
		c.resolveAndEmit(ctx, m.From, func(info domain.UserInfo) Event {
			return ChatReceived{From: info, Content: m.Content, Timestamp: m.Timestamp}
		})

	case wire.SourceUpdate:
		c.emit(SourcesChanged{
			Sources:          m.Sources,
			Presenter:        m.Presenter,
			DesktopStreaming: m.DesktopStreaming,
		})

	case wire.MemberList:
		c.handleMemberList(ctx, m)

	case wire.Recording:
		c.emit(RecordingChanged{Recording: m.Recording})
	}
	return true
}

func (c *Coordinator) handleMemberList(ctx context.Context, m wire.MemberList) {
	for _, id := range m.Added {
		c.resolveAndEmit(ctx, id, func(info domain.UserInfo) Event {
			return UserJoined{User: info}
		})
	}
	for _, id := range m.Deleted {
		info, ok := c.directory.Lookup(id)
		if !ok {
			info = domain.UserInfo{ID: id}
		}
		c.directory.Delete(id)
		c.emit(UserLeft{User: info})
	}
	c.emit(MemberCountChanged{Count: m.Count})
}

// reconnectSignaling re-requests a fresh descriptor with the cached access
// key and dials a new signaling channel; the meeting channel is left alone.
// A failed refetch ends the whole session with ERROR.
func (c *Coordinator) reconnectSignaling(ctx context.Context) bool {
	if old := c.signaling(); old != nil {
		old.Disconnect()
		c.setSignalingCh(nil)
		c.sigEvents = nil
	}

	desc, err := c.cfg.API.JoinAsOwner(ctx, c.describe().AccessKey)
	if err != nil {
		c.logger.Error().Err(err).Msg("descriptor refetch failed")
		c.emitTerminal(Terminated{Code: termCodeError})
		return false
	}
	c.setDesc(desc)

	return c.connectSignaling(ctx)
}

// handleCallEvent reacts to call session output. Returns false when the
// session must end.
func (c *Coordinator) handleCallEvent(ctx context.Context, ev call.Event) bool {
	switch e := ev.(type) {
	case call.OfferReady:
		c.offerSDP = e.SDP
		if !c.sendCallStart() {
			c.logger.Error().Msg("sending call_start failed")
			c.emitTerminal(Terminated{Code: termCodeError})
			return false
		}

	case call.Connected:
		c.emit(Joined{})

	case call.Terminated:
		c.emitTerminal(Terminated{Code: e.Code})
		return false

	case call.ModeChanged:
		c.emit(StreamingModeChanged{P2P: !e.SFU})

	case call.CameraSwitched:
		c.emit(CameraSwitchDone{Front: e.Front})

	case call.CameraSwitchFailed:
		c.emit(CameraSwitchError{Err: e.Err})

	case call.StatsUpdate:
		c.emit(ConnectionStats{Stats: e.Stats})

	case call.VoiceActivity:
		c.resolveAndEmit(ctx, e.User, func(info domain.UserInfo) Event {
			return VoiceActivityChanged{User: info, On: e.On}
		})

	case call.ChatReceived:
		c.resolveAndEmit(ctx, e.From, func(info domain.UserInfo) Event {
			return ChatReceived{From: info, Content: e.Content}
		})

	case call.RemoteVideoMuted:
		c.resolveAndEmit(ctx, e.From, func(info domain.UserInfo) Event {
			return SourceVideoMuted{User: info, Muted: e.Muted}
		})

	case call.PresenterChanged:
		c.emit(PresentationChanged{Active: e.On})
	}
	return true
}

// sendCallStart frames the cached augmented offer as a call_start request.
func (c *Coordinator) sendCallStart() bool {
	desc := c.describe()
	return c.sendSignaling(wire.CallStart{
		SDP:          c.offerSDP,
		AudioOnly:    !c.cfg.Options.Video,
		DisplayName:  desc.User.Name,
		ConferenceID: desc.ConferenceID,
	})
}

// sendSignaling wraps and queues one outbound signaling message.
func (c *Coordinator) sendSignaling(msg wire.Message) bool {
	ch := c.signaling()
	if ch == nil {
		return false
	}
	frame, err := wire.EncodeSignaling(msg, c.describe().ClientID, "")
	if err != nil {
		c.logger.Error().Err(err).Msg("encode signaling message")
		return false
	}
	return ch.Send(frame)
}

// teardown runs exactly once when the supervisor exits for any reason.
func (c *Coordinator) teardown() {
	// call_terminate is only valid once a call was accepted.
	if c.callID != "" {
		c.sendSignaling(wire.CallTerminate{CallID: c.callID, TermCode: termCodeOK})
		c.callID = ""
	}
	if ch := c.signaling(); ch != nil {
		ch.Disconnect()
		c.setSignalingCh(nil)
	}
	c.mu.Lock()
	meeting := c.meetingCh
	c.meetingCh = nil
	c.mu.Unlock()
	if meeting != nil {
		meeting.Disconnect()
	}
	c.callSess.Close()
	c.directory.Clear()
	c.directory.Close()

	// Cooperative leave (or external cancellation) still resolves to
	// exactly one terminal event.
	c.emitTerminal(Terminated{Code: termCodeOK})
	c.state.Store(int32(StateTerminated))
	close(c.dead)
}

// resolveAndEmit fetches participant info on the directory executor and
// emits the built event from there. Cross-channel ordering is already
// unguaranteed, so the detour does not weaken any invariant.
func (c *Coordinator) resolveAndEmit(ctx context.Context, id domain.UserID, build func(domain.UserInfo) Event) {
	c.directory.Resolve(ctx, id, func(info domain.UserInfo) {
		c.emit(build(info))
	})
}

func (c *Coordinator) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.dead:
		// Session already over; late lookups have nowhere to go.
	}
}

// emitTerminal guarantees exactly one terminal event per session.
func (c *Coordinator) emitTerminal(ev Event) {
	if c.terminalSent {
		return
	}
	c.terminalSent = true
	c.state.Store(int32(StateTerminated))
	c.emit(ev)
}

func (c *Coordinator) describe() *domain.MeetingDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc
}

func (c *Coordinator) setDesc(desc *domain.MeetingDescriptor) {
	c.mu.Lock()
	c.desc = desc
	c.mu.Unlock()
}

func (c *Coordinator) signaling() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signalingCh
}

func (c *Coordinator) setSignalingCh(ch Transport) {
	c.mu.Lock()
	c.signalingCh = ch
	c.mu.Unlock()
}

func (c *Coordinator) setMeetingCh(ch Transport) {
	c.mu.Lock()
	c.meetingCh = ch
	c.mu.Unlock()
}
