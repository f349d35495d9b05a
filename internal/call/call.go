// Package call owns the local side of the media negotiation: offer
// construction and augmentation, remote SDP application, SFU mode tracking
// and the in-call data channel control traffic. All engine access is
// serialized on a single executor goroutine; the engine itself is not
// thread-safe and its native callbacks arrive on foreign threads.
package call

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
	"github.com/eyeson-team/gosdk/internal/media"
	"github.com/eyeson-team/gosdk/internal/wire"
)

// termCodeError is reported when the media engine fails mid-call.
const termCodeError = 500

// Event is an occurrence the session coordinator reacts to.
type Event interface{ callEvent() }

// OfferReady carries the augmented local SDP, ready to send as call_start.
type OfferReady struct{ SDP string }

// Connected fires when the media path is established (meeting joined).
type Connected struct{}

// Terminated fires on a fatal engine error.
type Terminated struct{ Code int }

// ModeChanged reports the negotiated routing mode after a remote SDP.
type ModeChanged struct{ SFU bool }

type CameraSwitched struct{ Front bool }
type CameraSwitchFailed struct{ Err error }
type StatsUpdate struct{ Stats media.ConnectionStats }
type VoiceActivity struct {
	User domain.UserID
	On   bool
}
type ChatReceived struct {
	From    domain.UserID
	Content string
}
type RemoteVideoMuted struct {
	From  domain.UserID
	Muted bool
}
type PresenterChanged struct{ On bool }

func (OfferReady) callEvent()         {}
func (Connected) callEvent()          {}
func (Terminated) callEvent()         {}
func (ModeChanged) callEvent()        {}
func (CameraSwitched) callEvent()     {}
func (CameraSwitchFailed) callEvent() {}
func (StatsUpdate) callEvent()        {}
func (VoiceActivity) callEvent()      {}
func (ChatReceived) callEvent()       {}
func (RemoteVideoMuted) callEvent()   {}
func (PresenterChanged) callEvent()   {}

// Session drives one call negotiation against the media engine.
type Session struct {
	engine media.Engine
	events chan Event
	run    chan func()
	quit   chan struct{}
	done   chan struct{}
	logger zerolog.Logger
	self   domain.UserID

	// Flags readable from any goroutine; written only on the executor.
	front        atomic.Bool
	audioEnabled atomic.Bool
	videoEnabled atomic.Bool
	sfuMode      atomic.Bool

	localSDP  string
	remoteSDP string

	closeOnce sync.Once
}

type Config struct {
	Engine media.Engine
	Self   domain.UserID
	Logger *zerolog.Logger
}

func NewSession(cfg Config) *Session {
	s := &Session{
		engine: cfg.Engine,
		events: make(chan Event, 32),
		run:    make(chan func(), 32),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: cfg.Logger.With().Str("component", "call").Logger(),
		self:   cfg.Self,
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case f := <-s.run:
			f()
		case <-s.done:
			return
		}
	}
}

// do hands work to the executor; after Close it becomes a no-op so late
// engine callbacks never touch torn-down resources.
func (s *Session) do(f func()) {
	select {
	case s.run <- f:
	case <-s.done:
	}
}

// Events is the session's outbound event stream.
func (s *Session) Events() <-chan Event {
	return s.events
}

// StartCall selects a camera, starts the engine and produces the augmented
// local offer. A missing capturer degrades to audio-only, never fails.
func (s *Session) StartCall(ctx context.Context, iceServers []domain.ICEServer, frontCamera, micOnStart, videoOnStart bool) {
	s.do(func() {
		var cam media.Capturer
		if videoOnStart {
			cam = s.selectCamera(frontCamera)
			if cam == nil {
				s.logger.Warn().Msg("no working capturer, continuing audio-only")
			}
		}
		s.front.Store(frontCamera)
		s.audioEnabled.Store(micOnStart)
		s.videoEnabled.Store(videoOnStart && cam != nil)

		err := s.engine.Start(ctx, media.StartOptions{
			ICEServers: iceServers,
			Camera:     cam,
			Microphone: micOnStart,
			Video:      videoOnStart,
			Handler: media.Handler{
				OnConnected: func() { s.do(func() { s.emit(Connected{}) }) },
				OnError: func(err error) {
					s.do(func() {
						s.logger.Error().Err(err).Msg("media engine error")
						s.emit(Terminated{Code: termCodeError})
					})
				},
				OnData: func(data []byte) { s.do(func() { s.handleData(data) }) },
				OnCameraSwitch: func(front bool, err error) {
					s.do(func() {
						if err != nil {
							s.emit(CameraSwitchFailed{Err: err})
							return
						}
						s.front.Store(front)
						s.emit(CameraSwitched{Front: front})
					})
				},
				OnStats: func(stats media.ConnectionStats) {
					s.do(func() { s.emit(StatsUpdate{Stats: stats}) })
				},
			},
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("engine start failed")
			s.emit(Terminated{Code: termCodeError})
			return
		}

		offer, err := s.engine.CreateOffer()
		if err != nil {
			s.logger.Error().Err(err).Msg("create offer failed")
			s.emit(Terminated{Code: termCodeError})
			return
		}
		s.localSDP = AugmentOffer(offer)
		s.emit(OfferReady{SDP: s.localSDP})
	})
}

// selectCamera prefers the requested facing, then falls back to the first
// enumerable device with a working capturer.
func (s *Session) selectCamera(front bool) media.Capturer {
	cams := s.engine.Cameras()
	for _, cam := range cams {
		if cam.Front() != front {
			continue
		}
		capt, err := cam.OpenCapturer()
		if err == nil {
			return capt
		}
		s.logger.Warn().Err(err).Str("camera", cam.Name()).Msg("capturer open failed")
	}
	for _, cam := range cams {
		capt, err := cam.OpenCapturer()
		if err == nil {
			return capt
		}
		s.logger.Warn().Err(err).Str("camera", cam.Name()).Msg("capturer open failed")
	}
	return nil
}

// SetRemoteDescription derives the SFU flag from the remote SDP, then
// applies it to the engine.
func (s *Session) SetRemoteDescription(kind, sdp string) {
	s.do(func() {
		sfu := DetectSFUMode(sdp)
		s.sfuMode.Store(sfu)
		s.remoteSDP = sdp
		if err := s.engine.SetRemoteDescription(kind, sdp); err != nil {
			s.logger.Error().Err(err).Msg("set remote description failed")
			s.emit(Terminated{Code: termCodeError})
			return
		}
		s.emit(ModeChanged{SFU: sfu})
	})
}

// SetMicrophoneEnabled toggles local audio capture.
func (s *Session) SetMicrophoneEnabled(enabled bool) {
	s.do(func() {
		s.audioEnabled.Store(enabled)
		s.engine.SetAudioEnabled(enabled)
	})
}

// SetVideoEnabled toggles local video AND announces the mute state over the
// data channel so the remote UI reflects it. The dual effect is deliberate.
func (s *Session) SetVideoEnabled(enabled bool) {
	s.do(func() {
		s.videoEnabled.Store(enabled)
		s.engine.SetVideoEnabled(enabled)
		s.sendControl(wire.MuteVideo{From: s.self, Muted: !enabled})
	})
}

// SwitchCamera asks the engine to flip capture devices; completion arrives
// as CameraSwitched or CameraSwitchFailed.
func (s *Session) SwitchCamera() {
	s.do(func() { s.engine.SwitchCamera() })
}

// SendChat relays a chat line over the data channel.
func (s *Session) SendChat(content string) {
	s.do(func() {
		s.sendControl(wire.Chat{From: s.self, Content: content})
	})
}

// SetPresenter announces presenter state over the data channel.
func (s *Session) SetPresenter(on bool) {
	s.do(func() { s.sendControl(wire.SetPresenter{On: on}) })
}

// SetDesktopStreaming announces desktop streaming state over the data
// channel.
func (s *Session) SetDesktopStreaming(on bool) {
	s.do(func() { s.sendControl(wire.DesktopStreaming{On: on}) })
}

func (s *Session) IsFrontCamera() bool       { return s.front.Load() }
func (s *Session) IsMicrophoneEnabled() bool { return s.audioEnabled.Load() }
func (s *Session) IsVideoEnabled() bool      { return s.videoEnabled.Load() }
func (s *Session) IsSFUMode() bool           { return s.sfuMode.Load() }

// Close tears the engine down and stops the executor. Safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// quit first: an emit wedged on an undrained event buffer must give
		// up before the executor can reach the shutdown function.
		close(s.quit)
		closed := make(chan struct{})
		s.run <- func() {
			s.engine.Close()
			close(closed)
		}
		<-closed
		close(s.done)
	})
}

func (s *Session) handleData(data []byte) {
	msg, err := wire.DecodeDataChannel(data)
	if err != nil {
		s.logger.Debug().Err(err).Msg("skipping undecodable data frame")
		return
	}
	switch m := msg.(type) {
	case wire.Ping:
		s.sendControl(wire.Pong{})
	case wire.VoiceActivity:
		s.emit(VoiceActivity{User: m.User, On: m.On})
	case wire.Chat:
		s.emit(ChatReceived{From: m.From, Content: m.Content})
	case wire.MuteVideo:
		s.emit(RemoteVideoMuted{From: m.From, Muted: m.Muted})
	case wire.SetPresenter:
		s.emit(PresenterChanged{On: m.On})
	case wire.Unknown:
		s.logger.Debug().Str("type", m.RawType).Msg("dropping unknown data frame")
	}
}

func (s *Session) sendControl(msg wire.Message) {
	frame, err := wire.EncodeFlat(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode data frame")
		return
	}
	if !s.engine.SendData(frame) {
		s.logger.Warn().Str("type", string(msg.MessageType())).Msg("data channel send failed")
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	case <-s.done:
	}
}
