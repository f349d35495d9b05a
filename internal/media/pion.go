package media

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const defaultStatsInterval = 5 * time.Second

// PionEngine implements Engine on top of pion/webrtc. Camera devices are
// injected by the embedding application; without any, sessions run
// audio-only.
type PionEngine struct {
	cameras []CameraDevice
	logger  zerolog.Logger

	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	handler Handler
	cancel  context.CancelFunc

	front        bool
	audioEnabled bool
	videoEnabled bool
}

type PionConfig struct {
	Cameras []CameraDevice
	Logger  *zerolog.Logger
}

func NewPionEngine(cfg PionConfig) *PionEngine {
	return &PionEngine{
		cameras: cfg.Cameras,
		logger:  cfg.Logger.With().Str("component", "media").Logger(),
		front:   true,
	}
}

func (e *PionEngine) Cameras() []CameraDevice {
	return e.cameras
}

func (e *PionEngine) Start(ctx context.Context, opts StartOptions) error {
	iceServers := make([]webrtc.ICEServer, 0, len(opts.ICEServers))
	for _, s := range opts.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Password,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return fmt.Errorf("new peer connection: %w", err)
	}
	e.pc = pc
	e.handler = opts.Handler
	e.audioEnabled = opts.Microphone
	e.videoEnabled = opts.Video && opts.Camera != nil

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendrecv}); err != nil {
		pc.Close()
		return fmt.Errorf("add audio transceiver: %w", err)
	}
	if opts.Camera != nil {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo,
			webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendrecv}); err != nil {
			pc.Close()
			return fmt.Errorf("add video transceiver: %w", err)
		}
	}

	dc, err := pc.CreateDataChannel("control", nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create data channel: %w", err)
	}
	e.dc = dc
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if e.handler.OnData != nil {
			e.handler.OnData(msg.Data)
		}
	})

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		e.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateConnected && e.handler.OnConnected != nil {
			e.handler.OnConnected()
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		e.logger.Debug().Str("peer_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed && e.handler.OnError != nil {
			e.handler.OnError(fmt.Errorf("peer connection failed"))
		}
	})

	statsInterval := opts.StatsInterval
	if statsInterval == 0 {
		statsInterval = defaultStatsInterval
	}
	statsCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	if e.handler.OnStats != nil {
		go e.pollStats(statsCtx, statsInterval)
	}
	return nil
}

func (e *PionEngine) CreateOffer() (string, error) {
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(e.pc)
	if err := e.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	<-gathered
	return e.pc.LocalDescription().SDP, nil
}

func (e *PionEngine) SetRemoteDescription(kind, sdp string) error {
	sdpType := webrtc.SDPTypeAnswer
	if kind == "offer" {
		sdpType = webrtc.SDPTypeOffer
	}
	return e.pc.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: sdp})
}

func (e *PionEngine) AddICECandidate(candidate, sdpMid string, sdpMLineIndex uint16) error {
	init := webrtc.ICECandidateInit{Candidate: candidate}
	if sdpMid != "" {
		init.SDPMid = &sdpMid
	}
	init.SDPMLineIndex = &sdpMLineIndex
	return e.pc.AddICECandidate(init)
}

func (e *PionEngine) SetAudioEnabled(enabled bool) {
	e.audioEnabled = enabled
	e.setSendersEnabled(webrtc.RTPCodecTypeAudio, enabled)
}

func (e *PionEngine) SetVideoEnabled(enabled bool) {
	e.videoEnabled = enabled
	e.setSendersEnabled(webrtc.RTPCodecTypeVideo, enabled)
}

// setSendersEnabled pauses or resumes outbound media by flipping the
// transceiver direction. Capture itself is owned by the embedding app.
func (e *PionEngine) setSendersEnabled(kind webrtc.RTPCodecType, enabled bool) {
	if e.pc == nil {
		return
	}
	dir := webrtc.RTPTransceiverDirectionRecvonly
	if enabled {
		dir = webrtc.RTPTransceiverDirectionSendrecv
	}
	for _, tr := range e.pc.GetTransceivers() {
		if tr.Kind() != kind {
			continue
		}
		if err := tr.SetDirection(dir); err != nil {
			e.logger.Warn().Err(err).Str("kind", kind.String()).Msg("set direction")
		}
	}
}

func (e *PionEngine) SwitchCamera() {
	e.front = !e.front
	if e.handler.OnCameraSwitch != nil {
		e.handler.OnCameraSwitch(e.front, nil)
	}
}

func (e *PionEngine) SendData(data []byte) bool {
	if e.dc == nil {
		return false
	}
	if err := e.dc.Send(data); err != nil {
		e.logger.Warn().Err(err).Msg("data channel send")
		return false
	}
	return true
}

func (e *PionEngine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.pc != nil {
		if err := e.pc.Close(); err != nil {
			e.logger.Error().Err(err).Msg("close peer connection")
		}
	}
}

func (e *PionEngine) pollStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := e.pc.GetStats()
			var sample ConnectionStats
			sample.Timestamp = time.Now()
			for _, s := range report {
				if t, ok := s.(webrtc.TransportStats); ok {
					sample.BytesSent += t.BytesSent
					sample.BytesReceived += t.BytesReceived
				}
			}
			e.handler.OnStats(sample)
		}
	}
}
