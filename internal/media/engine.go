// Package media abstracts the real-time media engine. The session core only
// feeds it SDP strings and ICE candidates and receives callbacks; transport,
// codecs and capture live behind this boundary.
package media

import (
	"context"
	"time"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// ConnectionStats is one sample from the engine's statistics poller.
type ConnectionStats struct {
	BytesSent     uint64
	BytesReceived uint64
	Timestamp     time.Time
}

// Capturer is an opened video source owned by the engine once started.
type Capturer interface {
	Close() error
}

// CameraDevice is one enumerable video input. Opening its capturer may fail
// on flaky hardware; callers are expected to fall back.
type CameraDevice interface {
	Name() string
	Front() bool
	OpenCapturer() (Capturer, error)
}

// Handler receives engine callbacks. Callbacks arrive on engine-owned
// goroutines; receivers must hand work off to their own executor.
type Handler struct {
	// OnConnected fires when the media path (ICE) is established.
	OnConnected func()
	// OnError reports a fatal peer-connection error.
	OnError func(error)
	// OnData delivers one raw data channel frame.
	OnData func([]byte)
	// OnCameraSwitch reports completion of a camera switch.
	OnCameraSwitch func(front bool, err error)
	// OnStats delivers periodic connection statistics.
	OnStats func(ConnectionStats)
}

// StartOptions configures one media session.
type StartOptions struct {
	ICEServers    []domain.ICEServer
	Camera        Capturer // nil means audio-only
	Microphone    bool
	Video         bool
	Handler       Handler
	StatsInterval time.Duration
}

// Engine is the narrow surface the call session drives. Implementations are
// not required to be thread-safe; all calls are serialized by the owner.
type Engine interface {
	// Cameras enumerates available video inputs, front-facing first when
	// the platform can tell.
	Cameras() []CameraDevice
	// Start builds the underlying peer connection and data channel.
	Start(ctx context.Context, opts StartOptions) error
	// CreateOffer produces the raw local SDP, candidates gathered.
	CreateOffer() (string, error)
	// SetRemoteDescription applies the remote SDP ("answer" or "offer").
	SetRemoteDescription(kind, sdp string) error
	// AddICECandidate applies a trickled remote candidate.
	AddICECandidate(candidate, sdpMid string, sdpMLineIndex uint16) error
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	// SwitchCamera flips between front and back capture; result arrives
	// via Handler.OnCameraSwitch.
	SwitchCamera()
	// SendData queues one frame on the data channel, best effort.
	SendData(data []byte) bool
	Close()
}
