package meeting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eyeson-team/gosdk/internal/config"
	"github.com/eyeson-team/gosdk/internal/media"
	"github.com/eyeson-team/gosdk/internal/sim"
)

func TestRejectReasonFromCode(t *testing.T) {
	require.Equal(t, ReasonBadRequest, RejectReasonFromCode(400))
	require.Equal(t, ReasonForbidden, RejectReasonFromCode(403))
	require.Equal(t, ReasonNotFound, RejectReasonFromCode(404))
	require.Equal(t, ReasonGone, RejectReasonFromCode(410))
	require.Equal(t, ReasonUnwanted, RejectReasonFromCode(607))

	// Anything outside the known set falls back to ERROR.
	require.Equal(t, ReasonError, RejectReasonFromCode(500))
	require.Equal(t, ReasonError, RejectReasonFromCode(0))
	require.Equal(t, ReasonError, RejectReasonFromCode(418))
	require.Equal(t, ReasonError, RejectReasonFromCode(-1))
	require.Equal(t, ReasonError, RejectReasonFromCode(200))
}

func TestTerminationReasonFromCode(t *testing.T) {
	require.Equal(t, ReasonOK, TerminationReasonFromCode(200))
	require.Equal(t, ReasonForbidden, TerminationReasonFromCode(403))
	require.Equal(t, ReasonUnwanted, TerminationReasonFromCode(607))

	require.Equal(t, ReasonError, TerminationReasonFromCode(500))
	require.Equal(t, ReasonError, TerminationReasonFromCode(404))
	require.Equal(t, ReasonError, TerminationReasonFromCode(0))
}

type fakePerms struct {
	mu  sync.Mutex
	mic bool
	cam bool
}

func (p *fakePerms) HasMicrophonePermission() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mic
}

func (p *fakePerms) HasCameraPermission() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cam
}

func (p *fakePerms) grant() {
	p.mu.Lock()
	p.mic, p.cam = true, true
	p.mu.Unlock()
}

func nextEvent(t *testing.T, m *Meeting) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return nil
	}
}

// waitEvent drains the stream until match succeeds.
func waitEvent(t *testing.T, m *Meeting, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("expected event never arrived")
			return nil
		}
	}
}

func is[T Event](ev Event) bool { _, ok := ev.(T); return ok }

func TestJoinAbortsWithoutNetworkWhenPermissionsMissing(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	perms := &fakePerms{mic: false, cam: false}
	m := New(Config{APIBaseURL: srv.URL, Permissions: perms})

	m.Join(context.Background(), "ak")

	ev := nextEvent(t, m)
	needed, ok := ev.(PermissionsNeeded)
	require.True(t, ok)
	require.True(t, needed.Microphone)
	require.True(t, needed.Camera)
	require.Equal(t, int64(0), requests.Load())

	// Audio-only joins only need the microphone.
	m2 := New(Config{APIBaseURL: srv.URL, Permissions: perms, AudioOnly: true})
	m2.Join(context.Background(), "ak")
	needed = nextEvent(t, m2).(PermissionsNeeded)
	require.True(t, needed.Microphone)
	require.False(t, needed.Camera)
	require.Equal(t, int64(0), requests.Load())
}

func TestJoinFailureMapsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := New(Config{APIBaseURL: srv.URL})
	m.Join(context.Background(), "missing-room")

	require.IsType(t, Joining{}, nextEvent(t, m))
	failed := nextEvent(t, m)
	require.Equal(t, JoinFailed{Reason: ReasonNotFound}, failed)

	// The joined guard is released; a later join goes out again.
	m.Join(context.Background(), "missing-room")
	require.IsType(t, Joining{}, nextEvent(t, m))
	require.Equal(t, JoinFailed{Reason: ReasonNotFound}, nextEvent(t, m))
}

func TestJoinRetriesAfterPermissionGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	perms := &fakePerms{}
	m := New(Config{APIBaseURL: srv.URL, Permissions: perms})

	m.Join(context.Background(), "ak")
	require.IsType(t, PermissionsNeeded{}, nextEvent(t, m))

	perms.grant()
	m.Join(context.Background(), "ak")
	require.IsType(t, Joining{}, nextEvent(t, m))
	require.Equal(t, JoinFailed{Reason: ReasonForbidden}, nextEvent(t, m))
}

// stubEngine satisfies media.Engine for end-to-end runs without real webrtc.
type stubEngine struct {
	mu      sync.Mutex
	handler media.Handler
}

const stubOffer = "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\nm=audio 9 UDP/TLS/RTP/SAVPF 111\r\n"

func (e *stubEngine) Cameras() []media.CameraDevice { return nil }

func (e *stubEngine) Start(_ context.Context, opts media.StartOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = opts.Handler
	return nil
}

func (e *stubEngine) CreateOffer() (string, error) { return stubOffer, nil }

func (e *stubEngine) SetRemoteDescription(_, _ string) error {
	// The answer is in; report the media path as up the way the real engine
	// does once ICE connects.
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	go h.OnConnected()
	return nil
}

func (e *stubEngine) AddICECandidate(string, string, uint16) error { return nil }
func (e *stubEngine) SetAudioEnabled(bool)                         {}
func (e *stubEngine) SetVideoEnabled(bool)                         {}
func (e *stubEngine) SwitchCamera()                                {}
func (e *stubEngine) SendData([]byte) bool                         { return true }
func (e *stubEngine) Close()                                       {}

func TestJoinEndToEndAgainstSimulator(t *testing.T) {
	logger := zerolog.Nop()
	reg := sim.NewRegistry(&logger)
	router := sim.SetupRouter(&config.Config{SimMode: "release"}, reg, &logger)

	var restJoins atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/rooms/room-1" {
			restJoins.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	defer srv.Close()

	m := New(Config{
		APIBaseURL: srv.URL + "/api",
		VideoOff:   true,
		Logger:     &logger,
		engine:     &stubEngine{},
	})

	ctx := context.Background()
	m.Join(ctx, "room-1")

	waitEvent(t, m, is[Joining])

	// A join while the session is active is a silent no-op: no second REST
	// call, no second Joining event.
	m.Join(ctx, "room-1")

	mode := waitEvent(t, m, is[StreamingModeChanged])
	require.False(t, mode.(StreamingModeChanged).P2P)

	waitEvent(t, m, is[Joined])
	require.Equal(t, int64(1), restJoins.Load())
	require.True(t, m.IsMicrophoneEnabled())
	require.False(t, m.IsVideoEnabled())

	waitEvent(t, m, func(ev Event) bool {
		count, ok := ev.(MemberCountChanged)
		return ok && count.Count == 1
	})

	m.Leave()
	terminal := waitEvent(t, m, is[Terminated])
	require.Equal(t, Terminated{Reason: ReasonOK}, terminal)
	require.Equal(t, int64(1), restJoins.Load())

	// After the terminal event the Meeting can join again. The joined guard
	// is released asynchronously, so poke until the join goes out.
	require.Eventually(t, func() bool {
		m.Join(ctx, "room-1")
		return restJoins.Load() == 2
	}, 5*time.Second, 20*time.Millisecond)
	waitEvent(t, m, is[Joined])
	require.Equal(t, int64(2), restJoins.Load())
	m.Leave()
	waitEvent(t, m, is[Terminated])
}
