// Command meet joins a meeting from the terminal, prints the unified event
// stream and accepts simple line commands:
//
//	mute | unmute       toggle the microphone
//	video on | video off
//	switch              flip the camera
//	chat <text>         send a chat line
//	present on | off    toggle presenter state
//	leave               end the session
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/config"
	"github.com/eyeson-team/gosdk/meeting"
)

func main() {
	var (
		guestToken = flag.String("guest", "", "join as guest with this token instead of an access key")
		guestName  = flag.String("name", "guest", "display name when joining as guest")
		audioOnly  = flag.Bool("audio-only", false, "join without video")
	)
	flag.Parse()

	if flag.NArg() != 1 && *guestToken == "" {
		fmt.Fprintln(os.Stderr, "usage: meet [flags] <access-key>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	m := meeting.New(meeting.Config{
		APIBaseURL:     cfg.APIBaseURL,
		AudioOnly:      *audioOnly,
		RequestTimeout: cfg.RequestTimeout,
		PingPeriod:     cfg.PingPeriod,
		Logger:         &logger,
	})

	if *guestToken != "" {
		m.JoinAsGuest(ctx, *guestToken, meeting.GuestInfo{Name: *guestName})
	} else {
		m.Join(ctx, flag.Arg(0))
	}

	go readCommands(m, cancel)

	for {
		select {
		case <-ctx.Done():
			m.Leave()
			return
		case ev := <-m.Events():
			if done := printEvent(ev); done {
				return
			}
		}
	}
}

func readCommands(m *meeting.Meeting, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "mute":
			m.SetMicrophoneEnabled(false)
		case line == "unmute":
			m.SetMicrophoneEnabled(true)
		case line == "video on":
			m.SetVideoEnabled(true)
		case line == "video off":
			m.SetVideoEnabled(false)
		case line == "switch":
			m.SwitchCamera()
		case line == "present on":
			m.SetPresenter(true)
		case line == "present off":
			m.SetPresenter(false)
		case strings.HasPrefix(line, "chat "):
			m.SendChatMessage(strings.TrimPrefix(line, "chat "))
		case line == "leave":
			cancel()
			return
		}
	}
}

// printEvent renders one event and reports whether it was terminal.
func printEvent(ev meeting.Event) bool {
	switch e := ev.(type) {
	case meeting.PermissionsNeeded:
		fmt.Printf("permissions needed (microphone=%v camera=%v)\n", e.Microphone, e.Camera)
		return true
	case meeting.Joining:
		fmt.Println("joining...")
	case meeting.Joined:
		fmt.Println("joined")
	case meeting.JoinFailed:
		fmt.Printf("join failed: %s\n", e.Reason)
		return true
	case meeting.Terminated:
		fmt.Printf("terminated: %s\n", e.Reason)
		return true
	case meeting.Locked:
		fmt.Printf("room locked: %v\n", e.Locked)
	case meeting.StreamingModeChanged:
		fmt.Printf("p2p mode: %v\n", e.P2P)
	case meeting.UserJoined:
		fmt.Printf("user joined: %s\n", displayName(e.User))
	case meeting.UserLeft:
		fmt.Printf("user left: %s\n", displayName(e.User))
	case meeting.MemberCountChanged:
		fmt.Printf("members: %d\n", e.Count)
	case meeting.ChatReceived:
		fmt.Printf("[%s] %s\n", displayName(e.From), e.Content)
	case meeting.VoiceActivity:
		fmt.Printf("voice activity: %s %v\n", displayName(e.User), e.On)
	case meeting.AudioMutedBy:
		fmt.Printf("muted by %s\n", displayName(e.By))
	case meeting.PresentationChanged:
		fmt.Printf("presentation by %s active=%v\n", displayName(e.Presenter), e.Active)
	case meeting.CameraSwitchDone:
		fmt.Printf("camera switched, front=%v\n", e.Front)
	case meeting.CameraSwitchError:
		fmt.Printf("camera switch failed: %v\n", e.Err)
	case meeting.ConnectionStatsUpdated:
		fmt.Printf("stats: sent=%d recv=%d\n", e.Stats.BytesSent, e.Stats.BytesReceived)
	}
	return false
}

func displayName(u meeting.UserInfo) string {
	if u.Name == "" {
		return u.ID
	}
	return u.Name
}
