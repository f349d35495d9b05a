// Package sim is a loopback meeting backend: it serves the REST join
// endpoints and both websocket channels with canned protocol behavior so the
// SDK can be exercised end to end without a production server.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// Room is one simulated meeting room, provisioned lazily on first join.
type Room struct {
	AccessKey    string
	ConferenceID string

	mu     sync.Mutex
	room   domain.Room
	users  map[domain.UserID]domain.UserInfo
	locked bool
}

// Registry tracks provisioned rooms. Guest tokens are of the form
// "guest-<accessKey>" so a guest lands in the owner's room.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	logger zerolog.Logger
}

func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger.With().Str("component", "sim").Logger(),
	}
}

// RoomForAccessKey returns the room behind an access key, provisioning it on
// first use.
func (r *Registry) RoomForAccessKey(key string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[key]
	if !ok {
		room = &Room{
			AccessKey:    key,
			ConferenceID: uuid.NewString(),
			room: domain.Room{
				ID:   domain.RoomID(uuid.NewString()),
				Name: domain.RoomName("sim-" + key),
				GUID: uuid.NewString(),
			},
			users: make(map[domain.UserID]domain.UserInfo),
		}
		r.rooms[key] = room
		r.logger.Info().Str("key", key).Msg("room provisioned")
	}
	return room
}

// AddUser registers a participant and returns the stored info.
func (room *Room) AddUser(name, id, avatar string, guest bool) domain.UserInfo {
	if id == "" {
		id = uuid.NewString()
	}
	info := domain.UserInfo{
		ID:       domain.UserID(id),
		Name:     name,
		Avatar:   avatar,
		Guest:    guest,
		JoinedAt: time.Now().UTC(),
	}
	room.mu.Lock()
	room.users[info.ID] = info
	room.mu.Unlock()
	return info
}

// User returns a registered participant.
func (room *Room) User(id domain.UserID) (domain.UserInfo, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()
	info, ok := room.users[id]
	return info, ok
}

// Descriptor builds the join response for one participant, pointing both
// socket URLs back at this simulator.
func (room *Room) Descriptor(host string, user domain.UserInfo, ready bool) domain.MeetingDescriptor {
	room.mu.Lock()
	locked := room.locked
	roomMeta := room.room
	room.mu.Unlock()
	return domain.MeetingDescriptor{
		AccessKey:    room.AccessKey,
		Ready:        ready,
		Locked:       locked,
		Room:         roomMeta,
		User:         user,
		ClientID:     string(user.ID),
		ConferenceID: room.ConferenceID,
		MeetingWS: fmt.Sprintf("ws://%s/ws/meeting?key=%s&client=%s",
			host, room.AccessKey, user.ID),
		Signaling: domain.SignalingInfo{
			Endpoint:  fmt.Sprintf("ws://%s/ws/signal?key=%s&client=%s", host, room.AccessKey, user.ID),
			AuthToken: room.AccessKey,
		},
		ICEServers: []domain.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}
