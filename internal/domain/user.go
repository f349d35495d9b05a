// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxDisplayNameLen = 64

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

// UserID is the opaque signaling identity of a participant.
type UserID string

// UserInfo is a participant's display info as resolved via the REST API.
type UserInfo struct {
	ID       UserID    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	Guest    bool      `json:"guest"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// NewUserInfo is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUserInfo(id UserID, name string) (*UserInfo, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &UserInfo{ID: id, Name: name}, nil
}
