// Package api implements the one-shot REST calls used to enter a meeting:
// join as room owner, join as guest, and participant info lookup. Calls are
// single-shot with no retry; the caller decides how to react to failures.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// FaultyInfoError carries the HTTP status of a non-2xx or empty join
// response so the caller can map it to a rejection reason.
type FaultyInfoError struct {
	StatusCode int
}

func (e *FaultyInfoError) Error() string {
	return fmt.Sprintf("faulty meeting info, status %d", e.StatusCode)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zerolog.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger.With().Str("component", "api").Logger(),
	}
}

// JoinAsOwner fetches the meeting descriptor for an access key.
func (c *Client) JoinAsOwner(ctx context.Context, accessKey string) (*domain.MeetingDescriptor, error) {
	endpoint := fmt.Sprintf("%s/rooms/%s", c.baseURL, url.PathEscape(accessKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build join request: %w", err)
	}
	return c.fetchDescriptor(req)
}

// GuestJoin carries the optional identity a guest can present.
type GuestJoin struct {
	Name   string
	ID     string
	Avatar string
}

// JoinAsGuest registers a guest against a guest token and fetches the
// resulting meeting descriptor.
func (c *Client) JoinAsGuest(ctx context.Context, guestToken string, guest GuestJoin) (*domain.MeetingDescriptor, error) {
	form := url.Values{}
	form.Set("name", guest.Name)
	if guest.ID != "" {
		form.Set("id", guest.ID)
	}
	if guest.Avatar != "" {
		form.Set("avatar", guest.Avatar)
	}

	endpoint := fmt.Sprintf("%s/guests/%s", c.baseURL, url.PathEscape(guestToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build guest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.fetchDescriptor(req)
}

// FetchUser resolves a participant's display info. A missing user is not an
// error; the caller gets nil and decides what to show.
func (c *Client) FetchUser(ctx context.Context, accessKey string, userID domain.UserID) (*domain.UserInfo, error) {
	endpoint := fmt.Sprintf("%s/rooms/%s/users/%s",
		c.baseURL, url.PathEscape(accessKey), url.PathEscape(string(userID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FaultyInfoError{StatusCode: resp.StatusCode}
	}

	var user domain.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (c *Client) fetchDescriptor(req *http.Request) (*domain.MeetingDescriptor, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("join request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", req.URL.Path).Msg("join rejected")
		return nil, &FaultyInfoError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read join response: %w", err)
	}
	if len(body) == 0 {
		return nil, &FaultyInfoError{StatusCode: resp.StatusCode}
	}

	var desc domain.MeetingDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decode meeting descriptor: %w", err)
	}
	c.logger.Debug().Str("room", string(desc.Room.ID)).Msg("meeting descriptor fetched")
	return &desc, nil
}
