package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/domain"
)

// UserFetcher resolves display info for a signaling id.
type UserFetcher interface {
	FetchUser(ctx context.Context, accessKey string, userID domain.UserID) (*domain.UserInfo, error)
}

// Directory maps signaling ids to participant info, populated lazily on
// first reference. Lookups and mutations are serialized on one executor
// goroutine so concurrent member-list, source-update and chat-triggered
// lookups never race. Entries only leave on explicit delete or Clear.
type Directory struct {
	api       UserFetcher
	accessKey string
	logger    zerolog.Logger

	mu    sync.Mutex
	users map[domain.UserID]domain.UserInfo

	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewDirectory(api UserFetcher, accessKey string, logger *zerolog.Logger) *Directory {
	d := &Directory{
		api:       api,
		accessKey: accessKey,
		logger:    logger.With().Str("component", "directory").Logger(),
		users:     make(map[domain.UserID]domain.UserInfo),
		queue:     make(chan func(), 64),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Directory) loop() {
	for {
		select {
		case f := <-d.queue:
			f()
		case <-d.done:
			return
		}
	}
}

// Resolve invokes cb with the participant's info, fetching it over REST on
// first reference. cb runs on the directory executor. An unresolvable user
// yields an entry with an empty display name; that fallback is deliberate
// and cached so the lookup is not retried per message.
func (d *Directory) Resolve(ctx context.Context, id domain.UserID, cb func(domain.UserInfo)) {
	select {
	case d.queue <- func() {
		d.mu.Lock()
		info, ok := d.users[id]
		d.mu.Unlock()
		if ok {
			cb(info)
			return
		}

		fetched, err := d.api.FetchUser(ctx, d.accessKey, id)
		if err != nil {
			d.logger.Warn().Err(err).Str("user", string(id)).Msg("user lookup failed")
		}
		if fetched != nil {
			info = *fetched
			info.ID = id
		} else {
			info = domain.UserInfo{ID: id}
		}
		d.mu.Lock()
		d.users[id] = info
		d.mu.Unlock()
		cb(info)
	}:
	case <-d.done:
	}
}

// Delete drops an entry after an explicit deleted event.
func (d *Directory) Delete(id domain.UserID) {
	d.mu.Lock()
	delete(d.users, id)
	d.mu.Unlock()
}

// Lookup returns a cached entry without triggering a fetch.
func (d *Directory) Lookup(id domain.UserID) (domain.UserInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.users[id]
	return info, ok
}

// Clear wipes all entries; called at leave.
func (d *Directory) Clear() {
	d.mu.Lock()
	d.users = make(map[domain.UserID]domain.UserInfo)
	d.mu.Unlock()
}

// Close stops the executor.
func (d *Directory) Close() {
	d.once.Do(func() { close(d.done) })
}
