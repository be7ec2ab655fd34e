// Package registry is the HTTP-facing room table: a host publishes its address and game
// port under a room code, joiners look the code up, and both sides may exchange WebRTC
// signaling through a per-room mailbox.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArnoKim89/arno-game-server/internal/apperr"
	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
)

const (
	DefaultTTL             = 10 * time.Minute
	DefaultMailboxCapacity = 256
)

var (
	ErrInvalidPort     = apperr.New(apperr.KindInvalidInput, "invalid_port")
	ErrInvalidRoomCode = apperr.New(apperr.KindInvalidInput, "invalid_room_code")
	ErrRoomNotFound    = apperr.New(apperr.KindNotFound, "room_not_found")
	ErrRoomCodeTaken   = apperr.New(apperr.KindConflict, "room_code_taken")
	ErrBadSignal       = apperr.New(apperr.KindInvalidInput, "bad_signal")
	ErrBadRequest      = apperr.New(apperr.KindInvalidInput, "bad_request")
	ErrRateLimited     = apperr.New(apperr.KindRateLimited, "rate_limited")
)

// Entry is one published room.
type Entry struct {
	Code      string
	HostIP    string
	Port      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type entry struct {
	Entry
	hostKey string
	mailbox *mailbox
}

// Registry is safe for concurrent use.
type Registry struct {
	ttl        time.Duration
	mailboxCap int
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty registry. Entries expire ttl after their last update.
func New(ttl time.Duration, mailboxCap int, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if mailboxCap <= 0 {
		mailboxCap = DefaultMailboxCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ttl:        ttl,
		mailboxCap: mailboxCap,
		now:        time.Now,
		logger:     logger,
		entries:    make(map[string]*entry),
	}
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

// live returns the entry for code unless it is missing or expired. Callers hold mu.
func (r *Registry) live(code string, now time.Time) (*entry, bool) {
	e, ok := r.entries[code]
	if !ok || now.Sub(e.UpdatedAt) > r.ttl {
		return nil, false
	}
	return e, true
}

func (r *Registry) insert(code, hostIP string, port int, now time.Time) *entry {
	e := &entry{
		Entry: Entry{
			Code:      code,
			HostIP:    hostIP,
			Port:      port,
			CreatedAt: now,
			UpdatedAt: now,
		},
		hostKey: uuid.NewString(),
		mailbox: newMailbox(r.mailboxCap),
	}
	r.entries[code] = e
	return e
}

// Create publishes a new room under a generated code and returns it with the host key
// that later re-registrations must present.
func (r *Registry) Create(hostIP string, port int) (Entry, string, error) {
	if !validPort(port) {
		return Entry{}, "", ErrInvalidPort
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	code := roomcode.CreateUnique(func(code string) bool {
		_, taken := r.live(code, now)
		return taken
	})
	e := r.insert(code, hostIP, port, now)

	r.logger.Info("registry room created", "code", code, "host", hostIP, "port", port)
	return e.Entry, e.hostKey, nil
}

// Claim publishes a room under a caller-chosen code. Re-registering a live code updates it
// only when hostKey matches the key issued at first creation.
func (r *Registry) Claim(code, hostIP string, port int, hostKey string) (Entry, string, error) {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return Entry{}, "", ErrInvalidRoomCode
	}
	if !validPort(port) {
		return Entry{}, "", ErrInvalidPort
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.live(code, now); ok {
		if hostKey == "" || hostKey != e.hostKey {
			return Entry{}, "", ErrRoomCodeTaken
		}
		e.HostIP = hostIP
		e.Port = port
		e.UpdatedAt = now
		r.logger.Info("registry room updated", "code", code, "host", hostIP, "port", port)
		return e.Entry, e.hostKey, nil
	}

	e := r.insert(code, hostIP, port, now)
	r.logger.Info("registry room claimed", "code", code, "host", hostIP, "port", port)
	return e.Entry, e.hostKey, nil
}

// Lookup returns the live entry for code.
func (r *Registry) Lookup(code string) (Entry, error) {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return Entry{}, ErrInvalidRoomCode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(code, r.now())
	if !ok {
		return Entry{}, ErrRoomNotFound
	}
	return e.Entry, nil
}

// Sweep deletes expired entries along with their mailboxes.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, e := range r.entries {
		if now.Sub(e.UpdatedAt) > r.ttl {
			delete(r.entries, code)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("registry rooms expired", "count", removed)
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until the next sweep.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
