package signaling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
)

const (
	DefaultPingInterval  = 30 * time.Second
	DefaultSweepInterval = time.Minute
	DefaultRoomTTL       = 10 * time.Minute
)

// ErrHubStopped is returned by calls made after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// Config tunes the hub's timers and filters.
type Config struct {
	// PingInterval is the liveness probe period. A connection that has not acknowledged
	// the previous probe by the next tick is terminated.
	PingInterval time.Duration

	// SweepInterval is how often hostless rooms and idle rate-limit buckets are reclaimed.
	SweepInterval time.Duration

	// RoomTTL is how long a room may stay without a host before it is deleted.
	RoomTTL time.Duration

	// BlockedTypes lists binary message type ids that are dropped unseen.
	BlockedTypes []byte
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.RoomTTL <= 0 {
		c.RoomTTL = DefaultRoomTTL
	}
	return c
}

type inbound struct {
	client *Client
	kind   FrameKind
	data   []byte
}

// Hub is the single owner of all room and connection state.
//
// Transports hand it connections and messages over channels; Run applies them one at a
// time, so no two room operations ever interleave.
type Hub struct {
	cfg        Config
	dir        *Directory
	dispatcher *Dispatcher
	limiter    ratelimit.Limiter
	logger     *slog.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	queries    chan func()
	done       chan struct{}
}

// NewHub creates a hub. limiter may be nil to disable throttling.
func NewHub(cfg Config, limiter ratelimit.Limiter, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	dir := NewDirectory(limiter, logger)
	return &Hub{
		cfg:        cfg,
		dir:        dir,
		dispatcher: NewDispatcher(dir, cfg.BlockedTypes, logger),
		limiter:    limiter,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		queries:    make(chan func()),
		done:       make(chan struct{}),
	}
}

// Run processes connections, messages and timers until ctx is cancelled. On return every
// remaining connection has been closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	sweep := time.NewTicker(h.cfg.SweepInterval)
	defer sweep.Stop()

	h.logger.Info("hub started",
		"ping_interval", h.cfg.PingInterval,
		"sweep_interval", h.cfg.SweepInterval,
		"room_ttl", h.cfg.RoomTTL,
	)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.dir.Add(c)
			h.logger.Debug("client registered", "conn", c.ID, "addr", c.Addr)

		case c := <-h.unregister:
			h.drop(c, "closed")

		case m := <-h.inbound:
			if !h.dir.Has(m.client) {
				continue
			}
			h.dispatcher.Handle(ctx, m.client, m.kind, m.data)

		case q := <-h.queries:
			q()

		case <-ping.C:
			h.checkLiveness()

		case now := <-sweep.C:
			h.sweep(now)
		}
	}
}

// Register hands a newly accepted connection to the hub. It reports false when the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister reports a closed connection. Calling it more than once is harmless.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver hands one received message to the hub. Messages from one connection are
// processed in the order Deliver is called.
func (h *Hub) Deliver(c *Client, kind FrameKind, data []byte) {
	select {
	case h.inbound <- inbound{client: c, kind: kind, data: data}:
	case <-h.done:
	}
}

// Stats returns a snapshot taken on the hub goroutine.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	query := func() { reply <- h.dir.Stats() }

	select {
	case h.queries <- query:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-h.done:
		return Stats{}, ErrHubStopped
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) drop(c *Client, reason string) {
	if !h.dir.Remove(c) {
		return
	}
	h.logger.Debug("client unregistered", "conn", c.ID, "reason", reason)
}

func (h *Hub) checkLiveness() {
	for _, c := range h.dir.SweepLiveness() {
		h.logger.Info("terminating unresponsive connection", "conn", c.ID, "addr", c.Addr)
		if err := c.Endpoint.Close(); err != nil {
			h.logger.Debug("close failed", "conn", c.ID, "error", err)
		}
		h.drop(c, "unresponsive")
	}
}

func (h *Hub) sweep(now time.Time) {
	if n := h.dir.SweepExpired(now, h.cfg.RoomTTL); n > 0 {
		h.logger.Info("expired rooms swept", "count", n)
	}
	if ev, ok := h.limiter.(ratelimit.Evicter); ok {
		if n := ev.Evict(now); n > 0 {
			h.logger.Debug("rate limit buckets evicted", "count", n)
		}
	}
}

func (h *Hub) shutdown() {
	clients := h.dir.Clients()
	for _, c := range clients {
		_ = c.Endpoint.Close()
		h.dir.Remove(c)
	}
	h.logger.Info("hub stopped", "closed", len(clients))
}
