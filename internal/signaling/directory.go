package signaling

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
)

const (
	peerIDAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"
	peerIDLength   = 8
	peerIDAttempts = 10
)

// Stats is a point-in-time summary of the directory.
type Stats struct {
	Rooms         int `json:"rooms"`
	Clients       int `json:"clients"`
	HostlessRooms int `json:"hostlessRooms"`
}

// Directory owns every room and the registry of live connections.
//
// It is not safe for concurrent use; the Hub goroutine is its only caller.
type Directory struct {
	rooms   map[string]*Room
	clients map[string]*Client
	limiter ratelimit.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// NewDirectory creates an empty directory. limiter may be nil to disable throttling.
func NewDirectory(limiter ratelimit.Limiter, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		rooms:   make(map[string]*Room),
		clients: make(map[string]*Client),
		limiter: limiter,
		now:     time.Now,
		logger:  logger,
	}
}

// Add registers an open connection.
func (d *Directory) Add(c *Client) {
	d.clients[c.ID] = c
}

// Remove unregisters a connection after running the same cleanup as Leave.
// It reports false when the connection was not registered.
func (d *Directory) Remove(c *Client) bool {
	if _, ok := d.clients[c.ID]; !ok {
		return false
	}
	d.Leave(c)
	delete(d.clients, c.ID)
	return true
}

// Has reports whether c is a registered, open connection.
func (d *Directory) Has(c *Client) bool {
	live, ok := d.clients[c.ID]
	return ok && live == c
}

// Room returns the room with the given code.
func (d *Directory) Room(code string) (*Room, bool) {
	r, ok := d.rooms[code]
	return r, ok
}

func (d *Directory) live(id string) (*Client, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := d.clients[id]
	return c, ok
}

func (d *Directory) host(r *Room) (*Client, bool) {
	return d.live(r.HostConn)
}

func (d *Directory) throttled(ctx context.Context, addr string) bool {
	if d.limiter == nil {
		return false
	}
	return d.limiter.ShouldThrottle(ctx, addr, d.now())
}

// membership returns the room c belongs to, verifying the room still lists c.
func (d *Directory) membership(c *Client) (*Room, error) {
	if c.role == RoleNone {
		return nil, ErrNotInRoom
	}
	r, ok := d.rooms[c.roomCode]
	if !ok {
		return nil, ErrRoomNotFound
	}
	switch c.role {
	case RoleHost:
		if r.HostConn == c.ID {
			return r, nil
		}
	case RolePeer:
		if r.Peers[c.peerID] == c.ID {
			return r, nil
		}
	}
	return nil, ErrRoomNotFound
}

// dropStale clears a membership whose room was swept or taken over.
func (d *Directory) dropStale(c *Client) {
	if c.role == RoleNone {
		return
	}
	if _, err := d.membership(c); err != nil {
		c.reset()
	}
}

// members returns the open connections of r, excluding except.
func (d *Directory) members(r *Room, except *Client) []*Client {
	out := make([]*Client, 0, len(r.Peers)+1)
	if h, ok := d.host(r); ok && h != except {
		out = append(out, h)
	}
	for _, id := range r.Peers {
		if p, ok := d.live(id); ok && p != except {
			out = append(out, p)
		}
	}
	return out
}

// resolve finds the open connection addressed by a signaling id within r.
func (d *Directory) resolve(r *Room, id string) (*Client, bool) {
	if id == HostID {
		return d.host(r)
	}
	connID, ok := r.Peers[id]
	if !ok {
		return nil, false
	}
	return d.live(connID)
}

// CreateRoom makes c the host of a new room with a fresh code.
func (d *Directory) CreateRoom(ctx context.Context, c *Client) (string, error) {
	d.dropStale(c)
	if c.role != RoleNone {
		return "", ErrAlreadyInRoom
	}
	if d.throttled(ctx, c.Addr) {
		return "", ErrRateLimited
	}

	code := roomcode.CreateUnique(func(code string) bool {
		_, taken := d.rooms[code]
		return taken
	})
	d.rooms[code] = newRoom(code, c, d.now())
	c.assign(RoleHost, code, "")

	d.logger.Info("room created", "code", code, "conn", c.ID, "addr", c.Addr)
	return code, nil
}

// JoinRoom adds c as a peer of the room with the given normalized code.
//
// Failures are checked in order: already in a room, rate limited, malformed code, and
// finally a missing room or one whose host is gone.
func (d *Directory) JoinRoom(ctx context.Context, c *Client, code string) (string, error) {
	d.dropStale(c)
	if c.role != RoleNone {
		return "", ErrAlreadyInRoom
	}
	if d.throttled(ctx, c.Addr) {
		return "", ErrRateLimited
	}
	if !roomcode.Valid(code) {
		return "", ErrInvalidRoomCode
	}
	r, ok := d.rooms[code]
	if !ok {
		return "", ErrRoomNotFound
	}
	if _, ok := d.host(r); !ok {
		return "", ErrRoomNotFound
	}

	peerID := d.addPeer(r, c)
	d.logger.Info("peer joined", "code", code, "peer", peerID, "conn", c.ID)
	return peerID, nil
}

// LegacyResult tells the dispatcher what a binary room registration did.
type LegacyResult struct {
	Role Role

	// HostAddr is set when Role is RolePeer.
	HostAddr string
}

// RegisterLegacy joins the room named by a binary registration, creating it when absent.
//
// The lookup and the create happen in one step, so two registrations of the same code can
// never both become host. A room whose host departed is taken over by the registrant.
func (d *Directory) RegisterLegacy(ctx context.Context, c *Client, code string) (LegacyResult, error) {
	d.dropStale(c)
	if c.role != RoleNone {
		return LegacyResult{}, ErrAlreadyInRoom
	}
	if d.throttled(ctx, c.Addr) {
		return LegacyResult{}, ErrRateLimited
	}
	if code == "" {
		return LegacyResult{}, ErrInvalidRoomCode
	}

	c.legacy = true
	r, ok := d.rooms[code]
	if !ok {
		d.rooms[code] = newRoom(code, c, d.now())
		c.assign(RoleHost, code, "")
		d.logger.Info("legacy room created", "code", code, "conn", c.ID, "addr", c.Addr)
		return LegacyResult{Role: RoleHost}, nil
	}

	if _, ok := d.host(r); !ok {
		r.HostConn = c.ID
		r.HostAddr = c.Addr
		c.assign(RoleHost, code, "")
		d.logger.Info("legacy room host taken over", "code", code, "conn", c.ID)
		return LegacyResult{Role: RoleHost}, nil
	}

	peerID := d.addPeer(r, c)
	d.logger.Info("legacy peer joined", "code", code, "peer", peerID, "conn", c.ID)
	return LegacyResult{Role: RolePeer, HostAddr: r.HostAddr}, nil
}

func (d *Directory) addPeer(r *Room, c *Client) string {
	peerID := d.newPeerID(r)
	r.Peers[peerID] = c.ID
	c.assign(RolePeer, r.Code, peerID)

	if h, ok := d.host(r); ok {
		d.notify(h, Reply{T: TypePeerJoined, Code: r.Code, ID: peerID})
	}
	return peerID
}

func (d *Directory) newPeerID(r *Room) string {
	for range peerIDAttempts {
		id := roomcode.Random(peerIDAlphabet, peerIDLength)
		if _, taken := r.Peers[id]; !taken && id != HostID {
			return id
		}
	}
	// Astronomically unlikely; widen the id rather than loop forever.
	for {
		id := roomcode.Random(peerIDAlphabet, 2*peerIDLength)
		if _, taken := r.Peers[id]; !taken {
			return id
		}
	}
}

// Leave removes c from its room, notifying the remaining members. It is idempotent.
func (d *Directory) Leave(c *Client) {
	if c.role == RoleNone {
		return
	}
	role, code, peerID := c.role, c.roomCode, c.peerID
	c.reset()

	r, ok := d.rooms[code]
	if !ok {
		return
	}

	switch role {
	case RoleHost:
		if r.HostConn != c.ID {
			return
		}
		r.HostConn = ""
		for _, m := range d.members(r, c) {
			d.notify(m, Reply{T: TypeHostLeft, Code: code})
		}
		d.logger.Info("host left", "code", code, "conn", c.ID)
	case RolePeer:
		if r.Peers[peerID] != c.ID {
			return
		}
		delete(r.Peers, peerID)
		if h, ok := d.host(r); ok {
			d.notify(h, Reply{T: TypePeerLeft, Code: code, ID: peerID})
		}
		d.logger.Info("peer left", "code", code, "peer", peerID, "conn", c.ID)
	}

	if r.empty() {
		delete(d.rooms, code)
		d.logger.Info("room closed", "code", code)
	}
}

// SweepExpired deletes rooms that have no open host and are older than ttl.
func (d *Directory) SweepExpired(now time.Time, ttl time.Duration) int {
	removed := 0
	for code, r := range d.rooms {
		if _, ok := d.host(r); ok {
			continue
		}
		if now.Sub(r.CreatedAt) <= ttl {
			continue
		}
		delete(d.rooms, code)
		removed++
		d.logger.Info("room expired", "code", code, "peers", len(r.Peers))
	}
	return removed
}

// SweepLiveness probes every connection and returns those that missed the previous probe
// or could not be probed.
func (d *Directory) SweepLiveness() []*Client {
	var dead []*Client
	for _, c := range d.clients {
		if !c.alive.Swap(false) {
			dead = append(dead, c)
			continue
		}
		if err := c.Endpoint.Ping(); err != nil {
			dead = append(dead, c)
		}
	}
	return dead
}

// Clients returns every registered connection.
func (d *Directory) Clients() []*Client {
	out := make([]*Client, 0, len(d.clients))
	for _, c := range d.clients {
		out = append(out, c)
	}
	return out
}

// Stats summarizes the directory.
func (d *Directory) Stats() Stats {
	s := Stats{Rooms: len(d.rooms), Clients: len(d.clients)}
	for _, r := range d.rooms {
		if _, ok := d.host(r); !ok {
			s.HostlessRooms++
		}
	}
	return s
}

// notify sends a JSON notification. Binary-protocol connections never receive JSON.
func (d *Directory) notify(c *Client, reply Reply) {
	if c.legacy {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		d.logger.Error("failed to encode notification", "type", reply.T, "error", err)
		return
	}
	if err := c.send(FrameText, data); err != nil {
		d.logger.Debug("notification dropped", "type", reply.T, "conn", c.ID, "error", err)
	}
}
