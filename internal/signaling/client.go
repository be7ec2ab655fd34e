package signaling

import (
	"errors"
	"sync/atomic"
)

// Role is a connection's position within its room.
type Role int

const (
	RoleNone Role = iota
	RoleHost
	RolePeer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RolePeer:
		return "peer"
	default:
		return "none"
	}
}

// HostID is the signaling identifier every room uses for its host.
const HostID = "host"

// FrameKind tells the transport how to frame an outbound payload.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// ErrClosed is returned by an Endpoint that can no longer send.
var ErrClosed = errors.New("connection closed")

// Endpoint is the transport side of a client connection.
//
// Send and Ping must not block: implementations enqueue onto an ordered per-connection
// queue and report an error when the connection is closed or its queue is full.
type Endpoint interface {
	Send(kind FrameKind, data []byte) error
	Ping() error
	Close() error
}

// Client is the hub's state for one accepted transport session.
//
// Everything except the liveness flag is owned by the Hub goroutine.
type Client struct {
	// ID is unique per connection for the lifetime of the process.
	ID string

	// Addr is the source address used for rate limiting and host IP sharing.
	Addr string

	// Endpoint delivers frames to the remote side.
	Endpoint Endpoint

	role     Role
	roomCode string
	peerID   string

	// legacy is set once the connection registered a room over the binary protocol.
	legacy bool

	alive atomic.Bool
}

// NewClient creates the state for a freshly accepted connection.
func NewClient(id, addr string, ep Endpoint) *Client {
	c := &Client{ID: id, Addr: addr, Endpoint: ep}
	c.alive.Store(true)
	return c
}

func (c *Client) Role() Role       { return c.role }
func (c *Client) RoomCode() string { return c.roomCode }
func (c *Client) PeerID() string   { return c.peerID }

// MarkAlive records a probe acknowledgment. Safe to call from the transport goroutine.
func (c *Client) MarkAlive() {
	c.alive.Store(true)
}

// signalID is the identifier other room members use to address this connection.
func (c *Client) signalID() string {
	if c.role == RoleHost {
		return HostID
	}
	return c.peerID
}

func (c *Client) assign(role Role, code, peerID string) {
	c.role = role
	c.roomCode = code
	c.peerID = peerID
}

func (c *Client) reset() {
	c.role = RoleNone
	c.roomCode = ""
	c.peerID = ""
}

func (c *Client) send(kind FrameKind, data []byte) error {
	if c.Endpoint == nil {
		return ErrClosed
	}
	return c.Endpoint.Send(kind, data)
}
