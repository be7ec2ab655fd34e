package hubclient

import (
	"encoding/json"

	"github.com/ArnoKim89/arno-game-server/internal/signaling"
)

// Signal is a directed signaling payload relayed by the hub.
type Signal struct {
	From string
	Data json.RawMessage
}

// Handler routes incoming hub messages to appropriate channels.
//
// Deliveries never block: a reply nobody is waiting for is dropped once its channel's
// buffer is full.
type Handler struct {
	client *Client

	Created    chan signaling.Reply
	Joined     chan signaling.Reply
	PeerJoined chan string
	PeerLeft   chan string
	HostLeft   chan struct{}
	Left       chan struct{}
	Signal     chan Signal
	Pong       chan json.RawMessage
	Error      chan string

	// Disconnected is closed once the connection to the hub is gone.
	Disconnected chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		Created:      make(chan signaling.Reply, 1),
		Joined:       make(chan signaling.Reply, 1),
		PeerJoined:   make(chan string, 8),
		PeerLeft:     make(chan string, 8),
		HostLeft:     make(chan struct{}, 1),
		Left:         make(chan struct{}, 1),
		Signal:       make(chan Signal, 32),
		Pong:         make(chan json.RawMessage, 8),
		Error:        make(chan string, 4),
		Disconnected: make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns when the
// connection closes.
func (h *Handler) Start() {
	defer close(h.Disconnected)

	for msg := range h.client.Incoming() {
		switch msg.T {
		case signaling.TypeCreated:
			offer(h.Created, msg)
		case signaling.TypeJoined:
			offer(h.Joined, msg)
		case signaling.TypePeerJoined:
			offer(h.PeerJoined, msg.ID)
		case signaling.TypePeerLeft:
			offer(h.PeerLeft, msg.ID)
		case signaling.TypeHostLeft:
			offer(h.HostLeft, struct{}{})
		case signaling.TypeLeft:
			offer(h.Left, struct{}{})
		case signaling.TypeSignal:
			offer(h.Signal, Signal{From: msg.From, Data: msg.Data})
		case signaling.TypePong:
			offer(h.Pong, msg.Ts)
		case signaling.TypeError:
			offer(h.Error, msg.Code)
		}
	}
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
