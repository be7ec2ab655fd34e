package hubclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ArnoKim89/arno-game-server/internal/dns"
	"github.com/ArnoKim89/arno-game-server/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("hub connection closed")

// Message is an outbound JSON protocol request.
type Message struct {
	T    string `json:"t"`
	Code string `json:"code,omitempty"`
	To   string `json:"to,omitempty"`
	Data any    `json:"data,omitempty"`
	Ts   int64  `json:"ts,omitempty"`
}

// Client manages the WebSocket connection to the relay hub.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan signaling.Reply
	outgoing  chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new hub client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan signaling.Reply, 16),
		outgoing:  make(chan Message, 16),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection, resolving the host with public DNS
// fallback.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dns.DialContext

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads messages from the WebSocket connection. Binary frames belong to the
// legacy protocol and are skipped.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var reply signaling.Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			continue
		}

		select {
		case c.incoming <- reply:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued messages to the WebSocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// Send queues a message for the hub.
func (c *Client) Send(msg Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Incoming returns the channel for receiving messages. It is closed when the connection
// drops.
func (c *Client) Incoming() <-chan signaling.Reply {
	return c.incoming
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) Create() error {
	return c.Send(Message{T: signaling.TypeCreate})
}

func (c *Client) Join(code string) error {
	return c.Send(Message{T: signaling.TypeJoin, Code: code})
}

// SignalTo sends an opaque payload to one member of the current room.
func (c *Client) SignalTo(to string, data any) error {
	return c.Send(Message{T: signaling.TypeSignal, To: to, Data: data})
}

func (c *Client) Leave() error {
	return c.Send(Message{T: signaling.TypeLeave})
}

// Ping sends an application-level ping stamped with ts, echoed back in the pong.
func (c *Client) Ping(ts int64) error {
	return c.Send(Message{T: signaling.TypePing, Ts: ts})
}
