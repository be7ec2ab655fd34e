package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ArnoKim89/arno-game-server/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 64 * 1024

	// Outbound frames buffered per connection before sends start failing.
	defaultSendQueue = 256
)

var errQueueFull = errors.New("send queue full")

type outFrame struct {
	messageType int
	data        []byte
}

// wsEndpoint adapts a websocket connection to signaling.Endpoint. All writes go through
// one ordered queue drained by writePump, so the hub never blocks on a socket.
type wsEndpoint struct {
	conn *websocket.Conn
	send chan outFrame

	done      chan struct{}
	closeOnce sync.Once
}

func newEndpoint(conn *websocket.Conn, queue int) *wsEndpoint {
	if queue <= 0 {
		queue = defaultSendQueue
	}
	return &wsEndpoint{
		conn: conn,
		send: make(chan outFrame, queue),
		done: make(chan struct{}),
	}
}

func (e *wsEndpoint) enqueue(f outFrame) error {
	select {
	case <-e.done:
		return signaling.ErrClosed
	default:
	}

	select {
	case e.send <- f:
		return nil
	case <-e.done:
		return signaling.ErrClosed
	default:
		return errQueueFull
	}
}

func (e *wsEndpoint) Send(kind signaling.FrameKind, data []byte) error {
	mt := websocket.TextMessage
	if kind == signaling.FrameBinary {
		mt = websocket.BinaryMessage
	}
	return e.enqueue(outFrame{messageType: mt, data: data})
}

func (e *wsEndpoint) Ping() error {
	return e.enqueue(outFrame{messageType: websocket.PingMessage})
}

func (e *wsEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		err = e.conn.Close()
	})
	return err
}

// readPump pumps messages from the websocket connection to the hub.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (s *Server) readPump(client *signaling.Client, ep *wsEndpoint) {
	defer func() {
		s.hub.Unregister(client)
		ep.Close()
	}()

	ep.conn.SetReadLimit(s.maxMessageSize)
	ep.conn.SetPongHandler(func(string) error {
		client.MarkAlive()
		return nil
	})

	for {
		mt, data, err := ep.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Debug("read failed", "conn", client.ID, "error", err)
			}
			return
		}

		kind := signaling.FrameText
		if mt == websocket.BinaryMessage {
			kind = signaling.FrameBinary
		}
		s.hub.Deliver(client, kind, data)
	}
}

// writePump pumps queued frames from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (s *Server) writePump(client *signaling.Client, ep *wsEndpoint) {
	defer ep.Close()

	for {
		select {
		case <-ep.done:
			return
		case f := <-ep.send:
			if err := write(ep.conn, f); err != nil {
				s.logger.Debug("write failed", "conn", client.ID, "error", err)
				return
			}
		}
	}
}

func write(conn *websocket.Conn, f outFrame) error {
	deadline := time.Now().Add(writeWait)
	if f.messageType == websocket.PingMessage {
		return conn.WriteControl(websocket.PingMessage, nil, deadline)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(f.messageType, f.data)
}
