package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ArnoKim89/arno-game-server/internal/apperr"
	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
)

// Dispatcher classifies each inbound message and applies it to the directory.
type Dispatcher struct {
	dir     *Directory
	blocked map[byte]struct{}
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. Binary messages whose type id is in blocked are
// dropped before any room logic runs.
func NewDispatcher(dir *Directory, blocked []byte, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[byte]struct{}, len(blocked))
	for _, t := range blocked {
		set[t] = struct{}{}
	}
	return &Dispatcher{dir: dir, blocked: set, logger: logger}
}

// Handle processes one message received from c.
//
// A non-empty binary frame always takes the legacy path. Anything else is tried as JSON
// and silently ignored when it is not an object with a string `t`.
func (d *Dispatcher) Handle(ctx context.Context, c *Client, kind FrameKind, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling message", "conn", c.ID, "panic", fmt.Sprint(r))
			if kind == FrameText {
				d.reply(c, errorReply(apperr.CodeServerError))
			}
		}
	}()

	if isLegacy(kind, data) {
		d.handleLegacy(ctx, c, data)
		return
	}

	req, ok := ParseRequest(data)
	if !ok {
		d.logger.Debug("ignoring malformed message", "conn", c.ID, "size", len(data))
		return
	}
	d.handleRequest(ctx, c, req)
}

func (d *Dispatcher) handleLegacy(ctx context.Context, c *Client, data []byte) {
	msgType := data[0]
	if _, blocked := d.blocked[msgType]; blocked {
		d.logger.Debug("dropping blocked message", "conn", c.ID, "type", msgType)
		return
	}

	if msgType == TypeRegisterRoom {
		code := SanitizeRoomCode(data[1:])
		res, err := d.dir.RegisterLegacy(ctx, c, code)
		if err != nil {
			d.logger.Debug("legacy registration refused", "conn", c.ID, "code", code, "reason", apperr.CodeOf(err))
			return
		}
		if res.Role == RolePeer {
			if err := c.send(FrameBinary, EncodeHostAnnounce(res.HostAddr)); err != nil {
				d.logger.Debug("host announcement dropped", "conn", c.ID, "error", err)
			}
		}
		return
	}

	d.relay(c, data)
}

// relay forwards a binary payload unchanged to every other open member of c's room.
func (d *Dispatcher) relay(c *Client, data []byte) {
	r, err := d.dir.membership(c)
	if err != nil {
		return
	}
	for _, m := range d.dir.members(r, c) {
		if err := m.send(FrameBinary, data); err != nil {
			d.logger.Debug("relay dropped", "from", c.ID, "to", m.ID, "error", err)
		}
	}
}

func (d *Dispatcher) handleRequest(ctx context.Context, c *Client, req Request) {
	switch req := req.(type) {
	case CreateRequest:
		code, err := d.dir.CreateRoom(ctx, c)
		if err != nil {
			d.replyErr(c, err)
			return
		}
		d.reply(c, Reply{T: TypeCreated, Code: code, ID: HostID, Role: RoleHost.String()})

	case JoinRequest:
		code := roomcode.Normalize(req.Code)
		peerID, err := d.dir.JoinRoom(ctx, c, code)
		if err != nil {
			d.replyErr(c, err)
			return
		}
		d.reply(c, Reply{T: TypeJoined, Code: code, ID: peerID, Role: RolePeer.String(), HostID: HostID})

	case SignalRequest:
		if err := d.signal(c, req); err != nil {
			d.replyErr(c, err)
		}

	case LeaveRequest:
		d.dir.Leave(c)
		d.reply(c, Reply{T: TypeLeft})

	case PingRequest:
		d.reply(c, Reply{T: TypePong, Ts: req.Ts})

	case UnknownRequest:
		d.replyErr(c, ErrUnknownType)
	}
}

// signal delivers an opaque payload to exactly one member of c's room.
func (d *Dispatcher) signal(c *Client, req SignalRequest) error {
	r, err := d.dir.membership(c)
	if err != nil {
		return err
	}
	if req.To == "" || req.Data == nil {
		return ErrBadSignal
	}

	target, ok := d.dir.resolve(r, req.To)
	if !ok {
		return ErrPeerNotFound
	}

	data, err := json.Marshal(Reply{T: TypeSignal, Code: r.Code, From: c.signalID(), To: req.To, Data: req.Data})
	if err != nil {
		return apperr.Wrap(ErrBadSignal, err)
	}
	if err := target.send(FrameText, data); err != nil {
		return ErrPeerNotFound
	}
	return nil
}

func (d *Dispatcher) replyErr(c *Client, err error) {
	code := apperr.CodeOf(err)
	if apperr.KindOf(err) == apperr.KindServerError {
		d.logger.Error("request failed", "conn", c.ID, "error", err)
	}
	d.reply(c, errorReply(code))
}

func (d *Dispatcher) reply(c *Client, reply Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		d.logger.Error("failed to encode reply", "type", reply.T, "error", err)
		return
	}
	if err := c.send(FrameText, data); err != nil {
		d.logger.Debug("reply dropped", "type", reply.T, "conn", c.ID, "error", err)
	}
}
