package signaling

import (
	"bytes"
	"encoding/json"
)

// Inbound message kinds of the JSON protocol.
const (
	TypeCreate = "create"
	TypeJoin   = "join"
	TypeSignal = "signal"
	TypeLeave  = "leave"
	TypePing   = "ping"
)

// Outbound message kinds of the JSON protocol.
const (
	TypeCreated    = "created"
	TypeJoined     = "joined"
	TypePeerJoined = "peer_joined"
	TypePeerLeft   = "peer_left"
	TypeHostLeft   = "host_left"
	TypeLeft       = "left"
	TypePong       = "pong"
	TypeError      = "error"
)

// Request is one parsed inbound JSON message.
type Request interface {
	requestType() string
}

type CreateRequest struct{}

type JoinRequest struct {
	Code string
}

type SignalRequest struct {
	To   string
	Data json.RawMessage
}

type LeaveRequest struct{}

type PingRequest struct {
	Ts json.RawMessage
}

// UnknownRequest carries a well-formed message whose `t` the hub does not recognize.
type UnknownRequest struct {
	Type string
}

func (CreateRequest) requestType() string    { return TypeCreate }
func (JoinRequest) requestType() string      { return TypeJoin }
func (SignalRequest) requestType() string    { return TypeSignal }
func (LeaveRequest) requestType() string     { return TypeLeave }
func (PingRequest) requestType() string      { return TypePing }
func (r UnknownRequest) requestType() string { return r.Type }

// envelope is the raw shape of an inbound message. Only `t` must be well typed.
type envelope struct {
	T    *string         `json:"t"`
	Code json.RawMessage `json:"code"`
	To   json.RawMessage `json:"to"`
	Data json.RawMessage `json:"data"`
	Ts   json.RawMessage `json:"ts"`
}

// ParseRequest decodes a JSON protocol message. It reports false for anything that is
// not a JSON object with a string `t` field.
func ParseRequest(data []byte) (Request, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.T == nil {
		return nil, false
	}

	switch *env.T {
	case TypeCreate:
		return CreateRequest{}, true
	case TypeJoin:
		return JoinRequest{Code: stringField(env.Code)}, true
	case TypeSignal:
		req := SignalRequest{To: stringField(env.To)}
		if present(env.Data) {
			req.Data = env.Data
		}
		return req, true
	case TypeLeave:
		return LeaveRequest{}, true
	case TypePing:
		req := PingRequest{}
		if present(env.Ts) {
			req.Ts = env.Ts
		}
		return req, true
	default:
		return UnknownRequest{Type: *env.T}, true
	}
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// Reply is every message the hub sends over the JSON protocol.
type Reply struct {
	T      string          `json:"t"`
	Code   string          `json:"code,omitempty"`
	ID     string          `json:"id,omitempty"`
	Role   string          `json:"role,omitempty"`
	HostID string          `json:"hostId,omitempty"`
	From   string          `json:"from,omitempty"`
	To     string          `json:"to,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Ts     json.RawMessage `json:"ts,omitempty"`
}

func errorReply(code string) Reply {
	return Reply{T: TypeError, Code: code}
}
