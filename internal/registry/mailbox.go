package registry

import (
	"encoding/json"
	"time"

	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
)

// Signal kinds accepted by the mailbox.
const (
	SignalOffer  = "offer"
	SignalAnswer = "answer"
	SignalICE    = "ice"
)

// Event is one stored signaling message. An empty To is a broadcast to the room.
type Event struct {
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"ts"`
	Type      string          `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// mailbox keeps the newest events of a room in arrival order.
type mailbox struct {
	events   []Event
	capacity int
	last     uint64
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{capacity: capacity}
}

func (m *mailbox) push(ev Event) uint64 {
	m.last++
	ev.Seq = m.last
	if len(m.events) == m.capacity {
		copy(m.events, m.events[1:])
		m.events[len(m.events)-1] = ev
	} else {
		m.events = append(m.events, ev)
	}
	return ev.Seq
}

func (m *mailbox) since(seq uint64, peer string) []Event {
	out := make([]Event, 0)
	for _, ev := range m.events {
		if ev.Seq <= seq {
			continue
		}
		if peer != "" && (ev.From == peer || (ev.To != "" && ev.To != peer)) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func validSignalType(t string) bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalICE:
		return true
	}
	return false
}

// Post appends a signaling event to the room's mailbox and returns its sequence number.
// Posting counts as activity and refreshes the room's expiry.
func (r *Registry) Post(code string, ev Event) (uint64, error) {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return 0, ErrInvalidRoomCode
	}
	if !validSignalType(ev.Type) || ev.From == "" {
		return 0, ErrBadSignal
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.live(code, now)
	if !ok {
		return 0, ErrRoomNotFound
	}
	ev.Timestamp = now
	e.UpdatedAt = now
	return e.mailbox.push(ev), nil
}

// Events returns the events after since that peer should see: not sent by peer and either
// addressed to it or broadcast. An empty peer sees everything. next is the newest sequence
// number the room has issued.
func (r *Registry) Events(code string, since uint64, peer string) (events []Event, next uint64, err error) {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return nil, 0, ErrInvalidRoomCode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(code, r.now())
	if !ok {
		return nil, 0, ErrRoomNotFound
	}
	return e.mailbox.since(since, peer), e.mailbox.last, nil
}
