package signaling

import "time"

// Room is a rendezvous point identified by its code.
//
// Host and peers are held as connection IDs and resolved against the directory's live
// connections at send time, so a closed connection is simply "gone".
type Room struct {
	// Code is the room's primary key.
	Code string

	CreatedAt time.Time

	// HostConn is the host's connection ID, empty once the host departed.
	HostConn string

	// HostAddr is the source address of the current host, used by the legacy announcement.
	HostAddr string

	// Peers maps peer IDs to connection IDs. It never contains the host.
	Peers map[string]string
}

func newRoom(code string, host *Client, now time.Time) *Room {
	return &Room{
		Code:      code,
		CreatedAt: now,
		HostConn:  host.ID,
		HostAddr:  host.Addr,
		Peers:     make(map[string]string),
	}
}

func (r *Room) empty() bool {
	return r.HostConn == "" && len(r.Peers) == 0
}
