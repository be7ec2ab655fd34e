package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
)

func newTestDirectory() *Directory {
	return NewDirectory(ratelimit.NewMemory(time.Minute, 60), discardLogger())
}

func addClient(d *Directory, id, addr string) (*Client, *mockEndpoint) {
	c, ep := newTestClient(id, addr)
	d.Add(c)
	return c, ep
}

func TestDirectory_CreateRoom(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	host, _ := addClient(d, "c1", "10.0.0.1")

	code, err := d.CreateRoom(ctx, host)
	require.NoError(t, err)
	assert.True(t, roomcode.Valid(code))
	assert.Equal(t, RoleHost, host.Role())
	assert.Equal(t, code, host.RoomCode())

	r, ok := d.Room(code)
	require.True(t, ok)
	assert.Equal(t, "c1", r.HostConn)
	assert.Equal(t, "10.0.0.1", r.HostAddr)
	assert.Empty(t, r.Peers)

	_, err = d.CreateRoom(ctx, host)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestDirectory_CreateRoom_RateLimited(t *testing.T) {
	d := NewDirectory(alwaysThrottle{}, discardLogger())
	c, _ := addClient(d, "c1", "10.0.0.1")

	_, err := d.CreateRoom(context.Background(), c)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, RoleNone, c.Role())
	assert.Equal(t, 0, d.Stats().Rooms)
}

func TestDirectory_JoinRoom(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	host, hostEp := addClient(d, "c1", "10.0.0.1")
	peer, _ := addClient(d, "c2", "10.0.0.2")

	code, err := d.CreateRoom(ctx, host)
	require.NoError(t, err)

	peerID, err := d.JoinRoom(ctx, peer, code)
	require.NoError(t, err)
	assert.NotEmpty(t, peerID)
	assert.NotEqual(t, HostID, peerID)
	assert.Equal(t, RolePeer, peer.Role())
	assert.Equal(t, peerID, peer.PeerID())

	r, _ := d.Room(code)
	assert.Equal(t, "c2", r.Peers[peerID])

	got := hostEp.last(t)
	assert.Equal(t, Reply{T: TypePeerJoined, Code: code, ID: peerID}, got)
}

func TestDirectory_JoinRoom_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid code", func(t *testing.T) {
		d := newTestDirectory()
		c, _ := addClient(d, "c1", "a")
		_, err := d.JoinRoom(ctx, c, "ABC")
		assert.ErrorIs(t, err, ErrInvalidRoomCode)
	})

	t.Run("missing room", func(t *testing.T) {
		d := newTestDirectory()
		c, _ := addClient(d, "c1", "a")
		_, err := d.JoinRoom(ctx, c, "ABC234")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("host gone", func(t *testing.T) {
		d := newTestDirectory()
		host, _ := addClient(d, "c1", "a")
		peer, _ := addClient(d, "c2", "b")
		code, err := d.CreateRoom(ctx, host)
		require.NoError(t, err)

		// The room stays addressable through a peer but has no host.
		other, _ := addClient(d, "c3", "c")
		_, err = d.JoinRoom(ctx, other, code)
		require.NoError(t, err)
		d.Remove(host)

		_, err = d.JoinRoom(ctx, peer, code)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("already in room", func(t *testing.T) {
		d := newTestDirectory()
		host, _ := addClient(d, "c1", "a")
		code, err := d.CreateRoom(ctx, host)
		require.NoError(t, err)
		_, err = d.JoinRoom(ctx, host, code)
		assert.ErrorIs(t, err, ErrAlreadyInRoom)
	})

	t.Run("rate limited before code check", func(t *testing.T) {
		d := NewDirectory(alwaysThrottle{}, discardLogger())
		c, _ := addClient(d, "c1", "a")
		_, err := d.JoinRoom(ctx, c, "bad")
		assert.ErrorIs(t, err, ErrRateLimited)
	})
}

func TestDirectory_RateLimitCountsCreatesAndJoins(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(ratelimit.NewMemory(time.Minute, 2), discardLogger())
	c, _ := addClient(d, "c1", "10.0.0.9")

	_, err := d.JoinRoom(ctx, c, "ABC234")
	require.ErrorIs(t, err, ErrRoomNotFound)
	_, err = d.CreateRoom(ctx, c)
	require.NoError(t, err)
	d.Leave(c)

	_, err = d.CreateRoom(ctx, c)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestDirectory_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("peer leaves", func(t *testing.T) {
		d := newTestDirectory()
		host, hostEp := addClient(d, "c1", "a")
		peer, _ := addClient(d, "c2", "b")
		code, _ := d.CreateRoom(ctx, host)
		peerID, _ := d.JoinRoom(ctx, peer, code)

		d.Leave(peer)
		assert.Equal(t, RoleNone, peer.Role())
		assert.Empty(t, peer.RoomCode())
		assert.Equal(t, Reply{T: TypePeerLeft, Code: code, ID: peerID}, hostEp.last(t))

		r, ok := d.Room(code)
		require.True(t, ok)
		assert.Empty(t, r.Peers)

		// Idempotent.
		hostEp.reset()
		d.Leave(peer)
		assert.Empty(t, hostEp.frames())
	})

	t.Run("host leaves with peers", func(t *testing.T) {
		d := newTestDirectory()
		host, _ := addClient(d, "c1", "a")
		p1, ep1 := addClient(d, "c2", "b")
		p2, ep2 := addClient(d, "c3", "c")
		code, _ := d.CreateRoom(ctx, host)
		_, _ = d.JoinRoom(ctx, p1, code)
		_, _ = d.JoinRoom(ctx, p2, code)

		d.Leave(host)
		assert.Equal(t, Reply{T: TypeHostLeft, Code: code}, ep1.last(t))
		assert.Equal(t, Reply{T: TypeHostLeft, Code: code}, ep2.last(t))

		r, ok := d.Room(code)
		require.True(t, ok, "room survives while peers remain")
		assert.Empty(t, r.HostConn)
		assert.Len(t, r.Peers, 2)
		assert.Equal(t, 1, d.Stats().HostlessRooms)
	})

	t.Run("last member deletes room", func(t *testing.T) {
		d := newTestDirectory()
		host, _ := addClient(d, "c1", "a")
		code, _ := d.CreateRoom(ctx, host)

		d.Leave(host)
		_, ok := d.Room(code)
		assert.False(t, ok)
	})

	t.Run("not in room", func(t *testing.T) {
		d := newTestDirectory()
		c, _ := addClient(d, "c1", "a")
		assert.NotPanics(t, func() { d.Leave(c) })
	})
}

func TestDirectory_Remove(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	host, hostEp := addClient(d, "c1", "a")
	peer, _ := addClient(d, "c2", "b")
	code, _ := d.CreateRoom(ctx, host)
	peerID, _ := d.JoinRoom(ctx, peer, code)

	assert.True(t, d.Remove(peer))
	assert.False(t, d.Remove(peer))
	assert.False(t, d.Has(peer))
	assert.Equal(t, Reply{T: TypePeerLeft, Code: code, ID: peerID}, hostEp.last(t))
	assert.Equal(t, Stats{Rooms: 1, Clients: 1}, d.Stats())
}

func TestDirectory_RegisterLegacy(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	a, _ := addClient(d, "c1", "10.0.0.1")
	b, _ := addClient(d, "c2", "10.0.0.2")

	res, err := d.RegisterLegacy(ctx, a, "lobby")
	require.NoError(t, err)
	assert.Equal(t, RoleHost, res.Role)

	res, err = d.RegisterLegacy(ctx, b, "lobby")
	require.NoError(t, err)
	assert.Equal(t, LegacyResult{Role: RolePeer, HostAddr: "10.0.0.1"}, res)

	_, err = d.RegisterLegacy(ctx, b, "other")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	c, _ := addClient(d, "c3", "10.0.0.3")
	_, err = d.RegisterLegacy(ctx, c, "")
	assert.ErrorIs(t, err, ErrInvalidRoomCode)
}

func TestDirectory_RegisterLegacy_TakesOverHostlessRoom(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	a, _ := addClient(d, "c1", "10.0.0.1")
	b, _ := addClient(d, "c2", "10.0.0.2")
	c, _ := addClient(d, "c3", "10.0.0.3")

	_, _ = d.RegisterLegacy(ctx, a, "lobby")
	_, _ = d.RegisterLegacy(ctx, b, "lobby")
	d.Remove(a)

	res, err := d.RegisterLegacy(ctx, c, "lobby")
	require.NoError(t, err)
	assert.Equal(t, RoleHost, res.Role)

	r, _ := d.Room("lobby")
	assert.Equal(t, "c3", r.HostConn)
	assert.Equal(t, "10.0.0.3", r.HostAddr)
}

func TestDirectory_LegacyHostGetsNoJSON(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	host, hostEp := addClient(d, "c1", "a")
	peer, _ := addClient(d, "c2", "b")

	_, _ = d.RegisterLegacy(ctx, host, "lobby")
	_, _ = d.RegisterLegacy(ctx, peer, "lobby")
	d.Leave(peer)

	assert.Empty(t, hostEp.frames())
}

func TestDirectory_SweepExpired(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	start := time.Now()
	d.now = func() time.Time { return start }

	host, _ := addClient(d, "c1", "a")
	peer, _ := addClient(d, "c2", "b")
	live, _ := addClient(d, "c3", "c")

	orphaned, _ := d.CreateRoom(ctx, host)
	_, _ = d.JoinRoom(ctx, peer, orphaned)
	d.Remove(host)

	kept, _ := d.CreateRoom(ctx, live)

	assert.Equal(t, 0, d.SweepExpired(start.Add(5*time.Minute), 10*time.Minute))
	assert.Equal(t, 1, d.SweepExpired(start.Add(11*time.Minute), 10*time.Minute))

	_, ok := d.Room(orphaned)
	assert.False(t, ok)
	_, ok = d.Room(kept)
	assert.True(t, ok, "rooms with an open host never expire")

	// The stale peer can start over without leaving first.
	_, err := d.CreateRoom(ctx, peer)
	assert.NoError(t, err)
}

func TestDirectory_SweepLiveness(t *testing.T) {
	d := newTestDirectory()
	ok, okEp := addClient(d, "c1", "a")
	silent, _ := addClient(d, "c2", "b")
	broken, brokenEp := addClient(d, "c3", "c")
	brokenEp.pingErr = ErrClosed

	assert.ElementsMatch(t, []*Client{broken}, d.SweepLiveness())
	assert.Equal(t, 1, okEp.pingCount())

	ok.MarkAlive()
	dead := d.SweepLiveness()
	assert.Contains(t, dead, silent)
	assert.NotContains(t, dead, ok)
}
