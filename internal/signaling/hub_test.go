package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
)

func startHub(t *testing.T, cfg Config, limiter ratelimit.Limiter) *Hub {
	t.Helper()
	h := NewHub(cfg, limiter, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func stats(t *testing.T, h *Hub) Stats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := h.Stats(ctx)
	require.NoError(t, err)
	return s
}

func TestHub_RegisterDeliverUnregister(t *testing.T) {
	h := startHub(t, Config{}, ratelimit.NewMemory(0, 0))

	host, hostEp := newTestClient("c1", "10.0.0.1")
	peer, peerEp := newTestClient("c2", "10.0.0.2")
	require.True(t, h.Register(host))
	require.True(t, h.Register(peer))

	h.Deliver(host, FrameText, []byte(`{"t":"create"}`))
	assert.Equal(t, Stats{Rooms: 1, Clients: 2}, stats(t, h))
	code := hostEp.last(t).Code

	h.Deliver(peer, FrameText, []byte(`{"t":"join","code":"`+code+`"}`))
	stats(t, h)
	assert.Equal(t, TypeJoined, peerEp.last(t).T)

	h.Unregister(host)
	h.Unregister(host)
	assert.Equal(t, Stats{Rooms: 1, Clients: 1, HostlessRooms: 1}, stats(t, h))
	assert.Equal(t, Reply{T: TypeHostLeft, Code: code}, peerEp.last(t))

	h.Unregister(peer)
	assert.Equal(t, Stats{}, stats(t, h))
}

func TestHub_IgnoresMessagesFromUnregisteredClients(t *testing.T) {
	h := startHub(t, Config{}, nil)
	c, ep := newTestClient("c1", "a")

	h.Deliver(c, FrameText, []byte(`{"t":"ping"}`))
	stats(t, h)
	assert.Empty(t, ep.frames())
}

func TestHub_TerminatesUnresponsiveConnections(t *testing.T) {
	h := startHub(t, Config{PingInterval: 20 * time.Millisecond}, nil)

	silent, sEp := newTestClient("c1", "a")
	responsive, rEp := newTestClient("c2", "b")
	require.True(t, h.Register(silent))
	require.True(t, h.Register(responsive))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				responsive.MarkAlive()
			}
		}
	}()

	// The silent client hosts the room the responsive one joins.
	h.Deliver(silent, FrameText, []byte(`{"t":"create"}`))
	stats(t, h)
	code := sEp.last(t).Code
	h.Deliver(responsive, FrameText, []byte(`{"t":"join","code":"`+code+`"}`))
	stats(t, h)
	require.Equal(t, TypeJoined, rEp.last(t).T)

	require.Eventually(t, sEp.isClosed, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return stats(t, h).Clients == 1
	}, time.Second, 10*time.Millisecond)
	assert.False(t, rEp.isClosed())
	assert.Positive(t, rEp.pingCount())

	// Termination runs the same cleanup as leave: one host_left, room kept hostless.
	hostLeft := 0
	for _, r := range rEp.replies(t) {
		if r.T == TypeHostLeft {
			assert.Equal(t, code, r.Code)
			hostLeft++
		}
	}
	assert.Equal(t, 1, hostLeft)
	assert.Equal(t, Stats{Rooms: 1, Clients: 1, HostlessRooms: 1}, stats(t, h))
}

func TestHub_SweepsExpiredRooms(t *testing.T) {
	h := startHub(t, Config{SweepInterval: 10 * time.Millisecond, RoomTTL: time.Nanosecond}, nil)

	host, _ := newTestClient("c1", "a")
	peer, _ := newTestClient("c2", "b")
	require.True(t, h.Register(host))
	require.True(t, h.Register(peer))
	h.Deliver(host, FrameBinary, EncodeRegisterRoom("lobby"))
	h.Deliver(peer, FrameBinary, EncodeRegisterRoom("lobby"))
	h.Unregister(host)

	assert.Eventually(t, func() bool {
		return stats(t, h).Rooms == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	h := NewHub(Config{}, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c, ep := newTestClient("c1", "a")
	require.True(t, h.Register(c))

	cancel()
	<-h.Done()
	assert.True(t, ep.isClosed())
	assert.False(t, h.Register(c))

	_, err := h.Stats(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}
