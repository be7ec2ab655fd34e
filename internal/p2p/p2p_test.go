package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArnoKim89/arno-game-server/internal/config"
	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
)

func TestMessageRoundTrip(t *testing.T) {
	frame, err := Encode(MessageTypePing, PingPayload{Seq: 7, SentAt: 12345})
	require.NoError(t, err)

	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, MessageTypePing, msg.Type)

	var ping PingPayload
	require.NoError(t, msg.DecodePayload(&ping))
	assert.Equal(t, PingPayload{Seq: 7, SentAt: 12345}, ping)

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestProbeError(t *testing.T) {
	err := WrapError("connect", ErrTimeout, "context deadline exceeded")
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, "connect: timeout (context deadline exceeded)", err.Error())
	assert.Equal(t, "send offer: peer disconnected", NewError("send offer", ErrPeerDisconnected).Error())
}

func TestSummarize(t *testing.T) {
	st := Summarize([]time.Duration{3 * time.Millisecond, time.Millisecond, 5 * time.Millisecond})
	assert.Equal(t, time.Millisecond, st.Min)
	assert.Equal(t, 5*time.Millisecond, st.Max)
	assert.Equal(t, 3*time.Millisecond, st.Avg)

	assert.Equal(t, RTTStats{}, Summarize(nil))
}

// pipeSignaler hands every payload to the other side as if relayed by the hub.
type pipeSignaler struct {
	from string
	out  chan hubclient.Signal
}

func (p *pipeSignaler) SignalTo(_ string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.out <- hubclient.Signal{From: p.from, Data: raw}
	return nil
}

func TestSession_HandleSignalRejectsUnknownType(t *testing.T) {
	s, err := NewSession(&config.Client{}, &pipeSignaler{out: make(chan hubclient.Signal, 1)}, "host", nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.HandleSignal(json.RawMessage(`{"type":"bye"}`))
	assert.ErrorIs(t, err, ErrUnexpectedSignal)

	err = s.HandleSignal(json.RawMessage(`[`))
	assert.ErrorIs(t, err, ErrUnexpectedSignal)

	// Candidates before the offer are queued, not rejected.
	assert.NoError(t, s.HandleSignal(json.RawMessage(`{"type":"ice","candidate":{"candidate":"x"}}`)))
}

func TestSession_LoopbackProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates a real WebRTC connection")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Client{}

	toPeer := make(chan hubclient.Signal, 64)
	toHost := make(chan hubclient.Signal, 64)

	host, err := NewSession(cfg, &pipeSignaler{from: "host", out: toPeer}, "p1", logger)
	require.NoError(t, err)
	defer host.Close()
	peer, err := NewSession(cfg, &pipeSignaler{from: "p1", out: toHost}, "host", logger)
	require.NoError(t, err)
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	type result struct {
		st  RTTStats
		err error
	}
	peerDone := make(chan result, 1)
	go func() {
		p, err := peer.Connect(ctx, toPeer, nil)
		if err != nil {
			peerDone <- result{err: err}
			return
		}
		st, err := p.Measure(ctx, 2, 10*time.Millisecond)
		peerDone <- result{st: st, err: err}
	}()

	require.NoError(t, host.Offer())
	prober, err := host.Connect(ctx, toHost, nil)
	require.NoError(t, err)

	// Both sides measure at once; each prober answers the other's pings.
	st, err := prober.Measure(ctx, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, st.Samples, 3)
	assert.LessOrEqual(t, st.Min, st.Avg)
	assert.LessOrEqual(t, st.Avg, st.Max)

	res := <-peerDone
	require.NoError(t, res.err)
	assert.Len(t, res.st.Samples, 2)
}
