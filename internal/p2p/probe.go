package p2p

import (
	"context"
	"time"

	pion "github.com/pion/webrtc/v4"
)

// handshakeSeq marks the warm-up ping that is resent until the remote prober answers.
const handshakeSeq = 0

// RTTStats summarizes a series of round trips.
type RTTStats struct {
	Samples []time.Duration
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
}

// Summarize computes min, max and mean over samples.
func Summarize(samples []time.Duration) RTTStats {
	st := RTTStats{Samples: samples}
	if len(samples) == 0 {
		return st
	}
	var total time.Duration
	st.Min = samples[0]
	for _, d := range samples {
		total += d
		st.Min = min(st.Min, d)
		st.Max = max(st.Max, d)
	}
	st.Avg = total / time.Duration(len(samples))
	return st
}

// Prober answers pings on a data channel and measures round trips of its own pings.
type Prober struct {
	dc    *pion.DataChannel
	pongs chan PingPayload
}

// NewProber takes over dc's message handler. Both ends of a probe channel need one.
func NewProber(dc *pion.DataChannel) *Prober {
	p := &Prober{dc: dc, pongs: make(chan PingPayload, 16)}

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		m, err := Decode(msg.Data)
		if err != nil {
			return
		}
		var ping PingPayload
		if err := m.DecodePayload(&ping); err != nil {
			return
		}

		switch m.Type {
		case MessageTypePing:
			if frame, err := Encode(MessageTypePong, ping); err == nil {
				dc.Send(frame)
			}
		case MessageTypePong:
			select {
			case p.pongs <- ping:
			default:
			}
		}
	})
	return p
}

func (p *Prober) ping(seq uint32) (time.Time, error) {
	sent := time.Now()
	frame, err := Encode(MessageTypePing, PingPayload{Seq: seq, SentAt: sent.UnixNano()})
	if err != nil {
		return sent, NewError("encode ping", err)
	}
	if err := p.dc.Send(frame); err != nil {
		return sent, NewError("send ping", err)
	}
	return sent, nil
}

// handshake resends the warm-up ping every interval until the remote side answers.
func (p *Prober) handshake(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ping(handshakeSeq); err != nil {
			return err
		}
		select {
		case pong := <-p.pongs:
			if pong.Seq == handshakeSeq {
				return nil
			}
		case <-ticker.C:
		case <-ctx.Done():
			return WrapError("handshake", ErrTimeout, ctx.Err().Error())
		}
	}
}

// Measure sends count pings spaced by interval and waits for each pong.
func (p *Prober) Measure(ctx context.Context, count int, interval time.Duration) (RTTStats, error) {
	if p.dc.ReadyState() != pion.DataChannelStateOpen {
		return RTTStats{}, NewError("measure", ErrChannelNotOpen)
	}
	if err := p.handshake(ctx, interval); err != nil {
		return RTTStats{}, err
	}

	samples := make([]time.Duration, 0, count)
	for i := 0; i < count; i++ {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return Summarize(samples), WrapError("measure", ErrTimeout, ctx.Err().Error())
		}

		seq := uint32(i + 1)
		sent, err := p.ping(seq)
		if err != nil {
			return Summarize(samples), err
		}
		if err := p.awaitPong(ctx, seq); err != nil {
			return Summarize(samples), err
		}
		samples = append(samples, time.Since(sent))
	}
	return Summarize(samples), nil
}

func (p *Prober) awaitPong(ctx context.Context, seq uint32) error {
	for {
		select {
		case pong := <-p.pongs:
			if pong.Seq == seq {
				return nil
			}
		case <-ctx.Done():
			return WrapError("await pong", ErrTimeout, ctx.Err().Error())
		}
	}
}
