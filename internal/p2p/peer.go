// Package p2p checks that two room members can reach each other directly: it negotiates
// a WebRTC data channel over hub signaling and measures round trips across it.
package p2p

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/ArnoKim89/arno-game-server/internal/config"
	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
)

// ProbeLabel names the data channel the offerer creates.
const ProbeLabel = "probe"

// Signaler delivers a signaling payload to one room member.
type Signaler interface {
	SignalTo(to string, data any) error
}

// SignalData is the payload carried inside hub `signal` messages.
type SignalData struct {
	Type      string                 `json:"type"`
	SDP       string                 `json:"sdp,omitempty"`
	Candidate *pion.ICECandidateInit `json:"candidate,omitempty"`
}

// Session is one side of a probe connection.
type Session struct {
	pc     *pion.PeerConnection
	sig    Signaler
	remote string
	logger *slog.Logger

	opened chan *Prober
	failed chan struct{}

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit
}

func NewPeerConnection(cfg *config.Client) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if urls := cfg.GetSTUNServers(); len(urls) > 0 {
		iceServers = append(iceServers, pion.ICEServer{URLs: urls})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// NewSession creates a session that signals remote through sig.
func NewSession(cfg *config.Client, sig Signaler, remote string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		pc:     pc,
		sig:    sig,
		remote: remote,
		logger: logger,
		opened: make(chan *Prober, 1),
		failed: make(chan struct{}, 1),
	}
	s.setupHandlers()
	return s, nil
}

func (s *Session) setupHandlers() {
	s.pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		s.logger.Debug("ice state changed", "state", state.String())
		if state == pion.ICEConnectionStateFailed || state == pion.ICEConnectionStateClosed {
			select {
			case s.failed <- struct{}{}:
			default:
			}
		}
	})

	s.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		if err := s.sig.SignalTo(s.remote, SignalData{Type: "ice", Candidate: &init}); err != nil {
			s.logger.Debug("failed to send candidate", "error", err)
		}
	})

	s.pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == ProbeLabel {
			s.watchOpen(dc)
		}
	})
}

// watchOpen installs the prober before the channel opens so no early ping is missed.
func (s *Session) watchOpen(dc *pion.DataChannel) {
	p := NewProber(dc)
	dc.OnOpen(func() {
		select {
		case s.opened <- p:
		default:
		}
	})
}

// Offer creates the probe channel and sends an offer to the remote side.
func (s *Session) Offer() error {
	ordered := true
	dc, err := s.pc.CreateDataChannel(ProbeLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return NewError("create data channel", err)
	}
	s.watchOpen(dc)

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}
	if err := s.sig.SignalTo(s.remote, SignalData{Type: "offer", SDP: offer.SDP}); err != nil {
		return NewError("send offer", err)
	}
	return nil
}

// HandleSignal applies one payload received from the remote side.
func (s *Session) HandleSignal(raw json.RawMessage) error {
	var data SignalData
	if err := json.Unmarshal(raw, &data); err != nil {
		return WrapError("handle signal", ErrUnexpectedSignal, err.Error())
	}

	switch data.Type {
	case "offer":
		if err := s.setRemote(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: data.SDP}); err != nil {
			return err
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			return NewError("create answer", err)
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			return NewError("set local description", err)
		}
		if err := s.sig.SignalTo(s.remote, SignalData{Type: "answer", SDP: answer.SDP}); err != nil {
			return NewError("send answer", err)
		}
		return nil

	case "answer":
		return s.setRemote(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: data.SDP})

	case "ice":
		if data.Candidate == nil {
			return nil
		}
		return s.addCandidate(*data.Candidate)

	default:
		return WrapError("handle signal", ErrUnexpectedSignal, data.Type)
	}
}

func (s *Session) setRemote(desc pion.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}

	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			return NewError("add ICE candidate", err)
		}
	}
	return nil
}

// addCandidate queues candidates that arrive before the remote description.
func (s *Session) addCandidate(c pion.ICECandidateInit) error {
	s.mu.Lock()
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.pc.AddICECandidate(c); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

// Connect feeds signals from the remote side into the session until the probe channel
// opens, and returns the channel's prober. Signals from other room members are ignored.
func (s *Session) Connect(ctx context.Context, signals <-chan hubclient.Signal, peerLeft <-chan string) (*Prober, error) {
	for {
		select {
		case p := <-s.opened:
			return p, nil
		case <-s.failed:
			return nil, NewError("connect", ErrConnectionFailed)
		case id := <-peerLeft:
			if id == s.remote {
				return nil, NewError("connect", ErrPeerDisconnected)
			}
		case sig, ok := <-signals:
			if !ok {
				return nil, NewError("connect", ErrPeerDisconnected)
			}
			if sig.From != s.remote {
				continue
			}
			if err := s.HandleSignal(sig.Data); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, WrapError("connect", ErrTimeout, ctx.Err().Error())
		}
	}
}

func (s *Session) Close() error {
	return s.pc.Close()
}
