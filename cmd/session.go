package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArnoKim89/arno-game-server/internal/config"
	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
	"github.com/ArnoKim89/arno-game-server/internal/p2p"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
)

const (
	connectTimeout = 10 * time.Second
	probeTimeout   = 30 * time.Second
	probeInterval  = 200 * time.Millisecond
)

// ConnectionContext bundles a live hub connection with its message router.
type ConnectionContext struct {
	Client  *hubclient.Client
	Handler *hubclient.Handler
	Config  *config.Client
	Logger  *slog.Logger
}

func NewConnectionContext(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*ConnectionContext, error) {
	stopSpinner := ui.Connecting(fmt.Sprintf("Connecting to %s...", cfg.RelayURL))
	defer stopSpinner()

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client := hubclient.NewClient(cfg.RelayURL)
	if err := client.Connect(dialCtx); err != nil {
		return nil, p2p.NewError("connect to hub", err)
	}

	handler := hubclient.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// await waits for the next value on ch, failing on a hub error reply, a dropped
// connection or ctx.
func await[T any](ctx context.Context, c *ConnectionContext, ch chan T, op string) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case code := <-c.Handler.Error:
		return zero, fmt.Errorf("%s: hub replied %s", op, code)
	case <-c.Handler.Disconnected:
		return zero, p2p.NewError(op, p2p.ErrPeerDisconnected)
	case <-ctx.Done():
		return zero, p2p.WrapError(op, p2p.ErrTimeout, ctx.Err().Error())
	}
}

// runProbe negotiates a direct data channel with remote over hub signaling and
// measures round trips across it. The returned session keeps answering the remote
// side's pings until it is closed.
func runProbe(ctx context.Context, c *ConnectionContext, remote string, offerer bool, count int) (*p2p.Session, error) {
	sess, err := p2p.NewSession(c.Config, c.Client, remote, c.Logger)
	if err != nil {
		return nil, err
	}

	if offerer {
		if err := sess.Offer(); err != nil {
			sess.Close()
			return nil, err
		}
	}

	stopSpinner := ui.Connecting("Negotiating direct connection...")
	connectCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	prober, err := sess.Connect(connectCtx, c.Handler.Signal, c.Handler.PeerLeft)
	cancel()
	stopSpinner()
	if err != nil {
		sess.Close()
		return nil, err
	}
	ui.PrintSuccessf("Direct connection to %s open", remote)

	measureCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	st, err := prober.Measure(measureCtx, count, probeInterval)
	if err != nil {
		sess.Close()
		return nil, err
	}

	ui.RenderRTT(ui.RTTSummary{
		Target:  "peer " + remote,
		Samples: st.Samples,
		Min:     st.Min,
		Avg:     st.Avg,
		Max:     st.Max,
	})
	return sess, nil
}
