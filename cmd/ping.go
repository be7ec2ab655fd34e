package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/p2p"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
)

var (
	flagPingCount int
	flagPingEvery time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trips to the hub",
	Long: `Send application-level pings over the hub's websocket and print the round trip
of each pong.

Examples:
  relayhub ping
  relayhub ping -n 10 --relay ws://10.0.0.5:3000/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := clientLogger()
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		conn, err := NewConnectionContext(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		samples, err := pingHub(ctx, conn, flagPingCount, flagPingEvery)
		if len(samples) > 0 {
			st := p2p.Summarize(samples)
			ui.RenderRTT(ui.RTTSummary{
				Target:  "hub",
				Samples: st.Samples,
				Min:     st.Min,
				Avg:     st.Avg,
				Max:     st.Max,
			})
		}
		return err
	},
}

// pingHub sends count pings stamped with their send time and matches each pong by
// its echoed stamp.
func pingHub(ctx context.Context, conn *ConnectionContext, count int, interval time.Duration) ([]time.Duration, error) {
	samples := make([]time.Duration, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return samples, nil
			}
		}

		sent := time.Now()
		ts := sent.UnixNano()
		if err := conn.Client.Ping(ts); err != nil {
			return samples, p2p.NewError("ping", err)
		}

		for {
			echo, err := await(ctx, conn, conn.Handler.Pong, "ping")
			if err != nil {
				return samples, err
			}
			if pongStamp(echo) == ts {
				break
			}
		}
		samples = append(samples, time.Since(sent))
	}
	return samples, nil
}

func pongStamp(raw json.RawMessage) int64 {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().IntVarP(&flagPingCount, "count", "n", 4, "Number of pings")
	pingCmd.Flags().DurationVarP(&flagPingEvery, "interval", "i", time.Second, "Delay between pings")
}
