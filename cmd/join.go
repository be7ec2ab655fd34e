package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/p2p"
	"github.com/ArnoKim89/arno-game-server/internal/roomcode"
	"github.com/ArnoKim89/arno-game-server/internal/signaling"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join CODE",
	Aliases: []string{"j"},
	Short:   "Join a room by its code",
	Long: `Join an existing room. With --probe, wait for the host's WebRTC offer and
measure the round trip across the direct connection.

Examples:
  relayhub join K7MP2Q
  relayhub join k7mp2q --probe`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := roomcode.Normalize(args[0])
		if !roomcode.Valid(code) {
			return fmt.Errorf("%q is not a room code: want %d characters from %s", args[0], roomcode.Length, roomcode.Alphabet)
		}

		logger := clientLogger()
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := NewConnectionContext(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.Client.Join(code); err != nil {
			return p2p.NewError("join room", err)
		}
		joined, err := await(ctx, conn, conn.Handler.Joined, "join room")
		if err != nil {
			return err
		}
		ui.RenderRoomInfo(ui.RoomInfo{Code: joined.Code, Role: joined.Role, ID: joined.ID, Relay: cfg.RelayURL})
		fmt.Println()

		if flagJoinProbe {
			sess, err := runProbe(ctx, conn, signaling.HostID, false, flagJoinProbeCount)
			if err != nil {
				return err
			}
			defer sess.Close()
		}

		ui.PrintInfo("Press Ctrl+C to leave the room")
		for {
			select {
			case <-conn.Handler.HostLeft:
				ui.PrintWarning("The host left the room")
			case code := <-conn.Handler.Error:
				ui.PrintWarningf("Hub replied %s", code)
			case <-conn.Handler.Disconnected:
				return p2p.NewError("room", p2p.ErrPeerDisconnected)
			case <-ctx.Done():
				conn.Client.Leave()
				return nil
			}
		}
	},
}

var (
	flagJoinProbe      bool
	flagJoinProbeCount int
)

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().BoolVar(&flagJoinProbe, "probe", false, "Answer the host's WebRTC offer and measure the direct connection")
	joinCmd.Flags().IntVarP(&flagJoinProbeCount, "count", "n", 5, "Number of probe pings")
}
