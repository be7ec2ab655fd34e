package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/p2p"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
)

var (
	flagProbe      bool
	flagProbeCount int
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and report who joins",
	Long: `Create a room on the hub, print its code, and report members as they join and
leave. With --probe, the first peer to join is asked for a direct WebRTC
connection and the round trip across it is measured.

Examples:
  relayhub create
  relayhub create --probe
  relayhub create --relay wss://hub.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := conn.Client.Create(); err != nil {
			return p2p.NewError("create room", err)
		}
		created, err := await(ctx, conn, conn.Handler.Created, "create room")
		if err != nil {
			return err
		}
		ui.RenderRoomInfo(ui.RoomInfo{Code: created.Code, Role: created.Role, ID: created.ID, Relay: cfg.RelayURL})
		fmt.Println()

		if flagProbe {
			stopSpinner := ui.Waiting("Waiting for a peer to join...")
			peerID, err := await(ctx, conn, conn.Handler.PeerJoined, "wait for peer")
			stopSpinner()
			if err != nil {
				return err
			}
			ui.PrintInfof("%s Peer %s joined", ui.IconPeer, peerID)

			sess, err := runProbe(ctx, conn, peerID, true, flagProbeCount)
			if err != nil {
				return err
			}
			defer sess.Close()
		}

		ui.PrintInfo("Press Ctrl+C to close the room")
		for {
			select {
			case id := <-conn.Handler.PeerJoined:
				ui.PrintInfof("%s Peer %s joined", ui.IconPeer, id)
			case id := <-conn.Handler.PeerLeft:
				ui.PrintWarningf("Peer %s left", id)
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

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().BoolVar(&flagProbe, "probe", false, "Measure a direct WebRTC connection to the first peer")
	createCmd.Flags().IntVarP(&flagProbeCount, "count", "n", 5, "Number of probe pings")
}
