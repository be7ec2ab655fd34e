package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
)

var (
	flagWatch         bool
	flagWatchInterval time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hub counters",
	Long: `Fetch room and client counts from the hub's /stats endpoint.

Examples:
  relayhub stats
  relayhub stats --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientLogger()
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}

		fetch := func(ctx context.Context) (hubclient.Stats, error) {
			return hubclient.FetchStats(ctx, cfg.HTTPURL)
		}

		if flagWatch {
			return ui.RunDashboard(cfg.HTTPURL, flagWatchInterval, fetch)
		}

		st, err := fetch(cmd.Context())
		if err != nil {
			return err
		}
		ui.RenderStats(st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Refresh the counters until q is pressed")
	statsCmd.Flags().DurationVar(&flagWatchInterval, "interval", time.Second, "Refresh interval for --watch")
}
