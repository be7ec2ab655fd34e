package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/config"
	"github.com/ArnoKim89/arno-game-server/internal/logging"
	"github.com/ArnoKim89/arno-game-server/internal/ui"
	"github.com/ArnoKim89/arno-game-server/internal/version"
)

var (
	flagLogLevel string
	flagRelay    string
	flagSTUN     string
	flagEnvFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relayhub",
	Short: "Rendezvous and relay hub for multiplayer game rooms",
	Long: `relayhub pairs game clients through short room codes and relays their traffic.

It runs as a server (relayhub serve) and doubles as a client for the hub's JSON
protocol, which is handy for checking a deployment: create or join rooms, measure
latency to the hub, probe direct connectivity between two players, and watch the
hub's counters.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(flagEnvFile)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// clientLogger sets up logging for the interactive subcommands, which stay quiet
// unless asked otherwise.
func clientLogger() *slog.Logger {
	return logging.Init(flagLogLevel, slog.LevelError)
}

func loadClientConfig() (*config.Client, error) {
	return config.LoadClient(config.ClientOptions{
		RelayURL:   flagRelay,
		STUNServer: flagSTUN,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file loaded when present")
	rootCmd.PersistentFlags().StringVarP(&flagRelay, "relay", "r", "", "Hub websocket URL (default from RELAY_SERVER)")
	rootCmd.PersistentFlags().StringVar(&flagSTUN, "stun", "", "STUN server for --probe (default from STUN_SERVER)")
}
