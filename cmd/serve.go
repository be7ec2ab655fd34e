package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ArnoKim89/arno-game-server/internal/config"
	"github.com/ArnoKim89/arno-game-server/internal/logging"
	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
	"github.com/ArnoKim89/arno-game-server/internal/registry"
	"github.com/ArnoKim89/arno-game-server/internal/server"
	"github.com/ArnoKim89/arno-game-server/internal/signaling"
)

const shutdownTimeout = 10 * time.Second

var (
	flagPort         string
	flagPingInterval time.Duration
	flagRoomTTL      time.Duration
	flagRedisAddr    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay hub",
	Long: `Run the relay hub: websocket rooms on /ws and /, the HTTP room registry under
/api, and /health and /stats.

Examples:
  relayhub serve
  relayhub serve --port 8080 --room-ttl 30m
  REDIS_ADDR=localhost:6379 relayhub serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Init(flagLogLevel, slog.LevelInfo)

		cfg, err := config.LoadServer(config.Options{
			Port:         flagPort,
			PingInterval: flagPingInterval,
			RoomTTL:      flagRoomTTL,
			RedisAddr:    flagRedisAddr,
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// serve runs the hub until ctx is cancelled, then drains HTTP connections.
func serve(ctx context.Context, cfg *config.Server, logger *slog.Logger) error {
	limiter := ratelimit.NewMemory(cfg.RateLimitWindow, cfg.RateLimitMax)

	var registryLimiter ratelimit.Limiter = limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, registry rate limiting fails open until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		registryLimiter = ratelimit.NewRedis(rdb, cfg.RateLimitWindow, cfg.RateLimitMax, logger)
	}

	hub := signaling.NewHub(signaling.Config{
		PingInterval:  cfg.PingInterval,
		SweepInterval: cfg.SweepInterval,
		RoomTTL:       cfg.RoomTTL,
		BlockedTypes:  cfg.BlockedTypes,
	}, limiter, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer func() {
		stopHub()
		<-hub.Done()
	}()
	go hub.Run(hubCtx)

	reg := registry.New(cfg.RoomTTL, cfg.MailboxCapacity, logger)
	go reg.Run(hubCtx, cfg.SweepInterval)

	srv := server.New(hub, reg, registryLimiter, server.Options{MaxMessageSize: cfg.MaxMessageSize}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay hub listening", "addr", cfg.Addr(), "pingInterval", cfg.PingInterval, "roomTTL", cfg.RoomTTL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; stopping the hub
	// closes them.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Listen port (default from PORT, else 3000)")
	serveCmd.Flags().DurationVar(&flagPingInterval, "ping-interval", 0, "Liveness sweep interval (default from PING_INTERVAL, else 30s)")
	serveCmd.Flags().DurationVar(&flagRoomTTL, "room-ttl", 0, "Room lifetime (default from ROOM_TTL, else 10m)")
	serveCmd.Flags().StringVar(&flagRedisAddr, "redis", "", "Redis address for shared registry rate limits (default from REDIS_ADDR)")
}
