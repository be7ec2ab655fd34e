package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultPort            = "3000"
	DefaultPingInterval    = 30 * time.Second
	DefaultRoomTTL         = 10 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultRateLimitWindow = 60 * time.Second
	DefaultRateLimitMax    = 60
	DefaultMaxMessageSize  = 64 * 1024
	DefaultMailboxCapacity = 256

	DefaultRelayServer = "ws://localhost:3000/ws"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
)

// LoadDotEnv reads a .env file into the environment when one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Server holds the hub process configuration.
type Server struct {
	Port            string
	PingInterval    time.Duration
	RoomTTL         time.Duration
	SweepInterval   time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int
	BlockedTypes    []byte
	MaxMessageSize  int64
	MailboxCapacity int

	// RedisAddr enables the shared registry rate limiter when set.
	RedisAddr string
}

// Options carries CLI flag overrides. Zero values mean "not set".
type Options struct {
	Port         string
	PingInterval time.Duration
	RoomTTL      time.Duration
	RedisAddr    string
}

// LoadServer reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadServer(opts Options) (*Server, error) {
	cfg := &Server{
		Port:      firstNonEmpty(opts.Port, os.Getenv("PORT"), DefaultPort),
		RedisAddr: firstNonEmpty(opts.RedisAddr, os.Getenv("REDIS_ADDR")),
	}

	var err error
	if cfg.PingInterval, err = duration(opts.PingInterval, "PING_INTERVAL", DefaultPingInterval); err != nil {
		return nil, err
	}
	if cfg.RoomTTL, err = duration(opts.RoomTTL, "ROOM_TTL", DefaultRoomTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration(0, "SWEEP_INTERVAL", DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = duration(0, "RATE_LIMIT_WINDOW", DefaultRateLimitWindow); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = positiveInt("RATE_LIMIT_MAX", DefaultRateLimitMax); err != nil {
		return nil, err
	}
	size, err := positiveInt("MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageSize = int64(size)
	if cfg.MailboxCapacity, err = positiveInt("MAILBOX_CAPACITY", DefaultMailboxCapacity); err != nil {
		return nil, err
	}
	if cfg.BlockedTypes, err = ParsePacketTypes(os.Getenv("BLOCKED_PACKET_TYPES")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the listen address.
func (c *Server) Addr() string {
	return ":" + c.Port
}

// ParsePacketTypes parses a comma separated list of binary message type ids.
func ParsePacketTypes(s string) ([]byte, error) {
	var out []byte
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.ParseUint(field, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("BLOCKED_PACKET_TYPES: %q is not a packet type in 0-255", field)
		}
		out = append(out, byte(n))
	}
	return out, nil
}

// Client holds configuration for the relayhub client subcommands.
type Client struct {
	// RelayURL is the hub's websocket endpoint.
	RelayURL string

	// HTTPURL is the hub's HTTP base, derived from RelayURL.
	HTTPURL string

	// STUNServer is used by the connectivity probe.
	STUNServer string
}

// ClientOptions for loading client config with CLI flag overrides
type ClientOptions struct {
	RelayURL   string
	STUNServer string
}

// LoadClient reads client configuration: flag > env > default.
func LoadClient(opts ClientOptions) (*Client, error) {
	relay := firstNonEmpty(opts.RelayURL, os.Getenv("RELAY_SERVER"), DefaultRelayServer)
	httpURL, err := httpBase(relay)
	if err != nil {
		return nil, err
	}
	return &Client{
		RelayURL:   relay,
		HTTPURL:    httpURL,
		STUNServer: firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
	}, nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Client) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// httpBase turns ws://host:port/ws into http://host:port.
func httpBase(relay string) (string, error) {
	scheme, rest, ok := strings.Cut(relay, "://")
	if !ok {
		return "", fmt.Errorf("RELAY_SERVER %q: missing scheme", relay)
	}
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	default:
		return "", fmt.Errorf("RELAY_SERVER %q: scheme must be ws or wss", relay)
	}
	host, _, _ := strings.Cut(rest, "/")
	if host == "" {
		return "", fmt.Errorf("RELAY_SERVER %q: missing host", relay)
	}
	return scheme + "://" + host, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func duration(flag time.Duration, env string, def time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", env, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", env, v)
	}
	return d, nil
}

func positiveInt(env string, def int) (int, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", env, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", env, n)
	}
	return n, nil
}
