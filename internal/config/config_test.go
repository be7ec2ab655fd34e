package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serverEnv = []string{
	"PORT", "PING_INTERVAL", "ROOM_TTL", "SWEEP_INTERVAL", "RATE_LIMIT_WINDOW",
	"RATE_LIMIT_MAX", "BLOCKED_PACKET_TYPES", "MAX_MESSAGE_SIZE", "MAILBOX_CAPACITY", "REDIS_ADDR",
}

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearEnv(t, serverEnv...)

	cfg, err := LoadServer(Options{})
	require.NoError(t, err)
	assert.Equal(t, &Server{
		Port:            "3000",
		PingInterval:    30 * time.Second,
		RoomTTL:         10 * time.Minute,
		SweepInterval:   time.Minute,
		RateLimitWindow: time.Minute,
		RateLimitMax:    60,
		MaxMessageSize:  64 * 1024,
		MailboxCapacity: 256,
	}, cfg)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadServer_Precedence(t *testing.T) {
	clearEnv(t, serverEnv...)
	t.Setenv("PORT", "4000")
	t.Setenv("PING_INTERVAL", "5s")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("BLOCKED_PACKET_TYPES", "7, 42,255")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadServer(Options{Port: "5000"})
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port, "flag beats env")
	assert.Equal(t, 5*time.Second, cfg.PingInterval, "env beats default")
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, []byte{7, 42, 255}, cfg.BlockedTypes)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoadServer_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PING_INTERVAL", "soon"},
		{"ROOM_TTL", "-1m"},
		{"RATE_LIMIT_MAX", "zero"},
		{"MAX_MESSAGE_SIZE", "0"},
		{"BLOCKED_PACKET_TYPES", "256"},
		{"BLOCKED_PACKET_TYPES", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t, serverEnv...)
			t.Setenv(tt.key, tt.value)
			_, err := LoadServer(Options{})
			assert.Error(t, err)
		})
	}
}

func TestLoadClient(t *testing.T) {
	clearEnv(t, "RELAY_SERVER", "STUN_SERVER")

	cfg, err := LoadClient(ClientOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRelayServer, cfg.RelayURL)
	assert.Equal(t, "http://localhost:3000", cfg.HTTPURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())

	t.Setenv("RELAY_SERVER", "wss://relay.example.com/ws")
	cfg, err = LoadClient(ClientOptions{STUNServer: "stun:example.com:3478"})
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", cfg.HTTPURL)
	assert.Equal(t, "stun:example.com:3478", cfg.STUNServer)

	_, err = LoadClient(ClientOptions{RelayURL: "http://x/ws"})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t, "PORT")
	require.NoError(t, os.Unsetenv("PORT"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=6100\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "6100", os.Getenv("PORT"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
