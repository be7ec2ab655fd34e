package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("development", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARNING ", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, ParseLevel("prod", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud", slog.LevelInfo))
}

func TestInit_FlagBeatsEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	defer slog.SetDefault(slog.Default())

	logger := Init("debug", slog.LevelInfo)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = Init("", slog.LevelInfo)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
