// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, 60, cfg.TurnSeconds)
	assert.Equal(t, 10*time.Minute, cfg.RoomTTL)
	assert.Equal(t, 1000, cfg.MaxRooms)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CODIES_ADDR", ":8080")
	t.Setenv("CODIES_DEBUG", "true")
	t.Setenv("CODIES_TURN_SECONDS", "30")
	t.Setenv("CODIES_ROOM_TTL", "5m")
	t.Setenv("CODIES_MAX_ROOMS", "10")
	t.Setenv("CODIES_ORIGINS", "example.com, *.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 30, cfg.TurnSeconds)
	assert.Equal(t, 5*time.Minute, cfg.RoomTTL)
	assert.Equal(t, 10, cfg.MaxRooms)
	assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.Origins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CODIES_TURN_SECONDS", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Addr: ":5000", TurnSeconds: 60, RoomTTL: time.Minute, MaxRooms: 1}
	assert.NoError(t, cfg.Validate())

	cfg.TurnSeconds = 0
	assert.Error(t, cfg.Validate())
}
