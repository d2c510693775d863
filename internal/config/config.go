// internal/config/config.go

// Package config loads server configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binary needs to run. All values come from
// CODIES_* environment variables.
type Config struct {
	// Addr is the HTTP/websocket listen address.
	Addr string
	// MetricsAddr, when non-empty, serves Prometheus metrics on a separate
	// listener.
	MetricsAddr string
	// Origins are additional allowed websocket origin patterns.
	Origins []string
	// Debug disables the client version check and origin verification.
	Debug bool

	// TurnSeconds is the default turn length for new rooms.
	TurnSeconds int
	// RoomTTL is how long an idle room survives before it is reaped.
	RoomTTL time.Duration
	// MaxRooms bounds the number of concurrent rooms.
	MaxRooms int
}

// Load reads the environment (and a .env file if present) into a Config.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        ":5000",
		TurnSeconds: 60,
		RoomTTL:     10 * time.Minute,
		MaxRooms:    1000,
	}

	if v := os.Getenv("CODIES_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.MetricsAddr = os.Getenv("CODIES_METRICS_ADDR")

	if v := os.Getenv("CODIES_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Origins = append(cfg.Origins, o)
			}
		}
	}

	if v := os.Getenv("CODIES_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: parsing CODIES_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}

	if v := os.Getenv("CODIES_TURN_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: parsing CODIES_TURN_SECONDS: %w", err)
		}
		cfg.TurnSeconds = secs
	}

	if v := os.Getenv("CODIES_ROOM_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: parsing CODIES_ROOM_TTL: %w", err)
		}
		cfg.RoomTTL = ttl
	}

	if v := os.Getenv("CODIES_MAX_ROOMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: parsing CODIES_MAX_ROOMS: %w", err)
		}
		cfg.MaxRooms = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.TurnSeconds <= 0 {
		return fmt.Errorf("config: turn seconds must be positive")
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("config: room TTL must be positive")
	}
	if c.MaxRooms <= 0 {
		return fmt.Errorf("config: max rooms must be positive")
	}
	return nil
}
