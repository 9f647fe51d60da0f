package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds the binding server configuration.
type Config struct {
	// Address is the listen address (default: "localhost:7070").
	Address string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout. Watch connections manage
	// their own deadlines.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// WritesPerSecond is the sustained rate of PUT requests the server
	// accepts across all values. Zero disables the write budget.
	WritesPerSecond float64

	// WriteBurst is the write budget burst size.
	WriteBurst int

	// MetricsPath is where MetricsHandler is mounted (default: "/metrics").
	MetricsPath string

	// MetricsHandler serves metrics. Nil disables the endpoint.
	MetricsHandler http.Handler

	// WatchBuffer is the number of changes buffered per watch connection
	// before the connection is dropped as too slow.
	WatchBuffer int

	// WatchWriteTimeout bounds a single websocket write and the time a watch
	// waits for the realm to subscribe it.
	WatchWriteTimeout time.Duration

	// CheckOrigin validates the Origin header of watch upgrades.
	// Default: allow all origins.
	CheckOrigin func(r *http.Request) bool

	// Logger is the server logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:7070",
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MetricsPath:       "/metrics",
		WatchBuffer:       64,
		WatchWriteTimeout: 5 * time.Second,
		CheckOrigin:       func(*http.Request) bool { return true },
	}
}

// withDefaults fills in defaults for any unset fields.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	cfg := *c
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaults.MetricsPath
	}
	if cfg.WatchBuffer <= 0 {
		cfg.WatchBuffer = defaults.WatchBuffer
	}
	if cfg.WatchWriteTimeout == 0 {
		cfg.WatchWriteTimeout = defaults.WatchWriteTimeout
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = defaults.CheckOrigin
	}
	if cfg.WriteBurst <= 0 && cfg.WritesPerSecond > 0 {
		cfg.WriteBurst = max(1, int(cfg.WritesPerSecond))
	}
	return &cfg
}
