package server

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionConfig tunes a single session's runtime behavior.
type SessionConfig struct {
	// EventQueueSize bounds the channel between the websocket read loop
	// and the event loop. A full queue drops frames rather than blocking
	// the reader.
	EventQueueSize int

	// DispatchQueueSize bounds the queue of functions hopped onto the
	// event loop from timers and the kernel link.
	DispatchQueueSize int

	// Debounce is the default quiet window applied to widget input
	// before its value is broadcast. Zero broadcasts synchronously.
	Debounce time.Duration

	// RemountTimeout clears a widget stuck mid-remount.
	RemountTimeout time.Duration

	// WriteTimeout bounds every websocket write.
	WriteTimeout time.Duration

	// PingInterval paces keepalive control frames. Zero disables them.
	PingInterval time.Duration

	// IdleTimeout is how long a session may go without client activity
	// before the manager sweeps it.
	IdleTimeout time.Duration

	Logger  *slog.Logger
	Metrics *SessionMetrics
}

// DefaultSessionConfig returns the tuning used by the serve command.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		EventQueueSize:    256,
		DispatchQueueSize: 128,
		Debounce:          250 * time.Millisecond,
		RemountTimeout:    5 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		IdleTimeout:       30 * time.Minute,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = d.EventQueueSize
	}
	if c.DispatchQueueSize <= 0 {
		c.DispatchQueueSize = d.DispatchQueueSize
	}
	if c.RemountTimeout <= 0 {
		c.RemountTimeout = d.RemountTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address, for example ":8421".
	Addr string

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	// KernelURL is the websocket endpoint of the execution kernel.
	// Empty runs sessions without a kernel link.
	KernelURL string

	// SweepInterval paces the idle-session sweep.
	SweepInterval time.Duration

	Session SessionConfig

	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// DefaultConfig returns the server settings used by the serve command.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8421",
		MaxSessions:   1000,
		SweepInterval: time.Minute,
		Session:       DefaultSessionConfig(),
	}
}
