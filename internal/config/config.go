package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/inkwell-dev/inkwell/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "inkwell.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8421"

	// DefaultMaxSessions caps concurrent sessions.
	DefaultMaxSessions = 1000
)

// Config represents the complete inkwell.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Server contains the HTTP listener settings.
	Server ServerConfig `json:"server,omitempty"`

	// Session contains per-session runtime settings.
	Session SessionConfig `json:"session,omitempty"`

	// Kernel contains the execution-kernel link settings.
	Kernel KernelConfig `json:"kernel,omitempty"`

	// Snapshot contains value persistence settings.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8421").
	Addr string `json:"addr,omitempty"`

	// MaxSessions caps concurrent sessions. Zero means the default.
	MaxSessions int `json:"maxSessions,omitempty"`

	// SweepInterval paces the idle-session sweep (e.g., "1m").
	SweepInterval string `json:"sweepInterval,omitempty"`
}

// SessionConfig contains per-session runtime settings. Durations use
// Go syntax, for example "250ms".
type SessionConfig struct {
	// Debounce is the default quiet window before a widget value
	// broadcast.
	Debounce string `json:"debounce,omitempty"`

	// RemountTimeout clears a widget stuck mid-remount.
	RemountTimeout string `json:"remountTimeout,omitempty"`

	// IdleTimeout is how long a quiet session survives the sweep.
	IdleTimeout string `json:"idleTimeout,omitempty"`

	// PingInterval paces keepalive frames. Empty uses the default.
	PingInterval string `json:"pingInterval,omitempty"`

	// EventQueue bounds the client frame queue.
	EventQueue int `json:"eventQueue,omitempty"`

	// DispatchQueue bounds the event-loop dispatch queue.
	DispatchQueue int `json:"dispatchQueue,omitempty"`
}

// KernelConfig contains the execution-kernel link settings.
type KernelConfig struct {
	// URL is the kernel websocket endpoint. Empty runs unlinked.
	URL string `json:"url,omitempty"`

	// FlushDelay is the ready-batch window (e.g., "50ms").
	FlushDelay string `json:"flushDelay,omitempty"`
}

// SnapshotConfig contains value persistence settings.
type SnapshotConfig struct {
	// Backend selects the store: "bolt", "s3" or "none".
	Backend string `json:"backend,omitempty"`

	// Path is the bbolt database file (bolt backend).
	Path string `json:"path,omitempty"`

	// Bucket is the S3 bucket name (s3 backend).
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the S3 key prefix (s3 backend).
	Prefix string `json:"prefix,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          DefaultAddr,
			MaxSessions:   DefaultMaxSessions,
			SweepInterval: "1m",
		},
		Session: SessionConfig{
			Debounce:       "250ms",
			RemountTimeout: "5s",
			IdleTimeout:    "30m",
			PingInterval:   "30s",
			EventQueue:     256,
			DispatchQueue:  128,
		},
		Kernel: KernelConfig{
			FlushDelay: "50ms",
		},
		Snapshot: SnapshotConfig{
			Backend: "bolt",
			Path:    "inkwell-snapshots.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory, looking for
// inkwell.json.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'inkwell init' or create " + ConfigFileName + " manually")
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}
	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to where it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "config has no path; use SaveTo")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the given path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FromError(err, "E102")
	}
	c.configPath = path
	return nil
}

// Path returns where the config was loaded from.
func (c *Config) Path() string { return c.configPath }

// Exists reports whether dir contains an inkwell.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = d.Server.MaxSessions
	}
	if c.Server.SweepInterval == "" {
		c.Server.SweepInterval = d.Server.SweepInterval
	}
	if c.Session.Debounce == "" {
		c.Session.Debounce = d.Session.Debounce
	}
	if c.Session.RemountTimeout == "" {
		c.Session.RemountTimeout = d.Session.RemountTimeout
	}
	if c.Session.IdleTimeout == "" {
		c.Session.IdleTimeout = d.Session.IdleTimeout
	}
	if c.Session.PingInterval == "" {
		c.Session.PingInterval = d.Session.PingInterval
	}
	if c.Session.EventQueue == 0 {
		c.Session.EventQueue = d.Session.EventQueue
	}
	if c.Session.DispatchQueue == 0 {
		c.Session.DispatchQueue = d.Session.DispatchQueue
	}
	if c.Kernel.FlushDelay == "" {
		c.Kernel.FlushDelay = d.Kernel.FlushDelay
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = d.Snapshot.Backend
	}
	if c.Snapshot.Backend == "bolt" && c.Snapshot.Path == "" {
		c.Snapshot.Path = d.Snapshot.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks field values after defaults are applied.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.sweepInterval":   c.Server.SweepInterval,
		"session.debounce":       c.Session.Debounce,
		"session.remountTimeout": c.Session.RemountTimeout,
		"session.idleTimeout":    c.Session.IdleTimeout,
		"session.pingInterval":   c.Session.PingInterval,
		"kernel.flushDelay":      c.Kernel.FlushDelay,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return errors.New("E104").
				WithDetail(field + " = " + value).
				WithSuggestion(`Use Go duration syntax, for example "250ms"`)
		}
	}
	if c.Server.MaxSessions < 0 {
		return errors.New("E103").WithDetail("server.maxSessions must not be negative")
	}
	switch c.Snapshot.Backend {
	case "bolt":
		if c.Snapshot.Path == "" {
			return errors.New("E103").WithDetail("snapshot.path is required for the bolt backend")
		}
	case "s3":
		if c.Snapshot.Bucket == "" {
			return errors.New("E103").WithDetail("snapshot.bucket is required for the s3 backend")
		}
	case "none":
	default:
		return errors.New("E402").WithDetail("snapshot.backend = " + c.Snapshot.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E103").WithDetail("log.level = " + c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E103").WithDetail("log.format = " + c.Log.Format)
	}
	return nil
}

// Duration parses one of the validated duration fields. Call only
// after Validate has passed.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
