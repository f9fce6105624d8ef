package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides: FSEVENTS_SECTION__KEY.
const EnvPrefix = "FSEVENTS_"

// Config represents the top-level application config.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Journal     JournalConfig     `koanf:"journal"`
	Transport   TransportConfig   `koanf:"transport"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Log         LogConfig         `koanf:"log"`
}

type ServerConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// JournalConfig controls recording of delivered flushes in the database.
type JournalConfig struct {
	Enabled bool `koanf:"enabled"`
}

type TransportConfig struct {
	Address                string        `koanf:"address"`
	DialTimeout            time.Duration `koanf:"dial_timeout"`
	WriteTimeout           time.Duration `koanf:"write_timeout"`
	ReconnectInterval      time.Duration `koanf:"reconnect_interval"`
	MaxFrameSize           int           `koanf:"max_frame_size"`
	RetryMaxAttempts       int           `koanf:"retry_max_attempts"`
	RetryInitialDelay      time.Duration `koanf:"retry_initial_delay"`
	RetryBackoffMultiplier float64       `koanf:"retry_backoff_multiplier"`
	BreakerThreshold       int           `koanf:"breaker_threshold"`
	BreakerTimeout         time.Duration `koanf:"breaker_timeout"`
}

type AggregationConfig struct {
	PollResolution     time.Duration `koanf:"poll_resolution"`
	ChannelBufferSize  int           `koanf:"channel_buffer_size"`
	DispatchBufferSize int           `koanf:"dispatch_buffer_size"`
	SubscriptionsDir   string        `koanf:"subscriptions_dir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

// SlogLevel converts the configured level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
		}
		if strings.TrimSpace(c.Server.Host) == "" {
			return fmt.Errorf("server.host is required")
		}
		if c.Server.MaxBodySizeMB <= 0 {
			return fmt.Errorf("server.max_body_size_mb must be > 0")
		}
		if c.Server.Mode != "debug" && c.Server.Mode != "release" {
			return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
		}
	}

	if c.Journal.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required when journal.enabled is true")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
		if c.Database.Type != "" && c.Database.Type != "postgres" {
			return fmt.Errorf("unsupported database.type %q", c.Database.Type)
		}
	}

	if _, _, err := net.SplitHostPort(c.Transport.Address); err != nil {
		return fmt.Errorf("invalid transport.address %q: %w", c.Transport.Address, err)
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"transport.dial_timeout", c.Transport.DialTimeout},
		{"transport.write_timeout", c.Transport.WriteTimeout},
		{"transport.reconnect_interval", c.Transport.ReconnectInterval},
		{"transport.retry_initial_delay", c.Transport.RetryInitialDelay},
		{"transport.breaker_timeout", c.Transport.BreakerTimeout},
		{"aggregation.poll_resolution", c.Aggregation.PollResolution},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be > 0", d.name)
		}
	}
	if c.Transport.MaxFrameSize <= 0 {
		return fmt.Errorf("transport.max_frame_size must be > 0")
	}
	if c.Transport.RetryMaxAttempts <= 0 {
		return fmt.Errorf("transport.retry_max_attempts must be > 0")
	}
	if c.Transport.RetryBackoffMultiplier < 1 {
		return fmt.Errorf("transport.retry_backoff_multiplier must be >= 1")
	}
	if c.Transport.BreakerThreshold <= 0 {
		return fmt.Errorf("transport.breaker_threshold must be > 0")
	}

	if c.Aggregation.ChannelBufferSize <= 0 {
		return fmt.Errorf("aggregation.channel_buffer_size must be > 0")
	}
	if c.Aggregation.DispatchBufferSize <= 0 {
		return fmt.Errorf("aggregation.dispatch_buffer_size must be > 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (must be debug, info, warn or error)", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q (must be text or json)", c.Log.Format)
	}

	return nil
}

// Load parses config from defaults, file and env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.enabled":                     true,
		"server.port":                        8080,
		"server.host":                        "0.0.0.0",
		"server.max_body_size_mb":            1,
		"server.mode":                        "release",
		"database.type":                      "postgres",
		"database.dsn":                       "",
		"database.max_open_conns":            10,
		"database.max_idle_conns":            10,
		"database.auto_migrate":              true,
		"journal.enabled":                    false,
		"transport.address":                  "127.0.0.1:5555",
		"transport.dial_timeout":             "5s",
		"transport.write_timeout":            "5s",
		"transport.reconnect_interval":       "1s",
		"transport.max_frame_size":           4 << 20,
		"transport.retry_max_attempts":       3,
		"transport.retry_initial_delay":      "100ms",
		"transport.retry_backoff_multiplier": 2.0,
		"transport.breaker_threshold":        5,
		"transport.breaker_timeout":          "10s",
		"aggregation.poll_resolution":        "50ms",
		"aggregation.channel_buffer_size":    1024,
		"aggregation.dispatch_buffer_size":   4096,
		"aggregation.subscriptions_dir":      "",
		"log.level":                          "info",
		"log.format":                         "text",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
