// Package config loads the client settings from YAML, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aretw0/itinera/pkg/connection"
	"github.com/aretw0/itinera/pkg/intake"
	"github.com/aretw0/itinera/pkg/notify"
	"github.com/aretw0/itinera/pkg/presence"
	"github.com/aretw0/itinera/pkg/request"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig     = "ITINERA_CONFIG"
	EnvServer     = "ITINERA_SERVER"
	EnvSessionKey = "ITINERA_SESSION_KEY"
	EnvRedisURL   = "ITINERA_REDIS_URL"
	EnvLogLevel   = "ITINERA_LOG_LEVEL"
)

// DefaultPath is read when no path is given and the file exists.
const DefaultPath = "itinera.yaml"

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the complete client configuration.
type Config struct {
	Server      string           `mapstructure:"server"`
	Questions   []string         `mapstructure:"questions"`
	Connection  ConnectionConfig `mapstructure:"connection"`
	Requests    RequestsConfig   `mapstructure:"requests"`
	Intake      IntakeConfig     `mapstructure:"intake"`
	Presence    PresenceConfig   `mapstructure:"presence"`
	Notify      NotifyConfig     `mapstructure:"notify"`
	Session     SessionConfig    `mapstructure:"session"`
	Log         LogConfig        `mapstructure:"log"`
	DownloadDir string           `mapstructure:"download_dir"`
	MetricsAddr string           `mapstructure:"metrics_addr"`
}

// ConnectionConfig governs the real-time channel.
type ConnectionConfig struct {
	InitialDelay     time.Duration `mapstructure:"initial_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	Jitter           float64       `mapstructure:"jitter"`
	// ProbeInterval is how often the network monitor checks the server host; zero disables it.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// RequestsConfig holds the per-kind deadlines. Zero disables a deadline.
type RequestsConfig struct {
	ValidateTimeout time.Duration `mapstructure:"validate_timeout"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
	GenerateSoft    time.Duration `mapstructure:"generate_soft"`
	GenerateHard    time.Duration `mapstructure:"generate_hard"`
}

type IntakeConfig struct {
	DisplayDelay time.Duration `mapstructure:"display_delay"`
	AdvanceDelay time.Duration `mapstructure:"advance_delay"`
	FailOpen     bool          `mapstructure:"fail_open"`
}

type PresenceConfig struct {
	SilenceWindow time.Duration `mapstructure:"silence_window"`
}

type NotifyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SessionConfig selects where intake drafts are kept.
type SessionConfig struct {
	Store    string        `mapstructure:"store"`
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	ID       string        `mapstructure:"id"`
	// Redact lists regular expressions masked out of persisted text.
	Redact []string `mapstructure:"redact"`
	// Key is a base64 AES key; when set, snapshots are encrypted at rest.
	Key string `mapstructure:"key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	conn := connection.DefaultConfig("")
	return &Config{
		Server: "http://localhost:5000",
		Connection: ConnectionConfig{
			InitialDelay:     conn.InitialDelay,
			MaxDelay:         conn.MaxDelay,
			MaxAttempts:      conn.MaxAttempts,
			HandshakeTimeout: conn.HandshakeTimeout,
			PingInterval:     conn.PingInterval,
			Jitter:           conn.Jitter,
			ProbeInterval:    10 * time.Second,
		},
		Requests: RequestsConfig{
			SearchTimeout: request.DefaultSearchHard,
			GenerateSoft:  request.DefaultGenerateSoft,
			GenerateHard:  request.DefaultGenerateHard,
		},
		Intake: IntakeConfig{
			DisplayDelay: intake.DefaultDisplayDelay,
			AdvanceDelay: intake.DefaultAdvanceDelay,
			FailOpen:     true,
		},
		Presence: PresenceConfig{SilenceWindow: presence.DefaultSilenceWindow},
		Notify:   NotifyConfig{TTL: notify.DefaultTTL},
		Session: SessionConfig{
			Store: StoreFile,
			Dir:   ".itinera/sessions",
		},
		Log:         LogConfig{Level: "info"},
		DownloadDir: ".",
	}
}

// Load builds the configuration: defaults, then the YAML file, then the environment.
// An empty path falls back to $ITINERA_CONFIG and then to DefaultPath if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	if len(cfg.Questions) == 0 {
		cfg.Questions = intake.DefaultQuestions()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if len(cfg.Questions) == 0 {
		cfg.Questions = intake.DefaultQuestions()
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvServer); ok && v != "" {
		c.Server = v
	}
	if v, ok := os.LookupEnv(EnvSessionKey); ok && v != "" {
		c.Session.Key = v
	}
	if v, ok := os.LookupEnv(EnvRedisURL); ok && v != "" {
		c.Session.RedisURL = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server must be an http(s) URL, got %q", c.Server)
	}
	if c.Connection.MaxAttempts < 1 {
		return errors.New("connection.max_attempts must be at least 1")
	}
	if c.Connection.InitialDelay <= 0 {
		return errors.New("connection.initial_delay must be positive")
	}
	if c.Connection.Jitter < 0 || c.Connection.Jitter > 1 {
		return errors.New("connection.jitter must be between 0 and 1")
	}
	if c.Requests.GenerateHard > 0 && c.Requests.GenerateSoft >= c.Requests.GenerateHard {
		return errors.New("requests.generate_soft must be shorter than requests.generate_hard")
	}
	switch strings.ToLower(c.Session.Store) {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("questions[%d] is empty", i)
		}
	}
	return nil
}

// ConnectionFor returns the channel policy for the given websocket URL.
func (c *Config) ConnectionFor(socketURL string) connection.Config {
	return connection.Config{
		URL:              socketURL,
		InitialDelay:     c.Connection.InitialDelay,
		MaxDelay:         c.Connection.MaxDelay,
		MaxAttempts:      c.Connection.MaxAttempts,
		HandshakeTimeout: c.Connection.HandshakeTimeout,
		PingInterval:     c.Connection.PingInterval,
		Jitter:           c.Connection.Jitter,
	}
}
