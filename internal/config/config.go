package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MetricsPort int    `toml:"metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// progress service
	AllowedOrigins     []string `toml:"allowed_origins"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	LiveTTLSeconds     int      `toml:"live_ttl_seconds"`

	// coaching client
	AnalysisURL             string  `toml:"analysis_url"`
	HealthURL               string  `toml:"health_url"`
	ProgressURL             string  `toml:"progress_url"`
	ExercisesPath           string  `toml:"exercises_path"`
	HandshakeTimeoutSeconds int     `toml:"handshake_timeout_seconds"`
	ProbeTimeoutSeconds     int     `toml:"probe_timeout_seconds"`
	CaptureIntervalMillis   int     `toml:"capture_interval_millis"`
	MaxBufferedBytes        int64   `toml:"max_buffered_bytes"`
	ReconnectMaxAttempts    int     `toml:"reconnect_max_attempts"`
	FeedbackLogSize         int     `toml:"feedback_log_size"`
	BodyWeightKg            float64 `toml:"body_weight_kg"`
	// landmarks less visible than this count as missing
	MinVisibility           float64 `toml:"min_visibility"`
}

func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSeconds) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMillis) * time.Millisecond
}

func (c *Config) LiveTTL() time.Duration {
	return time.Duration(c.LiveTTLSeconds) * time.Second
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 2112
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "formcoach"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.HandshakeTimeoutSeconds == 0 {
		c.HandshakeTimeoutSeconds = 90
	}
	if c.ProbeTimeoutSeconds == 0 {
		c.ProbeTimeoutSeconds = 60
	}
	if c.CaptureIntervalMillis == 0 {
		c.CaptureIntervalMillis = 200
	}
	if c.MaxBufferedBytes == 0 {
		c.MaxBufferedBytes = 512 * 1024
	}
	if c.ReconnectMaxAttempts == 0 {
		c.ReconnectMaxAttempts = 10
	}
	if c.FeedbackLogSize == 0 {
		c.FeedbackLogSize = 20
	}
	if c.MinVisibility == 0 {
		c.MinVisibility = 0.5
	}
	if c.LiveTTLSeconds == 0 {
		c.LiveTTLSeconds = 600
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.MetricsPort < 0 {
		return errors.New("negative port")
	}
	if c.HandshakeTimeoutSeconds < 0 || c.ProbeTimeoutSeconds < 0 || c.CaptureIntervalMillis < 0 {
		return errors.New("negative timeout or interval")
	}
	if c.ReconnectMaxAttempts < 0 || c.MaxBufferedBytes < 0 || c.FeedbackLogSize < 0 {
		return errors.New("negative limit")
	}
	if c.BodyWeightKg < 0 {
		return errors.New("negative body weight")
	}
	if c.MinVisibility < 0 || c.MinVisibility > 1 {
		return errors.New("min visibility out of [0, 1]")
	}
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section for env, with
// defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for TOML content held in memory.
func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}
	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", env, err)
	}
	return cfg, nil
}

// Secrets are read from the environment, never from the config file.
type Secrets struct {
	SentryDSN        string `env:"SENTRY_DSN"`
	RedisPassword    string `env:"FORMCOACH_REDIS_PASS"`
	PostgresPassword string `env:"FORMCOACH_POSTGRES_PASS"`
	AnalysisToken    string `env:"FORMCOACH_ANALYSIS_TOKEN"`
	APIToken         string `env:"FORMCOACH_API_TOKEN"`
	OtelServiceName  string `env:"OTEL_SERVICE_NAME, default=formcoach"`
	HoneycombEnabled bool   `env:"HONEYCOMB_ENABLED, default=false"`
	HoneycombAPIKey  string `env:"HONEYCOMB_API_KEY"`
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	return loadSecrets(ctx, envconfig.OsLookuper())
}

func loadSecrets(ctx context.Context, lookuper envconfig.Lookuper) (*Secrets, error) {
	var s Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &s,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &s, nil
}
