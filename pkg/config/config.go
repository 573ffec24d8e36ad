// Package config loads application configuration. Defaults are overlaid
// first by an optional YAML file (HUDDLE_CONFIG_FILE), then by HUDDLE_*
// environment variables, so the environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Events        EventsConfig        `yaml:"events"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EventsConfig selects the domain event channel. With an empty RedisAddr
// events go to the structured log.
type EventsConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Channel       string `yaml:"channel"`

	// InvitationPurgeSchedule is a cron expression for the expired
	// invitation sweep. Empty disables the sweep.
	InvitationPurgeSchedule string `yaml:"invitation_purge_schedule"`
}

// ObservabilityConfig holds logging and metrics settings. LogLevel stays a
// raw token here so YAML and env agree on the format; Level converts it.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Level converts the configured log level token.
func (c ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(c.LogLevel)
}

// Default returns the baseline configuration before overlays.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: storage.DefaultConfig(),
		Events: EventsConfig{
			Channel:                 "huddle.events",
			InvitationPurgeSchedule: "@hourly",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by HUDDLE_CONFIG_FILE, and HUDDLE_* environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv("HUDDLE_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	// Server
	if host := getEnv("HUDDLE_HOST", ""); host != "" {
		c.Server.Host = host
	}
	if port := getEnv("HUDDLE_PORT", ""); port != "" {
		c.Server.Port = port
	}
	if d := getEnvDuration("HUDDLE_READ_TIMEOUT", 0); d > 0 {
		c.Server.ReadTimeout = d
	}
	if d := getEnvDuration("HUDDLE_WRITE_TIMEOUT", 0); d > 0 {
		c.Server.WriteTimeout = d
	}
	if d := getEnvDuration("HUDDLE_IDLE_TIMEOUT", 0); d > 0 {
		c.Server.IdleTimeout = d
	}
	if d := getEnvDuration("HUDDLE_SHUTDOWN_TIMEOUT", 0); d > 0 {
		c.Server.ShutdownTimeout = d
	}

	// Storage
	if storageType := getEnv("HUDDLE_STORAGE_TYPE", ""); storageType != "" {
		c.Storage.Type = storageType
	}
	if pgURL := getEnv("HUDDLE_POSTGRES_URL", ""); pgURL != "" {
		c.Storage.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("HUDDLE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		c.Storage.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("HUDDLE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		c.Storage.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("HUDDLE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		c.Storage.PostgresTimeout = timeout
	}

	// Events
	if addr := getEnv("HUDDLE_REDIS_ADDR", ""); addr != "" {
		c.Events.RedisAddr = addr
	}
	if password := getEnv("HUDDLE_REDIS_PASSWORD", ""); password != "" {
		c.Events.RedisPassword = password
	}
	if db := getEnvInt("HUDDLE_REDIS_DB", -1); db >= 0 {
		c.Events.RedisDB = db
	}
	if channel := getEnv("HUDDLE_EVENTS_CHANNEL", ""); channel != "" {
		c.Events.Channel = channel
	}
	if schedule, ok := os.LookupEnv("HUDDLE_INVITATION_PURGE_SCHEDULE"); ok {
		c.Events.InvitationPurgeSchedule = schedule
	}

	// Observability
	if level := getEnv("HUDDLE_LOG_LEVEL", ""); level != "" {
		c.Observability.LogLevel = level
	}
	if enabled := getEnv("HUDDLE_METRICS_ENABLED", ""); enabled != "" {
		c.Observability.MetricsEnabled = strings.ToLower(enabled) == "true"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
