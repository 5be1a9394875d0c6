package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for frontdesk-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsDir is the directory holding SQL migration files.
	MigrationsDir string `yaml:"migrations_dir" env:"MIGRATIONS_DIR" env-default:"migrations"`

	// Agent notification configuration
	Agent AgentConfig `yaml:"agent"`

	// Sweep configuration for the pending-request timeout sweeper
	Sweep SweepConfig `yaml:"sweep"`

	// Mirror snapshot configuration
	Mirror MirrorConfig `yaml:"mirror"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"frontdesk"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"frontdesk_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AgentConfig holds settings for the fire-and-forget resolution notifications
// pushed to the local agent process.
type AgentConfig struct {
	// Endpoint is the websocket address the agent listens on.
	Endpoint string `yaml:"endpoint" env:"AGENT_ENDPOINT" env-default:"ws://127.0.0.1:8766"`

	// DialTimeoutSeconds bounds the dial+write of a single notification so a
	// hung or absent agent never inflates resolve latency.
	DialTimeoutSeconds int `yaml:"dial_timeout_seconds" env:"AGENT_DIAL_TIMEOUT_SECONDS" env-default:"3"`
}

// DialTimeout returns the notification dial timeout as a duration.
func (c *AgentConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// SweepConfig holds settings for the stale-request sweeper.
type SweepConfig struct {
	// TimeoutHours is how long a request may stay PENDING before the sweeper
	// escalates it to UNRESOLVED.
	TimeoutHours int `yaml:"timeout_hours" env:"SWEEP_TIMEOUT_HOURS" env-default:"24"`

	// IntervalMinutes is the sweep scheduler period.
	IntervalMinutes int `yaml:"interval_minutes" env:"SWEEP_INTERVAL_MINUTES" env-default:"60"`
}

// TimeoutWindow returns the pending-request timeout as a duration.
func (c *SweepConfig) TimeoutWindow() time.Duration {
	return time.Duration(c.TimeoutHours) * time.Hour
}

// Interval returns the scheduler period as a duration.
func (c *SweepConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// MirrorConfig holds settings for the derived knowledge-base snapshot file
// consumed by the agent.
type MirrorConfig struct {
	Path string `yaml:"path" env:"MIRROR_PATH" env-default:"knowledge_base.json"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml is absent, configuration comes from the
// environment alone. The version parameter is injected at build time and set
// on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sweep.TimeoutHours <= 0 {
		return fmt.Errorf("sweep timeout_hours must be positive, got %d", c.Sweep.TimeoutHours)
	}
	if c.Sweep.IntervalMinutes <= 0 {
		return fmt.Errorf("sweep interval_minutes must be positive, got %d", c.Sweep.IntervalMinutes)
	}
	if c.Agent.DialTimeoutSeconds <= 0 {
		return fmt.Errorf("agent dial_timeout_seconds must be positive, got %d", c.Agent.DialTimeoutSeconds)
	}
	if c.Mirror.Path == "" {
		return fmt.Errorf("mirror path must not be empty")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns a postgres:// connection URL for pgxpool and golang-migrate.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}
