package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Handoff   HandoffConfig   `yaml:"handoff"`
	Remote    RemoteConfig    `yaml:"remote"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// HandoffConfig selects where suspended editing sessions are kept.
type HandoffConfig struct {
	Driver       string      `yaml:"driver"` // "sqlite" (default) or "redis"
	Dir          string      `yaml:"dir"`    // sqlite state directory
	GraceSeconds int         `yaml:"grace_seconds"`
	Redis        RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RemoteConfig points the editing client at a repbook server.
type RemoteConfig struct {
	ServerURL string `yaml:"server_url"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Grace returns the hand-off grace period, zero meaning "use the default".
func (h HandoffConfig) Grace() time.Duration {
	if h.GraceSeconds <= 0 {
		return 0
	}
	return time.Duration(h.GraceSeconds) * time.Second
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file in the working directory is read first, so
// overrides can live there. Env vars use the prefix REPBOOK_ and
// underscore-separated paths:
//
//	REPBOOK_SERVER_HOST, REPBOOK_SERVER_PORT,
//	REPBOOK_DB_HOST, REPBOOK_DB_PORT, REPBOOK_DB_NAME,
//	REPBOOK_DB_USER, REPBOOK_DB_PASSWORD, REPBOOK_DB_SSLMODE,
//	REPBOOK_AUTH_API_KEY,
//	REPBOOK_TAILSCALE_ENABLED, REPBOOK_TAILSCALE_HOSTNAME,
//	REPBOOK_HANDOFF_DRIVER, REPBOOK_HANDOFF_DIR,
//	REPBOOK_HANDOFF_GRACE_SECONDS, REPBOOK_REDIS_ADDR,
//	REPBOOK_REMOTE_SERVER_URL
//
// A missing config file is not an error; everything can come from the
// environment (MCP clients usually configure repbook-mcp that way).
//
// Validation is split per binary: the server calls ValidateServer, the
// editing client calls ValidateClient.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPBOOK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPBOOK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPBOOK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REPBOOK_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REPBOOK_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REPBOOK_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REPBOOK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REPBOOK_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REPBOOK_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPBOOK_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("REPBOOK_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("REPBOOK_HANDOFF_DRIVER"); v != "" {
		cfg.Handoff.Driver = v
	}
	if v := os.Getenv("REPBOOK_HANDOFF_DIR"); v != "" {
		cfg.Handoff.Dir = v
	}
	if v := os.Getenv("REPBOOK_HANDOFF_GRACE_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Handoff.GraceSeconds = secs
		}
	}
	if v := os.Getenv("REPBOOK_REDIS_ADDR"); v != "" {
		cfg.Handoff.Redis.Addr = v
	}
	if v := os.Getenv("REPBOOK_REMOTE_SERVER_URL"); v != "" {
		cfg.Remote.ServerURL = v
	}
}

// ValidateServer checks the fields the store server needs.
func (c *Config) ValidateServer() error {
	if !c.Tailscale.Enabled && c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}

// ValidateClient checks the fields the editing client needs.
func (c *Config) ValidateClient() error {
	if c.Remote.ServerURL == "" {
		return fmt.Errorf("remote.server_url is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Handoff.Driver {
	case "", "sqlite":
	case "redis":
		if c.Handoff.Redis.Addr == "" {
			return fmt.Errorf("handoff.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("handoff.driver must be sqlite or redis, got %q", c.Handoff.Driver)
	}
	return nil
}
