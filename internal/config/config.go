package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	Bind                   string   `yaml:"bind"`
	Debug                  bool     `yaml:"debug"`
	CORSOrigins            []string `yaml:"cors_origins"`
	RequestTimeoutSeconds  int      `yaml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`

	// TrustedProxies are IPs or CIDR prefixes allowed to set X-Forwarded-For
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig selects and tunes the storage backend
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // sqlite, postgres
	Path        string `yaml:"path"`
	URL         string `yaml:"url"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	MaxConns    int    `yaml:"max_conns"`
}

// SessionConfig holds login session settings
type SessionConfig struct {
	TTLSeconds           int  `yaml:"ttl_seconds"`
	CookieSecure         bool `yaml:"cookie_secure"`
	SweepIntervalSeconds int  `yaml:"sweep_interval_seconds"`
}

// AuthConfig holds password hashing settings
type AuthConfig struct {
	BcryptCost          int `yaml:"bcrypt_cost"`
	MaxConcurrentHashes int `yaml:"max_concurrent_hashes"`
}

// EventsConfig holds domain event publishing settings
type EventsConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url"` // empty disables publishing
	Exchange    string `yaml:"exchange"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`
}

// RateLimitConfig holds per-client request limits; 0 disables a limiter
type RateLimitConfig struct {
	RequestsPerMinute     int `yaml:"requests_per_minute"`
	AuthRequestsPerMinute int `yaml:"auth_requests_per_minute"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   8080,
			Bind:                   "127.0.0.1",
			CORSOrigins:            []string{"http://localhost:3000"},
			RequestTimeoutSeconds:  30,
			ShutdownTimeoutSeconds: 10,
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "todo.db",
			AutoMigrate: true,
			MaxConns:    10,
		},
		Session: SessionConfig{
			TTLSeconds:           30 * 24 * 60 * 60, // 30 days
			CookieSecure:         true,
			SweepIntervalSeconds: 3600,
		},
		Auth: AuthConfig{
			BcryptCost:          bcrypt.DefaultCost,
			MaxConcurrentHashes: 4,
		},
		Events: EventsConfig{
			Exchange: "todo.events",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:     600,
			AuthRequestsPerMinute: 20,
		},
	}
}

// Load builds the configuration from defaults, .env files, an optional YAML
// file and the environment, in increasing order of precedence. An empty
// path falls back to $TODO_CONFIG.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("TODO_CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads the given .env files if present. Variables already set
// in the environment win, and earlier files win over later ones.
func loadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.Bind = getEnv("BIND", c.Server.Bind)
	c.Server.Debug = getEnvBool("DEBUG", c.Server.Debug)
	c.Server.CORSOrigins = getEnvList("CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.Server.TrustedProxies)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)

	c.Session.TTLSeconds = getEnvInt("SESSION_TTL_SECONDS", c.Session.TTLSeconds)
	c.Session.CookieSecure = getEnvBool("SESSION_COOKIE_SECURE", c.Session.CookieSecure)
	c.Session.SweepIntervalSeconds = getEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", c.Session.SweepIntervalSeconds)

	c.Auth.BcryptCost = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.MaxConcurrentHashes = getEnvInt("BCRYPT_MAX_CONCURRENT", c.Auth.MaxConcurrentHashes)

	c.Events.RabbitMQURL = getEnv("RABBITMQ_URL", c.Events.RabbitMQURL)
	c.Events.Exchange = getEnv("EVENTS_EXCHANGE", c.Events.Exchange)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)

	c.RateLimit.RequestsPerMinute = getEnvInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.AuthRequestsPerMinute = getEnvInt("AUTH_RATE_LIMIT_RPM", c.RateLimit.AuthRequestsPerMinute)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR prefix", p))
		}
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url (DATABASE_URL) is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Session.TTLSeconds <= 0 {
		errs = append(errs, errors.New("session.ttl_seconds must be positive"))
	}
	if c.Session.SweepIntervalSeconds < 0 {
		errs = append(errs, errors.New("session.sweep_interval_seconds must not be negative"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.AuthRequestsPerMinute < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}

	return errors.Join(errs...)
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}

// SessionTTL returns the lifetime of a login session
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

// SweepInterval returns how often expired sessions are purged; 0 disables it
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request deadline
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns how long in-flight requests get on shutdown
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
