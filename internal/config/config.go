package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Storage drivers.
const (
	StorageSQL    = "sql"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Sender   SenderConfig
	Admin    AdminConfig
	OIDC     OIDCConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host          string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port          int    `env:"SERVER_PORT" envDefault:"8080"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
}

// StorageConfig selects where settings and the identity directory live.
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"sql"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/sendernet.db"`
}

// RedisConfig holds redis configuration.
type RedisConfig struct {
	URL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"sendernet"`
}

// SenderConfig holds sender.net API configuration.
type SenderConfig struct {
	BaseURL  string        `env:"SENDER_API_BASE_URL" envDefault:"https://api.sender.net/v2/"`
	Timeout  time.Duration `env:"SENDER_TIMEOUT" envDefault:"10s"`
	FileShim string        `env:"SENDER_FILE_SHIM"` // Path to JSON file standing in for the API
}

// AdminConfig holds settings-form authentication.
type AdminConfig struct {
	Token           string        `env:"ADMIN_TOKEN"`
	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
}

// OIDCConfig holds OIDC authentication configuration.
type OIDCConfig struct {
	Enabled        bool   `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL      string `env:"OIDC_ISSUER_URL"`
	ClientID       string `env:"OIDC_CLIENT_ID"`
	ClientSecret   string `env:"OIDC_CLIENT_SECRET"`
	RedirectURL    string `env:"OIDC_REDIRECT_URL"`
	Scopes         string `env:"OIDC_SCOPES" envDefault:"openid,email,profile"`
	AllowedDomains string `env:"OIDC_ALLOWED_DOMAINS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// GetScopes returns the OIDC scopes as a slice.
func (c *OIDCConfig) GetScopes() []string {
	if c.Scopes == "" {
		return []string{"openid", "email", "profile"}
	}
	return splitList(c.Scopes)
}

// GetAllowedDomains returns the allowed domains as a slice.
func (c *OIDCConfig) GetAllowedDomains() []string {
	if c.AllowedDomains == "" {
		return nil
	}
	return splitList(c.AllowedDomains)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetSessionSecretBytes returns the session secret as bytes.
func (c *AdminConfig) GetSessionSecretBytes() ([]byte, error) {
	if c.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	// Try to decode as hex first (64 hex chars = 32 bytes)
	if len(c.SessionSecret) == 64 {
		decoded, err := hex.DecodeString(c.SessionSecret)
		if err == nil {
			return decoded, nil
		}
	}
	if len(c.SessionSecret) != 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be 32 bytes (or 64 hex characters)")
	}
	return []byte(c.SessionSecret), nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		v    any
	}{
		{"server", &cfg.Server},
		{"storage", &cfg.Storage},
		{"database", &cfg.Database},
		{"redis", &cfg.Redis},
		{"sender", &cfg.Sender},
		{"admin", &cfg.Admin},
		{"oidc", &cfg.OIDC},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := env.Parse(s.v); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid for serving.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageSQL:
		if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
			return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
		}
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of sql, memory, redis, got %q", c.Storage.Driver)
	}

	if c.Sender.Timeout <= 0 {
		return fmt.Errorf("SENDER_TIMEOUT must be positive")
	}

	if !c.OIDC.Enabled && c.Admin.Token == "" {
		return fmt.Errorf("ADMIN_TOKEN is required unless OIDC is enabled")
	}
	if _, err := c.Admin.GetSessionSecretBytes(); err != nil {
		return err
	}

	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("OIDC_CLIENT_SECRET is required when OIDC is enabled")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("OIDC_REDIRECT_URL is required when OIDC is enabled")
		}
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.Sender.FileShim != ""
}
