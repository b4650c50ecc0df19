package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Expected default addr 0.0.0.0:8080, got %s", cfg.Server.Addr())
	}
	if cfg.Sender.BaseURL != "https://api.sender.net/v2/" {
		t.Errorf("Expected default base URL, got %s", cfg.Sender.BaseURL)
	}
	if cfg.Sender.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %s", cfg.Sender.Timeout)
	}
	if cfg.Storage.Driver != StorageSQL {
		t.Errorf("Expected sql storage, got %s", cfg.Storage.Driver)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SENDER_TIMEOUT", "3s")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("OIDC_SCOPES", "openid, email ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Sender.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.Sender.Timeout)
	}
	if cfg.Storage.Driver != StorageRedis {
		t.Errorf("Expected redis storage, got %s", cfg.Storage.Driver)
	}
	if got := strings.Join(cfg.OIDC.GetScopes(), "|"); got != "openid|email" {
		t.Errorf("Expected trimmed scopes, got %s", got)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SENDER_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:  StorageConfig{Driver: StorageSQL},
			Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/test.db"},
			Sender:   SenderConfig{Timeout: time.Second},
			Admin:    AdminConfig{Token: "admin", SessionSecret: testSecret},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "etcd" }, "STORAGE_DRIVER"},
		{"unknown db driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"missing admin token", func(c *Config) { c.Admin.Token = "" }, "ADMIN_TOKEN"},
		{"missing session secret", func(c *Config) { c.Admin.SessionSecret = "" }, "SESSION_SECRET"},
		{"short session secret", func(c *Config) { c.Admin.SessionSecret = "short" }, "SESSION_SECRET"},
		{"hex session secret", func(c *Config) { c.Admin.SessionSecret = strings.Repeat("ab", 32) }, ""},
		{"zero timeout", func(c *Config) { c.Sender.Timeout = 0 }, "SENDER_TIMEOUT"},
		{"oidc without token", func(c *Config) {
			c.Admin.Token = ""
			c.OIDC = OIDCConfig{Enabled: true, IssuerURL: "https://idp", ClientID: "id", ClientSecret: "s", RedirectURL: "https://app/cb"}
		}, ""},
		{"oidc missing issuer", func(c *Config) {
			c.OIDC = OIDCConfig{Enabled: true, ClientID: "id", ClientSecret: "s", RedirectURL: "https://app/cb"}
		}, "OIDC_ISSUER_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
