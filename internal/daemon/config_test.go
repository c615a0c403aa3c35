package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if cfg.WS.HeartbeatInterval != "30s" {
		t.Errorf("WS.HeartbeatInterval = %q, want %q", cfg.WS.HeartbeatInterval, "30s")
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("Retry.MaxRetries = %d, want 5", cfg.Retry.MaxRetries)
	}
	if !cfg.Credits.Enabled {
		t.Error("Credits.Enabled should be true by default")
	}
	if cfg.Credits.Costs[domain.ActionAddProduct] != 1 {
		t.Errorf("cost of ADD_PRODUCT = %d, want 1", cfg.Credits.Costs[domain.ActionAddProduct])
	}
	if len(cfg.Credits.Packages) == 0 {
		t.Error("default config should include credit packages")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want default 8787", cfg.API.Port)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[api]
host = "0.0.0.0"
port = 9000

[retry]
sweep_interval = "10s"
max_retries = 3

[credits.costs]
ADD_PRODUCT = 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v, want overridden host/port", cfg.API)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if cfg.Credits.Costs["ADD_PRODUCT"] != 2 {
		t.Errorf("ADD_PRODUCT cost = %d, want 2", cfg.Credits.Costs["ADD_PRODUCT"])
	}
	// Untouched sections keep defaults.
	if cfg.WS.HeartbeatInterval != "30s" {
		t.Errorf("WS.HeartbeatInterval = %q, want default", cfg.WS.HeartbeatInterval)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.API.Port = 0 }},
		{"zero max retries", func(c *Config) { c.Retry.MaxRetries = 0 }},
		{"negative cost", func(c *Config) { c.Credits.Costs["X"] = -1 }},
		{"pong before heartbeat", func(c *Config) {
			c.WS.HeartbeatInterval = "30s"
			c.WS.PongTimeout = "10s"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should reject this config")
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"", 5 * time.Second},        // default
		{"garbage", 5 * time.Second}, // default
		{"-1s", 5 * time.Second},     // default
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseDuration(tt.input, 5*time.Second); got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
