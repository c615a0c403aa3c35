// Package daemon holds server configuration: TOML-file loading with
// sensible defaults for every subsystem of the realtime core.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// Config is the full server configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	WS      WSConfig      `toml:"ws"`
	Credits CreditsConfig `toml:"credits"`
	Retry   RetryConfig   `toml:"retry"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// WSConfig controls websocket handshake and heartbeat timings.
// Durations are strings ("30s", "1m") parsed at load time.
type WSConfig struct {
	HandshakeTimeout  string `toml:"handshake_timeout"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	PongTimeout       string `toml:"pong_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
}

// CreditsConfig holds the action cost table and purchasable packages.
// The cost table is reloadable without a restart.
type CreditsConfig struct {
	Enabled  bool                   `toml:"enabled"`
	Mode     string                 `toml:"mode"` // "production" or "sandbox"
	Costs    map[string]int64       `toml:"costs"`
	Packages []domain.CreditPackage `toml:"packages"`
}

// RetryConfig controls the notification retry sweep.
type RetryConfig struct {
	SweepInterval string `toml:"sweep_interval"`
	MaxRetries    int    `toml:"max_retries"`
}

// AuthConfig holds the token signing secret and lifetime.
type AuthConfig struct {
	Secret   string `toml:"secret"`
	TokenTTL string `toml:"token_ttl"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8787,
			EnableMetrics: true,
		},
		WS: WSConfig{
			HandshakeTimeout:  "10s",
			HeartbeatInterval: "30s",
			PongTimeout:       "75s",
			WriteTimeout:      "10s",
		},
		Credits: CreditsConfig{
			Enabled: true,
			Mode:    "production",
			Costs:   domain.DefaultActionCosts(),
			Packages: []domain.CreditPackage{
				{Type: "starter", Credits: 10, PriceFC: 500},
				{Type: "standard", Credits: 50, PriceFC: 2000},
				{Type: "pro", Credits: 150, PriceFC: 5000},
			},
		},
		Retry: RetryConfig{
			SweepInterval: "30s",
			MaxRetries:    5,
		},
		Auth: AuthConfig{
			Secret:   "",
			TokenTTL: "24h",
		},
		Storage: StorageConfig{
			Path: defaultDBPath(),
		},
	}
}

// Load reads config from path, layered over defaults. A missing file is not
// an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("retry.max_retries must be positive, got %d", c.Retry.MaxRetries)
	}
	for action, cost := range c.Credits.Costs {
		if cost < 0 {
			return fmt.Errorf("credits.costs[%s] is negative", action)
		}
	}
	hb := ParseDuration(c.WS.HeartbeatInterval, 30*time.Second)
	pong := ParseDuration(c.WS.PongTimeout, 75*time.Second)
	if pong <= hb {
		return fmt.Errorf("ws.pong_timeout (%s) must exceed ws.heartbeat_interval (%s)",
			c.WS.PongTimeout, c.WS.HeartbeatInterval)
	}
	return nil
}

// ParseDuration parses a duration string, falling back to def on empty or
// invalid input.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// defaultDBPath returns the default SQLite location under the home dir.
func defaultDBPath() string {
	if env := os.Getenv("LIVESHOP_HOME"); env != "" {
		return filepath.Join(env, "liveshop.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "liveshop.db"
	}
	return filepath.Join(home, ".liveshop", "liveshop.db")
}
