// Package config provides configuration loading and validation for authgate.
package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	// DefaultListenPort is the default HTTP listen port.
	DefaultListenPort = 8000

	// DefaultTokenTTL is the default session token lifetime.
	DefaultTokenTTL = 20 * time.Minute

	// DefaultGateInterval is the minimum interval between admitted
	// requests from a single client.
	DefaultGateInterval = time.Second

	// DefaultClientTTL is how long an idle client entry stays in the
	// admission ledger before the sweeper removes it.
	DefaultClientTTL = 10 * time.Minute

	// DefaultBcryptCost is the default bcrypt work factor.
	DefaultBcryptCost = 10
)

// Config is the root configuration for the authgate service.
// It is loaded once at startup and treated as immutable afterwards;
// in particular, changing the token secret requires a restart and
// invalidates all outstanding tokens.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Token   TokenConfig   `yaml:"token"`
	Gate    GateConfig    `yaml:"gate"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"readTimeout"`
	WriteTimeout Duration `yaml:"writeTimeout"`
	IdleTimeout  Duration `yaml:"idleTimeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	// Type is the store backend: "redis" or "memory".
	Type string `yaml:"type"`

	Redis *RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the credential store.
type RedisConfig struct {
	// URL is a redis:// connection URL.
	URL string `yaml:"url"`

	KeyPrefix      string   `yaml:"keyPrefix"`
	PoolSize       int      `yaml:"poolSize"`
	ConnectTimeout Duration `yaml:"connectTimeout"`
	ReadTimeout    Duration `yaml:"readTimeout"`
	WriteTimeout   Duration `yaml:"writeTimeout"`
}

// AuthConfig holds password hashing settings.
type AuthConfig struct {
	// BcryptCost is the bcrypt work factor. Zero means the default cost.
	BcryptCost int `yaml:"bcryptCost"`
}

// TokenConfig holds session token settings.
type TokenConfig struct {
	// Secret is the HMAC signing secret shared by issuance and
	// validation. Rotating it invalidates every outstanding token.
	Secret string `yaml:"secret"`

	TTL    Duration `yaml:"ttl"`
	Issuer string   `yaml:"issuer"`
}

// GateConfig holds request gate settings.
type GateConfig struct {
	// Interval is the minimum spacing between admitted requests from
	// one client identity.
	Interval Duration `yaml:"interval"`

	// ExemptPrefixes lists path prefixes that bypass admission control
	// and timing instrumentation.
	ExemptPrefixes []string `yaml:"exemptPrefixes"`

	// ClientTTL is the idle lifetime of a ledger entry before eviction.
	ClientTTL Duration `yaml:"clientTTL"`

	// GlobalRPS caps total admitted requests per second across all
	// clients. Zero disables the ceiling.
	GlobalRPS int `yaml:"globalRPS"`

	// GlobalBurst is the burst size for the global ceiling.
	GlobalBurst int `yaml:"globalBurst"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are
	// honoured when resolving client identity.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultExemptPrefixes are the path prefixes excluded from the gate:
// interactive docs, the HTML login page, static assets, and the auth
// endpoints themselves.
func DefaultExemptPrefixes() []string {
	return []string{"/docs", "/openapi", "/redoc", "/login", "/static", "/auth", "/health", "/metrics"}
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultListenPort,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Type: "memory",
		},
		Auth: AuthConfig{
			BcryptCost: DefaultBcryptCost,
		},
		Token: TokenConfig{
			TTL:    Duration(DefaultTokenTTL),
			Issuer: "authgate",
		},
		Gate: GateConfig{
			Interval:       Duration(DefaultGateInterval),
			ExemptPrefixes: DefaultExemptPrefixes(),
			ClientTTL:      Duration(DefaultClientTTL),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Store.Type == "" {
		c.Store.Type = def.Store.Type
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = def.Auth.BcryptCost
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = def.Token.TTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Gate.Interval == 0 {
		c.Gate.Interval = def.Gate.Interval
	}
	if c.Gate.ExemptPrefixes == nil {
		c.Gate.ExemptPrefixes = def.Gate.ExemptPrefixes
	}
	if c.Gate.ClientTTL == 0 {
		c.Gate.ClientTTL = def.Gate.ClientTTL
	}
}

// Validate checks the configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("token: secret is required")
	}
	if c.Token.TTL.Duration() <= 0 {
		return fmt.Errorf("token: ttl must be positive")
	}
	switch c.Store.Type {
	case "memory":
	case "redis":
		if c.Store.Redis == nil || c.Store.Redis.URL == "" {
			return fmt.Errorf("store: redis backend requires a url")
		}
	default:
		return fmt.Errorf("store: unknown type %q", c.Store.Type)
	}
	if c.Gate.Interval.Duration() <= 0 {
		return fmt.Errorf("gate: interval must be positive")
	}
	if c.Gate.GlobalRPS < 0 {
		return fmt.Errorf("gate: globalRPS must not be negative")
	}
	return nil
}
