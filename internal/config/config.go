// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultCookieDomainAllowlist lists the domains the refresh cookie may be scoped to.
const DefaultCookieDomainAllowlist = ".yourdomain.com,localhost,.staging.yourdomain.com"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the gin HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the admin gRPC listen address; empty disables the gRPC server.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty runs with in-memory stores (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL backs the login throttle when set (e.g. redis://localhost:6379/0); otherwise it is process-local.
	RedisURL string `mapstructure:"REDIS_URL"`
	// Env is the application environment ("development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTAccessSecret and JWTRefreshSecret sign access and refresh tokens; both required and distinct.
	JWTAccessSecret  string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	JWTIssuer        string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// SessionTTL and SessionRememberMeTTL are the refresh session lifetimes (e.g. "7d", "15d").
	SessionTTL           string `mapstructure:"SESSION_TTL"`
	SessionRememberMeTTL string `mapstructure:"SESSION_REMEMBER_ME_TTL"`
	// SessionPolicy is "static" or "opa".
	SessionPolicy string `mapstructure:"SESSION_POLICY"`

	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`

	CookieDomain          string `mapstructure:"COOKIE_DOMAIN"`
	CookieDomainAllowlist string `mapstructure:"COOKIE_DOMAIN_ALLOWLIST"`
	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is honored for the client IP.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// LoginMaxAttempts failed logins per email within LoginWindow trigger a 429.
	LoginMaxAttempts int    `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      string `mapstructure:"LOGIN_WINDOW"`

	// OTLPEndpoint enables OTLP export of traces, metrics and audit logs when set.
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// MigrateOnStart applies pending migrations before the server starts.
	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "riverside")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("SESSION_TTL", "7d")
	v.SetDefault("SESSION_REMEMBER_ME_TTL", "15d")
	v.SetDefault("SESSION_POLICY", "static")
	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("COOKIE_DOMAIN", "localhost")
	v.SetDefault("COOKIE_DOMAIN_ALLOWLIST", DefaultCookieDomainAllowlist)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW", "15m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "riverside")
	v.SetDefault("MIGRATE_ON_START", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and parses every duration once so later accessors cannot fail.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	for key, raw := range map[string]string{
		"JWT_ACCESS_TTL":          c.JWTAccessTTL,
		"SESSION_TTL":             c.SessionTTL,
		"SESSION_REMEMBER_ME_TTL": c.SessionRememberMeTTL,
		"LOGIN_WINDOW":            c.LoginWindow,
	} {
		d, err := ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", key)
		}
	}
	switch c.SessionPolicy {
	case "static", "opa":
	default:
		return fmt.Errorf("config: SESSION_POLICY must be static or opa, got %q", c.SessionPolicy)
	}
	if c.Argon2MemoryKiB < 8*1024 {
		return errors.New("config: ARGON2_MEMORY_KIB must be at least 8192")
	}
	if c.Argon2Iterations < 1 || c.Argon2Parallelism < 1 {
		return errors.New("config: ARGON2_ITERATIONS and ARGON2_PARALLELISM must be at least 1")
	}
	if c.LoginMaxAttempts < 1 {
		return errors.New("config: LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL returns the parsed access token lifetime; 15m if invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// SessionLifetime returns the default refresh session lifetime; 7d if invalid.
func (c *Config) SessionLifetime() time.Duration {
	return durationOr(c.SessionTTL, 7*24*time.Hour)
}

// RememberMeLifetime returns the remember-me session lifetime; 15d if invalid.
func (c *Config) RememberMeLifetime() time.Duration {
	return durationOr(c.SessionRememberMeTTL, 15*24*time.Hour)
}

// LoginWindowDuration returns the throttle window; 15m if invalid.
func (c *Config) LoginWindowDuration() time.Duration {
	return durationOr(c.LoginWindow, 15*time.Minute)
}

// CookieDomains returns the allow-list entries.
func (c *Config) CookieDomains() []string {
	return splitList(c.CookieDomainAllowlist)
}

// CORSOrigins returns the allowed CORS origins.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxyList returns TrustedProxies split on commas.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

// ParseDuration accepts Go duration syntax plus a whole-day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
