package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	DatabaseURL             string        `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer              string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL             string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience            string        `mapstructure:"AUTH_AUDIENCE"`
	JWTSigningKey           string        `mapstructure:"JWT_SIGNING_KEY"`
	CORSOrigins             []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS            float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst          int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout          time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	Timezone                string        `mapstructure:"TIMEZONE"`
	NotifyWorkers           int           `mapstructure:"NOTIFY_WORKERS"`
	NotifyBuffer            int           `mapstructure:"NOTIFY_BUFFER"`
	FirebaseCredentialsFile string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	ReminderInterval        time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderLeadTime        time.Duration `mapstructure:"REMINDER_LEAD_TIME"`
	SentryDSN               string        `mapstructure:"SENTRY_DSN"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "JWT_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"TIMEZONE", "NOTIFY_WORKERS", "NOTIFY_BUFFER", "FIREBASE_CREDENTIALS_FILE",
	"REMINDER_INTERVAL", "REMINDER_LEAD_TIME", "SENTRY_DSN",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 256)
	v.SetDefault("REMINDER_INTERVAL", "15m")
	v.SetDefault("REMINDER_LEAD_TIME", "24h")

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location returns the time zone used to read appointment dates that carry
// no UTC offset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SigningKey decodes JWT_SIGNING_KEY. It returns nil when no key is set.
func (c *Config) SigningKey() ([]byte, error) {
	if c.JWTSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.JWTSigningKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is not valid hex: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Validate refuses configurations that would run without token verification
// outside development, and rejects malformed values.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.JWTSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or JWT_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1, got %d", c.NotifyWorkers)
	}
	if c.NotifyBuffer < 1 {
		return fmt.Errorf("NOTIFY_BUFFER must be at least 1, got %d", c.NotifyBuffer)
	}
	if c.ReminderInterval <= 0 || c.ReminderLeadTime <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL and REMINDER_LEAD_TIME must be positive")
	}
	return nil
}
