package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DefaultTenant       string        `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	JWTSigningKey       string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer           string        `mapstructure:"JWT_ISSUER"`
	TokenTTL            time.Duration `mapstructure:"TOKEN_TTL"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	LockTTL             time.Duration `mapstructure:"LOCK_TTL"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	LoginRateLimitRPS   float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	JobsEnabled         bool          `mapstructure:"JOBS_ENABLED"`
	SlotSweepSchedule   string        `mapstructure:"SLOT_SWEEP_SCHEDULE"`
	JobTenants          []string      `mapstructure:"JOB_TENANTS"`
	MigrationsDir       string        `mapstructure:"MIGRATIONS_DIR"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

// minSigningKeyLen is the shortest HMAC key accepted outside development.
const minSigningKeyLen = 32

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_ISSUER", "hms")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("LOCK_TTL", "5s")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 5)
	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("SLOT_SWEEP_SCHEDULE", "5 0 * * *")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DEFAULT_TENANT", "CORS_ORIGINS", "JWT_SIGNING_KEY", "JWT_ISSUER", "TOKEN_TTL",
		"REDIS_URL", "LOCK_TTL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"LOGIN_RATE_LIMIT_RPS", "LOGIN_RATE_LIMIT_BURST", "JOBS_ENABLED",
		"SLOT_SWEEP_SCHEDULE", "JOB_TENANTS", "MIGRATIONS_DIR", "SHUTDOWN_TIMEOUT",
		"REQUEST_TIMEOUT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.JobTenants = splitList(v.GetString("JOB_TENANTS"))
	if len(cfg.JobTenants) == 0 {
		cfg.JobTenants = []string{cfg.DefaultTenant}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, unauthenticated requests get admin access.")
		log.Println("WARNING: Set ENV=production and JWT_SIGNING_KEY for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RedisEnabled reports whether booking should take distributed slot locks.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// Validate checks that the configuration is safe to run. Outside development a
// signing key of at least 32 bytes is required so that issued tokens cannot be
// forged, and the sweep schedule must be a valid cron expression.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if len(c.JWTSigningKey) < minSigningKeyLen {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes, got %d", minSigningKeyLen, len(c.JWTSigningKey))
		}
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	if c.JobsEnabled {
		if _, err := cron.ParseStandard(c.SlotSweepSchedule); err != nil {
			return fmt.Errorf("SLOT_SWEEP_SCHEDULE is not a valid cron expression: %w", err)
		}
	}

	return nil
}
