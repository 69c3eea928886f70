package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                  string
	Env                   string
	AllowedOrigin         string
	AuthSecret            string
	AccessTokenTTLMinutes int
	StateBackend          string
	StateDir              string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisKeyPrefix        string
	EventsEnabled         bool
	StoreTimezone         string
	LoginRateLimit        string
	SeedDemoData          bool
	SeedAdminPassword     string
	SeedCashierPassword   string
}

// Load reads an optional .env file, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("STATE_BACKEND", BackendFile)
	v.SetDefault("STATE_DIR", "data")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "barakapos")
	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("STORE_TIMEZONE", "Africa/Cairo")
	v.SetDefault("LOGIN_RATE_LIMIT", "5-M")
	v.SetDefault("SEED_DEMO_DATA", true)
	v.SetDefault("SEED_ADMIN_PASSWORD", "admin123")
	v.SetDefault("SEED_CASHIER_PASSWORD", "cash123")
	return v
}

func FromViper(v *viper.Viper) Config {
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	return Config{
		Port:                  v.GetString("PORT"),
		Env:                   strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		StateBackend:          strings.ToLower(strings.TrimSpace(v.GetString("STATE_BACKEND"))),
		StateDir:              v.GetString("STATE_DIR"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		RedisKeyPrefix:        v.GetString("REDIS_KEY_PREFIX"),
		EventsEnabled:         v.GetBool("EVENTS_ENABLED"),
		StoreTimezone:         v.GetString("STORE_TIMEZONE"),
		LoginRateLimit:        v.GetString("LOGIN_RATE_LIMIT"),
		SeedDemoData:          v.GetBool("SEED_DEMO_DATA"),
		SeedAdminPassword:     v.GetString("SEED_ADMIN_PASSWORD"),
		SeedCashierPassword:   v.GetString("SEED_CASHIER_PASSWORD"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves the store timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if strings.TrimSpace(c.StoreTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	switch c.StateBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis state backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres state backend")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}
	if c.EventsEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("REDIS_ADDR is required when EVENTS_ENABLED is set")
	}
	return nil
}
