// Package config loads runtime settings from the environment.  A .env file
// in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the process settings.  Redis, rate limit and cache settings
// live in their own structs.
type Config struct {
	Env      string // APP_ENV
	Port     string // APP_PORT
	LogLevel string // LOG_LEVEL

	DBDriver   string // DB_DRIVER: mysql or sqlite3
	DBUser     string
	DBPass     string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string // SQLITE_PATH

	JWTSecret    string
	ShopTimezone *time.Location // SHOP_TIMEZONE

	SweepEnabled  bool
	SweepInterval time.Duration
	SweepLockTTL  time.Duration

	AMQPURL              string // RABBITMQ_URL or AMQP_URL; empty disables the broker
	EventsQueue          string
	AuditQueue           string
	AuditConsumerEnabled bool

	SeedFile       string // CATALOG_SEED_FILE
	MetricsEnabled bool
}

// Load reads the configuration and exits the process when a required key
// is missing or malformed.
func Load() Config {
	_ = godotenv.Load()
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// FromEnv reads the configuration without touching .env or exiting.
func FromEnv() (Config, error) {
	var r reader
	cfg := Config{
		Env:      getenv("APP_ENV", "dev"),
		Port:     r.must("APP_PORT"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "mysql")),

		JWTSecret: r.must("JWT_SECRET"),

		SweepEnabled:  envBool("SWEEP_ENABLED", true),
		SweepInterval: envDur("SWEEP_INTERVAL", 5*time.Minute),
		SweepLockTTL:  envDur("SWEEP_LOCK_TTL", 2*time.Minute),

		AMQPURL:              firstEnv("RABBITMQ_URL", "AMQP_URL"),
		EventsQueue:          getenv("EVENTS_QUEUE", "reservation.events"),
		AuditQueue:           getenv("AUDIT_QUEUE", "reservation.audit"),
		AuditConsumerEnabled: envBool("AUDIT_CONSUMER_ENABLED", true),

		SeedFile:       os.Getenv("CATALOG_SEED_FILE"),
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = r.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.mustInt("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case "sqlite", "sqlite3":
		cfg.DBDriver = "sqlite3"
		cfg.SQLitePath = getenv("SQLITE_PATH", "blg.db")
	default:
		r.fail(fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}

	tz := getenv("SHOP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.fail(fmt.Errorf("invalid SHOP_TIMEZONE %q: %w", tz, err))
	}
	cfg.ShopTimezone = loc

	if cfg.SweepInterval <= 0 {
		r.fail(fmt.Errorf("SWEEP_INTERVAL must be positive"))
	}
	return cfg, r.err
}

// reader collects the first configuration error.
type reader struct {
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt keeps the value as a string but insists it is numeric.
func (r *reader) mustInt(key string) string {
	s := r.must(key)
	if s == "" {
		return s
	}
	if _, err := strconv.Atoi(s); err != nil {
		r.fail(fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return s
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
