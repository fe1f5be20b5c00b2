package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup.
type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string

	JWTSecret        string
	SecureCookies    bool
	SessionTTL       time.Duration
	ReapInterval     time.Duration
	PBKDF2Iterations int

	CORSOrigins []string

	AuthRatePerSecond float64
	AuthRateBurst     int

	Version string
	Commit  string
}

// Release reports whether gin runs in release mode.
func (c *Config) Release() bool {
	return c.GinMode == "release"
}

// Load reads configs/.env when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:    env("PORT", "8080"),
		GinMode: env("GIN_MODE", "debug"),
		Version: env("APP_VERSION", "dev"),
		Commit:  env("APP_COMMIT", "none"),
	}

	cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env("DB_USER", "postgres"),
		env("DB_PASSWORD", "postgres"),
		env("DB_HOST", "localhost"),
		env("DB_PORT", "5432"),
		env("DB_NAME", "postgres"),
		env("DB_SSLMODE", "disable"),
	)

	cfg.JWTSecret = getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if cfg.Release() {
			return nil, errors.New("JWT_SECRET must be set in release mode")
		}
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}
	cfg.SecureCookies = cfg.Release() || getenv("RENDER") != ""

	var err error
	if cfg.PBKDF2Iterations, err = intEnv(env, "PBKDF2_ITERATIONS", 100000); err != nil {
		return nil, err
	}
	ttlHours, err := intEnv(env, "SESSION_TTL_HOURS", 7*24)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(ttlHours) * time.Hour

	reapMinutes, err := intEnv(env, "SESSION_REAP_INTERVAL_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	cfg.ReapInterval = time.Duration(reapMinutes) * time.Minute

	if cfg.AuthRateBurst, err = intEnv(env, "LOGIN_RATE_BURST", 5); err != nil {
		return nil, err
	}
	cfg.AuthRatePerSecond, err = strconv.ParseFloat(env("LOGIN_RATE_PER_SECOND", "0.2"), 64)
	if err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_PER_SECOND: %w", err)
	}

	for _, origin := range strings.Split(env("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg, nil
}

func intEnv(env func(string, string) string, key string, fallback int) (int, error) {
	n, err := strconv.Atoi(env(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
