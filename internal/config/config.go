// Package config reads the site configuration from the environment. A .env
// file in the working directory is loaded first when present; variables that
// are already set win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MetricsPort string
	ProfilePath string

	LogLevel  string
	LogFormat string

	Session SessionConfig
	Redis   RedisConfig
	Upload  UploadConfig
	Visits  VisitsConfig
	SMTP    SMTPConfig
}

type SessionConfig struct {
	Backend string
	TTL     time.Duration
	Cookie  string
	// Secure marks the session cookie HTTPS-only.
	Secure bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type UploadConfig struct {
	MaxBytes int64
}

// VisitsConfig controls visitor tracking. An empty DBPath disables it.
type VisitsConfig struct {
	DBPath    string
	Retention time.Duration
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Configured reports whether credentials are present.
func (s SMTPConfig) Configured() bool {
	return s.User != "" && s.Pass != ""
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load reads the given dotenv files (".env" when none are named), then the
// environment. Missing dotenv files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		MetricsPort: getenv("METRICS_PORT", "9090"),
		ProfilePath: os.Getenv("PROFILE_PATH"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "json"),
		Session: SessionConfig{
			Backend: getenv("SESSION_BACKEND", BackendMemory),
			Cookie:  getenv("SESSION_COOKIE", "profiler_session"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Visits: VisitsConfig{
			DBPath: getenv("VISITS_DB", "visits.db"),
		},
		SMTP: SMTPConfig{
			Host: getenv("SMTP_HOST", "smtp.gmail.com"),
			Port: getenv("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			To:   os.Getenv("TO_EMAIL"),
		},
	}

	var err error
	if cfg.Session.TTL, err = durationEnv("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Visits.Retention, err = durationEnv("VISITS_RETENTION", 365*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.Secure, err = boolEnv("SESSION_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxBytes, err := intEnv("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxBytes = int64(maxBytes)

	// VISITS_DB= explicitly disables tracking.
	if v, ok := os.LookupEnv("VISITS_DB"); ok && v == "" {
		cfg.Visits.DBPath = ""
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
