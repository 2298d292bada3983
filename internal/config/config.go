package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	HTTPAddr      string
	WebAppURL     string
	AdminID       int64

	// TZOffsetMinutes is the fixed UTC offset of the users' wall clock.
	TZOffsetMinutes int
	NotifyTasks     bool

	PollInterval     time.Duration
	SendDelay        time.Duration
	RetryBackoff     time.Duration
	RetryMaxAttempts int
	ArchiveInterval  time.Duration
	CleanupAt        string
	Retention        time.Duration

	RateLimit       int
	ShutdownTimeout time.Duration

	Log LogConfig
}

type LogConfig struct {
	Level  string
	Format string
	Output string
	File   string
}

// Location returns the fixed zone users' dates and times are written in.
func (c Config) Location() *time.Location {
	return FixedZone(c.TZOffsetMinutes)
}

// FixedZone builds a named fixed zone for an offset in minutes.
func FixedZone(offsetMinutes int) *time.Location {
	if offsetMinutes == 0 {
		return time.UTC
	}
	sign := '+'
	abs := offsetMinutes
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, offsetMinutes*60)
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is optional.
func Load() (Config, error) {
	_ = godotenv.Load()

	l := loader{}
	cfg := Config{
		TelegramToken: firstNonEmpty(env("TELEGRAM_TOKEN"), env("BOT_TOKEN")),
		DatabaseURL:   envOr("DATABASE_URL", "task_reminder.db"),
		HTTPAddr:      env("HTTP_ADDR"),
		WebAppURL:     env("WEB_APP_URL"),

		TZOffsetMinutes: l.int("TZ_OFFSET_MINUTES", 0),
		NotifyTasks:     l.bool("NOTIFY_TASKS", true),

		PollInterval:     l.duration("POLL_INTERVAL", time.Minute),
		SendDelay:        l.duration("SEND_DELAY", 500*time.Millisecond),
		RetryBackoff:     l.duration("RETRY_BACKOFF", 5*time.Minute),
		RetryMaxAttempts: l.int("RETRY_MAX_ATTEMPTS", 3),
		ArchiveInterval:  l.duration("ARCHIVE_INTERVAL", time.Hour),
		CleanupAt:        envOr("CLEANUP_AT", "03:00"),
		Retention:        time.Duration(l.int("RETENTION_DAYS", 7)) * 24 * time.Hour,

		RateLimit:       l.int("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 20*time.Second),

		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "text"),
			Output: envOr("LOG_OUTPUT", "stdout"),
			File:   envOr("LOG_FILE", "logs/task-reminder.log"),
		},
	}

	if raw := env("ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			l.fail("ADMIN_ID", raw)
		}
		cfg.AdminID = id
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "0.0.0.0:" + envOr("PORT", "10000")
	}

	if l.err != nil {
		return cfg, l.err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.TZOffsetMinutes < -14*60 || c.TZOffsetMinutes > 14*60:
		return fmt.Errorf("TZ_OFFSET_MINUTES must be within ±840, got %d", c.TZOffsetMinutes)
	case c.PollInterval < time.Second:
		return fmt.Errorf("POLL_INTERVAL must be at least 1s")
	case c.SendDelay < 0:
		return fmt.Errorf("SEND_DELAY must not be negative")
	case c.RetryBackoff <= 0:
		return fmt.Errorf("RETRY_BACKOFF must be positive")
	case c.RetryMaxAttempts < 0:
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must not be negative")
	case c.ArchiveInterval < time.Second:
		return fmt.Errorf("ARCHIVE_INTERVAL must be at least 1s")
	case c.Retention <= 0:
		return fmt.Errorf("RETENTION_DAYS must be greater than 0")
	case c.RateLimit <= 0:
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be greater than 0")
	case c.DatabaseURL == "":
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	return nil
}

// loader remembers the first malformed variable so Load can report it.
type loader struct {
	err error
}

func (l *loader) fail(key, raw string) {
	if l.err == nil {
		l.err = fmt.Errorf("invalid value %q for %s", raw, key)
	}
}

func (l *loader) int(key string, def int) int {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.fail(key, raw)
		return def
	}
	return v
}

func (l *loader) bool(key string, def bool) bool {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l.fail(key, raw)
		return def
	}
	return v
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.fail(key, raw)
		return def
	}
	return v
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
