package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures environment driven configuration values for the
// session-scheduler service.
type Config struct {
	HTTPAddr                   string
	SQLiteDSN                  string
	EventBusRedisAddr          string
	EventWorkerConcurrency     int
	LogLevel                   string
	MaxQueryWindowDays         int
	CheckInWindowBeforeMinutes int
	CheckInWindowAfterMinutes  int
	DefaultCheckInRadiusMeters float64
}

// Load parses configuration values from the current process environment,
// applying defaults for optional fields and validating the ones that carry
// a format constraint.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:                   ":8080",
		SQLiteDSN:                  "file:session-scheduler.db?_foreign_keys=on",
		EventBusRedisAddr:          "127.0.0.1:6379",
		EventWorkerConcurrency:     10,
		LogLevel:                   "info",
		MaxQueryWindowDays:         90,
		CheckInWindowBeforeMinutes: 15,
		CheckInWindowAfterMinutes:  15,
		DefaultCheckInRadiusMeters: 100,
	}

	invalid := make([]string, 0, 4)

	if addr := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_ADDR")); addr != "" {
		cfg.HTTPAddr = addr
	}
	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if addr := strings.TrimSpace(os.Getenv("SCHEDULER_EVENTBUS_REDIS_ADDR")); addr != "" {
		cfg.EventBusRedisAddr = addr
	}
	if level := strings.TrimSpace(os.Getenv("SCHEDULER_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_EVENT_WORKER_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "SCHEDULER_EVENT_WORKER_CONCURRENCY")
		} else {
			cfg.EventWorkerConcurrency = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_MAX_QUERY_WINDOW_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "SCHEDULER_MAX_QUERY_WINDOW_DAYS")
		} else {
			cfg.MaxQueryWindowDays = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_CHECKIN_WINDOW_BEFORE_MINUTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, "SCHEDULER_CHECKIN_WINDOW_BEFORE_MINUTES")
		} else {
			cfg.CheckInWindowBeforeMinutes = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_CHECKIN_WINDOW_AFTER_MINUTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, "SCHEDULER_CHECKIN_WINDOW_AFTER_MINUTES")
		} else {
			cfg.CheckInWindowAfterMinutes = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_DEFAULT_CHECKIN_RADIUS_METERS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			invalid = append(invalid, "SCHEDULER_DEFAULT_CHECKIN_RADIUS_METERS")
		} else {
			cfg.DefaultCheckInRadiusMeters = f
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
