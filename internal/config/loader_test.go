package config

import (
	"os"
	"testing"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"SCHEDULER_HTTP_ADDR",
			"SCHEDULER_SQLITE_DSN",
			"SCHEDULER_EVENTBUS_REDIS_ADDR",
			"SCHEDULER_EVENT_WORKER_CONCURRENCY",
			"SCHEDULER_LOG_LEVEL",
			"SCHEDULER_MAX_QUERY_WINDOW_DAYS",
			"SCHEDULER_CHECKIN_WINDOW_BEFORE_MINUTES",
			"SCHEDULER_CHECKIN_WINDOW_AFTER_MINUTES",
			"SCHEDULER_DEFAULT_CHECKIN_RADIUS_METERS",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPAddr != ":8080" {
			t.Fatalf("unexpected default HTTP addr: %q", cfg.HTTPAddr)
		}
		if cfg.SQLiteDSN != "file:session-scheduler.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.MaxQueryWindowDays != 90 {
			t.Fatalf("expected default max query window 90, got %d", cfg.MaxQueryWindowDays)
		}
		if cfg.CheckInWindowBeforeMinutes != 15 || cfg.CheckInWindowAfterMinutes != 15 {
			t.Fatalf("expected default check-in window 15/15, got %d/%d", cfg.CheckInWindowBeforeMinutes, cfg.CheckInWindowAfterMinutes)
		}
		if cfg.DefaultCheckInRadiusMeters != 100 {
			t.Fatalf("expected default check-in radius 100, got %v", cfg.DefaultCheckInRadiusMeters)
		}
	})

	t.Run("errors when numeric values are malformed", func(t *testing.T) {
		t.Setenv("SCHEDULER_MAX_QUERY_WINDOW_DAYS", "not-a-number")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for malformed SCHEDULER_MAX_QUERY_WINDOW_DAYS")
		}
	})

	t.Run("parses numeric and address fields", func(t *testing.T) {
		t.Setenv("SCHEDULER_HTTP_ADDR", ":9090")
		t.Setenv("SCHEDULER_SQLITE_DSN", "file:/tmp/session-scheduler.db")
		t.Setenv("SCHEDULER_EVENTBUS_REDIS_ADDR", "redis:6379")
		t.Setenv("SCHEDULER_MAX_QUERY_WINDOW_DAYS", "30")
		t.Setenv("SCHEDULER_CHECKIN_WINDOW_BEFORE_MINUTES", "10")
		t.Setenv("SCHEDULER_CHECKIN_WINDOW_AFTER_MINUTES", "20")
		t.Setenv("SCHEDULER_DEFAULT_CHECKIN_RADIUS_METERS", "250")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPAddr != ":9090" {
			t.Fatalf("unexpected HTTP addr: %q", cfg.HTTPAddr)
		}
		if cfg.SQLiteDSN != "file:/tmp/session-scheduler.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.EventBusRedisAddr != "redis:6379" {
			t.Fatalf("unexpected event bus addr: %q", cfg.EventBusRedisAddr)
		}
		if cfg.MaxQueryWindowDays != 30 {
			t.Fatalf("expected max query window 30, got %d", cfg.MaxQueryWindowDays)
		}
		if cfg.CheckInWindowBeforeMinutes != 10 || cfg.CheckInWindowAfterMinutes != 20 {
			t.Fatalf("expected check-in window 10/20, got %d/%d", cfg.CheckInWindowBeforeMinutes, cfg.CheckInWindowAfterMinutes)
		}
		if cfg.DefaultCheckInRadiusMeters != 250 {
			t.Fatalf("expected check-in radius 250, got %v", cfg.DefaultCheckInRadiusMeters)
		}
	})
}
