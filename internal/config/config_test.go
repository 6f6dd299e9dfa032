package config

import (
	"strings"
	"sync"
	"testing"
	"time"
)

var envMu sync.Mutex

func clearTestEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"SERVER_ADDRESS", "POSTGRES_URL", "APP_ENV", "CARRIER_URL",
		"MAX_RETRIES", "BASE_DELAY_SECONDS", "BATCH_SIZE",
		"SEND_TIMEOUT_SECONDS", "DISPATCH_WORKERS", "SCHED_INTERVAL_SECONDS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_TTL_SECONDS",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadAll_HappyPath_Defaults(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Database.PostgresURL != "postgres://u:p@localhost:5432/db?sslmode=disable" {
		t.Fatalf("unexpected PostgresURL: %q", cfg.Database.PostgresURL)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected Server.Address default: %q", cfg.Server.Address)
	}
	if cfg.Provider.Environment != "development" {
		t.Fatalf("unexpected Environment default: %q", cfg.Provider.Environment)
	}
	if cfg.Dispatch.MaxRetries != 5 {
		t.Fatalf("unexpected MaxRetries default: %d", cfg.Dispatch.MaxRetries)
	}
	if cfg.Dispatch.BaseDelay != 5*time.Minute {
		t.Fatalf("unexpected BaseDelay default: %v", cfg.Dispatch.BaseDelay)
	}
	if cfg.Dispatch.BatchSize != 50 {
		t.Fatalf("unexpected BatchSize default: %d", cfg.Dispatch.BatchSize)
	}
	if cfg.Dispatch.SendTimeout != 10*time.Second {
		t.Fatalf("unexpected SendTimeout default: %v", cfg.Dispatch.SendTimeout)
	}
	if cfg.Dispatch.Workers != 1 {
		t.Fatalf("unexpected Workers default: %d", cfg.Dispatch.Workers)
	}
	if cfg.Scheduler.Interval != 60*time.Second {
		t.Fatalf("unexpected Scheduler.Interval default: %v", cfg.Scheduler.Interval)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("expected Redis disabled when REDIS_ADDR not set")
	}
}

func TestLoadAll_HappyPath_WithRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TTL_SECONDS", "42")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Fatalf("expected Redis enabled")
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Fatalf("unexpected Redis.Address: %q", cfg.Redis.Address)
	}
	if cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected Redis.Password: %q", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("unexpected Redis.DB: %d", cfg.Redis.DB)
	}
	if cfg.Redis.TTL != 42*time.Second {
		t.Fatalf("unexpected Redis.TTL: %v", cfg.Redis.TTL)
	}
}

func TestLoadAll_RequiredEnvMissing(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	_, err := LoadAll()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "POSTGRES_URL") {
		t.Fatalf("expected error mentioning POSTGRES_URL, got: %v", err)
	}
}

func TestLoadAll_ProductionRequiresCarrierURL(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
	t.Setenv("APP_ENV", "production")

	_, err := LoadAll()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CARRIER_URL") {
		t.Fatalf("expected error mentioning CARRIER_URL, got: %v", err)
	}

	t.Setenv("CARRIER_URL", "https://carrier.example.com/send")
	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if cfg.Provider.CarrierURL != "https://carrier.example.com/send" {
		t.Fatalf("unexpected CarrierURL: %q", cfg.Provider.CarrierURL)
	}
}

func TestLoadAll_InvalidInts(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid MAX_RETRIES", "MAX_RETRIES", "abc"},
		{"invalid BASE_DELAY_SECONDS", "BASE_DELAY_SECONDS", "nope"},
		{"invalid BATCH_SIZE", "BATCH_SIZE", "x"},
		{"invalid SCHED_INTERVAL_SECONDS", "SCHED_INTERVAL_SECONDS", "nope"},
		{"invalid REDIS_DB", "REDIS_DB", "bad"},
		{"invalid REDIS_TTL_SECONDS", "REDIS_TTL_SECONDS", "bad"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)

			t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")

			// Enable redis only for redis-related invalid ints.
			if strings.HasPrefix(tc.key, "REDIS_") {
				t.Setenv("REDIS_ADDR", "localhost:6379")
			}

			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.key, err)
			}
		})
	}
}

func TestLoadAll_ValidationFailures(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		name string
		key  string
		want string
	}{
		{"max retries <= 0", "MAX_RETRIES", "MAX_RETRIES"},
		{"batch size <= 0", "BATCH_SIZE", "BATCH_SIZE"},
		{"interval <= 0", "SCHED_INTERVAL_SECONDS", "SCHED_INTERVAL_SECONDS"},
		{"workers <= 0", "DISPATCH_WORKERS", "DISPATCH_WORKERS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)

			t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
			t.Setenv(tc.key, "0")

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.want, err)
			}
		})
	}
}

func TestRequireEnv(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	_, err := requireEnv("MISSING_KEY")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	t.Setenv("FOO", "bar")
	v, err := requireEnv("FOO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "bar" {
		t.Fatalf("expected %q, got %q", "bar", v)
	}
}

func TestGetEnv(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	if got := getEnv("NOPE", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("A", "x")
	if got := getEnv("A", "default"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}
