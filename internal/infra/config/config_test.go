package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.NotifyBroker != BrokerLog {
		t.Fatalf("unexpected drivers %q/%q", cfg.StoreDriver, cfg.NotifyBroker)
	}
	if cfg.MaxNights != 30 || cfg.CancellationCutoff != 2 || cfg.TxRetries != 3 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.StalePendingAfter != 30*24*time.Hour {
		t.Fatalf("stale pending = %s", cfg.StalePendingAfter)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Fatalf("rate limit = %d", cfg.RateLimitPerMinute)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[2] != 30*time.Second {
		t.Fatalf("retry backoff = %v", cfg.RetryBackoff)
	}
}

func TestLoadRequiresDriverSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"mongo without uri", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "postgres"}},
		{"kafka without brokers", map[string]string{"JWT_SECRET": "s", "NOTIFY_BROKER": "kafka"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "cassandra"}},
		{"bad duration", map[string]string{"JWT_SECRET": "s", "TX_BACKOFF": "soon"}},
		{"bad int", map[string]string{"JWT_SECRET": "s", "MAX_NIGHTS": "many"}},
		{"zero cancellation cutoff", map[string]string{"JWT_SECRET": "s", "CANCELLATION_CUTOFF": "0"}},
		{"negative cancellation cutoff", map[string]string{"JWT_SECRET": "s", "CANCELLATION_CUTOFF": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadParsesBrokerList(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("NOTIFY_BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
}

func TestLoadDotEnvKeepsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HTTP_ADDR=:9999\nMAX_NIGHTS=14\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("MAX_NIGHTS", "")
	os.Unsetenv("MAX_NIGHTS")
	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("HTTP_ADDR"); got != ":7000" {
		t.Fatalf("HTTP_ADDR = %q", got)
	}
	if got := os.Getenv("MAX_NIGHTS"); got != "14" {
		t.Fatalf("MAX_NIGHTS = %q", got)
	}
}
