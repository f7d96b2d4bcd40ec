package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	BrokerLog      = "log"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	StoreDriver  string
	MongoURI     string
	MongoDB      string
	SQLDSN       string
	SQLIsolation string

	NotifyBroker     string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	RabbitMQURL      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	MaxNights          int
	CancellationCutoff int
	TxRetries          int
	TxBackoff          time.Duration
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	SweepInterval      time.Duration
	StalePendingAfter  time.Duration
	RateLimitPerMinute int
	ListingsFixtures   string
}

// LoadDotEnv reads .env files when present. Variables already set in the
// process environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staybook"),
		SQLDSN:           os.Getenv("SQL_DSN"),
		SQLIsolation:     getEnv("SQL_ISOLATION", "serializable"),
		NotifyBroker:     strings.ToLower(getEnv("NOTIFY_BROKER", BrokerLog)),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ListingsFixtures: os.Getenv("LISTINGS_FIXTURES"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"MAX_NIGHTS", 30, &cfg.MaxNights},
		{"CANCELLATION_CUTOFF", 2, &cfg.CancellationCutoff},
		{"TX_RETRIES", 3, &cfg.TxRetries},
		{"RATE_LIMIT_PER_MINUTE", 100, &cfg.RateLimitPerMinute},
	}
	for _, item := range ints {
		if *item.dst, err = parseIntEnv(item.key, item.def); err != nil {
			return Config{}, err
		}
	}
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"TX_BACKOFF", 20 * time.Millisecond, &cfg.TxBackoff},
		{"IDEMP_TTL", 24 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"SWEEP_INTERVAL", time.Hour, &cfg.SweepInterval},
		{"STALE_PENDING_AFTER", 30 * 24 * time.Hour, &cfg.StalePendingAfter},
	}
	for _, item := range durations {
		if *item.dst, err = parseDurationEnv(item.key, item.def); err != nil {
			return Config{}, err
		}
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	case DriverPostgres, DriverMySQL:
		if c.SQLDSN == "" {
			return fmt.Errorf("SQL_DSN is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.NotifyBroker {
	case BrokerLog:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for NOTIFY_BROKER=kafka")
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for NOTIFY_BROKER=rabbitmq")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BROKER %q", c.NotifyBroker)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxNights < 1 {
		return fmt.Errorf("MAX_NIGHTS must be positive")
	}
	if c.CancellationCutoff < 1 {
		return fmt.Errorf("CANCELLATION_CUTOFF must be at least 1 day")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
