package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/reservations"
	"staybook/internal/app/schedule"
	"staybook/internal/app/uow"
	"staybook/internal/infra/auth"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/broker/logsink"
	"staybook/internal/infra/broker/rabbitmq"
	rediscache "staybook/internal/infra/cache/redis"
	"staybook/internal/infra/config"
	mongostore "staybook/internal/infra/db/mongo"
	sqlstore "staybook/internal/infra/db/sql"
	"staybook/internal/infra/fixtures"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("dotenv load failed", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	if cfg.ListingsFixtures != "" {
		n, err := fixtures.LoadFile(ctx, cfg.ListingsFixtures, store.seeder)
		if err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
		} else {
			logger.Info("listing fixtures loaded", "count", n, "path", cfg.ListingsFixtures)
		}
	}

	idempotency := store.idempotency
	var limiter ginserver.RateLimiter
	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer client.Close()
			idempotency = rediscache.IdempotencyStore{Client: client}
			limiter = rediscache.FixedWindowLimiter{Client: client, Limit: cfg.RateLimitPerMinute, Window: time.Minute}
			store.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	svc := reservations.New(reservations.Options{
		Factory:           store.factory,
		Idempotency:       idempotency,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		MaxNights:         cfg.MaxNights,
		CutoffDays:        cfg.CancellationCutoff,
		TxRetries:         cfg.TxRetries,
		TxBackoff:         cfg.TxBackoff,
		StalePendingAfter: cfg.StalePendingAfter,
		EventHeaders:      requestHeaders,
		Logger:            logger,
	})

	producer, err := openProducer(cfg, logger)
	if err != nil {
		logger.Error("broker init failed", "broker", cfg.NotifyBroker, "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	worker := &outbox.Worker{
		Relay:       store.relay,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "staybook",
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	runner := &schedule.Runner{Jobs: sweepJobs(svc, cfg, store), Logger: logger}
	go func() { _ = runner.Run(ctx) }()

	tokens := auth.Tokens{Secret: []byte(cfg.JWTSecret)}
	handlers := ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Service: svc, Logger: logger},
		Listing:        ginserver.ListingHandler{Service: svc, Logger: logger},
		Admin:          ginserver.AdminHandler{Service: svc, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Tokens: tokens, Logger: logger}.Handle,
	}
	if limiter != nil {
		handlers.RateLimit = ginserver.RateLimit(limiter, logger)
	}
	server := ginserver.NewServer(
		ginserver.ServerConfig{Env: cfg.Env, Addr: cfg.HTTPAddr},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{Checks: store.checks},
		handlers,
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "broker", cfg.NotifyBroker)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func requestHeaders(ctx context.Context) map[string]string {
	return map[string]string{"request_id": obs.RequestIDFromContext(ctx)}
}

type storeBundle struct {
	factory     uow.UoWFactory
	relay       appoutbox.Relay
	seeder      fixtures.Sink
	idempotency middleware.IdempotencyStore
	checks      map[string]obs.Check
	purge       func(ctx context.Context, now time.Time) error
	close       func()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storeBundle, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storeBundle{}, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			return storeBundle{}, err
		}
		return storeBundle{
			factory:     mongostore.Factory{DB: client.DB},
			relay:       mongostore.NewOutboxStore(client.DB),
			seeder:      mongostore.NewSeeder(client.DB),
			idempotency: mongostore.NewIdempotencyStore(client.DB),
			checks:      map[string]obs.Check{"mongo": client.Ping},
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Close(closeCtx)
			},
		}, nil
	case config.DriverPostgres, config.DriverMySQL:
		db, err := sqlstore.Open(cfg.StoreDriver, cfg.SQLDSN)
		if err != nil {
			return storeBundle{}, err
		}
		if err := sqlstore.Migrate(db); err != nil {
			return storeBundle{}, err
		}
		isolation, err := sqlstore.ParseIsolation(cfg.SQLIsolation)
		if err != nil {
			return storeBundle{}, err
		}
		idem := &sqlstore.IdempotencyStore{DB: db}
		return storeBundle{
			factory:     sqlstore.Factory{DB: db, Isolation: isolation},
			relay:       sqlstore.NewRelay(db),
			seeder:      sqlstore.Seeder{DB: db},
			idempotency: idem,
			checks:      map[string]obs.Check{cfg.StoreDriver: func(ctx context.Context) error { return sqlstore.Ping(ctx, db) }},
			purge: func(ctx context.Context, now time.Time) error {
				n, err := idem.PurgeExpired(ctx, now)
				if n > 0 {
					logger.DebugContext(ctx, "idempotency keys purged", "count", n)
				}
				return err
			},
			close: func() { _ = sqlstore.Close(db) },
		}, nil
	}
	store := memory.NewStore()
	logger.Warn("using in-memory store; data is lost on restart")
	return storeBundle{
		factory:     memory.Factory{Store: store},
		relay:       store,
		seeder:      store,
		idempotency: memory.NewIdempotencyStore(),
		checks:      map[string]obs.Check{"memory": store.Ping},
		close:       func() {},
	}, nil
}

type producer interface {
	outbox.Producer
	Close() error
}

func openProducer(cfg config.Config, logger *slog.Logger) (producer, error) {
	switch cfg.NotifyBroker {
	case config.BrokerKafka:
		return kafka.NewProducer(cfg.KafkaBrokers, "staybook", nil)
	case config.BrokerRabbitMQ:
		return rabbitmq.NewProducer(cfg.RabbitMQURL, rabbitmq.DefaultExchange)
	}
	return logsink.Producer{Logger: logger}, nil
}

func sweepJobs(svc *reservations.Service, cfg config.Config, store storeBundle) []schedule.Job {
	jobs := []schedule.Job{
		{
			Name:     "completion-sweep",
			Interval: cfg.SweepInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := svc.RunCompletionSweep(ctx, now)
				return err
			},
		},
		{
			Name:     "stale-pending-expiry",
			Interval: cfg.SweepInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := svc.ExpireStalePending(ctx, now)
				return err
			},
		},
	}
	if store.purge != nil {
		jobs = append(jobs, schedule.Job{Name: "idempotency-purge", Interval: cfg.SweepInterval, Run: store.purge})
	}
	return jobs
}
