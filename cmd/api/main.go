package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AkashMedishetty/bloodalert/internal/audit"
	"github.com/AkashMedishetty/bloodalert/internal/campaign"
	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/config"
	"github.com/AkashMedishetty/bloodalert/internal/dispatch"
	"github.com/AkashMedishetty/bloodalert/internal/facility"
	"github.com/AkashMedishetty/bloodalert/internal/finder"
	"github.com/AkashMedishetty/bloodalert/internal/handler"
	"github.com/AkashMedishetty/bloodalert/internal/infra/postgresql"
	"github.com/AkashMedishetty/bloodalert/internal/infra/postgresql/migrations"
	infraredis "github.com/AkashMedishetty/bloodalert/internal/infra/redis"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
	"github.com/AkashMedishetty/bloodalert/internal/queue"
	"github.com/AkashMedishetty/bloodalert/internal/ratelimit"
	"github.com/AkashMedishetty/bloodalert/internal/retry"
	"github.com/AkashMedishetty/bloodalert/internal/transport"
	"github.com/AkashMedishetty/bloodalert/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit trail is optional: without a DSN every sink call is a no-op.
	var (
		auditSink audit.Sink = audit.Nop{}
		sqlDB     *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err = db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()
		auditSink = audit.NewGormSink(db, logger)
	} else {
		logger.Warn("DATABASE_DSN not set, audit trail disabled")
	}

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	var limiter ratelimit.RateLimiter
	limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher, err := queue.NewRabbitMQPublisher(rabbit)
	if err != nil {
		logger.Fatal("publisher initialization failed", zap.Error(err))
	}
	consumer, err := queue.NewRabbitMQConsumer(rabbit, logger)
	if err != nil {
		logger.Fatal("consumer initialization failed", zap.Error(err))
	}

	donors, err := finder.NewHTTPFinder(cfg.DonorMatchURL)
	if err != nil {
		logger.Fatal("donor finder initialization failed", zap.Error(err))
	}

	var contacts facility.ContactSink = facility.Nop{}
	if cfg.FacilityGatewayURL != "" {
		sink, err := facility.NewHTTPSink(cfg.FacilityGatewayURL, logger)
		if err != nil {
			logger.Fatal("facility sink initialization failed", zap.Error(err))
		}
		contacts = sink
	}

	adapters, err := buildAdapters(cfg)
	if err != nil {
		logger.Fatal("channel adapter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	store := campaign.NewStore()

	escalator, err := campaign.NewEscalator(store, donors, publisher, contacts, logger)
	if err != nil {
		logger.Fatal("escalator initialization failed", zap.Error(err))
	}
	escalator.SetMetrics(metrics)

	coordinator, err := campaign.NewCoordinator(store, donors, publisher, contacts, auditSink, escalator, logger)
	if err != nil {
		logger.Fatal("coordinator initialization failed", zap.Error(err))
	}
	coordinator.SetMetrics(metrics)

	// Dispatcher and retry queue reference each other through closures: the
	// dispatcher enqueues exhausted deliveries, the queue redelivers through
	// the dispatcher.
	var dispatcher *dispatch.Dispatcher
	retryQueue := retry.NewQueue(
		func(ctx context.Context, task retry.Task) error {
			return dispatcher.Redeliver(ctx, task)
		},
		store.Status,
		logger,
		retry.WithMaxRetries(cfg.MaxRetries),
		retry.WithBaseDelay(time.Duration(cfg.RetryBaseDelayMS)*time.Millisecond),
		retry.WithInterval(time.Duration(cfg.RetryScanIntervalS)*time.Second),
		retry.WithMetrics(metrics),
	)

	dispatcher, err = dispatch.NewDispatcher(adapters, coordinator, limiter, retryQueue, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	workers, err := worker.NewService(consumer, dispatcher, store.Status, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("worker pool initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterCampaignRoutes(app, coordinator); err != nil {
		logger.Fatal("failed to register campaign routes", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		return workers.Start(groupCtx)
	})
	g.Go(func() error {
		return retryQueue.Start(groupCtx)
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("engine stopped with error", zap.Error(err))
	}
	logger.Info("engine stopped")
}

func buildAdapters(cfg *config.Config) ([]channel.Adapter, error) {
	push, err := channel.NewPushAdapter(cfg.PushGatewayURL)
	if err != nil {
		return nil, err
	}
	whatsapp, err := channel.NewWhatsAppAdapter(cfg.WhatsAppGatewayURL)
	if err != nil {
		return nil, err
	}
	sms, err := channel.NewSMSAdapter(cfg.SMSGatewayURL)
	if err != nil {
		return nil, err
	}
	email, err := channel.NewEmailAdapter(cfg.EmailGatewayURL)
	if err != nil {
		return nil, err
	}
	return []channel.Adapter{push, whatsapp, sms, email}, nil
}
