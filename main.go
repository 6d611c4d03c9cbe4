package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/applog"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/config"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/database"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/handlers"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/idempotency"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/metrics"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/middleware"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/session"
	"github.com/J0hnMilt0n/dojo-republic-sub001/pkg/kafka"
	"github.com/J0hnMilt0n/dojo-republic-sub001/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Deps are the collaborators NewApp wires into the HTTP layer. Only Store is
// required.
type Deps struct {
	Store     repositories.Store
	Publisher events.Publisher
	Guard     idempotency.Guard
	Metrics   *metrics.Metrics
	// Denylist holds revoked sessions; an in-process one is used when nil.
	Denylist  session.Denylist
	Logger    *zap.Logger
	// AccessLog enables the per request log line.
	AccessLog bool
}

// NewApp builds the Fiber application with every route registered.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	logger := applog.OrNop(deps.Logger)

	app := fiber.New(fiber.Config{
		AppName: cfg.ServiceName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				msg = e.Message
			} else {
				logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"message": msg,
			})
		},
	})

	middleware.Setup(app, middleware.Options{
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    deps.AccessLog,
	})

	// --- Services ---
	orderCfg := services.OrderServiceConfig{
		DefaultCommissionRate: &cfg.DefaultCommissionRate,
		Publisher:             deps.Publisher,
		Guard:                 deps.Guard,
		Metrics:               deps.Metrics,
		Logger:                logger,
		Producer:              cfg.ServiceName,
	}
	authService := services.NewAuthService(deps.Store.Users(), cfg.JWTSecret, cfg.SessionTTL, logger)
	if deps.Denylist == nil {
		deps.Denylist = session.NewMemoryDenylist()
	}
	authService.UseDenylist(deps.Denylist)
	sellerService := services.NewSellerService(deps.Store.Sellers(), logger)
	productService := services.NewProductService(deps.Store.Products(), deps.Store.Sellers())
	orderService := services.NewOrderService(deps.Store, orderCfg)
	paymentService := services.NewPaymentService(deps.Store, cfg.PaymentSecret, orderCfg)

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService, cfg.SessionCookieName, logger)

	handlers.NewAuthHandler(authService, cfg.SessionCookieName, cfg.SessionCookieSecure, logger).RegisterRoutes(apiV1, auth)
	handlers.NewSellerHandler(sellerService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(apiV1, auth)
	handlers.NewPaymentHandler(paymentService, logger).RegisterRoutes(apiV1, auth)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"time":      time.Now().UTC().Format(time.RFC3339),
			"event_bus": cfg.EventBus,
		})
	})

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	return app
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	store := repositories.NewGORMStore(db)

	if cfg.DatabaseDriver == database.DriverSQLite {
		if err := seedDemoData(ctx, store, logger); err != nil {
			logger.Warn("failed to seed demo data", zap.Error(err))
		}
	}

	// --- Event bus ---
	deps := Deps{
		Store:     store,
		Publisher: events.NopPublisher{},
		Metrics:   metrics.New(),
		Logger:    logger,
		AccessLog: true,
	}
	switch cfg.EventBus {
	case config.EventBusRabbitMQ:
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Logger: logger})
		if err != nil {
			return err
		}
		defer mqClient.Close()
		deps.Publisher = events.NewRabbitPublisher(mqClient)

		// The consumer turns order events into seller notifications.
		if err := mqClient.ConsumeOrderEvents(orderEventHandler(logger)); err != nil {
			logger.Error("failed to start RabbitMQ consumer", zap.Error(err))
		}
	case config.EventBusKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		deps.Publisher = events.NewKafkaPublisher(producer)
		logger.Info("publishing order events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	// --- Idempotency ---
	if cfg.RedisAddr != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("checkout idempotency disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.Guard = idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)
			deps.Denylist = session.NewRedisDenylist(rdb)
		}
	}

	app := NewApp(cfg, deps)

	// --- Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.AppPort))
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
	return nil
}
