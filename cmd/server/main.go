package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/app"
	"ridedispatch/internal/config"
	"ridedispatch/internal/events"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/payments"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository/postgres"
	"ridedispatch/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
		logger.Info("publishing trip transitions to kafka", "topic", cfg.Kafka.Topic)
	} else {
		publisher = events.NewLogPublisher(logger)
	}
	defer publisher.Close()

	server := wireServer(db, redisClient, nrApp, publisher, logger, cfg)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// gateways returns the configured payment gateways. An unconfigured gateway
// is a nil interface, which disables its endpoints.
func gateways(cfg config.PaymentsConfig, logger *slog.Logger) (service.RazorpayGateway, service.StripeGateway) {
	var (
		rzp service.RazorpayGateway
		stp service.StripeGateway
	)
	if client, err := payments.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret); err == nil {
		rzp = client
		logger.Info("razorpay gateway enabled")
	}
	if client, err := payments.NewStripeClient(cfg.StripeSecretKey); err == nil {
		stp = client
		logger.Info("stripe gateway enabled")
	}
	return rzp, stp
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg *config.Config,
) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Dispatch.PolicyCacheTTL)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient, cfg.Dispatch.IdempotencyTTL)

	// Initialize repositories.
	store := postgres.NewStore(db)
	reports := store.ReportRepository()

	// Initialize services.
	notificationService := service.NewNotificationService(logger)
	mutator := service.NewTripMutator(store, lockStore, cfg.Dispatch.LockTTL, publisher, notificationService, logger)
	policyService := service.NewPolicyService(store, cacheStore, cfg.Commission.Default, logger)
	bookingService := service.NewBookingService(store, policyService, notificationService, cfg.Dispatch.HourlyRate, logger)
	tripService := service.NewTripService(mutator)
	rzp, stp := gateways(cfg.Payments, logger)
	paymentService := service.NewPaymentService(mutator, store, rzp, stp, cfg.Payments.Currency, logger)
	receiptService := service.NewReceiptService(mutator, notificationService)
	reportService := service.NewReportService(reports)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookingService, tripService, receiptService),
		TripHandler:    handler.NewTripHandler(tripService),
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		PolicyHandler:  handler.NewPolicyHandler(policyService),
		ReportHandler:  handler.NewReportHandler(reportService),
		Idempotency:    idempotencyStore,
		NewRelicApp:    nrApp,
		Logger:         logger,
		CORSOrigins:    cfg.Server.CORSOrigins,
		DefaultTenant:  cfg.Dispatch.DefaultTenant,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
