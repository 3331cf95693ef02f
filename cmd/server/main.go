package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/application"
	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/config"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	reservationEvents "github.com/parkwise/service-reservation/internal/events"
	"github.com/parkwise/service-reservation/internal/handler"
	"github.com/parkwise/service-reservation/internal/lock"
	"github.com/parkwise/service-reservation/internal/notify"
	"github.com/parkwise/service-reservation/internal/payments"
	"github.com/parkwise/service-reservation/internal/platform/auth"
	"github.com/parkwise/service-reservation/internal/platform/database"
	"github.com/parkwise/service-reservation/internal/platform/health"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
	"github.com/parkwise/service-reservation/internal/platform/logger"
	"github.com/parkwise/service-reservation/internal/platform/middleware"
	"github.com/parkwise/service-reservation/internal/repository"
	"github.com/parkwise/service-reservation/internal/scheduler"
)

const serviceName = "service-reservation"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewWithFile(cfg.AppEnv, serviceName, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-reservation",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations. The overlap constraint only exists in SQL, so
	// every environment migrates the same way.
	if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Connect to Redis when configured; without it locks and rate limits stay in process
	var rdb *redis.Client
	locks := lock.NewKeyedMutex()
	var locker application.Locker = locks
	if cfg.RedisConfig.URL != "" {
		opts, err := redis.ParseURL(cfg.RedisConfig.URL)
		if err != nil {
			log.Fatal("invalid redis url", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		locker = lock.NewLayered(locks, lock.NewRedisLocker(rdb, 10*time.Second))
		log.Info("redis connected, using distributed locks")
	}

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	publisher := reservationEvents.NewPublisher(kafkaProducer)

	// Initialize notifiers
	notifiers := notify.Fanout{notify.NewKafkaNotifier(kafkaProducer)}
	if cfg.SMTP.Host != "" && cfg.OpsMailbox != "" {
		notifiers = append(notifiers, notify.NewOpsMailNotifier(cfg.SMTP, cfg.OpsMailbox, log))
	} else {
		log.Warn("ops mailbox not configured, refund review mails disabled")
	}

	// Initialize payments collaborator
	if cfg.Razorpay.KeyID == "" {
		log.Warn("razorpay keys not configured, refund execution will fail until they are set")
	}
	collaborator := payments.NewRazorpayCollaborator(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)

	// Initialize repositories
	clk := clock.NewSystem()
	txManager := repository.NewTxManager(db)
	reservationRepo := repository.NewGormReservationRepository(db)
	resourceRepo := repository.NewGormResourceRepository(db, cfg.Engine.LockWait)
	paymentRepo := repository.NewGormPaymentRepository(db)
	refundRepo := repository.NewGormRefundRequestRepository(db)

	// Initialize application services
	pricingStrategy := reservation.NewStandardPricingStrategy(cfg.Engine.PlatformFeePercent)
	admission := application.NewAdmissionController(
		reservationRepo,
		resourceRepo,
		pricingStrategy,
		locker,
		txManager,
		clk,
		cfg.Engine,
		log,
	)
	refundService := application.NewRefundService(
		refundRepo,
		reservationRepo,
		resourceRepo,
		paymentRepo,
		collaborator,
		txManager,
		clk,
		notifiers,
		publisher,
		log,
	)
	reservationService := application.NewReservationService(
		admission,
		reservationRepo,
		refundService,
		txManager,
		notifiers,
		publisher,
		cfg.Engine,
		log,
	)
	lifecycleService := application.NewLifecycleService(reservationRepo, notifiers, publisher, cfg.Engine, log)
	projectionService := application.NewProjectionService(resourceRepo, paymentRepo, clk, log)

	// Start event consumers and the sweep scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentConsumer := reservationEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"reservation-service-payments",
		projectionService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	listingConsumer := reservationEvents.NewListingEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"reservation-service-listings",
		projectionService,
		log,
	)
	defer func() { _ = listingConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting listing event consumer")
		if err := listingConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("listing event consumer error", zap.Error(err))
		}
	}()

	sweepRunner := scheduler.NewRunner(lifecycleService, locker, clk, cfg.SweepInterval, log)
	go sweepRunner.Start(ctx)

	// Initialize HTTP handlers
	createLimit, err := middleware.NewRateLimiter(rdb, "create_reservation", cfg.CreateRateLimit)
	if err != nil {
		log.Fatal("failed to create rate limiter", zap.Error(err))
	}
	reservationHandler := handler.NewReservationHandler(reservationService, refundService, clk, createLimit)
	adminHandler := handler.NewAdminHandler(reservationService, refundService, lifecycleService, clk)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	reservationHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-reservation...")

	// Stop consumers and the scheduler
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-reservation stopped")
}
