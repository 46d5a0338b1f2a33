package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zm-collect/service-booking/internal/application"
	"github.com/zm-collect/service-booking/internal/config"
	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/domain/slot"
	bookingEvents "github.com/zm-collect/service-booking/internal/events"
	"github.com/zm-collect/service-booking/internal/handler"
	"github.com/zm-collect/service-booking/internal/municipality"
	"github.com/zm-collect/service-booking/internal/platform/database"
	"github.com/zm-collect/service-booking/internal/platform/health"
	"github.com/zm-collect/service-booking/internal/platform/kafka"
	"github.com/zm-collect/service-booking/internal/platform/logger"
	"github.com/zm-collect/service-booking/internal/platform/middleware"
	"github.com/zm-collect/service-booking/internal/repository"
	"github.com/zm-collect/service-booking/internal/repository/memory"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	policy := slot.CapacityPolicy{
		Default:   cfg.Booking.DefaultCapacity,
		Overrides: cfg.Booking.CapacityOverrides,
	}

	// Initialize storage
	var (
		bookingRepo bookingDomain.Repository
		ledger      slot.Ledger
		pinger      health.Pinger
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dbConfig := database.PostgresConfig{
			Host:            cfg.DBConfig.Host,
			Port:            cfg.DBConfig.Port,
			User:            cfg.DBConfig.User,
			Password:        cfg.DBConfig.Password,
			DBName:          cfg.DBConfig.DBName,
			SSLMode:         cfg.DBConfig.SSLMode,
			MaxOpenConns:    cfg.DBConfig.MaxOpenConns,
			MaxIdleConns:    cfg.DBConfig.MaxIdleConns,
			ConnMaxLifetime: cfg.DBConfig.ConnMaxLifetime,
		}
		db, err := database.Connect(dbConfig, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}

		// Run database migrations
		if cfg.AppEnv == "development" {
			if err := db.AutoMigrate(repository.Models()...); err != nil {
				log.Fatal("failed to run auto-migration", zap.Error(err))
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.DBConfig.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal("failed to get sql.DB", zap.Error(err))
		}
		defer func() { _ = sqlDB.Close() }()

		bookingRepo = repository.NewGormBookingRepository(db, cfg.Booking.LockWait)
		ledger = repository.NewGormSlotLedger(db, policy)
		pinger = sqlDB
	default:
		bookingRepo = memory.NewBookingStore(cfg.Booking.LockWait)
		ledger = memory.NewSlotLedger(policy)
	}

	// Initialize municipality registry
	registry := municipality.NewRegistry(cfg.Municipalities.Names, cfg.Municipalities.Blacklist)
	if cfg.Municipalities.SourceURL != "" {
		fetchCtx, fetchCancel := context.WithTimeout(context.Background(), 10*time.Second)
		names, err := municipality.Fetch(fetchCtx, &http.Client{Timeout: 10 * time.Second}, cfg.Municipalities.SourceURL)
		fetchCancel()
		if err != nil {
			log.Warn("failed to fetch municipalities, using configured list",
				zap.String("url", cfg.Municipalities.SourceURL),
				zap.Error(err),
			)
		} else {
			registry.Merge(names)
			log.Info("municipalities fetched", zap.Int("count", len(names)))
		}
	}

	// Initialize event publisher
	var publisher application.EventPublisher = bookingEvents.NoopPublisher{}
	var kafkaProducer *kafka.Producer
	if cfg.KafkaConfig.Enabled() {
		kafkaProducer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = bookingEvents.NewKafkaPublisher(kafkaProducer)
	} else {
		log.Info("no kafka brokers configured, events disabled")
	}

	// Initialize application service
	bookingService := application.NewBookingService(
		bookingRepo,
		ledger,
		registry,
		bookingDomain.UUIDTokenGenerator{},
		publisher,
		application.Rules{
			MinLeadDays:    cfg.Booking.MinLeadDays,
			RejectWeekends: cfg.Booking.RejectWeekends,
			Location:       cfg.Booking.Location,
			RetryDelay:     cfg.Booking.RetryDelay,
		},
		log,
	)

	// Initialize and start crew event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.KafkaConfig.Enabled() {
		groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
		crewConsumer := bookingEvents.NewCrewEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			bookingService,
			log,
		)
		defer func() { _ = crewConsumer.Close() }()

		go func() {
			log.Info("starting crew event consumer", zap.String("group", groupID))
			if err := crewConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("crew event consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	staffHandler := handler.NewStaffBookingHandler(bookingService)

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(pinger, serviceName).RegisterRoutes(router)

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup)
	staffHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
