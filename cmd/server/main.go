package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/belmonthotel/service-reservation/internal/adapter"
	"github.com/belmonthotel/service-reservation/internal/application"
	"github.com/belmonthotel/service-reservation/internal/auth"
	"github.com/belmonthotel/service-reservation/internal/clock"
	"github.com/belmonthotel/service-reservation/internal/config"
	"github.com/belmonthotel/service-reservation/internal/database"
	reservationEvents "github.com/belmonthotel/service-reservation/internal/events"
	"github.com/belmonthotel/service-reservation/internal/handler"
	"github.com/belmonthotel/service-reservation/internal/health"
	"github.com/belmonthotel/service-reservation/internal/kafka"
	"github.com/belmonthotel/service-reservation/internal/logger"
	"github.com/belmonthotel/service-reservation/internal/middleware"
	"github.com/belmonthotel/service-reservation/internal/queue"
	"github.com/belmonthotel/service-reservation/internal/repository"
	"github.com/belmonthotel/service-reservation/internal/saga"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-reservation")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-reservation",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.RoomModel{},
			&repository.ReservationModel{},
			&repository.PaymentModel{},
			&repository.PromoModel{},
			&repository.PromoUsageModel{},
			&repository.LedgerEntryModel{},
			&repository.QueueEntryModel{},
		); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize invoice gateway (mock provider for development)
	invoiceGateway := adapter.NewMockInvoiceGateway(zapLogger)

	// Initialize repositories
	roomRepo := repository.NewRoomRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	queueRepo := repository.NewQueueRepository(db)

	sysClock := clock.NewSystem()

	// Initialize the per-room booking serializer
	serializer := queue.NewSerializer(queueRepo, zapLogger)

	// Initialize saga and event plumbing
	sagaService := saga.NewReservationSagaService(
		roomRepo, reservationRepo, paymentRepo, promoRepo, ledgerRepo,
		invoiceGateway, sysClock, cfg.Currency, cfg.InvoiceTTL, zapLogger,
	)
	publisher := reservationEvents.NewPublisher(kafkaProducer, zapLogger)

	// Initialize application services
	reservationService := application.NewReservationService(
		reservationRepo, roomRepo, paymentRepo, promoRepo,
		sagaService, serializer, invoiceGateway, publisher,
		sysClock, cfg.InvoiceTTL, zapLogger,
	)
	promoService := application.NewPromoService(promoRepo, sysClock, zapLogger)
	roomService := application.NewRoomService(roomRepo, ledgerRepo, zapLogger)
	paymentService := application.NewPaymentService(
		paymentRepo, reservationRepo, promoService, sagaService, serializer,
		invoiceGateway, publisher, sysClock,
		application.ReconcilePolicy{RetryWindow: cfg.ReconcileConfig.RetryWindow},
		cfg.InvoiceTTL, zapLogger,
	)

	// Initialize Kafka consumer for provider invoice events
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "-reservation-service"
	providerConsumer := kafka.NewConsumer(cfg.KafkaConfig.Brokers, consumerGroupID, reservationEvents.TopicProviderEvents, zapLogger)
	defer providerConsumer.Close()

	eventConsumer := reservationEvents.NewProviderEventConsumer(providerConsumer, paymentService, zapLogger)

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting provider event consumer")
		if err := eventConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("provider event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	reservationHandler := handler.NewReservationHandler(reservationService, paymentService)
	roomHandler := handler.NewRoomHandler(roomService)
	promoHandler := handler.NewPromoHandler(promoService)
	webhookHandler := handler.NewWebhookHandler(paymentService, zapLogger)
	adminHandler := handler.NewAdminHandler(reservationService, roomService, promoService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-reservation")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	reservationHandler.RegisterRoutes(apiV1, jwtManager)
	roomHandler.RegisterRoutes(apiV1)
	promoHandler.RegisterRoutes(apiV1, jwtManager)
	webhookHandler.RegisterRoutes(apiV1)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

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
		zapLogger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-reservation...")

	// Stop the Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	// Let in-flight bookings drain off the serializer
	serializer.Wait()

	zapLogger.Info("service-reservation stopped")
}
