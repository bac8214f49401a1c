package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/handlers"
	"gccpay-gateway/internal/kafka"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/middleware"
	rediswrap "gccpay-gateway/internal/redis"
	"gccpay-gateway/internal/services"
	"gccpay-gateway/internal/storage"

	"github.com/gin-gonic/gin"
)

// Global logger instance
var log *logger.Logger

func main() {
	log = logger.NewLogger()
	defer log.Close()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "GCCPay gateway starting up...")
	log.Info("SYSTEM", "Initializing components...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", "Invalid configuration: "+err.Error())
	}
	log.Info("CONFIG", "Configuration loaded successfully")

	log.LogProcess("DATABASE", "Initializing MySQL database...")
	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
	}
	defer store.Close()
	log.LogDatabase("INIT", "mysql", "MySQL storage initialized successfully")

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()
	log.LogKafka("INIT", "producer", "Kafka producer initialized successfully")

	var confirmLock services.ConfirmLock
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		confirmLock = rediswrap.NewRedis(redisClient)
		log.LogProcess("SERVICE", "Redis confirmation lock enabled")
	} else {
		log.Warn("SERVICE", "REDIS_ADDR not set, confirmation lock disabled (store CAS still applies)")
	}

	// Initialize GCCPay client and services
	gccpayClient := gccpay.NewClient(cfg.GCCPay, nil, log)
	sessionBuilder := gccpay.NewSessionBuilder(cfg.Shop.BaseCountry)
	log.LogProcess("SERVICE", "GCCPay client initialized ("+cfg.GCCPay.Environment+")")

	checkoutService := services.NewCheckoutService(store, gccpayClient, sessionBuilder,
		kafkaProducer, confirmLock, cfg.Shop, cfg.GCCPay.CheckoutInteraction, log)
	refundService := services.NewRefundService(store, gccpayClient, kafkaProducer, log)
	log.LogProcess("SERVICE", "Checkout and refund services initialized")

	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	refundHandler := handlers.NewRefundHandler(refundService)
	log.LogProcess("HANDLER", "All handlers initialized")

	// Start order consumer in background
	log.LogProcess("KAFKA", "Initializing order consumer...")
	orderConsumer, err := kafka.NewOrderConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		log.Warn("KAFKA", "Order consumer unavailable: "+err.Error())
	} else {
		defer orderConsumer.Close()
		go func() {
			log.LogKafka("START", "consumer", "Starting order consumer goroutine")
			if err := orderConsumer.ConsumeOrders(context.Background(), checkoutService.IngestOrder); err != nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	router := setupRouter(checkoutHandler, refundHandler)
	log.LogProcess("ROUTER", "HTTP router configured")

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on "+cfg.Server.Port)
		log.Info("STARTUP", "GCCPay gateway is ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "GCCPay gateway shutdown completed successfully")
}

func setupRouter(checkoutHandler *handlers.CheckoutHandler, refundHandler *handlers.RefundHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "gccpay-gateway",
			"version":   "1.0.0",
		})
	})

	// Shopper-facing checkout flow
	checkout := router.Group("/checkout")
	{
		checkout.GET("/pay/:order_id", checkoutHandler.ReceiptPage)
		checkout.GET("/return", checkoutHandler.Return)
		checkout.GET("/notify", checkoutHandler.Notify)
	}

	// API routes for the surrounding platform
	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout/process", checkoutHandler.ProcessPayment)
		v1.POST("/checkout/refund", refundHandler.RefundPayment)
		v1.GET("/orders/:id/payment", checkoutHandler.GetPaymentStatus)
	}

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
