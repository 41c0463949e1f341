package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"routelynk/internal/config"
	"routelynk/internal/handlers"
	"routelynk/internal/kafka"
	"routelynk/internal/logger"
	"routelynk/internal/middleware"
	"routelynk/internal/models"
	"routelynk/internal/monitoring"
	rediswrap "routelynk/internal/redis"
	"routelynk/internal/services"
	"routelynk/internal/storage"
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

	log.LogProcess("STARTUP", "RouteLynk marketplace starting up...")
	log.Info("SYSTEM", "Initializing components...")

	cfg := config.Load()
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	redisWrap := rediswrap.NewRedis(redisClient)
	log.LogProcess("SERVICE", "Redis client initialized")

	monitor := monitoring.NewMonitor()

	// Initialize services
	tokenService := services.NewTokenService(store, cfg.Auth, log)
	catalogService := services.NewCatalogService(store, kafkaProducer, log, monitor)
	bookingService := services.NewBookingService(store, kafkaProducer, redisWrap, log, monitor)
	statsService := services.NewStatsService(store, log)
	log.LogProcess("SERVICE", "Marketplace services initialized")

	stripeService, err := services.NewStripeService(cfg.StripeCurrency, log)
	if err != nil {
		log.Fatal("STRIPE", "Failed to initialize Stripe service: "+err.Error())
	}
	log.LogProcess("SERVICE", "Stripe service initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(tokenService)
	userHandler := handlers.NewUserHandler(store, catalogService)
	ticketHandler := handlers.NewTicketHandler(catalogService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paymentHandler := handlers.NewPaymentHandler(bookingService, stripeService)
	statsHandler := handlers.NewStatsHandler(statsService)
	log.LogProcess("HANDLER", "All handlers initialized")

	router := setupRouter(store, redisWrap, tokenService,
		authHandler, userHandler, ticketHandler, bookingHandler, paymentHandler, statsHandler)
	log.LogProcess("ROUTER", "HTTP router configured")

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "🚀 RouteLynk is ready to accept requests!")
		log.Info("STARTUP", "📊 Health check available at: http://localhost:"+cfg.Server.Port+"/health")
		log.Info("STARTUP", "🎫 Ticket API available at: http://localhost:"+cfg.Server.Port+"/tickets")

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

	log.Info("SHUTDOWN", "✅ RouteLynk shutdown completed successfully")
}

func setupRouter(store storage.Store, redisWrap *rediswrap.Redis, tokenService *services.TokenService,
	authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler, ticketHandler *handlers.TicketHandler,
	bookingHandler *handlers.BookingHandler, paymentHandler *handlers.PaymentHandler, statsHandler *handlers.StatsHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.RateLimit(log))

	auth := middleware.RequireAuth(tokenService, log)
	adminOnly := middleware.RequireRole(store, log, models.RoleAdmin)
	vendorOrAdmin := middleware.RequireRole(store, log, models.RoleVendor, models.RoleAdmin)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "RouteLynk Server is Running")
	})

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		checks := gin.H{"database": "ok", "redis": "ok"}

		if err := store.HealthCheck(); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			checks["database"] = err.Error()
		}
		if err := redisWrap.Ping(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			checks["redis"] = err.Error()
		}

		c.JSON(code, gin.H{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now().UTC(),
			"service":   "routelynk",
			"version":   "1.0.0",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/token", authHandler.ExchangeToken)

	users := router.Group("/users", auth)
	{
		users.GET("", adminOnly, userHandler.ListUsers)
		users.PUT("/:email", middleware.RequireSelfOrRole(store, log, "email"), userHandler.UpsertUser)
		users.GET("/:email", middleware.RequireSelfOrRole(store, log, "email", models.RoleAdmin), userHandler.GetUser)
		users.PATCH("/role/:email", adminOnly, userHandler.SetRole)
		users.PATCH("/fraud/:email", adminOnly, userHandler.MarkFraud)
	}

	tickets := router.Group("/tickets")
	{
		tickets.GET("", ticketHandler.SearchTickets)
		tickets.GET("/advertised", ticketHandler.ListAdvertised)
		tickets.GET("/:id", middleware.OptionalAuth(tokenService, store, log), ticketHandler.GetTicket)
		tickets.GET("/vendor", auth, vendorOrAdmin, ticketHandler.ListVendorTickets)

		tickets.POST("", auth, vendorOrAdmin, ticketHandler.CreateTicket)
		tickets.PATCH("/:id", auth, vendorOrAdmin, ticketHandler.UpdateTicket)
		tickets.DELETE("/:id", auth, vendorOrAdmin, ticketHandler.DeleteTicket)

		tickets.PATCH("/status/:id", auth, adminOnly, ticketHandler.SetStatus)
		tickets.PATCH("/advertise/:id", auth, adminOnly, ticketHandler.SetAdvertised)
	}

	bookings := router.Group("/bookings", auth)
	{
		bookings.POST("", bookingHandler.CreateBooking)
		bookings.GET("", bookingHandler.ListMyBookings)
		bookings.GET("/vendor", middleware.RequireRole(store, log, models.RoleVendor), bookingHandler.ListVendorBookings)
		bookings.PATCH("/status/:id", middleware.RequireRole(store, log, models.RoleVendor), bookingHandler.SetStatus)
	}

	router.POST("/create-payment-intent", auth, paymentHandler.CreatePaymentIntent)

	payments := router.Group("/payments", auth)
	{
		payments.POST("", paymentHandler.RecordPayment)
		payments.GET("", paymentHandler.ListMyPayments)
	}

	router.GET("/vendor-stats/:email", auth, vendorOrAdmin, statsHandler.VendorStats)

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
