package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/config"
	"github.com/aeroclub/membership-backend/internal/database"
	"github.com/aeroclub/membership-backend/internal/handlers"
	"github.com/aeroclub/membership-backend/internal/middleware"
	"github.com/aeroclub/membership-backend/internal/models"
	"github.com/aeroclub/membership-backend/internal/services"
	"github.com/aeroclub/membership-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting AeroClub Membership Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize the single-flight import lock. Without Redis the lock
	// degrades to a no-op and concurrent imports race (idempotent keys
	// keep that safe, just noisy).
	var importLock services.ImportLock = services.NoopImportLock{}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		defer redisClient.Close()
		importLock = services.NewRedisImportLock(redisClient, cfg.Import.LockTTL)
		logger.Info("Redis import lock enabled")
	} else {
		logger.Warn("REDIS_URL not set, import runs are not mutually excluded")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	rolePolicy := models.DefaultRolePolicy()
	keyAssigner := services.NewKeyAssigner(cfg.Import.KeyPrefix)
	normalizer := services.NewNormalizer(rolePolicy, keyAssigner, cfg.Import.Source)
	rosterService := services.NewRosterService(normalizer, logger)
	reconciler := services.NewReconciler()
	accessGate := services.NewAccessGate(services.DefaultGatePolicy())

	memberRepository := database.NewMemberRepository(db)
	importService := services.NewImportService(
		memberRepository,
		rosterService,
		reconciler,
		accessGate,
		importLock,
		rolePolicy,
		cfg.Import,
		logger,
	)
	verifier := services.NewVerifier(memberRepository, logger)
	exporter := services.NewExportService(memberRepository)

	logger.Info("Services initialized")

	// Initialize handlers
	rosterHandler := handlers.NewRosterHandler(importService, verifier, exporter, memberRepository, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		roster := v1.Group("/roster")
		roster.Use(middleware.AuthMiddleware(jwtService))
		{
			roster.POST("/import", rosterHandler.ImportRoster)
			roster.GET("/verify", rosterHandler.VerifyStore)
			roster.POST("/clear", rosterHandler.ClearStore)
		}

		members := v1.Group("/members")
		members.Use(middleware.AuthMiddleware(jwtService))
		{
			members.GET("/stats", rosterHandler.GetStats)
			members.GET("/export", rosterHandler.ExportMembers)
			members.POST("/reassign-role", rosterHandler.ReassignRole)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
		}

		if caller, ok := middleware.GetUserContext(c); ok {
			fields["member_key"] = caller.MemberKey
			fields["role"] = caller.Role
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
