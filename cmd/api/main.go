package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/relink-dev/relink/internal/auth"
	"github.com/relink-dev/relink/internal/background"
	"github.com/relink-dev/relink/internal/config"
	"github.com/relink-dev/relink/internal/database"
	"github.com/relink-dev/relink/internal/handlers"
	middlewareCustom "github.com/relink-dev/relink/internal/middleware"
	"github.com/relink-dev/relink/internal/repositories"
	"github.com/relink-dev/relink/internal/routes"
	"github.com/relink-dev/relink/internal/services"
	pkghttp "github.com/relink-dev/relink/pkg/http"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	emailChangeRepo := repositories.NewEmailChangeRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Token manager verifies admin bearer tokens from the identity service
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)

	// Answer cipher for stored security answers
	answerCipher, err := services.NewAnswerCipher(cfg.Recovery.EncryptionKey, logger)
	if err != nil {
		logger.Error("failed to initialize answer cipher", slog.Any("error", err))
		os.Exit(1)
	}

	// Rate limiter: Redis when configured, in-memory otherwise
	var rateLimiter services.RateLimiter
	var memoryLimiter *services.MemoryRateLimiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rateLimiter = services.NewRedisRateLimiter(redisClient, cfg.Recovery.RateLimitWindow, cfg.Recovery.RateLimitMax, logger)
		logger.Info("using redis rate limiter", slog.String("addr", cfg.Redis.Addr))
	} else {
		memoryLimiter = services.NewMemoryRateLimiter(cfg.Recovery.RateLimitWindow, cfg.Recovery.RateLimitMax)
		rateLimiter = memoryLimiter
		logger.Info("using in-memory rate limiter")
	}

	// AWS SES email sender
	emailSender, err := services.NewAWSSESEmailSender(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}
	notifier := services.NewNotificationDispatcher(emailSender, logger)

	// Audit and security logging
	auditService := services.NewAuditService(auditLogRepo, logger)
	securityLogger := pkglogger.NewSecurityLogger(logger)

	// Billing provider for pseudonym translation
	billingProvider := services.NewHTTPBillingProvider(cfg.Billing.BaseURL, cfg.Billing.APIKey, cfg.Billing.Timeout)

	// Core workflow services
	recoveryService := services.NewRecoveryService(
		emailChangeRepo,
		userRepo,
		answerCipher,
		rateLimiter,
		notifier,
		auditService,
		securityLogger,
		logger,
		services.RecoveryConfig{
			MaxPendingPerUser: cfg.Recovery.MaxPendingPerUser,
			MaxAttempts:       cfg.Recovery.MaxAttempts,
			RequestTTL:        cfg.Recovery.RequestTTL,
		},
	)
	adminReviewService := services.NewAdminReviewService(emailChangeRepo, userRepo, billingProvider, logger)

	// Background cleanup loop
	cleanupManager := background.NewCleanupManager(recoveryService, memoryLimiter, logger, cfg.Recovery.CleanupInterval)

	// Initialize handlers
	catalog := services.NewQuestionCatalog()
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	recoveryHandler := handlers.NewRecoveryHandler(recoveryService, catalog, ipConfig, logger)
	adminHandler := handlers.NewAdminHandler(adminReviewService, recoveryService, logger)
	internalHandler := handlers.NewInternalHandler(recoveryService, logger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, recoveryHandler, adminHandler, internalHandler, tokenManager, userRepo, cfg.Recovery.AdminAPIKey)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
