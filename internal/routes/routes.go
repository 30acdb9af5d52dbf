package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/relink-dev/relink/internal/auth"
	"github.com/relink-dev/relink/internal/handlers"
	"github.com/relink-dev/relink/internal/middleware"
	"github.com/relink-dev/relink/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	recoveryHandler *handlers.RecoveryHandler,
	adminHandler *handlers.AdminHandler,
	internalHandler *handlers.InternalHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	adminAPIKey string,
) {
	rateLimitConfig := middleware.DefaultRecoveryRateLimit()

	// Public routes - no authentication required
	router.Get("/security-questions", recoveryHandler.ListQuestions)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/request-email-change", recoveryHandler.CreateRequest)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/verify-email-change/{requestId}", recoveryHandler.VerifyAnswers)
	router.Get("/email-change-status/{requestId}", recoveryHandler.GetStatus)

	// Admin routes - JWT with admin role
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.RequireRole(userRepo, "admin"))

		r.Get("/admin/email-change-requests", adminHandler.ListRequests)
		r.Get("/admin/email-change-requests/{id}", adminHandler.GetRequest)
		r.Post("/admin/email-change-requests/{id}/review", adminHandler.ReviewRequest)
	})

	// Internal operational routes - shared API key
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIKey(adminAPIKey))

		r.Post("/internal/cleanup-expired-email-requests", internalHandler.CleanupExpired)
	})
}
