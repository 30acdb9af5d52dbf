package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/relink-dev/relink/internal/auth"
	"github.com/relink-dev/relink/internal/services"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInternalRouter(t *testing.T, repo *services.MockEmailChangeRepository, apiKey string) *chi.Mux {
	t.Helper()

	logger := slog.Default()
	cipher, err := services.NewAnswerCipher("internal-handler-test-key", logger)
	require.NoError(t, err)

	svc := services.NewRecoveryService(
		repo,
		&services.MockUserDirectory{},
		cipher,
		&services.MockRateLimiter{},
		&services.MockNotifier{},
		services.NewAuditService(&services.MockAuditLogRepository{}, logger),
		pkglogger.NewSecurityLogger(logger),
		logger,
		services.RecoveryConfig{MaxPendingPerUser: 3, MaxAttempts: 3, RequestTTL: 72 * time.Hour},
	)

	h := NewInternalHandler(svc, logger)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIKey(apiKey))
		r.Post("/internal/cleanup-expired-email-requests", h.CleanupExpired)
	})
	return router
}

func TestInternalHandler_CleanupExpired(t *testing.T) {
	repo := &services.MockEmailChangeRepository{
		ExpireOverdueFunc: func(ctx context.Context) (int64, error) {
			return 3, nil
		},
	}
	router := newTestInternalRouter(t, repo, "test-api-key")

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup-expired-email-requests", nil)
	req.Header.Set("X-API-Key", "test-api-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp CleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), resp.ExpiredCount)
}

func TestInternalHandler_CleanupExpired_RejectsBadKey(t *testing.T) {
	router := newTestInternalRouter(t, &services.MockEmailChangeRepository{}, "test-api-key")

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup-expired-email-requests", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInternalHandler_CleanupExpired_RejectsMissingKey(t *testing.T) {
	router := newTestInternalRouter(t, &services.MockEmailChangeRepository{}, "test-api-key")

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup-expired-email-requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInternalHandler_CleanupExpired_DisabledWithoutConfiguredKey(t *testing.T) {
	router := newTestInternalRouter(t, &services.MockEmailChangeRepository{}, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup-expired-email-requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
