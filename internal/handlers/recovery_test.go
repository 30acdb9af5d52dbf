package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/services"
	pkghttp "github.com/relink-dev/relink/pkg/http"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecoveryHandler(t *testing.T, repo *services.MockEmailChangeRepository, users *services.MockUserDirectory) *RecoveryHandler {
	t.Helper()

	logger := slog.Default()

	cipher, err := services.NewAnswerCipher("handler-test-key", logger)
	require.NoError(t, err)

	svc := services.NewRecoveryService(
		repo,
		users,
		cipher,
		&services.MockRateLimiter{},
		&services.MockNotifier{},
		services.NewAuditService(&services.MockAuditLogRepository{}, logger),
		pkglogger.NewSecurityLogger(logger),
		logger,
		services.RecoveryConfig{MaxPendingPerUser: 3, MaxAttempts: 3, RequestTTL: 72 * time.Hour},
	)

	return NewRecoveryHandler(svc, services.NewQuestionCatalog(), &pkghttp.IPConfig{}, logger)
}

func newRecoveryRouter(h *RecoveryHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/security-questions", h.ListQuestions)
	router.Post("/request-email-change", h.CreateRequest)
	router.Post("/verify-email-change/{requestId}", h.VerifyAnswers)
	router.Get("/email-change-status/{requestId}", h.GetStatus)
	return router
}

func TestRecoveryHandler_ListQuestions(t *testing.T) {
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/security-questions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp QuestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Questions, 6)
}

func TestRecoveryHandler_CreateRequest_ValidationErrors(t *testing.T) {
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing current email", map[string]interface{}{
			"newEmail": "new@example.com", "reason": "lost my old mailbox access"}},
		{"invalid new email", map[string]interface{}{
			"currentEmail": "user@example.com", "newEmail": "not-an-email", "reason": "lost my old mailbox access"}},
		{"reason too short", map[string]interface{}{
			"currentEmail": "user@example.com", "newEmail": "new@example.com", "reason": "short"}},
		{"same email", map[string]interface{}{
			"currentEmail": "user@example.com", "newEmail": "user@example.com", "reason": "lost my old mailbox access"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/request-email-change", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRecoveryHandler_CreateRequest_UnknownEmailResponseShape(t *testing.T) {
	// The response for an unknown email must look like an accepted request
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"currentEmail": "nobody@example.com",
		"newEmail":     "new@example.com",
		"reason":       "lost access to my old mailbox",
	})
	req := httptest.NewRequest(http.MethodPost, "/request-email-change", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateEmailChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestRecoveryHandler_CreateRequest_Success(t *testing.T) {
	userID := uuid.New()
	users := &services.MockUserDirectory{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: userID.String(), Email: email, Status: "active"}, nil
		},
	}
	repo := &services.MockEmailChangeRepository{
		CreateFunc: func(ctx context.Context, r *models.EmailChangeRequest) (*models.EmailChangeRequest, error) {
			r.ID = uuid.New()
			r.Status = models.EmailChangeStatusPending
			return r, nil
		},
	}

	h := newTestRecoveryHandler(t, repo, users)
	router := newRecoveryRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"currentEmail": "user@example.com",
		"newEmail":     "new@example.com",
		"reason":       "lost access to my old mailbox",
		"securityAnswers": map[string]string{
			"1": "Rex", "2": "Springfield",
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/request-email-change", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateEmailChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.RequestID)
	_, err := uuid.Parse(*resp.RequestID)
	assert.NoError(t, err)
}

func TestRecoveryHandler_VerifyAnswers_InvalidID(t *testing.T) {
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	body, _ := json.Marshal(map[string]interface{}{"securityAnswers": map[string]string{"1": "Rex"}})
	req := httptest.NewRequest(http.MethodPost, "/verify-email-change/not-a-uuid", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryHandler_VerifyAnswers_NotFound(t *testing.T) {
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	body, _ := json.Marshal(map[string]interface{}{"securityAnswers": map[string]string{"1": "Rex"}})
	req := httptest.NewRequest(http.MethodPost, "/verify-email-change/"+uuid.NewString(), bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryHandler_GetStatus(t *testing.T) {
	requestID := uuid.New()
	repo := &services.MockEmailChangeRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error) {
			return &models.EmailChangeRequest{
				ID:           requestID,
				UserID:       uuid.New(),
				CurrentEmail: "user@example.com",
				NewEmail:     "new@example.com",
				Status:       models.EmailChangeStatusPending,
				Attempts:     1,
				MaxAttempts:  3,
				CreatedAt:    time.Now(),
				ExpiresAt:    time.Now().Add(48 * time.Hour),
			}, nil
		},
	}

	h := newTestRecoveryHandler(t, repo, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/email-change-status/"+requestID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, requestID.String(), resp.RequestID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, 3, resp.MaxAttempts)
}

func TestRecoveryHandler_GetStatus_NotFound(t *testing.T) {
	h := newTestRecoveryHandler(t, &services.MockEmailChangeRepository{}, &services.MockUserDirectory{})
	router := newRecoveryRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/email-change-status/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
