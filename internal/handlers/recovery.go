package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/services"
	pkghttp "github.com/relink-dev/relink/pkg/http"
)

// RecoveryHandler handles the public email recovery endpoints
type RecoveryHandler struct {
	service  *services.RecoveryService
	catalog  *services.QuestionCatalog
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(service *services.RecoveryService, catalog *services.QuestionCatalog, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		service:  service,
		catalog:  catalog,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// DTOs
type QuestionsResponse struct {
	Questions []models.SecurityQuestion `json:"questions"`
}

type CreateEmailChangeRequest struct {
	CurrentEmail    string         `json:"currentEmail" validate:"required,email"`
	NewEmail        string         `json:"newEmail" validate:"required,email"`
	Reason          string         `json:"reason" validate:"required,min=10,max=1000"`
	SecurityAnswers map[int]string `json:"securityAnswers,omitempty"`
}

type CreateEmailChangeResponse struct {
	Success   bool    `json:"success"`
	RequestID *string `json:"requestId,omitempty"`
	Message   string  `json:"message"`
}

type VerifyEmailChangeRequest struct {
	SecurityAnswers map[int]string `json:"securityAnswers" validate:"required"`
}

type VerifyEmailChangeResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
}

type StatusResponse struct {
	RequestID    string `json:"requestId"`
	Status       string `json:"status"`
	CurrentEmail string `json:"currentEmail"`
	NewEmail     string `json:"newEmail"`
	CreatedAt    string `json:"createdAt"`
	ExpiresAt    string `json:"expiresAt"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"maxAttempts"`
}

// ListQuestions returns the security question catalog
// GET /security-questions
func (h *RecoveryHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, QuestionsResponse{Questions: h.catalog.List()})
}

// CreateRequest accepts a new email change request
// POST /request-email-change
func (h *RecoveryHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateEmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if req.CurrentEmail == req.NewEmail {
		pkghttp.WriteBadRequest(w, "new email must differ from current email")
		return
	}

	// Drop answers for unknown question ids instead of rejecting
	answers := make(map[int]string)
	for id, answer := range req.SecurityAnswers {
		if _, ok := h.catalog.QuestionByID(id); ok && answer != "" {
			answers[id] = answer
		}
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.UserAgent()

	result, err := h.service.CreateRequest(r.Context(), services.CreateRequestInput{
		CurrentEmail:      req.CurrentEmail,
		NewEmail:          req.NewEmail,
		Reason:            req.Reason,
		SecurityAnswers:   answers,
		ClientIP:          clientIP,
		DeviceFingerprint: pkghttp.DeviceFingerprint(clientIP, userAgent),
		UserAgent:         userAgent,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRateLimited):
			pkghttp.WriteTooManyRequests(w, "too many recovery requests, try again later")
		case errors.Is(err, models.ErrTooManyPending):
			pkghttp.WriteConflict(w, "too many pending requests for this account")
		default:
			h.logger.Error("failed to create email change request", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "failed to create request")
		}
		return
	}

	resp := CreateEmailChangeResponse{
		Success: true,
		Message: "if the account exists, the request has been submitted for review",
	}
	if result.RequestID != nil {
		id := result.RequestID.String()
		resp.RequestID = &id
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// VerifyAnswers checks submitted security answers for a pending request
// POST /verify-email-change/{requestId}
func (h *RecoveryHandler) VerifyAnswers(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid request ID")
		return
	}

	var req VerifyEmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if len(req.SecurityAnswers) == 0 {
		pkghttp.WriteBadRequest(w, "securityAnswers is required")
		return
	}

	result, err := h.service.VerifyAnswers(r.Context(), requestID, req.SecurityAnswers)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "request not found")
		case errors.Is(err, models.ErrVerificationFailed):
			resp := VerifyEmailChangeResponse{
				Success: false,
				Message: "verification failed",
			}
			if result != nil {
				remaining := result.AttemptsRemaining
				resp.AttemptsRemaining = &remaining
			}
			pkghttp.WriteJSON(w, http.StatusBadRequest, resp)
		case errors.Is(err, models.ErrAttemptsExhausted):
			pkghttp.WriteBadRequest(w, "maximum verification attempts exceeded")
		case errors.Is(err, models.ErrRequestExpired):
			pkghttp.WriteBadRequest(w, "request has expired")
		case errors.Is(err, models.ErrRequestNotPending):
			pkghttp.WriteBadRequest(w, "request is no longer pending")
		case errors.Is(err, models.ErrNoStoredAnswers):
			pkghttp.WriteBadRequest(w, "no security answers on file for this request")
		default:
			h.logger.Error("failed to verify answers",
				slog.Any("request_id", requestID),
				slog.Any("error", err))
			pkghttp.WriteInternalError(w, "failed to verify answers")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyEmailChangeResponse{
		Success: true,
		Message: "answers verified, the request is prioritized for review",
	})
}

// GetStatus returns the current state of a request
// GET /email-change-status/{requestId}
func (h *RecoveryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid request ID")
		return
	}

	req, err := h.service.GetStatus(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "request not found")
			return
		}
		h.logger.Error("failed to get request status",
			slog.Any("request_id", requestID),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to get request status")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{
		RequestID:    req.ID.String(),
		Status:       req.Status,
		CurrentEmail: req.CurrentEmail,
		NewEmail:     req.NewEmail,
		CreatedAt:    req.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:    req.ExpiresAt.UTC().Format(time.RFC3339),
		Attempts:     req.Attempts,
		MaxAttempts:  req.MaxAttempts,
	})
}
