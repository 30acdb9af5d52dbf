package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/auth"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/services"
	pkghttp "github.com/relink-dev/relink/pkg/http"
)

// AdminHandler handles the admin review endpoints
type AdminHandler struct {
	review   *services.AdminReviewService
	workflow *services.RecoveryService
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(review *services.AdminReviewService, workflow *services.RecoveryService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		review:   review,
		workflow: workflow,
		logger:   logger,
	}
}

// DTOs
type AdminRequestResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"userId"`
	CurrentEmail      string  `json:"currentEmail"`
	Pseudonym         *string `json:"pseudonym,omitempty"`
	TranslationFailed bool    `json:"translationFailed,omitempty"`
	NewEmail          string  `json:"newEmail"`
	Reason            string  `json:"reason"`
	ClientIP          string  `json:"clientIp"`
	UserAgent         string  `json:"userAgent"`
	Status            string  `json:"status"`
	Verified          bool    `json:"verified"`
	Attempts          int     `json:"attempts"`
	MaxAttempts       int     `json:"maxAttempts"`
	CreatedAt         string  `json:"createdAt"`
	ExpiresAt         string  `json:"expiresAt"`
}

type AdminListResponse struct {
	Requests []AdminRequestResponse `json:"requests"`
}

type AdminUserResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type AdminDetailResponse struct {
	Request AdminRequestResponse `json:"request"`
	User    AdminUserResponse    `json:"user"`
}

type ReviewDecisionRequest struct {
	Action     string `json:"action" validate:"required,oneof=approve reject"`
	AdminNotes string `json:"adminNotes,omitempty" validate:"max=1000"`
}

type ReviewDecisionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toAdminRequestResponse(item *services.ReviewListItem) AdminRequestResponse {
	req := item.Request
	resp := AdminRequestResponse{
		ID:                req.ID.String(),
		UserID:            req.UserID.String(),
		CurrentEmail:      item.DisplayEmail,
		TranslationFailed: item.TranslationFailed,
		NewEmail:          req.NewEmail,
		Reason:            req.Reason,
		ClientIP:          req.ClientIP,
		UserAgent:         req.UserAgent,
		Status:            req.Status,
		Verified:          req.Verified,
		Attempts:          req.Attempts,
		MaxAttempts:       req.MaxAttempts,
		CreatedAt:         req.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:         req.ExpiresAt.UTC().Format(time.RFC3339),
	}

	if item.Pseudonym != "" {
		pseudonym := item.Pseudonym
		resp.Pseudonym = &pseudonym
	}

	return resp
}

// ListRequests returns the pending review queue, verified requests first
// GET /admin/email-change-requests
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, err := h.review.ListPending(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list pending requests", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list requests")
		return
	}

	requests := make([]AdminRequestResponse, 0, len(items))
	for _, item := range items {
		requests = append(requests, toAdminRequestResponse(item))
	}

	pkghttp.WriteJSON(w, http.StatusOK, AdminListResponse{Requests: requests})
}

// GetRequest returns one request with its owning user
// GET /admin/email-change-requests/{id}
func (h *AdminHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid request ID")
		return
	}

	item, user, err := h.review.GetRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "request not found")
			return
		}
		h.logger.Error("failed to get request",
			slog.Any("request_id", requestID),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to get request")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AdminDetailResponse{
		Request: toAdminRequestResponse(item),
		User: AdminUserResponse{
			ID:     user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Status: user.Status,
		},
	})
}

// ReviewRequest applies an approve or reject decision
// POST /admin/email-change-requests/{id}/review
func (h *AdminHandler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	adminID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.logger.Error("invalid admin ID in token", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "invalid user ID")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid request ID")
		return
	}

	var req ReviewDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err = h.workflow.ReviewRequest(r.Context(), requestID, adminID, req.Action, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "request not found")
		case errors.Is(err, models.ErrRequestExpired):
			pkghttp.WriteBadRequest(w, "request has expired")
		case errors.Is(err, models.ErrRequestNotPending):
			pkghttp.WriteConflict(w, "request has already been decided")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "action must be approve or reject")
		default:
			h.logger.Error("failed to review request",
				slog.Any("request_id", requestID),
				slog.Any("admin_id", adminID),
				slog.Any("error", err))
			pkghttp.WriteInternalError(w, "failed to review request")
		}
		return
	}

	message := "request rejected"
	if req.Action == services.ReviewActionApprove {
		message = "request approved"
	}

	pkghttp.WriteJSON(w, http.StatusOK, ReviewDecisionResponse{
		Success: true,
		Message: message,
	})
}
