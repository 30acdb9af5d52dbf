package handlers

import (
	"log/slog"
	"net/http"

	"github.com/relink-dev/relink/internal/services"
	pkghttp "github.com/relink-dev/relink/pkg/http"
)

// InternalHandler handles operational endpoints for trusted callers
type InternalHandler struct {
	workflow *services.RecoveryService
	logger   *slog.Logger
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(workflow *services.RecoveryService, logger *slog.Logger) *InternalHandler {
	return &InternalHandler{
		workflow: workflow,
		logger:   logger,
	}
}

type CleanupResponse struct {
	Success      bool  `json:"success"`
	ExpiredCount int64 `json:"expiredCount"`
}

// CleanupExpired sweeps overdue pending requests to expired. Idempotent;
// schedulers may call it on any cadence.
// POST /internal/cleanup-expired-email-requests
func (h *InternalHandler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	count, err := h.workflow.CleanupExpired(r.Context())
	if err != nil {
		h.logger.Error("cleanup sweep failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "cleanup failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CleanupResponse{
		Success:      true,
		ExpiredCount: count,
	})
}
