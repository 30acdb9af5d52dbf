package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/repositories"
)

// AuditService handles security event logging with a dual-write pattern
// (slog + database). Persistence failures are logged but never propagate:
// the workflow must not fail because the audit sink is down.
type AuditService struct {
	repo   repositories.AuditLogRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repositories.AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// LogRecoveryEvent records an email-recovery lifecycle event
func (s *AuditService) LogRecoveryEvent(ctx context.Context, eventType, action string, targetID *uuid.UUID, requestID *string, success bool, failureReason *string, ipAddress, userAgent *string, metadata models.AuditMetadata) error {
	resourceType := "email_change_request"
	log := &models.AuditLog{
		EventType:     eventType,
		TargetID:      targetID,
		ResourceType:  &resourceType,
		ResourceID:    requestID,
		Action:        action,
		Success:       success,
		FailureReason: failureReason,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Metadata:      metadata,
	}

	// Dual-write: immediate slog output
	if success {
		s.logger.InfoContext(ctx, "audit event",
			slog.String("event_type", eventType),
			slog.String("action", action),
			slog.Any("target_id", targetID),
			slog.Any("metadata", metadata),
		)
	} else {
		reason := ""
		if failureReason != nil {
			reason = *failureReason
		}
		s.logger.WarnContext(ctx, "audit event failed",
			slog.String("event_type", eventType),
			slog.String("action", action),
			slog.Any("target_id", targetID),
			slog.String("failure_reason", reason),
			slog.Any("metadata", metadata),
		)
	}

	// Persist to database
	_, err := s.repo.Create(ctx, log)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
		// Non-critical: don't fail the workflow if audit logging fails
		return nil
	}

	return nil
}

// LogAdminReview records an admin decision on a request
func (s *AuditService) LogAdminReview(ctx context.Context, adminID, targetID uuid.UUID, action, requestID string, metadata models.AuditMetadata) error {
	resourceType := "email_change_request"
	log := &models.AuditLog{
		EventType:    models.AuditEventTypeAdminReview,
		ActorID:      &adminID,
		TargetID:     &targetID,
		ResourceType: &resourceType,
		ResourceID:   &requestID,
		Action:       action,
		Success:      true,
		Metadata:     metadata,
	}

	s.logger.InfoContext(ctx, "admin review",
		slog.Any("actor_id", adminID),
		slog.Any("target_id", targetID),
		slog.String("action", action),
		slog.String("request_id", requestID),
	)

	_, err := s.repo.Create(ctx, log)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", action),
			slog.Any("error", err),
		)
		return nil
	}

	return nil
}
