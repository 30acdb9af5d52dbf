package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/repositories"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
)

// UserDirectory is the narrow view of the user store the recovery workflow
// needs: lookup by claimed email, lookup by id, and the single approved
// mutation of rewriting the email.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateEmail(ctx context.Context, id, newEmail string) (*models.User, error)
}

// Notifier is the lifecycle notification contract consumed by the engine.
// Implementations are fire-and-forget; the engine never inspects delivery.
type Notifier interface {
	NotifyRequestCreated(req *models.EmailChangeRequest)
	NotifyApproved(req *models.EmailChangeRequest)
	NotifyRejected(req *models.EmailChangeRequest, notes string)
}

// RecoveryConfig holds workflow tuning knobs
type RecoveryConfig struct {
	MaxPendingPerUser int
	MaxAttempts       int
	RequestTTL        time.Duration
}

// RecoveryService orchestrates the request -> verify -> review -> apply
// lifecycle for email change requests.
type RecoveryService struct {
	repo     repositories.EmailChangeRepository
	users    UserDirectory
	cipher   *AnswerCipher
	limiter  RateLimiter
	notifier Notifier
	audit    *AuditService
	security *pkglogger.SecurityLogger
	logger   *slog.Logger
	cfg      RecoveryConfig
}

// NewRecoveryService creates a new recovery workflow service
func NewRecoveryService(
	repo repositories.EmailChangeRepository,
	users UserDirectory,
	cipher *AnswerCipher,
	limiter RateLimiter,
	notifier Notifier,
	audit *AuditService,
	security *pkglogger.SecurityLogger,
	logger *slog.Logger,
	cfg RecoveryConfig,
) *RecoveryService {
	if cfg.MaxPendingPerUser <= 0 {
		cfg.MaxPendingPerUser = models.MaxPendingRequestsPerUser
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = models.EmailChangeMaxAttempts
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = models.EmailChangeRequestTTL
	}
	return &RecoveryService{
		repo:     repo,
		users:    users,
		cipher:   cipher,
		limiter:  limiter,
		notifier: notifier,
		audit:    audit,
		security: security,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateRequestInput carries intake data for a new email change request
type CreateRequestInput struct {
	CurrentEmail      string
	NewEmail          string
	Reason            string
	SecurityAnswers   map[int]string
	ClientIP          string
	DeviceFingerprint string
	UserAgent         string
}

// CreateRequestResult is the intake outcome. RequestID is nil when no request
// was created, which includes the deliberate anti-enumeration branch.
type CreateRequestResult struct {
	RequestID *uuid.UUID
}

// CreateRequest gates, validates, and persists a new email change request.
// An unknown claimed email returns the same success-shaped result as a real
// one so the public API cannot be used to enumerate accounts.
func (s *RecoveryService) CreateRequest(ctx context.Context, in CreateRequestInput) (*CreateRequestResult, error) {
	key := RateLimitKey(in.ClientIP, in.CurrentEmail)
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limiter error", slog.Any("error", err))
	}
	if !allowed {
		s.security.LogRateLimitViolation(key, in.ClientIP)
		reason := "rate limit exceeded"
		_ = s.audit.LogRecoveryEvent(ctx, models.AuditEventTypeRateLimit, models.AuditActionBlocked,
			nil, nil, false, &reason, &in.ClientIP, &in.UserAgent, models.AuditMetadata{
				"email": pkglogger.SanitizedEmail(in.CurrentEmail),
			})
		return nil, models.ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, in.CurrentEmail)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Anti-enumeration: the caller must not be able to tell an
			// unknown email apart from an accepted request. Discard
			// silently and return the success shape.
			s.logger.InfoContext(ctx, "email change requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(in.CurrentEmail)),
				slog.String("client_ip", in.ClientIP))
			return &CreateRequestResult{}, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in directory: %w", err)
	}

	pending, err := s.repo.CountPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if pending >= s.cfg.MaxPendingPerUser {
		return nil, models.ErrTooManyPending
	}

	var encrypted []byte
	if len(in.SecurityAnswers) > 0 {
		encrypted, err = s.cipher.Encrypt(in.SecurityAnswers)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt security answers: %w", err)
		}
	}

	req := &models.EmailChangeRequest{
		UserID:            userID,
		CurrentEmail:      in.CurrentEmail,
		NewEmail:          in.NewEmail,
		Reason:            in.Reason,
		ClientIP:          in.ClientIP,
		DeviceFingerprint: in.DeviceFingerprint,
		UserAgent:         in.UserAgent,
		EncryptedAnswers:  encrypted,
		MaxAttempts:       s.cfg.MaxAttempts,
		ExpiresAt:         time.Now().Add(s.cfg.RequestTTL),
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create email change request: %w", err)
	}

	s.notifier.NotifyRequestCreated(created)

	requestID := created.ID.String()
	_ = s.audit.LogRecoveryEvent(ctx, models.AuditEventTypeEmailChange, models.AuditActionRequested,
		&userID, &requestID, true, nil, &in.ClientIP, &in.UserAgent, models.AuditMetadata{
			"new_email":    pkglogger.SanitizedEmail(in.NewEmail),
			"with_answers": len(in.SecurityAnswers) > 0,
		})

	s.logger.InfoContext(ctx, "email change request created",
		slog.String("request_id", requestID),
		slog.Any("user_id", userID))

	return &CreateRequestResult{RequestID: &created.ID}, nil
}

// VerifyResult carries the outcome of an answer verification attempt
type VerifyResult struct {
	Verified          bool
	AttemptsRemaining int
}

// VerifyAnswers compares submitted answers against the stored set. A
// successful verification marks the request verified for queue priority but
// never changes its status: every approval requires an explicit admin
// decision.
func (s *RecoveryService) VerifyAnswers(ctx context.Context, requestID uuid.UUID, submitted map[int]string) (*VerifyResult, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsPending() {
		if req.Status == models.EmailChangeStatusExpired && req.Attempts >= req.MaxAttempts {
			return nil, models.ErrAttemptsExhausted
		}
		return nil, models.ErrRequestNotPending
	}

	if req.IsExpired() {
		return nil, models.ErrRequestExpired
	}

	if !req.HasStoredAnswers() {
		return nil, models.ErrNoStoredAnswers
	}

	stored := s.cipher.Decrypt(req.EncryptedAnswers)
	if len(stored) == 0 {
		// Decryption failures degrade to "no stored answers"
		return nil, models.ErrNoStoredAnswers
	}

	matches, compared := 0, 0
	for questionID, storedAnswer := range stored {
		submittedAnswer, ok := submitted[questionID]
		if !ok {
			continue
		}
		compared++
		if NormalizeAnswer(storedAnswer) == NormalizeAnswer(submittedAnswer) {
			matches++
		}
	}

	// Dual threshold: at least two comparable answers, and at least
	// max(2, ceil(0.8 * compared)) matches.
	required := int(math.Ceil(0.8 * float64(compared)))
	if required < 2 {
		required = 2
	}

	idStr := requestID.String()
	targetID := req.UserID

	if compared >= 2 && matches >= required {
		if err := s.repo.MarkVerified(ctx, requestID); err != nil {
			return nil, fmt.Errorf("failed to mark request verified: %w", err)
		}

		_ = s.audit.LogRecoveryEvent(ctx, models.AuditEventTypeVerification, models.AuditActionVerified,
			&targetID, &idStr, true, nil, nil, nil, models.AuditMetadata{
				"matches":  matches,
				"compared": compared,
			})

		return &VerifyResult{Verified: true, AttemptsRemaining: req.AttemptsRemaining()}, nil
	}

	attempts, err := s.repo.IncrementAttempts(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to record verification attempt: %w", err)
	}

	reason := fmt.Sprintf("matched %d of %d compared answers", matches, compared)
	_ = s.audit.LogRecoveryEvent(ctx, models.AuditEventTypeVerification, models.AuditActionBlocked,
		&targetID, &idStr, false, &reason, nil, nil, nil)

	if attempts >= req.MaxAttempts {
		if err := s.repo.MarkExpired(ctx, requestID, "expired: maximum verification attempts exceeded"); err != nil {
			s.logger.ErrorContext(ctx, "failed to force-expire exhausted request",
				slog.String("request_id", idStr),
				slog.Any("error", err))
		}
		return nil, models.ErrAttemptsExhausted
	}

	return &VerifyResult{AttemptsRemaining: req.MaxAttempts - attempts}, models.ErrVerificationFailed
}

// GetStatus returns the request for status display
func (s *RecoveryService) GetStatus(ctx context.Context, requestID uuid.UUID) (*models.EmailChangeRequest, error) {
	return s.repo.GetByID(ctx, requestID)
}

// Review actions
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// ReviewRequest applies an admin decision. The underlying update is guarded
// by the pending status, so of N concurrent reviewers exactly one wins and
// the rest get ErrRequestNotPending.
func (s *RecoveryService) ReviewRequest(ctx context.Context, requestID, adminID uuid.UUID, action, notes string) error {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if !req.IsPending() {
		return models.ErrRequestNotPending
	}

	if req.IsExpired() {
		// Found expired during review: record the transition as a side effect
		if err := s.repo.MarkExpired(ctx, requestID, "expired before review"); err != nil &&
			!errors.Is(err, models.ErrRequestNotPending) {
			s.logger.ErrorContext(ctx, "failed to expire overdue request during review",
				slog.String("request_id", requestID.String()),
				slog.Any("error", err))
		}
		return models.ErrRequestExpired
	}

	var status string
	switch action {
	case ReviewActionApprove:
		status = models.EmailChangeStatusApproved
	case ReviewActionReject:
		status = models.EmailChangeStatusRejected
	default:
		return models.ErrBadRequest
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	if err := s.repo.Review(ctx, requestID, status, adminID, notesPtr); err != nil {
		return err
	}

	idStr := requestID.String()

	if status == models.EmailChangeStatusApproved {
		if _, err := s.users.UpdateEmail(ctx, req.UserID.String(), req.NewEmail); err != nil {
			// The decision already won the status transition; surface the
			// inconsistency loudly instead of rolling back a terminal state.
			s.logger.ErrorContext(ctx, "approved request but directory email update failed",
				slog.String("request_id", idStr),
				slog.Any("user_id", req.UserID),
				slog.Any("error", err))
			return fmt.Errorf("request approved but email update failed: %w", err)
		}

		s.notifier.NotifyApproved(req)

		targetID := req.UserID
		_ = s.audit.LogAdminReview(ctx, adminID, targetID, models.AuditActionApproved, idStr, models.AuditMetadata{
			"old_email": pkglogger.SanitizedEmail(req.CurrentEmail),
			"new_email": pkglogger.SanitizedEmail(req.NewEmail),
		})
		_ = s.audit.LogRecoveryEvent(ctx, models.AuditEventTypeIdentityShift, models.AuditActionApproved,
			&targetID, &idStr, true, nil, nil, nil, models.AuditMetadata{
				"reviewed_by": adminID.String(),
			})
	} else {
		s.notifier.NotifyRejected(req, notes)

		targetID := req.UserID
		_ = s.audit.LogAdminReview(ctx, adminID, targetID, models.AuditActionRejected, idStr, nil)
	}

	s.logger.InfoContext(ctx, "email change request reviewed",
		slog.String("request_id", idStr),
		slog.String("action", action),
		slog.Any("reviewed_by", adminID))

	return nil
}

// CleanupExpired transitions every overdue pending request to expired.
// Idempotent and safe to invoke repeatedly or concurrently.
func (s *RecoveryService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireOverdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to expire overdue requests", slog.Any("error", err))
		return 0, err
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "expired overdue email change requests", slog.Int64("count", count))
	}

	return count, nil
}
