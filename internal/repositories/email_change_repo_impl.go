package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relink-dev/relink/internal/database"
	"github.com/relink-dev/relink/internal/models"
)

const emailChangeColumns = `id, user_id, current_email, new_email, reason, client_ip, device_fingerprint, user_agent,
		encrypted_answers, status, verified, attempts, max_attempts, created_at, expires_at, reviewed_by, reviewed_at, admin_notes`

// EmailChangeRepositoryImpl implements EmailChangeRepository
type EmailChangeRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewEmailChangeRepository creates a new email change request repository
func NewEmailChangeRepository(db *database.DB) EmailChangeRepository {
	return &EmailChangeRepositoryImpl{pool: db.Pool}
}

// scanEmailChangeRow scans an email change request from a database row
func scanEmailChangeRow(scanner rowScanner) (*models.EmailChangeRequest, error) {
	req := &models.EmailChangeRequest{}
	err := scanner.Scan(
		&req.ID,
		&req.UserID,
		&req.CurrentEmail,
		&req.NewEmail,
		&req.Reason,
		&req.ClientIP,
		&req.DeviceFingerprint,
		&req.UserAgent,
		&req.EncryptedAnswers,
		&req.Status,
		&req.Verified,
		&req.Attempts,
		&req.MaxAttempts,
		&req.CreatedAt,
		&req.ExpiresAt,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.AdminNotes,
	)

	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return req, nil
}

// Create inserts a new email change request with status=pending
func (r *EmailChangeRepositoryImpl) Create(ctx context.Context, req *models.EmailChangeRequest) (*models.EmailChangeRequest, error) {
	query := `
		INSERT INTO email_change_requests
			(id, user_id, current_email, new_email, reason, client_ip, device_fingerprint, user_agent,
			 encrypted_answers, status, verified, attempts, max_attempts, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + emailChangeColumns

	id := uuid.New()
	now := time.Now()

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.EmailChangeMaxAttempts
	}

	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(models.EmailChangeRequestTTL)
	}

	newReq, err := scanEmailChangeRow(r.pool.QueryRow(ctx, query,
		id,
		req.UserID,
		req.CurrentEmail,
		req.NewEmail,
		req.Reason,
		req.ClientIP,
		req.DeviceFingerprint,
		req.UserAgent,
		req.EncryptedAnswers,
		models.EmailChangeStatusPending,
		false,
		0,
		maxAttempts,
		now,
		expiresAt,
	))

	if err != nil {
		return nil, fmt.Errorf("failed to create email change request: %w", err)
	}

	return newReq, nil
}

// GetByID retrieves an email change request by ID
func (r *EmailChangeRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error) {
	query := `
		SELECT ` + emailChangeColumns + `
		FROM email_change_requests
		WHERE id = $1
	`

	req, err := scanEmailChangeRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email change request: %w", err)
	}

	return req, nil
}

// CountPendingByUser counts pending requests for a user
func (r *EmailChangeRepositoryImpl) CountPendingByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM email_change_requests
		WHERE user_id = $1 AND status = 'pending'
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}

	return count, nil
}

// ListPending retrieves pending requests, verified requests first, oldest first
func (r *EmailChangeRepositoryImpl) ListPending(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
	query := `
		SELECT ` + emailChangeColumns + `
		FROM email_change_requests
		WHERE status = 'pending'
		ORDER BY verified DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending email change requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.EmailChangeRequest, 0)
	for rows.Next() {
		req, err := scanEmailChangeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email change request: %w", err)
		}
		requests = append(requests, req)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email change requests: %w", err)
	}

	return requests, nil
}

// IncrementAttempts bumps the attempt counter atomically.
// The guard keeps attempts <= max_attempts even under concurrent calls.
func (r *EmailChangeRepositoryImpl) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE email_change_requests
		SET attempts = attempts + 1
		WHERE id = $1 AND status = $2 AND attempts < max_attempts
		RETURNING attempts
	`

	var attempts int
	err := r.pool.QueryRow(ctx, query, id, models.EmailChangeStatusPending).Scan(&attempts)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return 0, models.ErrRequestNotPending
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}

	return attempts, nil
}

// MarkVerified records a successful verification without touching status
func (r *EmailChangeRepositoryImpl) MarkVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE email_change_requests
		SET verified = TRUE
		WHERE id = $1 AND status = $2
	`

	result, err := r.pool.Exec(ctx, query, id, models.EmailChangeStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark request verified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrRequestNotPending
	}

	return nil
}

// Review transitions a pending request to approved or rejected.
// The status guard guarantees at most one reviewer wins.
func (r *EmailChangeRepositoryImpl) Review(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID, notes *string) error {
	if status != models.EmailChangeStatusApproved && status != models.EmailChangeStatusRejected {
		return models.ErrBadRequest
	}

	query := `
		UPDATE email_change_requests
		SET status = $1, reviewed_by = $2, reviewed_at = CURRENT_TIMESTAMP, admin_notes = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query,
		status,
		reviewedBy,
		notes,
		id,
		models.EmailChangeStatusPending,
	)

	if err != nil {
		return fmt.Errorf("failed to review email change request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrRequestNotPending
	}

	return nil
}

// MarkExpired transitions a single pending request to expired with a note
func (r *EmailChangeRepositoryImpl) MarkExpired(ctx context.Context, id uuid.UUID, note string) error {
	query := `
		UPDATE email_change_requests
		SET status = $1, admin_notes = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query,
		models.EmailChangeStatusExpired,
		note,
		id,
		models.EmailChangeStatusPending,
	)

	if err != nil {
		return fmt.Errorf("failed to expire email change request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrRequestNotPending
	}

	return nil
}

// ExpireOverdue marks all overdue pending requests as expired and returns the count
func (r *EmailChangeRepositoryImpl) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE email_change_requests
		SET status = $1
		WHERE status = $2 AND expires_at <= CURRENT_TIMESTAMP
	`

	result, err := r.pool.Exec(ctx, query,
		models.EmailChangeStatusExpired,
		models.EmailChangeStatusPending,
	)

	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue requests: %w", err)
	}

	return result.RowsAffected(), nil
}
