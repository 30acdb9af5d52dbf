package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
)

// EmailChangeRepository defines persistence for email change requests.
// Status transitions are guarded updates: a transition only succeeds while the
// row is still pending, so at most one reviewer can win per request.
type EmailChangeRepository interface {
	Create(ctx context.Context, req *models.EmailChangeRequest) (*models.EmailChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error)
	CountPendingByUser(ctx context.Context, userID uuid.UUID) (int, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error)

	// IncrementAttempts bumps the attempt counter while the request is
	// pending and under budget, returning the new count.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// MarkVerified records a successful answer verification. Status is not
	// touched; verification only affects review priority.
	MarkVerified(ctx context.Context, id uuid.UUID) error

	// Review transitions pending -> approved|rejected. Returns
	// models.ErrRequestNotPending if the row was already decided.
	Review(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID, notes *string) error

	// MarkExpired transitions a single pending request to expired with a note.
	MarkExpired(ctx context.Context, id uuid.UUID, note string) error

	// ExpireOverdue transitions every pending request past its expiry and
	// returns the number of rows affected. Idempotent.
	ExpireOverdue(ctx context.Context) (int64, error)
}
