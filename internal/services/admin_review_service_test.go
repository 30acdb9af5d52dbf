package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewQueueRequest(currentEmail string) *models.EmailChangeRequest {
	return &models.EmailChangeRequest{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		CurrentEmail: currentEmail,
		NewEmail:     "new@example.com",
		Reason:       "lost access to old mailbox",
		Status:       models.EmailChangeStatusPending,
		MaxAttempts:  3,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(72 * time.Hour),
	}
}

func TestIsPseudonym(t *testing.T) {
	assert.True(t, IsPseudonym("abc123@tokenuser.internal"))
	assert.True(t, IsPseudonym("ABC123@TOKENUSER.INTERNAL"))
	assert.False(t, IsPseudonym("user@example.com"))
	assert.False(t, IsPseudonym("tokenuser.internal@example.com"))
}

func TestAdminReviewService_ListPending_PlainEmailPassesThrough(t *testing.T) {
	repo := &MockEmailChangeRepository{
		ListPendingFunc: func(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
			return []*models.EmailChangeRequest{reviewQueueRequest("user@example.com")}, nil
		},
	}

	billingCalled := false
	billing := &MockBillingProvider{
		CustomerEmailFunc: func(ctx context.Context, customerID string) (string, error) {
			billingCalled = true
			return "", nil
		},
	}

	svc := NewAdminReviewService(repo, &MockUserDirectory{}, billing, slog.Default())

	items, err := svc.ListPending(context.Background(), 50, 0)

	assert.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "user@example.com", items[0].DisplayEmail)
	assert.Empty(t, items[0].Pseudonym)
	assert.False(t, items[0].TranslationFailed)
	assert.False(t, billingCalled, "plain emails skip billing entirely")
}

func TestAdminReviewService_ListPending_TranslatesPseudonym(t *testing.T) {
	req := reviewQueueRequest("a1b2c3@tokenuser.internal")
	customerID := "cus_12345"

	repo := &MockEmailChangeRepository{
		ListPendingFunc: func(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
			return []*models.EmailChangeRequest{req}, nil
		},
	}

	users := &MockUserDirectory{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			user := testUser(req.UserID)
			user.BillingCustomerID = &customerID
			return user, nil
		},
	}

	billing := &MockBillingProvider{
		CustomerEmailFunc: func(ctx context.Context, id string) (string, error) {
			assert.Equal(t, customerID, id)
			return "real.person@example.com", nil
		},
	}

	svc := NewAdminReviewService(repo, users, billing, slog.Default())

	items, err := svc.ListPending(context.Background(), 50, 0)

	assert.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "real.person@example.com", items[0].DisplayEmail)
	assert.Equal(t, "a1b2c3@tokenuser.internal", items[0].Pseudonym)
	assert.False(t, items[0].TranslationFailed)
}

func TestAdminReviewService_ListPending_TranslationFailureDegrades(t *testing.T) {
	req := reviewQueueRequest("a1b2c3@tokenuser.internal")
	customerID := "cus_12345"

	repo := &MockEmailChangeRepository{
		ListPendingFunc: func(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
			return []*models.EmailChangeRequest{req}, nil
		},
	}

	users := &MockUserDirectory{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			user := testUser(req.UserID)
			user.BillingCustomerID = &customerID
			return user, nil
		},
	}

	billing := &MockBillingProvider{
		CustomerEmailFunc: func(ctx context.Context, id string) (string, error) {
			return "", fmt.Errorf("billing service unavailable")
		},
	}

	svc := NewAdminReviewService(repo, users, billing, slog.Default())

	items, err := svc.ListPending(context.Background(), 50, 0)

	assert.NoError(t, err, "a billing outage must not break the review queue")
	require.Len(t, items, 1)
	assert.Equal(t, "a1b2c3@tokenuser.internal", items[0].DisplayEmail)
	assert.True(t, items[0].TranslationFailed)
}

func TestAdminReviewService_ListPending_NoBillingCustomerDegrades(t *testing.T) {
	req := reviewQueueRequest("a1b2c3@tokenuser.internal")

	repo := &MockEmailChangeRepository{
		ListPendingFunc: func(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
			return []*models.EmailChangeRequest{req}, nil
		},
	}

	users := &MockUserDirectory{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUser(req.UserID), nil
		},
	}

	svc := NewAdminReviewService(repo, users, &MockBillingProvider{}, slog.Default())

	items, err := svc.ListPending(context.Background(), 50, 0)

	assert.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1b2c3@tokenuser.internal", items[0].DisplayEmail)
	assert.True(t, items[0].TranslationFailed)
}

func TestAdminReviewService_GetRequest(t *testing.T) {
	req := reviewQueueRequest("user@example.com")

	repo := &MockEmailChangeRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error) {
			assert.Equal(t, req.ID, id)
			return req, nil
		},
	}

	users := &MockUserDirectory{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUser(req.UserID), nil
		},
	}

	svc := NewAdminReviewService(repo, users, &MockBillingProvider{}, slog.Default())

	item, user, err := svc.GetRequest(context.Background(), req.ID)

	assert.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, req.ID, item.Request.ID)
	require.NotNil(t, user)
	assert.Equal(t, req.UserID.String(), user.ID)
}

func TestAdminReviewService_GetRequest_NotFound(t *testing.T) {
	svc := NewAdminReviewService(&MockEmailChangeRepository{}, &MockUserDirectory{}, &MockBillingProvider{}, slog.Default())

	_, _, err := svc.GetRequest(context.Background(), uuid.New())

	assert.ErrorIs(t, err, models.ErrNotFound)
}
