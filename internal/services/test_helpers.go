package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
)

// MockEmailChangeRepository implements repositories.EmailChangeRepository for testing
type MockEmailChangeRepository struct {
	CreateFunc             func(ctx context.Context, req *models.EmailChangeRequest) (*models.EmailChangeRequest, error)
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error)
	CountPendingByUserFunc func(ctx context.Context, userID uuid.UUID) (int, error)
	ListPendingFunc        func(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error)
	IncrementAttemptsFunc  func(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerifiedFunc       func(ctx context.Context, id uuid.UUID) error
	ReviewFunc             func(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID, notes *string) error
	MarkExpiredFunc        func(ctx context.Context, id uuid.UUID, note string) error
	ExpireOverdueFunc      func(ctx context.Context) (int64, error)
}

func (m *MockEmailChangeRepository) Create(ctx context.Context, req *models.EmailChangeRequest) (*models.EmailChangeRequest, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil, models.ErrInternalServer
}

func (m *MockEmailChangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailChangeRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailChangeRepository) CountPendingByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.CountPendingByUserFunc != nil {
		return m.CountPendingByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockEmailChangeRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.EmailChangeRequest, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit, offset)
	}
	return []*models.EmailChangeRequest{}, nil
}

func (m *MockEmailChangeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, id)
	}
	return 0, models.ErrRequestNotPending
}

func (m *MockEmailChangeRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	if m.MarkVerifiedFunc != nil {
		return m.MarkVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockEmailChangeRepository) Review(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID, notes *string) error {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, id, status, reviewedBy, notes)
	}
	return nil
}

func (m *MockEmailChangeRepository) MarkExpired(ctx context.Context, id uuid.UUID, note string) error {
	if m.MarkExpiredFunc != nil {
		return m.MarkExpiredFunc(ctx, id, note)
	}
	return nil
}

func (m *MockEmailChangeRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	if m.ExpireOverdueFunc != nil {
		return m.ExpireOverdueFunc(ctx)
	}
	return 0, nil
}

// MockUserDirectory implements UserDirectory for testing
type MockUserDirectory struct {
	GetByEmailFunc  func(ctx context.Context, email string) (*models.User, error)
	GetByIDFunc     func(ctx context.Context, id string) (*models.User, error)
	UpdateEmailFunc func(ctx context.Context, id, newEmail string) (*models.User, error)
}

func (m *MockUserDirectory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserDirectory) UpdateEmail(ctx context.Context, id, newEmail string) (*models.User, error) {
	if m.UpdateEmailFunc != nil {
		return m.UpdateEmailFunc(ctx, id, newEmail)
	}
	return nil, models.ErrInternalServer
}

// MockAuditLogRepository implements repositories.AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc       func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListByTargetFunc func(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditLogRepository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListByTargetFunc != nil {
		return m.ListByTargetFunc(ctx, targetID, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendFunc func(ctx context.Context, to, subject, htmlBody string) error
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, htmlBody)
	}
	return nil
}

// MockBillingProvider implements BillingProvider for testing
type MockBillingProvider struct {
	CustomerEmailFunc func(ctx context.Context, customerID string) (string, error)
}

func (m *MockBillingProvider) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	if m.CustomerEmailFunc != nil {
		return m.CustomerEmailFunc(ctx, customerID)
	}
	return "", models.ErrNotFound
}

// MockRateLimiter implements RateLimiter for testing
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key)
	}
	return true, nil
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	NotifyRequestCreatedFunc func(req *models.EmailChangeRequest)
	NotifyApprovedFunc       func(req *models.EmailChangeRequest)
	NotifyRejectedFunc       func(req *models.EmailChangeRequest, notes string)
}

func (m *MockNotifier) NotifyRequestCreated(req *models.EmailChangeRequest) {
	if m.NotifyRequestCreatedFunc != nil {
		m.NotifyRequestCreatedFunc(req)
	}
}

func (m *MockNotifier) NotifyApproved(req *models.EmailChangeRequest) {
	if m.NotifyApprovedFunc != nil {
		m.NotifyApprovedFunc(req)
	}
}

func (m *MockNotifier) NotifyRejected(req *models.EmailChangeRequest, notes string) {
	if m.NotifyRejectedFunc != nil {
		m.NotifyRejectedFunc(req, notes)
	}
}
