package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/relink-dev/relink/internal/models"
	"github.com/relink-dev/relink/internal/repositories"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
)

// PseudonymDomain marks accounts provisioned without a real mailbox. Their
// stored email is an opaque token address that admins cannot act on, so the
// review listing translates it through the billing provider.
const PseudonymDomain = "tokenuser.internal"

// ReviewListItem is one pending request prepared for admin display. When the
// current email is a pseudonym, DisplayEmail holds the billing address (or
// the pseudonym again if translation failed) and Pseudonym retains the raw
// stored value.
type ReviewListItem struct {
	Request           *models.EmailChangeRequest
	DisplayEmail      string
	Pseudonym         string
	TranslationFailed bool
}

// AdminReviewService prepares pending requests for the admin review queue
type AdminReviewService struct {
	repo    repositories.EmailChangeRepository
	users   UserDirectory
	billing BillingProvider
	logger  *slog.Logger
}

// NewAdminReviewService creates a new admin review service
func NewAdminReviewService(repo repositories.EmailChangeRepository, users UserDirectory, billing BillingProvider, logger *slog.Logger) *AdminReviewService {
	return &AdminReviewService{
		repo:    repo,
		users:   users,
		billing: billing,
		logger:  logger,
	}
}

// IsPseudonym reports whether an email is an internal token address
func IsPseudonym(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+PseudonymDomain)
}

// ListPending returns pending requests ordered verified-first, each with its
// display email resolved. Translation failures degrade per item and never
// fail the listing.
func (s *AdminReviewService) ListPending(ctx context.Context, limit, offset int) ([]*ReviewListItem, error) {
	requests, err := s.repo.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	items := make([]*ReviewListItem, 0, len(requests))
	for _, req := range requests {
		items = append(items, s.buildItem(ctx, req))
	}

	return items, nil
}

func (s *AdminReviewService) buildItem(ctx context.Context, req *models.EmailChangeRequest) *ReviewListItem {
	item := &ReviewListItem{
		Request:      req,
		DisplayEmail: req.CurrentEmail,
	}

	if !IsPseudonym(req.CurrentEmail) {
		return item
	}

	item.Pseudonym = req.CurrentEmail
	item.TranslationFailed = true

	user, err := s.users.GetByID(ctx, req.UserID.String())
	if err != nil {
		s.logger.WarnContext(ctx, "pseudonym translation: user lookup failed",
			slog.Any("user_id", req.UserID),
			slog.Any("error", err))
		return item
	}

	if user.BillingCustomerID == nil || *user.BillingCustomerID == "" {
		s.logger.WarnContext(ctx, "pseudonym translation: no billing customer on file",
			slog.Any("user_id", req.UserID))
		return item
	}

	email, err := s.billing.CustomerEmail(ctx, *user.BillingCustomerID)
	if err != nil {
		s.logger.WarnContext(ctx, "pseudonym translation: billing lookup failed",
			slog.Any("user_id", req.UserID),
			slog.Any("error", err))
		return item
	}

	item.DisplayEmail = email
	item.TranslationFailed = false

	s.logger.DebugContext(ctx, "translated pseudonym for review listing",
		slog.Any("user_id", req.UserID),
		slog.String("billing_email", pkglogger.SanitizedEmail(email)))

	return item
}

// GetRequest returns one request with its owning user for the detail view
func (s *AdminReviewService) GetRequest(ctx context.Context, requestID uuid.UUID) (*ReviewListItem, *models.User, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user for request: %w", err)
	}

	return s.buildItem(ctx, req), user, nil
}
