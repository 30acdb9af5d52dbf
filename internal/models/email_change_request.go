package models

import (
	"time"

	"github.com/google/uuid"
)

// Email Change Request Status Constants
const (
	EmailChangeStatusPending  = "pending"
	EmailChangeStatusApproved = "approved"
	EmailChangeStatusRejected = "rejected"
	EmailChangeStatusExpired  = "expired"
)

const (
	// EmailChangeRequestTTL is the lifetime of a request from creation.
	EmailChangeRequestTTL = 72 * time.Hour

	// EmailChangeMaxAttempts is the default verification attempt budget.
	EmailChangeMaxAttempts = 3

	// MaxPendingRequestsPerUser caps simultaneous pending requests per account.
	MaxPendingRequestsPerUser = 3
)

// EmailChangeRequest represents a security-question-verified, admin-adjudicated
// request to change the email address of an account the owner cannot log into.
type EmailChangeRequest struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CurrentEmail      string
	NewEmail          string
	Reason            string
	ClientIP          string
	DeviceFingerprint string
	UserAgent         string
	EncryptedAnswers  []byte // nil when the caller supplied no security answers
	Status            string
	Verified          bool // set once by a successful answer verification; never cleared
	Attempts          int
	MaxAttempts       int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	ReviewedBy        *uuid.UUID
	ReviewedAt        *time.Time
	AdminNotes        *string
}

// IsExpired checks whether the request is past its fixed expiry time.
func (r *EmailChangeRequest) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsPending checks whether the request is still awaiting an admin decision.
func (r *EmailChangeRequest) IsPending() bool {
	return r.Status == EmailChangeStatusPending
}

// IsTerminal reports whether the request has reached a final status.
// Terminal requests are never re-opened.
func (r *EmailChangeRequest) IsTerminal() bool {
	switch r.Status {
	case EmailChangeStatusApproved, EmailChangeStatusRejected, EmailChangeStatusExpired:
		return true
	}
	return false
}

// AttemptsRemaining returns how many verification attempts are left.
func (r *EmailChangeRequest) AttemptsRemaining() int {
	remaining := r.MaxAttempts - r.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasStoredAnswers reports whether the caller supplied security answers at intake.
func (r *EmailChangeRequest) HasStoredAnswers() bool {
	return len(r.EncryptedAnswers) > 0
}
