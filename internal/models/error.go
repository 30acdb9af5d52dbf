package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Recovery workflow errors
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrTooManyPending     = errors.New("too many pending requests")
	ErrRequestNotPending  = errors.New("request is not pending")
	ErrRequestExpired     = errors.New("request has expired")
	ErrNoStoredAnswers    = errors.New("no security answers on file")
	ErrAttemptsExhausted  = errors.New("maximum verification attempts exceeded")
	ErrVerificationFailed = errors.New("security answer verification failed")
)
