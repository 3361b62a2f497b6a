package service

import "errors"

// Common service errors
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountLocked        = errors.New("account is temporarily locked")
	ErrEmailNotVerified     = errors.New("email address is not verified")
	ErrAccountNotApproved   = errors.New("account is awaiting approval")
	ErrAccountRejected      = errors.New("account registration was rejected")
	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrPasswordTooWeak      = errors.New("password does not meet requirements")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenRevoked         = errors.New("token has been revoked")
	ErrInvalidCode          = errors.New("invalid or expired code")
	ErrResendTooSoon        = errors.New("a code was sent recently, try again later")
	ErrSamePassword         = errors.New("new password must be different from current password")
	ErrTooManyResetRequests = errors.New("too many password reset requests")
	ErrSessionNotFound      = errors.New("session not found")

	ErrInvalidApprovalStatus = errors.New("invalid approval status")
)
