package service

import (
	"context"
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

// UserStore is the persistence surface AuthService needs for users.
// *repository.UserRepository satisfies it; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockDuration time.Duration) (int, *time.Time, error)
	ResetFailedAttempts(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id, ip, city, country, browser string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	GetByResetToken(ctx context.Context, tokenHash string) (*model.User, error)
	SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateApprovalStatus(ctx context.Context, id string, status model.ApprovalStatus) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
	Unlock(ctx context.Context, id string) error
}

// DeviceSessionStore is the persistence surface for device sessions
type DeviceSessionStore interface {
	Create(ctx context.Context, s *model.DeviceSession) error
	GetByID(ctx context.Context, id string) (*model.DeviceSession, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*model.DeviceSession, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*model.DeviceSession, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string, exceptID string) (int, error)
	RotateRefreshToken(ctx context.Context, id, newHash string) error
	TouchActivity(ctx context.Context, id string) error
	HasSeenFingerprint(ctx context.Context, userID, browser, os, deviceType string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// AuditStore is the persistence surface for the login audit log
type AuditStore interface {
	Create(ctx context.Context, entry *model.LoginAuditEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.LoginAuditEntry, error)
	LastSuccessfulLogin(ctx context.Context, userID string) (*model.LoginAuditEntry, error)
	KnownLocation(ctx context.Context, userID, city, country string) (hasHistory bool, seen bool, err error)
	CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error)
}
