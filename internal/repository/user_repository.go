package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, pseudo_name, first_name, last_name, password_hash, role,
	email_verified, approval_status, two_factor_enabled,
	failed_login_attempts, locked_until,
	verification_token_hash, verification_token_expires,
	reset_token_hash, reset_token_expires,
	last_login_at, last_login_ip, last_login_city, last_login_country, last_login_browser,
	created_at, updated_at
`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, pseudo_name, first_name, last_name, password_hash, role,
		    email_verified, approval_status, two_factor_enabled,
		    verification_token_hash, verification_token_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PseudoName,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.EmailVerified,
		user.ApprovalStatus,
		user.TwoFactorEnabled,
		user.VerificationTokenHash,
		user.VerificationTokenExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID (excludes soft-deleted)
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email (excludes soft-deleted)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if a user with the given email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// RecordFailedLogin bumps the failed-attempt counter and, when the new count
// reaches maxAttempts, sets the lockout deadline. Counter and lock move in a
// single statement so concurrent failures cannot race past the threshold.
// Returns the post-increment attempt count and the lock deadline if one was
// set.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockDuration time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3::interval
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_attempts, locked_until
	`
	interval := fmt.Sprintf("%d seconds", int(lockDuration.Seconds()))
	var attempts int
	var lockedUntil *time.Time
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, interval).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, fmt.Errorf("failed to record failed login: %w", err)
	}
	return attempts, lockedUntil, nil
}

// ResetFailedAttempts clears the failed-attempt counter and lockout
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id)
}

// UpdateLastLogin records the login baseline used by the suspicion detector
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id, ip, city, country, browser string) error {
	query := `
		UPDATE users
		SET last_login_at = NOW(), last_login_ip = $2, last_login_city = $3,
		    last_login_country = $4, last_login_browser = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, ip, city, country, browser)
}

// UpdatePassword replaces the password hash and clears any pending reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, passwordHash)
}

// SetResetToken stores the hash of a newly issued password reset token,
// superseding any previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, tokenHash, expires)
}

// GetByResetToken finds the user holding an unexpired reset token hash
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires > NOW() AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
}

// SetVerificationToken stores a new email verification token hash
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query := `
		UPDATE users
		SET verification_token_hash = $2, verification_token_expires = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, tokenHash, expires)
}

// MarkEmailVerified flips email_verified and consumes the verification token
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, verification_token_hash = NULL,
		    verification_token_expires = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id)
}

// UpdateApprovalStatus sets the admin approval state
func (r *UserRepository) UpdateApprovalStatus(ctx context.Context, id string, status model.ApprovalStatus) error {
	query := `
		UPDATE users
		SET approval_status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, status)
}

// SetTwoFactorEnabled toggles the email 2FA requirement for a user
func (r *UserRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	query := `
		UPDATE users
		SET two_factor_enabled = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.exec(ctx, query, id, enabled)
}

// Unlock clears a lockout immediately, regardless of the remaining window
func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	return r.ResetFailedAttempts(ctx, id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PseudoName,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Role,
		&user.EmailVerified,
		&user.ApprovalStatus,
		&user.TwoFactorEnabled,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.VerificationTokenHash,
		&user.VerificationTokenExpires,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.LastLoginCity,
		&user.LastLoginCountry,
		&user.LastLoginBrowser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
