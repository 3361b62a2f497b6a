package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

// SessionRepository handles device session persistence
type SessionRepository struct {
	db *database.Postgres
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.Postgres) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, user_id, refresh_token_hash, user_agent, ip_address,
	browser, os, device_type, revoked, revoked_at,
	last_active_at, created_at, expires_at
`

// Create inserts a new device session row
func (r *SessionRepository) Create(ctx context.Context, s *model.DeviceSession) error {
	query := `
		INSERT INTO device_sessions (id, user_id, refresh_token_hash, user_agent, ip_address,
		    browser, os, device_type, last_active_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.RefreshTokenHash,
		s.UserAgent,
		s.IPAddress,
		s.Browser,
		s.OS,
		s.DeviceType,
		s.LastActiveAt,
		s.CreatedAt,
		s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create device session: %w", err)
	}
	return nil
}

// GetByID retrieves a device session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.DeviceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM device_sessions WHERE id = $1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

// GetByRefreshTokenHash retrieves the session holding a refresh token hash.
// Revoked and expired rows are returned too so the caller can distinguish
// reuse of a rotated token from an unknown one.
func (r *SessionRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*model.DeviceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM device_sessions WHERE refresh_token_hash = $1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, hash))
}

// ListActiveByUser returns the user's non-revoked, unexpired sessions, newest
// activity first.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*model.DeviceSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM device_sessions
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > NOW()
		ORDER BY last_active_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.DeviceSession
	for rows.Next() {
		s, err := r.scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Revoke marks a single session revoked. Already-revoked sessions stay
// revoked; the operation is idempotent.
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE device_sessions
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, NOW())
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke device session: %w", err)
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

// RevokeAllForUser revokes every active session for a user, optionally
// sparing one (the caller's current session). Returns the count revoked.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, exceptID string) (int, error) {
	query := `
		UPDATE device_sessions
		SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE AND ($2 = '' OR id <> $2)
	`
	result, err := r.db.ExecContext(ctx, query, userID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke device sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(rows), nil
}

// RotateRefreshToken swaps the stored hash on an active session and bumps
// activity. Fails with ErrNotFound when the session is revoked or expired,
// which callers treat as token reuse.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, id, newHash string) error {
	query := `
		UPDATE device_sessions
		SET refresh_token_hash = $2, last_active_at = NOW()
		WHERE id = $1 AND revoked = FALSE AND expires_at > NOW()
	`
	result, err := r.db.ExecContext(ctx, query, id, newHash)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
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

// TouchActivity updates last_active_at for a session
func (r *SessionRepository) TouchActivity(ctx context.Context, id string) error {
	query := `UPDATE device_sessions SET last_active_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch device session: %w", err)
	}
	return nil
}

// HasSeenFingerprint reports whether the user has ever logged in from a
// device matching the given browser/OS/device-type combination.
func (r *SessionRepository) HasSeenFingerprint(ctx context.Context, userID, browser, os, deviceType string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM device_sessions
		WHERE user_id = $1 AND browser = $2 AND os = $3 AND device_type = $4
	)`
	var seen bool
	if err := r.db.QueryRowContext(ctx, query, userID, browser, os, deviceType).Scan(&seen); err != nil {
		return false, fmt.Errorf("failed to check device fingerprint: %w", err)
	}
	return seen, nil
}

// DeleteExpired removes sessions whose refresh window lapsed before the
// cutoff. Run periodically; revoked rows are kept until they expire so
// token-reuse detection has something to find.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM device_sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *SessionRepository) scanSession(row *sql.Row) (*model.DeviceSession, error) {
	var s model.DeviceSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.UserAgent, &s.IPAddress,
		&s.Browser, &s.OS, &s.DeviceType, &s.Revoked, &s.RevokedAt,
		&s.LastActiveAt, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan device session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) scanSessionRows(rows *sql.Rows) (*model.DeviceSession, error) {
	var s model.DeviceSession
	err := rows.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.UserAgent, &s.IPAddress,
		&s.Browser, &s.OS, &s.DeviceType, &s.Revoked, &s.RevokedAt,
		&s.LastActiveAt, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan device session: %w", err)
	}
	return &s, nil
}
