package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

// AuditRepository handles the append-only login audit log
type AuditRepository struct {
	db *database.Postgres
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *database.Postgres) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `
	id, user_id, event, status, failure_reason,
	ip_address, city, country, browser, os, device_type,
	suspicious, suspicious_reasons, is_new_location, is_new_device, created_at
`

// Create appends an audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Create(ctx context.Context, entry *model.LoginAuditEntry) error {
	query := `
		INSERT INTO login_audit (id, user_id, event, status, failure_reason,
		    ip_address, city, country, browser, os, device_type,
		    suspicious, suspicious_reasons, is_new_location, is_new_device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Event,
		entry.Status,
		entry.FailureReason,
		entry.IPAddress,
		entry.City,
		entry.Country,
		entry.Browser,
		entry.OS,
		entry.DeviceType,
		entry.Suspicious,
		pq.Array(entry.SuspiciousReasons),
		entry.IsNewLocation,
		entry.IsNewDevice,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's most recent audit entries, newest first
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.LoginAuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + auditColumns + `
		FROM login_audit
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LoginAuditEntry
	for rows.Next() {
		var e model.LoginAuditEntry
		var reasons pq.StringArray
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Event, &e.Status, &e.FailureReason,
			&e.IPAddress, &e.City, &e.Country, &e.Browser, &e.OS, &e.DeviceType,
			&e.Suspicious, &reasons, &e.IsNewLocation, &e.IsNewDevice, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.SuspiciousReasons = reasons
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// LastSuccessfulLogin returns the user's most recent successful login entry,
// or ErrNotFound if the user has never logged in.
func (r *AuditRepository) LastSuccessfulLogin(ctx context.Context, userID string) (*model.LoginAuditEntry, error) {
	query := `SELECT ` + auditColumns + `
		FROM login_audit
		WHERE user_id = $1 AND event = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`
	rows, err := r.db.QueryContext(ctx, query, userID, model.AuditLogin, model.AuditSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to query last login: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var e model.LoginAuditEntry
	var reasons pq.StringArray
	err = rows.Scan(
		&e.ID, &e.UserID, &e.Event, &e.Status, &e.FailureReason,
		&e.IPAddress, &e.City, &e.Country, &e.Browser, &e.OS, &e.DeviceType,
		&e.Suspicious, &reasons, &e.IsNewLocation, &e.IsNewDevice, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}
	e.SuspiciousReasons = reasons
	return &e, nil
}

// KnownLocation reports whether the user's successful-login history contains
// any geolocated entry at all, and whether this city/country pair is among
// them. An empty city matches on country alone.
func (r *AuditRepository) KnownLocation(ctx context.Context, userID, city, country string) (hasHistory bool, seen bool, err error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE country <> '') > 0,
		       COUNT(*) FILTER (WHERE country = $2 AND ($3 = '' OR city = $3)) > 0
		FROM login_audit
		WHERE user_id = $1 AND event = $4 AND status = $5
	`
	err = r.db.QueryRowContext(ctx, query, userID, country, city, model.AuditLogin, model.AuditSuccess).
		Scan(&hasHistory, &seen)
	if err != nil {
		return false, false, fmt.Errorf("failed to check location history: %w", err)
	}
	return hasHistory, seen, nil
}

// CountRecentFailures counts failed login events for a user since the cutoff
func (r *AuditRepository) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_audit
		WHERE user_id = $1 AND event = $2 AND created_at > $3
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, model.AuditLoginFailed, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recent failures: %w", err)
	}
	return count, nil
}
