package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

// LogoutChannel is the Redis pub/sub channel carrying revocation events so
// other instances can drop cached state for the affected sessions.
const LogoutChannel = "careerstack:logout"

// LogoutEvent is published whenever device sessions are revoked
type LogoutEvent struct {
	UserID string `json:"userId"`
	// SessionID is empty when every session for the user was revoked
	SessionID string    `json:"sessionId,omitempty"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// SessionService manages the user's device sessions
type SessionService struct {
	devices DeviceSessionStore
	audit   AuditStore
	redis   *database.Redis
	log     *logger.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(devices DeviceSessionStore, audit AuditStore, rdb *database.Redis, log *logger.Logger) *SessionService {
	return &SessionService{
		devices: devices,
		audit:   audit,
		redis:   rdb,
		log:     log.WithComponent("session_service"),
	}
}

// List returns the user's active device sessions. CurrentID marks which
// entry belongs to the caller so the UI can label it.
func (s *SessionService) List(ctx context.Context, userID string) ([]*model.DeviceSession, error) {
	sessions, err := s.devices.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// OwnerOf returns the user id owning a device session
func (s *SessionService) OwnerOf(ctx context.Context, sessionID string) (string, error) {
	session, err := s.devices.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return session.UserID, nil
}

// Revoke revokes one of the user's sessions. Ownership is enforced here so
// a user can never revoke someone else's session by id.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID, reason string) error {
	session, err := s.devices.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return ErrSessionNotFound
	}

	if err := s.devices.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.publishLogout(ctx, LogoutEvent{
		UserID:    userID,
		SessionID: sessionID,
		Reason:    reason,
		At:        time.Now().UTC(),
	})
	s.recordAudit(ctx, userID, model.AuditSessionRevoked, session)
	return nil
}

// RevokeAll revokes every active session for a user except, optionally, the
// caller's own. Returns the number revoked.
func (s *SessionService) RevokeAll(ctx context.Context, userID, exceptSessionID, reason string) (int, error) {
	count, err := s.devices.RevokeAllForUser(ctx, userID, exceptSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.publishLogout(ctx, LogoutEvent{
		UserID: userID,
		Reason: reason,
		At:     time.Now().UTC(),
	})
	s.recordAudit(ctx, userID, model.AuditSessionRevokedAll, nil)
	return count, nil
}

// SubscribeLogouts delivers revocation events until ctx is cancelled.
// Malformed payloads are logged and skipped.
func (s *SessionService) SubscribeLogouts(ctx context.Context, handler func(LogoutEvent)) error {
	sub := s.redis.Subscribe(ctx, LogoutChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event LogoutEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Warn().Err(err).Msg("malformed logout event")
				continue
			}
			handler(event)
		}
	}
}

// BrowserSessionStore is the slice of the Redis session store the logout
// reaper needs. *session.Store satisfies it.
type BrowserSessionStore interface {
	DestroyByDevice(ctx context.Context, deviceSessionID string) error
	IDsForUser(ctx context.Context, userID string) ([]string, error)
	Get(ctx context.Context, id string) (*session.Data, error)
	Destroy(ctx context.Context, id string) error
}

// RunLogoutReaper consumes revocation events and destroys the browser
// sessions they invalidate, so a revoked device is locked out on every
// instance, not only the one that handled the revocation. Blocks until ctx
// is cancelled.
func (s *SessionService) RunLogoutReaper(ctx context.Context, browser BrowserSessionStore) error {
	return s.SubscribeLogouts(ctx, func(event LogoutEvent) {
		s.reapBrowserSessions(ctx, browser, event)
	})
}

func (s *SessionService) reapBrowserSessions(ctx context.Context, browser BrowserSessionStore, event LogoutEvent) {
	if event.SessionID != "" {
		if err := browser.DestroyByDevice(ctx, event.SessionID); err != nil {
			s.log.Error().Err(err).Str("session_id", event.SessionID).Msg("failed to destroy browser session")
		}
		return
	}

	// All-sessions revocation may spare the caller's own device, so check
	// each browser session's backing device rather than destroying blindly.
	ids, err := browser.IDsForUser(ctx, event.UserID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", event.UserID).Msg("failed to list browser sessions")
		return
	}
	for _, sid := range ids {
		data, err := browser.Get(ctx, sid)
		if err != nil {
			continue
		}
		if data.DeviceSessionID == "" {
			continue
		}
		device, err := s.devices.GetByID(ctx, data.DeviceSessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				_ = browser.Destroy(ctx, sid)
			}
			continue
		}
		if device.Revoked || device.IsExpired() {
			if err := browser.Destroy(ctx, sid); err != nil {
				s.log.Error().Err(err).Str("user_id", event.UserID).Msg("failed to destroy browser session")
			}
		}
	}
}

// RunExpiryJanitor deletes device sessions whose refresh window has lapsed,
// on the given interval, until ctx is cancelled.
func (s *SessionService) RunExpiryJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.devices.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				s.log.Error().Err(err).Msg("failed to delete expired device sessions")
				continue
			}
			if n > 0 {
				s.log.Info().Int("count", n).Msg("deleted expired device sessions")
			}
		}
	}
}

func (s *SessionService) publishLogout(ctx context.Context, event LogoutEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode logout event")
		return
	}
	if err := s.redis.Publish(ctx, LogoutChannel, payload); err != nil {
		s.log.Error().Err(err).Str("user_id", event.UserID).Msg("failed to publish logout event")
	}
}

// recordAudit is best-effort; revocation succeeds even if the audit write
// fails.
func (s *SessionService) recordAudit(ctx context.Context, userID, event string, session *model.DeviceSession) {
	entry := &model.LoginAuditEntry{
		ID:        "aud_" + uuid.New().String(),
		UserID:    userID,
		Event:     event,
		Status:    model.AuditSuccess,
		CreatedAt: time.Now().UTC(),
	}
	if session != nil {
		entry.IPAddress = session.IPAddress
		entry.Browser = session.Browser
		entry.OS = session.OS
		entry.DeviceType = session.DeviceType
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("event", event).Msg("failed to write audit entry")
	}
}
