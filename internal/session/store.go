// Package session implements the server-side browser session store backed by
// Redis. Session identifiers are opaque random values; all state lives
// server-side so a stolen pre-login cookie is worthless once the identifier
// is regenerated at authentication time.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
)

// ErrSessionNotFound is returned when the session id is unknown, expired, or
// was destroyed.
var ErrSessionNotFound = errors.New("session not found")

const (
	keyPrefix = "careerstack:session:"

	// Reverse indexes so revocation can find the browser sessions tied to a
	// device session or a user without scanning.
	deviceIndexPrefix = keyPrefix + "device:"
	userIndexPrefix   = keyPrefix + "user:"
)

// Data is the server-side session state
type Data struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
	// DeviceSessionID ties the browser session to its device session row
	DeviceSessionID string    `json:"deviceSessionId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastSeenAt      time.Time `json:"lastSeenAt"`
}

// Authenticated reports whether the session belongs to a logged-in user
func (d *Data) Authenticated() bool {
	return d.UserID != ""
}

// Store manages sessions in Redis
type Store struct {
	redis *database.Redis
	cfg   config.SessionConfig
}

// NewStore creates a session store
func NewStore(rdb *database.Redis, cfg config.SessionConfig) *Store {
	return &Store{redis: rdb, cfg: cfg}
}

// Create starts a fresh anonymous session and returns its identifier
func (s *Store) Create(ctx context.Context) (string, *Data, error) {
	now := time.Now().UTC()
	data := &Data{CreatedAt: now, LastSeenAt: now}
	id, err := s.save(ctx, data)
	if err != nil {
		return "", nil, err
	}
	return id, data, nil
}

// Get loads a session by id. Sessions past the absolute lifetime are treated
// as gone even if Redis has not expired them yet.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	raw, err := s.redis.GetString(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if s.cfg.AbsoluteTTL > 0 && time.Since(data.CreatedAt) > s.cfg.AbsoluteTTL {
		_ = s.Destroy(ctx, id)
		return nil, ErrSessionNotFound
	}
	return &data, nil
}

// Regenerate issues a new session identifier carrying the given data and
// destroys the old one. Called at every authentication state change so a
// pre-login identifier never survives into an authenticated session.
func (s *Store) Regenerate(ctx context.Context, oldID string, data *Data) (string, error) {
	now := time.Now().UTC()
	data.CreatedAt = now
	data.LastSeenAt = now

	newID, err := s.save(ctx, data)
	if err != nil {
		return "", err
	}
	if oldID != "" {
		// The new session is already live; a failure here is log-worthy but
		// not fatal. The old key still carries its TTL.
		_ = s.Destroy(ctx, oldID)
	}
	return newID, nil
}

// Update persists changed session data under the same identifier and renews
// the idle window.
func (s *Store) Update(ctx context.Context, id string, data *Data) error {
	data.LastSeenAt = time.Now().UTC()
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.redis.SetWithTTL(ctx, keyPrefix+id, encoded, s.cfg.IdleTTL); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Touch renews the idle window without rewriting the payload
func (s *Store) Touch(ctx context.Context, id string) error {
	return s.redis.Expire(ctx, keyPrefix+id, s.cfg.IdleTTL)
}

// Destroy removes a session and its reverse-index entries
func (s *Store) Destroy(ctx context.Context, id string) error {
	// Raw read, not Get: Get destroys absolutely-expired sessions itself
	if raw, err := s.redis.GetString(ctx, keyPrefix+id); err == nil {
		var data Data
		if json.Unmarshal([]byte(raw), &data) == nil {
			s.unindex(ctx, id, &data)
		}
	}
	return s.redis.Delete(ctx, keyPrefix+id)
}

// DestroyByDevice removes the browser session tied to a device session, if
// one is live. Called when the device session is revoked.
func (s *Store) DestroyByDevice(ctx context.Context, deviceSessionID string) error {
	sid, err := s.redis.GetString(ctx, deviceIndexPrefix+deviceSessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to resolve device session index: %w", err)
	}
	return s.Destroy(ctx, sid)
}

// IDsForUser returns the identifiers of the user's live browser sessions.
// Entries for sessions that have since expired may linger until read.
func (s *Store) IDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, userIndexPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	return ids, nil
}

func (s *Store) save(ctx context.Context, data *Data) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.redis.SetWithTTL(ctx, keyPrefix+id, encoded, s.cfg.IdleTTL); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	s.index(ctx, id, data)
	return id, nil
}

// index and unindex maintain the device and user lookups. Best-effort: a
// stale index entry resolves to a dead session, which readers skip.
func (s *Store) index(ctx context.Context, id string, data *Data) {
	ttl := s.cfg.AbsoluteTTL
	if ttl <= 0 {
		ttl = s.cfg.IdleTTL
	}
	if data.DeviceSessionID != "" {
		_ = s.redis.SetWithTTL(ctx, deviceIndexPrefix+data.DeviceSessionID, id, ttl)
	}
	if data.UserID != "" {
		key := userIndexPrefix + data.UserID
		_ = s.redis.SAdd(ctx, key, id)
		_ = s.redis.Expire(ctx, key, ttl)
	}
}

func (s *Store) unindex(ctx context.Context, id string, data *Data) {
	if data.DeviceSessionID != "" {
		_ = s.redis.Delete(ctx, deviceIndexPrefix+data.DeviceSessionID)
	}
	if data.UserID != "" {
		_ = s.redis.SRem(ctx, userIndexPrefix+data.UserID, id)
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
