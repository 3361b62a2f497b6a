package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) add(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserStore) get(id string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUserStore) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockDuration time.Duration) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
	}
	return u.FailedLoginAttempts, u.LockedUntil, nil
}

func (f *fakeUserStore) ResetFailedAttempts(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, id, ip, city, country, browser string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = &ip
	u.LastLoginCity = &city
	u.LastLoginCountry = &country
	u.LastLoginBrowser = &browser
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpires = nil
	return nil
}

func (f *fakeUserStore) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpires = &expires
	return nil
}

func (f *fakeUserStore) GetByResetToken(_ context.Context, tokenHash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpires != nil && time.Now().Before(*u.ResetTokenExpires) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) SetVerificationToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.VerificationTokenHash = &tokenHash
	u.VerificationTokenExpires = &expires
	return nil
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	u.VerificationTokenHash = nil
	u.VerificationTokenExpires = nil
	return nil
}

func (f *fakeUserStore) UpdateApprovalStatus(_ context.Context, id string, status model.ApprovalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ApprovalStatus = status
	return nil
}

func (f *fakeUserStore) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.TwoFactorEnabled = enabled
	return nil
}

func (f *fakeUserStore) Unlock(ctx context.Context, id string) error {
	return f.ResetFailedAttempts(ctx, id)
}

// fakeDeviceStore is an in-memory DeviceSessionStore.
type fakeDeviceStore struct {
	mu       sync.Mutex
	sessions map[string]*model.DeviceSession
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{sessions: make(map[string]*model.DeviceSession)}
}

func (f *fakeDeviceStore) get(id string) *model.DeviceSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

func (f *fakeDeviceStore) Create(_ context.Context, s *model.DeviceSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeDeviceStore) GetByID(_ context.Context, id string) (*model.DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDeviceStore) GetByRefreshTokenHash(_ context.Context, hash string) (*model.DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RefreshTokenHash == hash {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDeviceStore) ListActiveByUser(_ context.Context, userID string) ([]*model.DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DeviceSession
	for _, s := range f.sessions {
		if s.UserID == userID && !s.Revoked && !s.IsExpired() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDeviceStore) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !s.Revoked {
		s.Revoked = true
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (f *fakeDeviceStore) RevokeAllForUser(_ context.Context, userID string, exceptID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.ID != exceptID && !s.Revoked {
			s.Revoked = true
			now := time.Now()
			s.RevokedAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeDeviceStore) RotateRefreshToken(_ context.Context, id, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Revoked || s.IsExpired() {
		return repository.ErrNotFound
	}
	s.RefreshTokenHash = newHash
	s.LastActiveAt = time.Now()
	return nil
}

func (f *fakeDeviceStore) TouchActivity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.LastActiveAt = time.Now()
	}
	return nil
}

func (f *fakeDeviceStore) HasSeenFingerprint(_ context.Context, userID, browser, os, deviceType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Browser == browser && s.OS == os && s.DeviceType == deviceType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDeviceStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(before) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

// fakeAuditStore is an in-memory append-only AuditStore.
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*model.LoginAuditEntry
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{}
}

func (f *fakeAuditStore) all() []*model.LoginAuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.LoginAuditEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeAuditStore) Create(_ context.Context, entry *model.LoginAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) ListByUser(_ context.Context, userID string, limit int) ([]*model.LoginAuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*model.LoginAuditEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeAuditStore) LastSuccessfulLogin(_ context.Context, userID string) (*model.LoginAuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID == userID && e.Event == model.AuditLogin && e.Status == model.AuditSuccess {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAuditStore) KnownLocation(_ context.Context, userID, city, country string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hasHistory, seen bool
	for _, e := range f.entries {
		if e.UserID != userID || e.Event != model.AuditLogin || e.Status != model.AuditSuccess {
			continue
		}
		if e.Country != "" {
			hasHistory = true
		}
		if e.Country == country && (city == "" || e.City == city) {
			seen = true
		}
	}
	return hasHistory, seen, nil
}

func (f *fakeAuditStore) CountRecentFailures(_ context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.UserID == userID && e.Status == model.AuditFailure && e.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}
