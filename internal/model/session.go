package model

import "time"

// DeviceSession is one row per device/browser the user has authenticated
// from. A refresh token hash maps to exactly one non-revoked session at a
// time; revocation is monotonic and a new login always creates a fresh row.
type DeviceSession struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	RefreshTokenHash string     `json:"-"`
	UserAgent        string     `json:"userAgent"`
	IPAddress        string     `json:"ipAddress"`
	Browser          string     `json:"browser"`
	OS               string     `json:"os"`
	DeviceType       string     `json:"deviceType"`
	Revoked          bool       `json:"revoked"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	LastActiveAt     time.Time  `json:"lastActiveAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiresAt        time.Time  `json:"expiresAt"`
}

// IsExpired checks if the session's refresh window has passed
func (s *DeviceSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Usable reports whether the session can still mint access tokens
func (s *DeviceSession) Usable() bool {
	return !s.Revoked && !s.IsExpired()
}
