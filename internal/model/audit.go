package model

import "time"

// Audit event names
const (
	AuditLogin              = "auth.login"
	AuditLoginFailed        = "auth.login_failed"
	AuditLogout             = "auth.logout"
	AuditTwoFactorSent      = "auth.2fa_sent"
	AuditTwoFactorFailed    = "auth.2fa_failed"
	AuditTwoFactorVerified  = "auth.2fa_verified"
	AuditRegister           = "auth.register"
	AuditEmailVerified      = "auth.email_verified"
	AuditPasswordResetReq   = "auth.password_reset_request"
	AuditPasswordReset      = "auth.password_reset"
	AuditTokenRefresh       = "auth.token_refresh"
	AuditSessionRevoked     = "session.revoked"
	AuditSessionRevokedAll  = "session.revoked_all"
	AuditAccountUnlocked    = "admin.account_unlocked"
	AuditApprovalChanged    = "admin.approval_changed"
)

// AuditStatus is the outcome recorded on a login audit entry
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailure AuditStatus = "failure"
)

// LoginAuditEntry is an append-only record of an authentication event.
// Entries double as the comparison baseline for the suspicious-activity
// detector and are never updated or deleted.
type LoginAuditEntry struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Event         string      `json:"event"`
	Status        AuditStatus `json:"status"`
	FailureReason string      `json:"failureReason,omitempty"`

	IPAddress  string `json:"ipAddress"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"deviceType"`

	Suspicious        bool     `json:"suspicious"`
	SuspiciousReasons []string `json:"suspiciousReasons,omitempty"`
	IsNewLocation     bool     `json:"isNewLocation"`
	IsNewDevice       bool     `json:"isNewDevice"`

	CreatedAt time.Time `json:"createdAt"`
}
