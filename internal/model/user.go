package model

import (
	"time"
)

// Role represents a user's permission tier. Higher roles are supersets of
// lower ones.
type Role string

const (
	RoleStandard  Role = "standard"
	RoleMarketing Role = "marketing"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleStandard:  0,
	RoleMarketing: 1,
	RoleAdmin:     2,
}

// AtLeast reports whether the role grants everything the required role does.
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// ApprovalStatus represents the admin approval state of an account
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending_approval"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// User represents the core user identity record
type User struct {
	ID                  string         `json:"id"`
	Email               string         `json:"email"`
	PseudoName          string         `json:"pseudoName"`
	FirstName           *string        `json:"firstName,omitempty"`
	LastName            *string        `json:"lastName,omitempty"`
	PasswordHash        string         `json:"-"`
	Role                Role           `json:"role"`
	EmailVerified       bool           `json:"emailVerified"`
	ApprovalStatus      ApprovalStatus `json:"approvalStatus"`
	TwoFactorEnabled    bool           `json:"twoFactorEnabled"`
	FailedLoginAttempts int            `json:"-"`
	LockedUntil         *time.Time     `json:"-"`

	// Single-use token hashes; nulled the moment they are consumed or
	// superseded by a newer request.
	VerificationTokenHash    *string    `json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	ResetTokenHash           *string    `json:"-"`
	ResetTokenExpires        *time.Time `json:"-"`

	// Last successful login metadata, used as the suspicious-activity baseline
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP      *string    `json:"-"`
	LastLoginCity    *string    `json:"-"`
	LastLoginCountry *string    `json:"-"`
	LastLoginBrowser *string    `json:"-"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
}

// IsLocked checks if the account lockout window is still active
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// CanLogin reports whether the account has cleared verification and approval
func (u *User) CanLogin() bool {
	return u.EmailVerified && u.ApprovalStatus == ApprovalApproved
}

// Sanitized returns the view of the user safe to return over the API.
// The password hash and token material carry `json:"-"` tags, so the struct
// itself is safe to encode; this exists to make the intent explicit at call
// sites.
func (u *User) Sanitized() *User {
	clone := *u
	clone.PasswordHash = ""
	clone.VerificationTokenHash = nil
	clone.ResetTokenHash = nil
	return &clone
}
