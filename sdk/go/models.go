package careerstack

import "time"

// User represents a CareerStack user returned by the API.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PseudoName       string     `json:"pseudoName"`
	FirstName        *string    `json:"firstName,omitempty"`
	LastName         *string    `json:"lastName,omitempty"`
	Role             string     `json:"role"`
	EmailVerified    bool       `json:"emailVerified"`
	ApprovalStatus   string     `json:"approvalStatus"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// LoginRequest contains the credentials for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned when a login or 2FA verification establishes
// a full session.
type SessionResponse struct {
	Success      bool   `json:"success"`
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TwoFactorChallenge is returned when the account requires an emailed code
// before a session is established.
type TwoFactorChallenge struct {
	TempToken string `json:"tempToken"`
}

// AuthResult wraps the login response, which is either an established
// session or a two-factor challenge.
type AuthResult struct {
	// Session is set when authentication completes without a second factor.
	Session *SessionResponse

	// TwoFactor is set when an emailed code must be verified first.
	TwoFactor *TwoFactorChallenge
}

// VerifyTwoFactorRequest completes a pending two-factor challenge.
type VerifyTwoFactorRequest struct {
	TempToken string `json:"tempToken"`
	Code      string `json:"code"`
}

// RegisterRequest contains the data for creating a new account.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	PseudoName string `json:"pseudoName"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
}

// RegisterResponse is returned after successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// RefreshResponse is returned after a successful token refresh.
type RefreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// DeviceSession is one entry in the user's active-session list.
type DeviceSession struct {
	ID           string    `json:"id"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	DeviceType   string    `json:"deviceType"`
	IPAddress    string    `json:"ipAddress"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	CreatedAt    time.Time `json:"createdAt"`
	Current      bool      `json:"current"`
}
