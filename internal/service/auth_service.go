package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/activity"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/email"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/geo"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
)

const (
	verifyResendKeyPrefix = "careerstack:verify:resend:"
	resetRateKeyPrefix    = "careerstack:reset:rate:"
)

// VerificationRequiredError rejects a login whose password checked out but
// whose email is unverified. It carries the user id so the client can offer
// to resend the code. Revealing verification status only after a successful
// password match is a documented product decision.
type VerificationRequiredError struct {
	UserID string
}

func (e *VerificationRequiredError) Error() string { return ErrEmailNotVerified.Error() }

func (e *VerificationRequiredError) Unwrap() error { return ErrEmailNotVerified }

// RequestMeta is the transport-level context of an auth request
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginRequest is the credentials step input
type LoginRequest struct {
	Email    string
	Password string
	Meta     RequestMeta
}

// LoginResult is the outcome of a successful credentials or code step.
// Either TwoFactorRequired is set with a ChallengeToken, or the session
// fields are populated.
type LoginResult struct {
	TwoFactorRequired bool
	ChallengeToken    string

	User          *model.User
	AccessToken   string
	RefreshToken  string
	DeviceSession *model.DeviceSession
	Assessment    activity.Assessment
}

// RegisterRequest contains the data for registering a new user
type RegisterRequest struct {
	Email      string
	Password   string
	PseudoName string
	FirstName  *string
	LastName   *string
	Meta       RequestMeta
}

// RegisterResult contains the response from a registration
type RegisterResult struct {
	UserID string
	Email  string
}

// RefreshResult is a rotated token pair
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService is the login/logout/2FA/reset state machine. It sequences the
// token service, device registry, detector, and audit log; handlers own the
// browser session store and cookies.
type AuthService struct {
	users     UserStore
	devices   DeviceSessionStore
	audit     AuditStore
	sessions  *SessionService
	twoFactor *TwoFactorService
	tokens    *auth.TokenService
	sender    email.Sender
	geo       *geo.Resolver
	detector  *activity.Detector
	redis     *database.Redis

	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserStore,
	devices DeviceSessionStore,
	audit AuditStore,
	sessions *SessionService,
	twoFactor *TwoFactorService,
	tokens *auth.TokenService,
	sender email.Sender,
	geoResolver *geo.Resolver,
	rdb *database.Redis,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		devices:   devices,
		audit:     audit,
		sessions:  sessions,
		twoFactor: twoFactor,
		tokens:    tokens,
		sender:    sender,
		geo:       geoResolver,
		detector:  activity.NewDetector(),
		redis:     rdb,
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("auth_service"),
	}
}

// Login runs the credentials step. It either returns a two-factor challenge
// or a fully established login, or one of the sentinel rejections.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	emailAddr := auth.NormalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a hash verification so unknown emails cost the same
			// as wrong passwords.
			auth.VerifyDummy(req.Password, s.argonParams)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Lock dominates credential correctness
	if user.IsLocked() {
		s.logAudit(ctx, s.failureEntry(user.ID, model.AuditLoginFailed, "account_locked", req.Meta))
		return nil, ErrAccountLocked
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, s.handleFailedPassword(ctx, user, req.Meta)
	}

	if !user.EmailVerified {
		s.logAudit(ctx, s.failureEntry(user.ID, model.AuditLoginFailed, "email_not_verified", req.Meta))
		return nil, &VerificationRequiredError{UserID: user.ID}
	}

	switch user.ApprovalStatus {
	case model.ApprovalApproved:
	case model.ApprovalRejected:
		s.logAudit(ctx, s.failureEntry(user.ID, model.AuditLoginFailed, "account_rejected", req.Meta))
		return nil, ErrAccountRejected
	default:
		s.logAudit(ctx, s.failureEntry(user.ID, model.AuditLoginFailed, "pending_approval", req.Meta))
		return nil, ErrAccountNotApproved
	}

	if user.TwoFactorEnabled {
		challengeToken, err := s.twoFactor.Issue(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to issue two-factor challenge: %w", err)
		}
		s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditTwoFactorSent, model.AuditSuccess, "", req.Meta))
		return &LoginResult{TwoFactorRequired: true, ChallengeToken: challengeToken}, nil
	}

	return s.establishLogin(ctx, user, req.Meta)
}

// VerifyTwoFactor runs the code step and, on success, establishes the login
// for the user embedded in the challenge token.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, challengeToken, code string, meta RequestMeta) (*LoginResult, error) {
	userID, err := s.twoFactor.Verify(ctx, challengeToken, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrInvalidToken) {
			// The token may be garbage; only audit when we know who this is
			if claims, tokenErr := s.tokens.ValidateChallengeToken(challengeToken); tokenErr == nil {
				s.logAudit(ctx, s.failureEntry(claims.Subject, model.AuditTwoFactorFailed, "bad_code", meta))
			}
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditTwoFactorVerified, model.AuditSuccess, "", meta))
	return s.establishLogin(ctx, user, meta)
}

// establishLogin is step 6 of the login sequence: fingerprint, detector,
// audit, notifications, token issuance, device session row, counter reset.
// Notification and audit failures are logged, never fatal.
func (s *AuthService) establishLogin(ctx context.Context, user *model.User, meta RequestMeta) (*LoginResult, error) {
	fp := auth.ParseUserAgent(meta.UserAgent)
	location := s.geo.Resolve(meta.IPAddress)

	knownDevice, err := s.devices.HasSeenFingerprint(ctx, user.ID, fp.Browser, fp.OS, fp.DeviceType)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to check device history")
	}
	recentFailures, err := s.audit.CountRecentFailures(ctx, user.ID, time.Now().Add(-s.detector.VelocityWindow()))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to count recent failures")
	}

	// The audit trail is the detector's baseline: the last login for travel
	// checks, the whole successful-login history for the location check.
	lastLogin, err := s.audit.LastSuccessfulLogin(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to load last login")
		lastLogin = nil
	}
	var hasLocHistory, knownLocation bool
	if location.Known() {
		hasLocHistory, knownLocation, err = s.audit.KnownLocation(ctx, user.ID, location.City, location.Country)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to check location history")
		}
	}

	assessment := s.detector.Assess(activity.Input{
		LastLogin:          lastLogin,
		Location:           location,
		Fingerprint:        fp,
		HasLocationHistory: hasLocHistory,
		KnownLocation:      knownLocation,
		KnownDevice:        knownDevice,
		RecentFailures:     recentFailures,
		Now:                time.Now(),
	})

	rawRefresh, refreshHash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	device := &model.DeviceSession{
		ID:               "dev_" + uuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		Browser:          fp.Browser,
		OS:               fp.OS,
		DeviceType:       fp.DeviceType,
		LastActiveAt:     now,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.tokens.RefreshTokenTTL()),
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device session: %w", err)
	}

	if err := s.users.ResetFailedAttempts(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to reset lockout counters")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, meta.IPAddress, location.City, location.Country, fp.Browser); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to update login baseline")
	}

	entry := &model.LoginAuditEntry{
		ID:                "aud_" + uuid.New().String(),
		UserID:            user.ID,
		Event:             model.AuditLogin,
		Status:            model.AuditSuccess,
		IPAddress:         meta.IPAddress,
		City:              location.City,
		Country:           location.Country,
		Browser:           fp.Browser,
		OS:                fp.OS,
		DeviceType:        fp.DeviceType,
		Suspicious:        assessment.Suspicious,
		SuspiciousReasons: assessment.Reasons,
		IsNewLocation:     assessment.IsNewLocation,
		IsNewDevice:       assessment.IsNewDevice,
		CreatedAt:         now,
	}
	s.logAudit(ctx, entry)

	s.notifyLogin(ctx, user, fp, location, meta, assessment, now)

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	return &LoginResult{
		User:          user,
		AccessToken:   accessToken,
		RefreshToken:  rawRefresh,
		DeviceSession: device,
		Assessment:    assessment,
	}, nil
}

// handleFailedPassword records the failure and reports whether it crossed
// the lockout threshold.
func (s *AuthService) handleFailedPassword(ctx context.Context, user *model.User, meta RequestMeta) error {
	attempts, lockedUntil, err := s.users.RecordFailedLogin(ctx, user.ID,
		s.cfg.Security.Lockout.MaxFailedAttempts, s.cfg.Security.Lockout.LockDuration)
	if err != nil {
		// The counter update is the one thing that must not silently fail
		return fmt.Errorf("failed to record failed login: %w", err)
	}

	s.logAudit(ctx, s.failureEntry(user.ID, model.AuditLoginFailed, "bad_password", meta))

	if lockedUntil != nil && time.Now().Before(*lockedUntil) {
		s.log.Warn().Str("user_id", user.ID).Int("attempts", attempts).Time("locked_until", *lockedUntil).Msg("account locked")
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// Register creates a new user account and emails a verification code
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	emailAddr := auth.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}
	if req.PseudoName == "" {
		return nil, fmt.Errorf("pseudo name is required")
	}

	exists, err := s.users.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := auth.HashPassword(req.Password, s.argonParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := GenerateNumericCode(s.cfg.Verification.OTPLength)
	if err != nil {
		return nil, err
	}
	codeHash := auth.HashToken(code)
	expires := time.Now().Add(s.cfg.Verification.OTPTTL)

	now := time.Now().UTC()
	user := &model.User{
		ID:                       "usr_" + uuid.New().String(),
		Email:                    emailAddr,
		PseudoName:               req.PseudoName,
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		PasswordHash:             passwordHash,
		Role:                     model.RoleStandard,
		ApprovalStatus:           model.ApprovalPending,
		VerificationTokenHash:    &codeHash,
		VerificationTokenExpires: &expires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	msg := email.VerificationEmail(user.Email, code, s.cfg.Email.AppName, s.cfg.Verification.OTPTTL)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification email")
	}

	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditRegister, model.AuditSuccess, "", req.Meta))
	return &RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// VerifyEmail consumes the verification code for an account
func (s *AuthService) VerifyEmail(ctx context.Context, emailAddr, code string) error {
	user, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	if user.VerificationTokenHash == nil || user.VerificationTokenExpires == nil ||
		time.Now().After(*user.VerificationTokenExpires) {
		return ErrInvalidCode
	}
	if auth.HashToken(auth.NormalizeCode(code)) != *user.VerificationTokenHash {
		return ErrInvalidCode
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditEmailVerified, model.AuditSuccess, "", RequestMeta{}))
	return nil
}

// ResendVerification re-issues the verification code. Enumeration-safe:
// unknown or already-verified accounts return nil without sending.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	cooldownKey := verifyResendKeyPrefix + user.ID
	n, err := s.redis.Exists(ctx, cooldownKey)
	if err != nil {
		return fmt.Errorf("failed to check resend cooldown: %w", err)
	}
	if n > 0 {
		return ErrResendTooSoon
	}
	if err := s.redis.SetWithTTL(ctx, cooldownKey, "1", s.cfg.Verification.ResendCooldown); err != nil {
		return fmt.Errorf("failed to set resend cooldown: %w", err)
	}

	code, err := GenerateNumericCode(s.cfg.Verification.OTPLength)
	if err != nil {
		return err
	}
	codeHash := auth.HashToken(code)
	if err := s.users.SetVerificationToken(ctx, user.ID, codeHash, time.Now().Add(s.cfg.Verification.OTPTTL)); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	msg := email.VerificationEmail(user.Email, code, s.cfg.Email.AppName, s.cfg.Verification.OTPTTL)
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset link. Enumeration-safe: unknown
// accounts return nil. Rate limited per account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	rateKey := resetRateKeyPrefix + user.ID
	count, err := s.redis.Incr(ctx, rateKey)
	if err != nil {
		return fmt.Errorf("failed to rate limit reset: %w", err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, rateKey, time.Hour); err != nil {
			s.log.Error().Err(err).Msg("failed to set reset rate window")
		}
	}
	if count > int64(s.cfg.PasswordReset.MaxPerHour) {
		return ErrTooManyResetRequests
	}

	rawToken, tokenHash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, time.Now().Add(s.cfg.PasswordReset.TokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PasswordReset.PublicBaseURL, rawToken)
	msg := email.PasswordResetEmail(user.Email, resetURL, s.cfg.Email.AppName, s.cfg.PasswordReset.TokenTTL)
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditPasswordResetReq, model.AuditSuccess, "", RequestMeta{}))
	return nil
}

// ResetPassword consumes a reset token, replaces the password, and revokes
// every device session. The lockout also clears; a user who resets their
// password should be able to log in immediately.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword, s.cfg.Security.Password.MinLength); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	user, err := s.users.GetByResetToken(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	same, err := auth.VerifyPassword(newPassword, user.PasswordHash)
	if err == nil && same {
		return ErrSamePassword
	}

	passwordHash, err := auth.HashPassword(newPassword, s.argonParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.users.Unlock(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to clear lockout after reset")
	}

	if _, err := s.sessions.RevokeAll(ctx, user.ID, "", "password_reset"); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions after reset")
	}

	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditPasswordReset, model.AuditSuccess, "", RequestMeta{}))
	return nil
}

// Refresh rotates a refresh token. Presenting a revoked token is treated as
// theft: every session for the user is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*RefreshResult, error) {
	device, err := s.devices.GetByRefreshTokenHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if device.Revoked {
		s.log.Warn().Str("user_id", device.UserID).Str("session_id", device.ID).Msg("revoked refresh token presented")
		if _, err := s.sessions.RevokeAll(ctx, device.UserID, "", "refresh_token_reuse"); err != nil {
			s.log.Error().Err(err).Str("user_id", device.UserID).Msg("failed to revoke sessions after token reuse")
		}
		return nil, ErrTokenRevoked
	}
	if device.IsExpired() {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, device.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsLocked() || !user.CanLogin() {
		return nil, ErrInvalidToken
	}

	rawRefresh, refreshHash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	if err := s.devices.RotateRefreshToken(ctx, device.ID, refreshHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, s.failureEntryStatus(user.ID, model.AuditTokenRefresh, model.AuditSuccess, "", meta))
	return &RefreshResult{AccessToken: accessToken, RefreshToken: rawRefresh, User: user}, nil
}

// LogoutSession is the browser-cookie logout shape. Device bookkeeping is
// best-effort; the caller clears local state regardless.
func (s *AuthService) LogoutSession(ctx context.Context, userID, deviceSessionID string, meta RequestMeta) {
	if userID == "" {
		return
	}
	if deviceSessionID != "" {
		if err := s.devices.Revoke(ctx, deviceSessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Str("user_id", userID).Msg("failed to revoke device session on logout")
		}
	}
	s.logAudit(ctx, s.failureEntryStatus(userID, model.AuditLogout, model.AuditSuccess, "", meta))
}

// LogoutToken is the refresh-token logout shape. Unknown and already
// revoked tokens succeed silently.
func (s *AuthService) LogoutToken(ctx context.Context, refreshToken string, meta RequestMeta) {
	device, err := s.devices.GetByRefreshTokenHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Msg("failed to look up refresh token on logout")
		}
		return
	}
	if !device.Revoked {
		if err := s.devices.Revoke(ctx, device.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", device.UserID).Msg("failed to revoke device session on logout")
		}
	}
	s.logAudit(ctx, s.failureEntryStatus(device.UserID, model.AuditLogout, model.AuditSuccess, "", meta))
}

// GetUser loads a user by id
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// AdminUnlock clears an account lockout immediately
func (s *AuthService) AdminUnlock(ctx context.Context, adminID, userID string) error {
	if err := s.users.Unlock(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to unlock account: %w", err)
	}
	s.log.Info().Str("admin_id", adminID).Str("user_id", userID).Msg("account unlocked")
	s.logAudit(ctx, s.failureEntryStatus(userID, model.AuditAccountUnlocked, model.AuditSuccess, "", RequestMeta{}))
	return nil
}

// SetTwoFactor toggles the email code step for the user's future logins
func (s *AuthService) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	if err := s.users.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to update two-factor setting: %w", err)
	}
	s.log.Info().Str("user_id", userID).Bool("enabled", enabled).Msg("two-factor setting changed")
	return nil
}

// AdminSetApproval moves a user to the given approval status. Rejected and
// pending users cannot log in.
func (s *AuthService) AdminSetApproval(ctx context.Context, adminID, userID string, status model.ApprovalStatus) error {
	switch status {
	case model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
	default:
		return ErrInvalidApprovalStatus
	}
	if err := s.users.UpdateApprovalStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	s.log.Info().Str("admin_id", adminID).Str("user_id", userID).Str("status", string(status)).Msg("approval status changed")
	s.logAudit(ctx, s.failureEntryStatus(userID, model.AuditApprovalChanged, model.AuditSuccess, "", RequestMeta{}))
	return nil
}

// notifyLogin sends the advisory emails a flagged login warrants
func (s *AuthService) notifyLogin(ctx context.Context, user *model.User, fp auth.Fingerprint, location geo.Location, meta RequestMeta, assessment activity.Assessment, at time.Time) {
	if assessment.IsNewDevice || assessment.Suspicious {
		msg := email.SuspiciousLoginEmail(user.Email, s.cfg.Email.AppName, fp.DeviceName(),
			location.City, location.Country, meta.IPAddress, assessment.Reasons, at)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send login notification")
		}
	}
	if assessment.Suspicious && s.cfg.Email.AdminAddress != "" {
		msg := email.AdminSuspiciousLoginEmail(s.cfg.Email.AdminAddress, s.cfg.Email.AppName, user.Email,
			fp.DeviceName(), location.City, location.Country, meta.IPAddress, assessment.Reasons, at)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send admin alert")
		}
	}
}

func (s *AuthService) failureEntry(userID, event, reason string, meta RequestMeta) *model.LoginAuditEntry {
	return s.failureEntryStatus(userID, event, model.AuditFailure, reason, meta)
}

func (s *AuthService) failureEntryStatus(userID, event string, status model.AuditStatus, reason string, meta RequestMeta) *model.LoginAuditEntry {
	fp := auth.ParseUserAgent(meta.UserAgent)
	location := s.geo.Resolve(meta.IPAddress)
	return &model.LoginAuditEntry{
		ID:            "aud_" + uuid.New().String(),
		UserID:        userID,
		Event:         event,
		Status:        status,
		FailureReason: reason,
		IPAddress:     meta.IPAddress,
		City:          location.City,
		Country:       location.Country,
		Browser:       fp.Browser,
		OS:            fp.OS,
		DeviceType:    fp.DeviceType,
		CreatedAt:     time.Now().UTC(),
	}
}

// logAudit is best-effort: audit failures never change the auth outcome
func (s *AuthService) logAudit(ctx context.Context, entry *model.LoginAuditEntry) {
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("user_id", entry.UserID).Str("event", entry.Event).Msg("failed to write audit entry")
	}
}

// ListAuditEntries returns a user's recent auth activity
func (s *AuthService) ListAuditEntries(ctx context.Context, userID string, limit int) ([]*model.LoginAuditEntry, error) {
	return s.audit.ListByUser(ctx, userID, limit)
}
