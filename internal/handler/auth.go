package handler

import (
	"errors"
	"net/http"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string  `json:"email"`
		Password   string  `json:"password"`
		PseudoName string  `json:"pseudoName"`
		FirstName  *string `json:"firstName"`
		LastName   *string `json:"lastName"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.authSvc.Register(r.Context(), service.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		PseudoName: req.PseudoName,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Meta:       requestMeta(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			// Generic conflict wording; the status code alone is the signal
			writeError(w, http.StatusConflict, "CONFLICT", "Registration could not be completed")
		case errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", err.Error())
		default:
			h.serverError(w, r, err, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created. Check your email for a verification code.",
		"userId":  result.UserID,
	})
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.authSvc.Login(r.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Meta:     requestMeta(r),
	})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	if result.TwoFactorRequired {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"requires2FA": true,
			"tempToken":   result.ChallengeToken,
		})
		return
	}

	h.respondWithSession(w, r, result)
}

// VerifyTwoFactor handles POST /auth/verify-2fa
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string `json:"code"`
		TempToken string `json:"tempToken"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.authSvc.VerifyTwoFactor(r.Context(), req.TempToken, req.Code, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrInvalidToken):
			writeError(w, http.StatusBadRequest, "INVALID_CODE", "Invalid or expired code")
		case errors.Is(err, service.ErrAccountLocked):
			writeError(w, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is temporarily locked")
		default:
			h.serverError(w, r, err, "two-factor verification failed")
		}
		return
	}

	h.respondWithSession(w, r, result)
}

// respondWithSession finishes a login: regenerates the browser session so
// the pre-login identifier dies, durably saves it, and only then writes the
// tokens to the response.
func (h *Handler) respondWithSession(w http.ResponseWriter, r *http.Request, result *service.LoginResult) {
	oldSessionID := ""
	if cookie, err := r.Cookie(h.cfg.Session.CookieName); err == nil {
		oldSessionID = cookie.Value
	}

	newSessionID, err := h.sessions.Regenerate(r.Context(), oldSessionID, &session.Data{
		UserID:          result.User.ID,
		Role:            string(result.User.Role),
		DeviceSessionID: result.DeviceSession.ID,
	})
	if err != nil {
		h.serverError(w, r, err, "failed to establish session")
		return
	}

	csrfToken, _, err := auth.GenerateOpaqueToken()
	if err != nil {
		h.serverError(w, r, err, "failed to generate CSRF token")
		return
	}
	h.setSessionCookies(w, newSessionID, csrfToken)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"user":         result.User.Sanitized(),
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

func (h *Handler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var verification *service.VerificationRequiredError
	switch {
	case errors.As(err, &verification):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "PENDING_VERIFICATION",
				"message": "Email address is not verified",
			},
			"requiresVerification": true,
			"userId":               verification.UserID,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is temporarily locked")
	case errors.Is(err, service.ErrAccountNotApproved):
		writeError(w, http.StatusForbidden, "PENDING_APPROVAL", "Account is awaiting approval")
	case errors.Is(err, service.ErrAccountRejected):
		writeError(w, http.StatusForbidden, "ACCOUNT_REJECTED", "Account registration was rejected")
	default:
		h.serverError(w, r, err, "login failed")
	}
}

// Logout handles POST /auth/logout. Always succeeds; both shapes revoke
// best-effort and clear every auth cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// Body is optional
	_ = readJSON(r, &req)

	ctx := r.Context()
	if req.RefreshToken != "" {
		h.authSvc.LogoutToken(ctx, req.RefreshToken, requestMeta(r))
	} else {
		h.authSvc.LogoutSession(ctx, middleware.GetUserID(ctx), middleware.GetDeviceSessionID(ctx), requestMeta(r))
	}

	if sid := middleware.GetSessionID(ctx); sid != "" {
		if err := h.sessions.Destroy(ctx, sid); err != nil {
			h.log.Error().Err(err).Msg("failed to destroy session on logout")
		}
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := readJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Refresh token is required")
		return
	}

	result, err := h.authSvc.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenRevoked):
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		default:
			h.serverError(w, r, err, "token refresh failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

// CurrentUser handles GET /auth/user
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.authSvc.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		h.serverError(w, r, err, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user.Sanitized()})
}

// SetTwoFactor handles POST /auth/settings/two-factor
func (h *Handler) SetTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := readJSON(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "enabled is required")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.authSvc.SetTwoFactor(r.Context(), userID, *req.Enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		h.serverError(w, r, err, "failed to update two-factor setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "twoFactorEnabled": *req.Enabled})
}

// RequestPasswordReset handles POST /auth/request-password-reset.
// The response never reveals whether the account exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.authSvc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrTooManyResetRequests) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many reset requests")
			return
		}
		h.log.Error().Err(err).Msg("password reset request failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "If an account exists for that address, a reset link has been sent.",
	})
}

// ResetPassword handles POST /auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.authSvc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			writeError(w, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired token")
		case errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", err.Error())
		case errors.Is(err, service.ErrSamePassword):
			writeError(w, http.StatusBadRequest, "SAME_PASSWORD", "New password must be different")
		default:
			h.serverError(w, r, err, "password reset failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Password has been reset. You can now sign in.",
	})
}

// VerifyEmail handles GET /auth/verify-email?email=...&code=...
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	emailAddr := r.URL.Query().Get("email")
	code := r.URL.Query().Get("code")
	if emailAddr == "" || code == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "email and code are required")
		return
	}

	if err := h.authSvc.VerifyEmail(r.Context(), emailAddr, code); err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			writeError(w, http.StatusBadRequest, "INVALID_CODE", "Invalid or expired code")
			return
		}
		h.serverError(w, r, err, "email verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Email verified. Your account is awaiting approval.",
	})
}

// ResendVerification handles POST /auth/resend-verification.
// Enumeration-safe: the response is identical whether or not the account
// exists or is already verified.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.authSvc.ResendVerification(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrResendTooSoon) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "A code was sent recently")
			return
		}
		h.log.Error().Err(err).Msg("resend verification failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "If an unverified account exists for that address, a new code has been sent.",
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}
