package router

import (
	"net/http"
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/handler"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Public authentication routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "login",
		Limit:  10,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	registerRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "register",
		Limit:  3,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	codeRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "code",
		Limit:  10,
		Window: 5 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	resetRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "reset",
		Limit:  5,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	refreshRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "refresh",
		Limit:  20,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /auth/register", registerRateLimit(http.HandlerFunc(h.Register)))
	mux.Handle("POST /auth/login", loginRateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /auth/verify-2fa", codeRateLimit(http.HandlerFunc(h.VerifyTwoFactor)))
	mux.Handle("POST /auth/refresh", refreshRateLimit(http.HandlerFunc(h.Refresh)))
	mux.Handle("POST /auth/request-password-reset", resetRateLimit(http.HandlerFunc(h.RequestPasswordReset)))
	mux.Handle("POST /auth/reset-password", resetRateLimit(http.HandlerFunc(h.ResetPassword)))
	mux.HandleFunc("GET /auth/verify-email", h.VerifyEmail)
	mux.Handle("POST /auth/resend-verification", codeRateLimit(http.HandlerFunc(h.ResendVerification)))

	// Logout is public on purpose: it must succeed for callers whose
	// session has already evaporated.
	mux.HandleFunc("POST /auth/logout", h.Logout)

	// Identity probe: the handler distinguishes 200 from 401 itself
	mux.HandleFunc("GET /auth/user", h.CurrentUser)

	// Authenticated session management
	requireAuth := mw.RequireAuth
	mux.Handle("GET /auth/sessions", requireAuth(http.HandlerFunc(h.ListSessions)))
	mux.Handle("POST /auth/sessions/{id}/revoke", requireAuth(http.HandlerFunc(h.RevokeSession)))
	mux.Handle("POST /auth/logout-all", requireAuth(http.HandlerFunc(h.LogoutAll)))
	mux.Handle("POST /auth/settings/two-factor", requireAuth(http.HandlerFunc(h.SetTwoFactor)))

	// Admin routes
	requireAdmin := mw.RequireRole("admin")
	mux.Handle("GET /admin/users/{id}/active-sessions", requireAdmin(http.HandlerFunc(h.AdminListSessions)))
	mux.Handle("POST /admin/revoke-session/{id}", requireAdmin(http.HandlerFunc(h.AdminRevokeSession)))
	mux.Handle("POST /admin/force-logout", requireAdmin(http.HandlerFunc(h.AdminForceLogout)))
	mux.Handle("POST /admin/users/{id}/unlock", requireAdmin(http.HandlerFunc(h.AdminUnlockAccount)))
	mux.Handle("POST /admin/users/{id}/approval", requireAdmin(http.HandlerFunc(h.AdminSetApproval)))
	mux.Handle("GET /admin/users/{id}/login-history", requireAdmin(http.HandlerFunc(h.AdminLoginHistory)))

	// Apply middleware stack
	var root http.Handler = mux
	root = mw.CSRF(root)
	root = mw.Authenticate(root)
	root = mw.CORS(allowedOrigins)(root)
	root = mw.SecurityHeaders(root)
	root = mw.Logger(root)
	root = mw.RequestID(root)
	root = mw.Recover(root)

	return root
}
