package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

// Handler holds all HTTP handlers
type Handler struct {
	db         *database.Postgres
	rdb        *database.Redis
	log        *logger.Logger
	cfg        *config.Config
	authSvc    *service.AuthService
	sessionSvc *service.SessionService
	sessions   *session.Store
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, sessionSvc *service.SessionService, sessions *session.Store) *Handler {
	return &Handler{
		db:         db,
		rdb:        rdb,
		log:        log,
		cfg:        cfg,
		authSvc:    authSvc,
		sessionSvc: sessionSvc,
		sessions:   sessions,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Cookie helpers ---

func (h *Handler) sameSite() http.SameSite {
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// setSessionCookies installs the session identifier and the CSRF
// double-submit cookie. The CSRF cookie is readable by client JS so it can
// mirror the value into the request header.
func (h *Handler) setSessionCookies(w http.ResponseWriter, sessionID, csrfToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   int(h.cfg.Session.IdleTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: h.sameSite(),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   int(h.cfg.Session.IdleTTL.Seconds()),
		HttpOnly: false,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: h.sameSite(),
	})
}

// clearAuthCookies removes every auth-related cookie, including the legacy
// connect.sid name and the utm_params tracking cookie, so no logout path
// leaves a stale credential behind.
func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cfg.Session.CookieName, "connect.sid", middleware.CSRFCookieName, "utm_params"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.cfg.Cookie.Domain,
			MaxAge:   -1,
			HttpOnly: name != middleware.CSRFCookieName && name != "utm_params",
			Secure:   h.cfg.Cookie.Secure,
			SameSite: h.sameSite(),
		})
	}
}
