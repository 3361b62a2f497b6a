package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

// Authenticate resolves the caller's identity without requiring one. It
// tries the browser session cookie first, then a bearer access token.
// Handlers that need an identity layer RequireAuth on top.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cookie, err := r.Cookie(m.cfg.Session.CookieName); err == nil && cookie.Value != "" {
			data, err := m.sessions.Get(ctx, cookie.Value)
			if err == nil {
				ctx = context.WithValue(ctx, SessionIDKey, cookie.Value)
				if data.Authenticated() && m.deviceSessionLive(ctx, cookie.Value, data) {
					ctx = context.WithValue(ctx, UserIDKey, data.UserID)
					ctx = context.WithValue(ctx, RoleKey, data.Role)
					ctx = context.WithValue(ctx, DeviceSessionIDKey, data.DeviceSessionID)
					// Sliding idle window
					if err := m.sessions.Touch(ctx, cookie.Value); err != nil {
						m.log.Debug().Err(err).Msg("failed to touch session")
					}
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			} else if !errors.Is(err, session.ErrSessionNotFound) {
				m.log.Error().Err(err).Msg("failed to load session")
			}
		}

		if token := bearerToken(r); token != "" {
			claims, err := m.tokens.ValidateAccessToken(token)
			if err == nil {
				ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
				ctx = context.WithValue(ctx, RoleKey, claims.Role)
			} else {
				m.log.Debug().Err(err).Msg("token validation failed")
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// deviceSessionLive checks that the device session backing a browser session
// is still valid. Revoking a device session must lock out its browser on the
// next request, not only after the cookie expires.
func (m *Middleware) deviceSessionLive(ctx context.Context, sid string, data *session.Data) bool {
	if m.devices == nil || data.DeviceSessionID == "" {
		return true
	}
	device, err := m.devices.GetByID(ctx, data.DeviceSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = m.sessions.Destroy(ctx, sid)
			return false
		}
		// Store outage: fail open rather than locking everyone out
		m.log.Error().Err(err).Msg("failed to check device session")
		return true
	}
	if device.Revoked || device.IsExpired() {
		_ = m.sessions.Destroy(ctx, sid)
		return false
	}
	if err := m.devices.TouchActivity(ctx, data.DeviceSessionID); err != nil {
		m.log.Debug().Err(err).Msg("failed to touch device session activity")
	}
	return true
}

// RequireAuth rejects requests without a resolved identity
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers below the given role
func (m *Middleware) RequireRole(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) == "" {
				http.Error(w, `{"error":"unauthorized","message":"Authentication required"}`, http.StatusUnauthorized)
				return
			}
			role := model.Role(GetRole(r.Context()))
			if !role.Valid() || !role.AtLeast(model.Role(required)) {
				http.Error(w, `{"error":"forbidden","message":"Insufficient permissions"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
