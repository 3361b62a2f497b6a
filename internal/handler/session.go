package handler

import (
	"errors"
	"net/http"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
)

// ListSessions handles GET /auth/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.sessionSvc.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.serverError(w, r, err, "failed to list sessions")
		return
	}

	current := middleware.GetDeviceSessionID(ctx)
	items := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, map[string]interface{}{
			"id":           s.ID,
			"browser":      s.Browser,
			"os":           s.OS,
			"deviceType":   s.DeviceType,
			"ipAddress":    s.IPAddress,
			"lastActiveAt": s.LastActiveAt,
			"createdAt":    s.CreatedAt,
			"current":      s.ID == current,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": items})
}

// RevokeSession handles POST /auth/sessions/{id}/revoke
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Session id is required")
		return
	}

	err := h.sessionSvc.Revoke(ctx, middleware.GetUserID(ctx), sessionID, "user_revoked")
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
			return
		}
		h.serverError(w, r, err, "failed to revoke session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LogoutAll handles POST /auth/logout-all: the user's own "log out
// everywhere". The current session survives unless the browser session is
// also being torn down.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.sessionSvc.RevokeAll(ctx, middleware.GetUserID(ctx), middleware.GetDeviceSessionID(ctx), "logout_everywhere")
	if err != nil {
		h.serverError(w, r, err, "failed to revoke sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"revoked": count,
	})
}
