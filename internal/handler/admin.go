package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
)

// AdminListSessions handles GET /admin/users/{id}/active-sessions
func (h *Handler) AdminListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "User id is required")
		return
	}

	sessions, err := h.sessionSvc.List(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, err, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// AdminRevokeSession handles POST /admin/revoke-session/{id}
func (h *Handler) AdminRevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Session id is required")
		return
	}

	// Admins revoke without an ownership check; resolve the owner first
	// so the audit entry lands on the right user.
	target, err := h.sessionSvc.OwnerOf(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
			return
		}
		h.serverError(w, r, err, "failed to load session")
		return
	}

	if err := h.sessionSvc.Revoke(r.Context(), target, sessionID, "admin_revoked"); err != nil {
		h.serverError(w, r, err, "failed to revoke session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AdminForceLogout handles POST /admin/force-logout
func (h *Handler) AdminForceLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "userId is required")
		return
	}

	count, err := h.sessionSvc.RevokeAll(r.Context(), req.UserID, "", "admin_force_logout")
	if err != nil {
		h.serverError(w, r, err, "failed to force logout")
		return
	}

	h.log.Info().
		Str("admin_id", middleware.GetUserID(r.Context())).
		Str("user_id", req.UserID).
		Int("revoked", count).
		Msg("forced logout")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "revoked": count})
}

// AdminSetApproval handles POST /admin/users/{id}/approval
func (h *Handler) AdminSetApproval(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "User id is required")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "status is required")
		return
	}

	err := h.authSvc.AdminSetApproval(r.Context(), middleware.GetUserID(r.Context()), userID, model.ApprovalStatus(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrInvalidApprovalStatus) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown approval status")
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		h.serverError(w, r, err, "failed to update approval status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AdminLoginHistory handles GET /admin/users/{id}/login-history
func (h *Handler) AdminLoginHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "User id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.authSvc.ListAuditEntries(r.Context(), userID, limit)
	if err != nil {
		h.serverError(w, r, err, "failed to list login history")
		return
	}
	if entries == nil {
		entries = []*model.LoginAuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// AdminUnlockAccount handles POST /admin/users/{id}/unlock
func (h *Handler) AdminUnlockAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "User id is required")
		return
	}

	err := h.authSvc.AdminUnlock(r.Context(), middleware.GetUserID(r.Context()), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		h.serverError(w, r, err, "failed to unlock account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
