package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/handler"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/router"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

const testPassword = "sufficient-entropy-1"

type apiHarness struct {
	http    http.Handler
	store   *session.Store
	users   *fakeUserStore
	devices *fakeDeviceStore
	audit   *fakeAuditStore
	sender  *capturingSender
	redis   *miniredis.Miniredis
	cfg     *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.Password = config.PasswordConfig{
		MinLength:         8,
		Argon2Memory:      1024,
		Argon2Iterations:  1,
		Argon2Parallelism: 1,
	}
	cfg.Security.Tokens = config.TokenConfig{
		AccessTokenSecret: "test-access-secret-test-access-secret",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   720 * time.Hour,
		Issuer:            "careerstack-test",
	}
	cfg.Security.Lockout = config.LockoutConfig{
		MaxFailedAttempts: 5,
		LockDuration:      15 * time.Minute,
	}
	cfg.Security.RateLimiting = config.RateLimitingConfig{Enabled: true}
	cfg.TwoFactor = config.TwoFactorConfig{
		CodeLength:      6,
		ChallengeTTL:    5 * time.Minute,
		TempTokenSecret: "test-temp-secret-test-temp-secret",
	}
	cfg.Email = config.EmailConfig{AppName: "CareerStack"}
	cfg.Verification = config.VerificationConfig{
		OTPLength:      6,
		OTPTTL:         10 * time.Minute,
		ResendCooldown: time.Minute,
	}
	cfg.PasswordReset = config.PasswordResetConfig{
		TokenTTL:      time.Hour,
		MaxPerHour:    3,
		PublicBaseURL: "http://localhost:3000",
	}
	cfg.Session = config.SessionConfig{
		CookieName:  "sid",
		IdleTTL:     30 * time.Minute,
		AbsoluteTTL: 12 * time.Hour,
	}
	cfg.Cookie = config.CookieConfig{SameSite: "lax"}
	return cfg
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	cfg := testConfig()
	log := logger.New("error", "text")

	users := newFakeUserStore()
	devices := newFakeDeviceStore()
	audit := newFakeAuditStore()
	sender := &capturingSender{}

	tokens := auth.NewTokenService(cfg.Security.Tokens, cfg.TwoFactor)
	store := session.NewStore(rdb, cfg.Session)
	sessionSvc := service.NewSessionService(devices, audit, rdb, log)
	twoFactor := service.NewTwoFactorService(rdb, tokens, sender, cfg.TwoFactor, cfg.Email, log)
	authSvc := service.NewAuthService(users, devices, audit, sessionSvc, twoFactor, tokens, sender, nil, rdb, cfg, log)

	h := handler.New(nil, rdb, log, cfg, authSvc, sessionSvc, store)
	mw := middleware.New(rdb, store, devices, tokens, log, cfg)

	return &apiHarness{
		http:    router.New(h, mw, []string{"http://localhost:3000"}),
		store:   store,
		users:   users,
		devices: devices,
		audit:   audit,
		sender:  sender,
		redis:   mr,
		cfg:     cfg,
	}
}

func (h *apiHarness) addUser(t *testing.T, mutate ...func(*model.User)) *model.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword, auth.NewParams(1024, 1, 1))
	require.NoError(t, err)

	user := &model.User{
		ID:             "usr_test",
		Email:          "jane@example.com",
		PseudoName:     "jane",
		PasswordHash:   hash,
		Role:           model.RoleStandard,
		EmailVerified:  true,
		ApprovalStatus: model.ApprovalApproved,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	for _, m := range mutate {
		m(user)
	}
	h.users.add(user)
	return user
}

func (h *apiHarness) do(t *testing.T, method, path string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36")
	req.RemoteAddr = "203.0.113.10:4000"
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	h.http.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login performs a full credential login and returns the response recorder.
func (h *apiHarness) login(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}

func TestLogin_Success_SetsSessionAndCSRFCookies(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	rec := h.login(t)
	body := decodeBody(t, rec)

	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", user["email"])
	// Sanitized payloads never carry the hash
	assert.NotContains(t, rec.Body.String(), "password")

	sid := cookieByName(rec, "sid")
	require.NotNil(t, sid)
	assert.NotEmpty(t, sid.Value)
	assert.True(t, sid.HttpOnly)

	csrf := cookieByName(rec, middleware.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.NotEmpty(t, csrf.Value)
	assert.False(t, csrf.HttpOnly)
}

func TestLogin_RegeneratesSessionID(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	first := h.login(t)
	oldSID := cookieByName(first, "sid").Value

	second := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: oldSID})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "x"})
		r.Header.Set(middleware.CSRFHeaderName, "x")
	})
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	newSID := cookieByName(second, "sid").Value
	assert.NotEqual(t, oldSID, newSID)

	// The pre-login identifier must be dead server-side
	_, err := h.store.Get(context.Background(), oldSID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	data, err := h.store.Get(context.Background(), newSID)
	require.NoError(t, err)
	assert.Equal(t, "usr_test", data.UserID)
}

func TestLogin_UnknownEmailAndWrongPasswordLookIdentical(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	unknown := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": testPassword,
	})
	wrong := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "not-the-password",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Contains(t, unknown.Body.String(), "INVALID_CREDENTIALS")
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t, func(u *model.User) { u.EmailVerified = false })

	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["requiresVerification"])
	assert.Equal(t, "usr_test", body["userId"])
	assert.Contains(t, rec.Body.String(), "PENDING_VERIFICATION")
}

func TestLogin_TwoFactorFlow(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t, func(u *model.User) { u.TwoFactorEnabled = true })

	probe := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, probe.Code, probe.Body.String())

	body := decodeBody(t, probe)
	assert.Equal(t, true, body["requires2FA"])
	tempToken, _ := body["tempToken"].(string)
	require.NotEmpty(t, tempToken)
	// No session until the code is verified
	assert.Nil(t, cookieByName(probe, "sid"))

	msg, ok := h.sender.last()
	require.True(t, ok)
	code := strings.Fields(msg.Subject)[0]

	verified := h.do(t, http.MethodPost, "/auth/verify-2fa", map[string]string{
		"tempToken": tempToken,
		"code":      code,
	})
	require.Equal(t, http.StatusOK, verified.Code, verified.Body.String())
	assert.NotNil(t, cookieByName(verified, "sid"))
	assert.NotEmpty(t, decodeBody(t, verified)["accessToken"])
}

func TestVerifyTwoFactor_WrongCode(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t, func(u *model.User) { u.TwoFactorEnabled = true })

	probe := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	})
	tempToken := decodeBody(t, probe)["tempToken"].(string)

	rec := h.do(t, http.MethodPost, "/auth/verify-2fa", map[string]string{
		"tempToken": tempToken,
		"code":      "000000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CODE")
	assert.Nil(t, cookieByName(rec, "sid"))
}

func TestCurrentUser_ViaSessionCookieAndBearer(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value
	accessToken := decodeBody(t, login)["accessToken"].(string)

	bare := h.do(t, http.MethodGet, "/auth/user", nil)
	assert.Equal(t, http.StatusUnauthorized, bare.Code)

	viaCookie := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	})
	require.Equal(t, http.StatusOK, viaCookie.Code, viaCookie.Body.String())
	user := decodeBody(t, viaCookie)["user"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", user["email"])

	viaBearer := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	})
	assert.Equal(t, http.StatusOK, viaBearer.Code, viaBearer.Body.String())
}

func TestCSRF_RequiredForCookieAuthenticatedWrites(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value
	csrf := cookieByName(login, middleware.CSRFCookieName).Value

	missing := h.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	})
	assert.Equal(t, http.StatusForbidden, missing.Code)

	mismatched := h.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrf})
		r.Header.Set(middleware.CSRFHeaderName, "wrong")
	})
	assert.Equal(t, http.StatusForbidden, mismatched.Code)

	matched := h.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrf})
		r.Header.Set(middleware.CSRFHeaderName, csrf)
	})
	assert.Equal(t, http.StatusOK, matched.Code, matched.Body.String())
}

func TestLogout_AlwaysSucceedsAndClearsCookies(t *testing.T) {
	h := newAPIHarness(t)

	// No session, no body: still a 200
	rec := h.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	for _, name := range []string{"sid", "connect.sid", middleware.CSRFCookieName, "utm_params"} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0, name)
		assert.Empty(t, c.Value, name)
	}

	// Idempotent
	again := h.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestLogout_DestroysServerSession(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value
	csrf := cookieByName(login, middleware.CSRFCookieName).Value

	rec := h.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrf})
		r.Header.Set(middleware.CSRFHeaderName, csrf)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := h.store.Get(context.Background(), sid)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	login := h.login(t)
	refreshToken := decodeBody(t, login)["refreshToken"].(string)

	rotated := h.do(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	require.Equal(t, http.StatusOK, rotated.Code, rotated.Body.String())
	newToken := decodeBody(t, rotated)["refreshToken"].(string)
	assert.NotEqual(t, refreshToken, newToken)

	replay := h.do(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Contains(t, replay.Body.String(), "INVALID_TOKEN")
}

func TestRegister_SuccessAndDuplicate(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":      "new@example.com",
		"password":   testPassword,
		"pseudoName": "newbie",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	userID, _ := body["userId"].(string)
	assert.True(t, strings.HasPrefix(userID, "usr_"))

	dup := h.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":      "new@example.com",
		"password":   testPassword,
		"pseudoName": "other",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
	// Generic wording only; the address never echoes back
	assert.NotContains(t, dup.Body.String(), "new@example.com")
}

func TestListSessions_RequiresAuthAndFlagsCurrent(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	anon := h.do(t, http.MethodGet, "/auth/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value

	rec := h.do(t, http.MethodGet, "/auth/sessions", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sessions, ok := decodeBody(t, rec)["sessions"].([]interface{})
	require.True(t, ok)
	require.Len(t, sessions, 1)
	item := sessions[0].(map[string]interface{})
	assert.Equal(t, true, item["current"])
	assert.Equal(t, "Chrome", item["browser"])
}

func TestAdminRoutes_EnforceRole(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)
	locked := h.addUser(t, func(u *model.User) {
		u.ID = "usr_locked"
		u.Email = "locked@example.com"
		until := time.Now().Add(10 * time.Minute)
		u.LockedUntil = &until
		u.FailedLoginAttempts = 5
	})
	h.addUser(t, func(u *model.User) {
		u.ID = "usr_admin"
		u.Email = "admin@example.com"
		u.Role = model.RoleAdmin
	})

	path := fmt.Sprintf("/admin/users/%s/unlock", locked.ID)

	anon := h.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	standardLogin := h.login(t)
	standardToken := decodeBody(t, standardLogin)["accessToken"].(string)

	adminLogin := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, adminLogin.Code, adminLogin.Body.String())
	adminToken := decodeBody(t, adminLogin)["accessToken"].(string)

	forbidden := h.do(t, http.MethodPost, path, nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+standardToken)
	})
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	allowed := h.do(t, http.MethodPost, path, nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+adminToken)
	})
	require.Equal(t, http.StatusOK, allowed.Code, allowed.Body.String())

	assert.Nil(t, h.users.get(locked.ID).LockedUntil)
	assert.Zero(t, h.users.get(locked.ID).FailedLoginAttempts)
}

func TestRevokedDeviceSession_LocksOutBrowserSession(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value

	before := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	})
	require.Equal(t, http.StatusOK, before.Code, before.Body.String())

	// Revoke at the store level, bypassing the service, the way an operator
	// or another instance would
	_, err := h.devices.RevokeAllForUser(context.Background(), "usr_test", "")
	require.NoError(t, err)

	after := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	})
	assert.Equal(t, http.StatusUnauthorized, after.Code, after.Body.String())

	// The browser session itself must be destroyed, not merely ignored
	_, err = h.store.Get(context.Background(), sid)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRevokeSession_OtherDeviceRejectedOnNextRequest(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	first := h.login(t)
	firstSID := cookieByName(first, "sid").Value

	second := h.login(t)
	secondSID := cookieByName(second, "sid").Value
	secondCSRF := cookieByName(second, middleware.CSRFCookieName).Value

	list := h.do(t, http.MethodGet, "/auth/sessions", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: secondSID})
	})
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	sessions := decodeBody(t, list)["sessions"].([]interface{})
	require.Len(t, sessions, 2)

	var otherID string
	for _, raw := range sessions {
		item := raw.(map[string]interface{})
		if item["current"] != true {
			otherID = item["id"].(string)
		}
	}
	require.NotEmpty(t, otherID)

	revoke := h.do(t, http.MethodPost, "/auth/sessions/"+otherID+"/revoke", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: secondSID})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: secondCSRF})
		r.Header.Set(middleware.CSRFHeaderName, secondCSRF)
	})
	require.Equal(t, http.StatusOK, revoke.Code, revoke.Body.String())

	// The revoked device's browser is out; the caller's own survives
	kicked := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: firstSID})
	})
	assert.Equal(t, http.StatusUnauthorized, kicked.Code)

	alive := h.do(t, http.MethodGet, "/auth/user", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: secondSID})
	})
	assert.Equal(t, http.StatusOK, alive.Code, alive.Body.String())
}

func TestSetTwoFactor_EnablesCodeStepOnNextLogin(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)

	anon := h.do(t, http.MethodPost, "/auth/settings/two-factor", map[string]bool{"enabled": true})
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	login := h.login(t)
	sid := cookieByName(login, "sid").Value
	csrf := cookieByName(login, middleware.CSRFCookieName).Value

	rec := h.do(t, http.MethodPost, "/auth/settings/two-factor", map[string]bool{"enabled": true}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sid", Value: sid})
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrf})
		r.Header.Set(middleware.CSRFHeaderName, csrf)
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["twoFactorEnabled"])
	assert.True(t, h.users.get("usr_test").TwoFactorEnabled)

	next := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, next.Code, next.Body.String())
	assert.Equal(t, true, decodeBody(t, next)["requires2FA"])
	assert.Nil(t, cookieByName(next, "sid"))
}

func TestAdminSetApproval_GatesLogin(t *testing.T) {
	h := newAPIHarness(t)
	pending := h.addUser(t, func(u *model.User) {
		u.ID = "usr_pending"
		u.Email = "pending@example.com"
		u.ApprovalStatus = model.ApprovalPending
	})
	h.addUser(t, func(u *model.User) {
		u.ID = "usr_admin"
		u.Email = "admin@example.com"
		u.Role = model.RoleAdmin
	})

	blocked := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "pending@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusForbidden, blocked.Code)

	adminLogin := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, adminLogin.Code, adminLogin.Body.String())
	adminToken := decodeBody(t, adminLogin)["accessToken"].(string)

	bogus := h.do(t, http.MethodPost, "/admin/users/"+pending.ID+"/approval",
		map[string]string{"status": "promoted"}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminToken)
		})
	assert.Equal(t, http.StatusBadRequest, bogus.Code)

	missing := h.do(t, http.MethodPost, "/admin/users/usr_ghost/approval",
		map[string]string{"status": "approved"}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminToken)
		})
	assert.Equal(t, http.StatusNotFound, missing.Code)

	approved := h.do(t, http.MethodPost, "/admin/users/"+pending.ID+"/approval",
		map[string]string{"status": "approved"}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminToken)
		})
	require.Equal(t, http.StatusOK, approved.Code, approved.Body.String())

	unblocked := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "pending@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusOK, unblocked.Code, unblocked.Body.String())
}

func TestAdminLoginHistory_ListsAuditEntries(t *testing.T) {
	h := newAPIHarness(t)
	h.addUser(t)
	h.addUser(t, func(u *model.User) {
		u.ID = "usr_admin"
		u.Email = "admin@example.com"
		u.Role = model.RoleAdmin
	})

	h.login(t)
	h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "not-the-password",
	})

	adminLogin := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, adminLogin.Code, adminLogin.Body.String())
	adminToken := decodeBody(t, adminLogin)["accessToken"].(string)

	rec := h.do(t, http.MethodGet, "/admin/users/usr_test/login-history", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+adminToken)
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, ok := decodeBody(t, rec)["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)
	// Newest first: the failure, then the successful login
	first := entries[0].(map[string]interface{})
	second := entries[1].(map[string]interface{})
	assert.Equal(t, "auth.login_failed", first["event"])
	assert.Equal(t, "auth.login", second["event"])
	for _, raw := range entries {
		assert.Equal(t, "usr_test", raw.(map[string]interface{})["userId"])
	}
}

func TestRegister_RateLimited(t *testing.T) {
	h := newAPIHarness(t)

	for i := 0; i < 3; i++ {
		rec := h.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email":      fmt.Sprintf("user%d@example.com", i),
			"password":   testPassword,
			"pseudoName": "u",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := h.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":      "user4@example.com",
		"password":   testPassword,
		"pseudoName": "u",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
