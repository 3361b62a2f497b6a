package careerstack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	careerstack "github.com/thenjeremy5-netizen/CareerStack-sub004/sdk/go"
)

func TestClient_ValidateToken_CachesResult(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":"usr_1","email":"jane@example.com","role":"standard"}}`))
	}))
	defer srv.Close()

	client := careerstack.NewClient(careerstack.Config{BaseURL: srv.URL, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		user, err := client.ValidateToken(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "usr_1", user.ID)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	client.InvalidateToken("tok")
	_, err := client.ValidateToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_ValidateToken_EmptyToken(t *testing.T) {
	client := careerstack.NewClient(careerstack.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, careerstack.ErrNoToken)
}

func TestClient_Login_SessionAndTwoFactorShapes(t *testing.T) {
	twoFactor := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if twoFactor {
			w.Write([]byte(`{"success":true,"requires2FA":true,"tempToken":"tmp-123"}`))
			return
		}
		w.Write([]byte(`{"success":true,"user":{"id":"usr_1","email":"jane@example.com"},"accessToken":"at","refreshToken":"rt"}`))
	}))
	defer srv.Close()

	client := careerstack.NewClient(careerstack.Config{BaseURL: srv.URL})

	result, err := client.Login(context.Background(), careerstack.LoginRequest{
		Email:    "jane@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Nil(t, result.TwoFactor)
	assert.Equal(t, "at", result.Session.AccessToken)
	assert.Equal(t, "usr_1", result.Session.User.ID)

	twoFactor = true
	result, err = client.Login(context.Background(), careerstack.LoginRequest{
		Email:    "jane@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	require.NotNil(t, result.TwoFactor)
	assert.Nil(t, result.Session)
	assert.Equal(t, "tmp-123", result.TwoFactor.TempToken)
}

func TestClient_Login_APIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"INVALID_CREDENTIALS","message":"Invalid email or password"}}`))
	}))
	defer srv.Close()

	client := careerstack.NewClient(careerstack.Config{BaseURL: srv.URL})

	_, err := client.Login(context.Background(), careerstack.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	apiErr, ok := careerstack.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
}

func TestClient_Logout_SendsRefreshTokenAndDropsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/user":
			w.Write([]byte(`{"user":{"id":"usr_1"}}`))
		case "/auth/logout":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "rt", body["refreshToken"])
			w.Write([]byte(`{"success":true}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := careerstack.NewClient(careerstack.Config{BaseURL: srv.URL, CacheTTL: time.Minute})

	_, err := client.ValidateToken(context.Background(), "at")
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background(), "at", "rt"))
}

func TestClient_ListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sessions":[{"id":"dev_1","browser":"Chrome","os":"Windows","current":true},{"id":"dev_2","browser":"Safari","os":"iOS","current":false}]}`))
	}))
	defer srv.Close()

	client := careerstack.NewClient(careerstack.Config{BaseURL: srv.URL})

	sessions, err := client.ListSessions(context.Background(), "at")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "dev_1", sessions[0].ID)
	assert.True(t, sessions[0].Current)
	assert.False(t, sessions[1].Current)
}
