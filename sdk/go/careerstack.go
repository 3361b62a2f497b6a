package careerstack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds the configuration for the CareerStack auth client.
type Config struct {
	// BaseURL is the root URL of the CareerStack auth server.
	// Example: "https://api.careerstack.example.com"
	BaseURL string

	// CacheTTL controls how long validated tokens are cached in memory
	// to reduce calls to the server. Set to 0 to disable caching.
	// Default: 2 minutes
	CacheTTL time.Duration

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.CacheTTL == 0 {
		c.CacheTTL = 2 * time.Minute
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// Client is the CareerStack auth SDK client.
type Client struct {
	cfg   Config
	cache *tokenCache
}

// NewClient creates a new CareerStack client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		cfg:   cfg,
		cache: newTokenCache(),
	}
}

// ValidateToken validates an access token by calling the auth server.
// Results are cached according to CacheTTL to reduce network calls.
func (c *Client) ValidateToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	if c.cfg.CacheTTL > 0 {
		if user, ok := c.cache.get(token); ok {
			return user, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/auth/user", nil)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("careerstack: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrTokenInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("careerstack: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse user: %w", err)
	}
	if envelope.User == nil {
		return nil, ErrTokenInvalid
	}

	if c.cfg.CacheTTL > 0 {
		c.cache.set(token, envelope.User, c.cfg.CacheTTL)
	}

	return envelope.User, nil
}

// InvalidateToken removes a token from the local cache. Call this after
// logout so stale tokens are not served from cache.
func (c *Client) InvalidateToken(token string) {
	c.cache.delete(token)
}

// Login authenticates a user with email and password.
// The result holds either an established session or a two-factor challenge.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	body, err := c.post(ctx, "/auth/login", req, "")
	if err != nil {
		return nil, err
	}

	var probe struct {
		Requires2FA bool   `json:"requires2FA"`
		TempToken   string `json:"tempToken"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse login response: %w", err)
	}

	var result AuthResult
	if probe.Requires2FA {
		result.TwoFactor = &TwoFactorChallenge{TempToken: probe.TempToken}
		return &result, nil
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse login response: %w", err)
	}
	result.Session = &session
	return &result, nil
}

// VerifyTwoFactor completes a pending two-factor challenge and establishes
// the session.
func (c *Client) VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*SessionResponse, error) {
	body, err := c.post(ctx, "/auth/verify-2fa", req, "")
	if err != nil {
		return nil, err
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse verification response: %w", err)
	}
	return &session, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	body, err := c.post(ctx, "/auth/register", req, "")
	if err != nil {
		return nil, err
	}

	var resp RegisterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse register response: %w", err)
	}
	return &resp, nil
}

// Logout ends the session holding the given refresh token. The server treats
// logout as idempotent, so an already-dead token is not an error.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var payload interface{}
	if refreshToken != "" {
		payload = map[string]string{"refreshToken": refreshToken}
	}
	_, err := c.post(ctx, "/auth/logout", payload, accessToken)
	if err != nil {
		return err
	}
	if accessToken != "" {
		c.cache.delete(accessToken)
	}
	return nil
}

// LogoutAll revokes every other device session for the user.
func (c *Client) LogoutAll(ctx context.Context, token string) error {
	_, err := c.post(ctx, "/auth/logout-all", nil, token)
	if err != nil {
		return err
	}
	c.cache.clear()
	return nil
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token is rotated out and cannot be used again.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	body, err := c.post(ctx, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, "")
	if err != nil {
		return nil, err
	}

	var resp RefreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse refresh response: %w", err)
	}
	return &resp, nil
}

// ListSessions returns the user's active device sessions, newest activity
// first.
func (c *Client) ListSessions(ctx context.Context, token string) ([]DeviceSession, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/auth/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("careerstack: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var envelope struct {
		Sessions []DeviceSession `json:"sessions"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("careerstack: failed to parse sessions: %w", err)
	}
	return envelope.Sessions, nil
}

// RevokeSession revokes one of the user's own device sessions by id.
func (c *Client) RevokeSession(ctx context.Context, token, sessionID string) error {
	_, err := c.post(ctx, "/auth/sessions/"+sessionID+"/revoke", nil, token)
	return err
}

// post sends a POST request to the CareerStack API.
func (c *Client) post(ctx context.Context, path string, payload interface{}, token string) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("careerstack: failed to marshal request: %w", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("careerstack: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("careerstack: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// tokenCache provides in-memory caching for validated tokens.
type tokenCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

func newTokenCache() *tokenCache {
	tc := &tokenCache{
		entries: make(map[string]*cacheEntry),
	}
	go tc.cleanup()
	return tc
}

func (tc *tokenCache) get(token string) (*User, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	entry, ok := tc.entries[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.user, true
}

func (tc *tokenCache) set(token string, user *User, ttl time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries[token] = &cacheEntry{
		user:      user,
		expiresAt: time.Now().Add(ttl),
	}
}

func (tc *tokenCache) delete(token string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.entries, token)
}

func (tc *tokenCache) clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries = make(map[string]*cacheEntry)
}

func (tc *tokenCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		tc.mu.Lock()
		now := time.Now()
		for k, v := range tc.entries {
			if now.After(v.expiresAt) {
				delete(tc.entries, k)
			}
		}
		tc.mu.Unlock()
	}
}
