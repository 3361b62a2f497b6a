package careerstack

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState is the guard's circuit-breaker state.
type CircuitState int

const (
	// CircuitClosed means auth queries run normally.
	CircuitClosed CircuitState = iota

	// CircuitOpen means auth queries are suppressed and callers are told
	// "unauthenticated" without a network round-trip.
	CircuitOpen
)

func (s CircuitState) String() string {
	if s == CircuitOpen {
		return "open"
	}
	return "closed"
}

type eventKind int

const (
	eventAuthError eventKind = iota
	eventNetworkError
	eventRetry
	eventRedirect
)

type guardEvent struct {
	kind eventKind
	at   time.Time
}

// GuardConfig tunes the guard's loop detection and backoff behaviour.
// The zero value uses the defaults documented per field.
type GuardConfig struct {
	// ErrorThreshold is how many auth or network errors within
	// DetectionWindow trip the circuit. Default: 5
	ErrorThreshold int

	// RedirectThreshold is how many redirects within DetectionWindow trip
	// the circuit. Default: 3
	RedirectThreshold int

	// DetectionWindow is the rolling window events are counted over.
	// Default: 10s
	DetectionWindow time.Duration

	// BaseCooldown is the open-circuit duration after the first trip. Each
	// consecutive trip doubles it, capped at MaxCooldown.
	// Defaults: 10s base, 5m cap.
	BaseCooldown time.Duration
	MaxCooldown  time.Duration

	// MaxEvents bounds the rolling event log. Default: 64
	MaxEvents int

	// RedirectBackoff is the minimum gap between login redirects after the
	// first one; the gap doubles per attempt, capped at MaxCooldown.
	// Default: 2s
	RedirectBackoff time.Duration

	// PublicRoutes is the allow-list of paths that may be restored after
	// login. A cached path outside this list falls back to DefaultRoute.
	PublicRoutes []string

	// DefaultRoute is the landing path after login when no valid cached
	// path exists. Default: "/"
	DefaultRoute string

	// IdleTimeout forces logout after this much time without user activity.
	// Default: 30m
	IdleTimeout time.Duration

	// Now is the clock used for all timing decisions. Default: time.Now
	Now func() time.Time
}

func (c *GuardConfig) defaults() {
	if c.ErrorThreshold == 0 {
		c.ErrorThreshold = 5
	}
	if c.RedirectThreshold == 0 {
		c.RedirectThreshold = 3
	}
	if c.DetectionWindow == 0 {
		c.DetectionWindow = 10 * time.Second
	}
	if c.BaseCooldown == 0 {
		c.BaseCooldown = 10 * time.Second
	}
	if c.MaxCooldown == 0 {
		c.MaxCooldown = 5 * time.Minute
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = 64
	}
	if c.RedirectBackoff == 0 {
		c.RedirectBackoff = 2 * time.Second
	}
	if c.DefaultRoute == "" {
		c.DefaultRoute = "/"
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Guard wraps the "who am I" query with a circuit breaker and redirect-loop
// detector so that a disagreement between the client's cached auth state and
// the server cannot produce a redirect storm. All state lives in the Guard
// itself; nothing here is a source of authorization truth.
type Guard struct {
	client *Client
	cfg    GuardConfig
	bcast  *LogoutBroadcaster

	mu               sync.Mutex
	events           []guardEvent
	openUntil        time.Time
	trips            int
	lastRedirect     time.Time
	redirectAttempts int
	savedPath        string
	lastActivity     time.Time
	cachedUser       *User
}

// NewGuard creates a guard around the given client.
func NewGuard(client *Client, cfg GuardConfig) *Guard {
	cfg.defaults()
	return &Guard{
		client:       client,
		cfg:          cfg,
		bcast:        NewLogoutBroadcaster(),
		lastActivity: cfg.Now(),
	}
}

// State reports the current circuit state.
func (g *Guard) State() CircuitState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(g.cfg.Now())
}

func (g *Guard) stateLocked(now time.Time) CircuitState {
	if now.Before(g.openUntil) {
		return CircuitOpen
	}
	return CircuitClosed
}

// CurrentUser answers "who am I". With the circuit open it returns
// (nil, ErrCircuitOpen) immediately, without touching the network; callers
// treat that as unauthenticated. A 401 records an auth error and returns
// (nil, nil). Network and server failures record a network error and return
// the error; the last known user, if any, stays cached for the caller to
// fall back on via CachedUser.
func (g *Guard) CurrentUser(ctx context.Context, token string) (*User, error) {
	g.mu.Lock()
	now := g.cfg.Now()
	if g.stateLocked(now) == CircuitOpen {
		g.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	g.mu.Unlock()

	user, err := g.client.ValidateToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrNoToken) || isUnauthorized(err) {
			g.RecordAuthError()
			return nil, nil
		}
		g.RecordNetworkError()
		return nil, err
	}

	g.ResetOnSuccess(user)
	return user, nil
}

func isUnauthorized(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == 401
}

// CachedUser returns the last user observed by a successful auth query, or
// nil. It never touches the network.
func (g *Guard) CachedUser() *User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cachedUser
}

// RecordAuthError notes an unauthorized response.
func (g *Guard) RecordAuthError() { g.record(eventAuthError) }

// RecordNetworkError notes a transport or server failure. These are counted
// toward the error threshold but tracked apart from auth failures.
func (g *Guard) RecordNetworkError() { g.record(eventNetworkError) }

// RecordRetry notes a retried auth query.
func (g *Guard) RecordRetry() { g.record(eventRetry) }

func (g *Guard) record(kind eventKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendLocked(kind, g.cfg.Now())
}

func (g *Guard) appendLocked(kind eventKind, now time.Time) {
	g.events = append(g.events, guardEvent{kind: kind, at: now})
	g.pruneLocked(now)
	g.evaluateLocked(now)
}

func (g *Guard) pruneLocked(now time.Time) {
	cutoff := now.Add(-g.cfg.DetectionWindow)
	kept := g.events[:0]
	for _, e := range g.events {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	g.events = kept
	if len(g.events) > g.cfg.MaxEvents {
		g.events = g.events[len(g.events)-g.cfg.MaxEvents:]
	}
}

func (g *Guard) evaluateLocked(now time.Time) {
	if now.Before(g.openUntil) {
		return
	}

	var errCount, redirectCount int
	for _, e := range g.events {
		switch e.kind {
		case eventAuthError, eventNetworkError, eventRetry:
			errCount++
		case eventRedirect:
			redirectCount++
		}
	}

	if errCount >= g.cfg.ErrorThreshold || redirectCount >= g.cfg.RedirectThreshold {
		g.tripLocked(now)
	}
}

func (g *Guard) tripLocked(now time.Time) {
	cooldown := g.cfg.BaseCooldown << g.trips
	if cooldown > g.cfg.MaxCooldown || cooldown <= 0 {
		cooldown = g.cfg.MaxCooldown
	}
	g.openUntil = now.Add(cooldown)
	g.trips++
	g.events = g.events[:0]
}

// RedirectToLogin decides whether a redirect to the login page may proceed
// right now. When allowed it caches currentPath for post-login restoration,
// records the redirect, and advances the shared backoff clock; when denied
// (circuit open, or too soon after the previous redirect) the caller must
// stay put. The backoff gap doubles per consecutive attempt so that even
// several tabs reacting to the same expired session cannot stampede.
func (g *Guard) RedirectToLogin(currentPath string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.cfg.Now()
	if g.stateLocked(now) == CircuitOpen {
		return false
	}

	if !g.lastRedirect.IsZero() {
		gap := g.cfg.RedirectBackoff << g.redirectAttempts
		if gap > g.cfg.MaxCooldown || gap <= 0 {
			gap = g.cfg.MaxCooldown
		}
		if now.Sub(g.lastRedirect) < gap {
			return false
		}
	}

	g.lastRedirect = now
	g.redirectAttempts++
	if currentPath != "" {
		g.savedPath = currentPath
	}
	g.appendLocked(eventRedirect, now)

	// Tripping the circuit on this very redirect does not retract it; the
	// suppression applies from the next decision on.
	return true
}

// ConsumeRedirectPath returns where to land after login. A cached path is
// honored exactly once and only if it is on the public-route allow-list;
// anything else falls back to the default route. The cache is cleared
// either way.
func (g *Guard) ConsumeRedirectPath() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := g.savedPath
	g.savedPath = ""
	if path == "" {
		return g.cfg.DefaultRoute
	}
	for _, allowed := range g.cfg.PublicRoutes {
		if path == allowed {
			return path
		}
	}
	return g.cfg.DefaultRoute
}

// ResetOnSuccess clears every breaker counter, the rolling event log, and
// the redirect backoff after a successful authentication, and caches the
// authenticated user.
func (g *Guard) ResetOnSuccess(user *User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = g.events[:0]
	g.openUntil = time.Time{}
	g.trips = 0
	g.redirectAttempts = 0
	g.lastRedirect = time.Time{}
	g.cachedUser = user
	g.lastActivity = g.cfg.Now()
}

// Touch records user activity for the idle watchdog.
func (g *Guard) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActivity = g.cfg.Now()
}

// IdleExpired reports whether the inactivity window has elapsed since the
// last recorded activity.
func (g *Guard) IdleExpired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Now().Sub(g.lastActivity) >= g.cfg.IdleTimeout
}

// RunIdleWatchdog checks for inactivity every interval and calls onTimeout
// once when the idle window elapses, then broadcasts the logout and resets
// the activity clock. It runs until ctx is cancelled. The watchdog is
// independent of the circuit breaker: an open circuit does not stop an idle
// session from being logged out.
func (g *Guard) RunIdleWatchdog(ctx context.Context, interval time.Duration, onTimeout func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !g.IdleExpired() {
				continue
			}
			g.ForceLogout("idle_timeout")
			if onTimeout != nil {
				onTimeout()
			}
		}
	}
}

// ForceLogout drops the cached user, resets the activity clock, and
// broadcasts the logout to all subscribers.
func (g *Guard) ForceLogout(reason string) {
	g.mu.Lock()
	g.cachedUser = nil
	g.lastActivity = g.cfg.Now()
	g.mu.Unlock()

	g.bcast.Publish(LogoutSignal{Reason: reason, At: g.cfg.Now()})
}

// SubscribeLogout returns a channel that receives logout signals from any
// part of the process, so one tab's logout reaches all of them. Call the
// returned cancel function to unsubscribe.
func (g *Guard) SubscribeLogout() (<-chan LogoutSignal, func()) {
	return g.bcast.Subscribe()
}
