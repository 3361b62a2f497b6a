package careerstack

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys for storing auth data in Echo context.
const (
	// UserContextKey is the key used to store the authenticated User in echo.Context.
	UserContextKey = "careerstack_user"

	// TokenContextKey is the key used to store the raw access token in echo.Context.
	TokenContextKey = "careerstack_token"
)

// MiddlewareConfig configures the Echo authentication middleware.
type MiddlewareConfig struct {
	// Skipper defines a function to skip this middleware for certain requests.
	// Return true to skip authentication for the request.
	Skipper func(c echo.Context) bool

	// LoginURL is the CareerStack login page URL. When set, unauthenticated
	// requests are redirected here instead of returning 401.
	// The current request URL is appended as a ?return_url= query parameter.
	LoginURL string

	// Guard, when set, throttles login redirects through its circuit breaker
	// so a burst of unauthenticated requests cannot fan out into a redirect
	// storm. Requests denied a redirect fall back to a JSON 401.
	Guard *Guard

	// TokenExtractor is an optional custom function to extract the access token
	// from a request. If nil, the default extractor reads from the Authorization
	// header.
	TokenExtractor func(c echo.Context) string

	// ErrorHandler is an optional custom error handler for authentication failures.
	// If nil, the default handler returns JSON 401 errors or redirects to LoginURL.
	ErrorHandler func(c echo.Context, err error) error

	// SkipPaths is a list of path prefixes that do not require authentication.
	// Example: []string{"/health", "/public/"}
	SkipPaths []string

	// RequireVerifiedEmail rejects users whose email is not verified (HTTP 403).
	// Default: false
	RequireVerifiedEmail bool
}

// EchoAuth returns Echo middleware that authenticates requests against the
// CareerStack auth server.
//
// The middleware extracts the access token from the Authorization header,
// validates it against the server, and stores the authenticated user in the
// Echo context. Retrieve the user in handlers with GetUser(c).
func (client *Client) EchoAuth(cfgs ...MiddlewareConfig) echo.MiddlewareFunc {
	cfg := MiddlewareConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			path := c.Request().URL.Path
			for _, p := range cfg.SkipPaths {
				if strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			token := ""
			if cfg.TokenExtractor != nil {
				token = cfg.TokenExtractor(c)
			} else {
				token = defaultTokenExtractor(c)
			}

			if token == "" {
				return handleAuthError(c, cfg, ErrNoToken)
			}

			user, err := client.ValidateToken(c.Request().Context(), token)
			if err != nil {
				if cfg.Guard != nil {
					if errors.Is(err, ErrTokenInvalid) {
						cfg.Guard.RecordAuthError()
					} else {
						cfg.Guard.RecordNetworkError()
					}
				}
				return handleAuthError(c, cfg, err)
			}

			if cfg.RequireVerifiedEmail && !user.EmailVerified {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": map[string]string{
						"code":    "PENDING_VERIFICATION",
						"message": "Email verification required",
					},
				})
			}

			c.Set(UserContextKey, user)
			c.Set(TokenContextKey, token)

			return next(c)
		}
	}
}

// GetUser retrieves the authenticated CareerStack user from the Echo context.
// Returns nil if the user is not authenticated (middleware not applied or skipped).
func GetUser(c echo.Context) *User {
	if user, ok := c.Get(UserContextKey).(*User); ok {
		return user
	}
	return nil
}

// GetToken retrieves the raw access token from the Echo context.
// Returns an empty string if not available.
func GetToken(c echo.Context) string {
	if token, ok := c.Get(TokenContextKey).(string); ok {
		return token
	}
	return ""
}

// RequireUser is an Echo handler helper that returns 401 if user is nil.
// Use in individual route handlers for extra safety.
func RequireUser(c echo.Context) (*User, error) {
	user := GetUser(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return user, nil
}

// RedirectToLogin redirects the user to the CareerStack login page with
// return_url set to the current request URL.
func RedirectToLogin(c echo.Context, loginURL string) error {
	returnURL := currentURL(c)
	target := loginURL + "?return_url=" + url.QueryEscape(returnURL)
	return c.Redirect(http.StatusFound, target)
}

// ---------- Internal helpers ----------

func defaultTokenExtractor(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func handleAuthError(c echo.Context, cfg MiddlewareConfig, err error) error {
	if cfg.ErrorHandler != nil {
		return cfg.ErrorHandler(c, err)
	}

	if cfg.LoginURL != "" {
		if cfg.Guard == nil || cfg.Guard.RedirectToLogin(c.Request().URL.Path) {
			return RedirectToLogin(c, cfg.LoginURL)
		}
	}

	message := "Authentication required"
	if errors.Is(err, ErrTokenInvalid) {
		message = "Invalid or expired token"
	}

	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

func currentURL(c echo.Context) string {
	r := c.Request()
	scheme := "https"
	if r.TLS == nil {
		scheme = c.Scheme()
	}
	return scheme + "://" + r.Host + r.RequestURI
}
