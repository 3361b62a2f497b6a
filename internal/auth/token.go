package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
)

// Token errors
var (
	ErrTokenInvalid      = errors.New("token is invalid or expired")
	ErrWrongTokenPurpose = errors.New("token purpose mismatch")
)

// Purpose values carried in signed tokens
const (
	PurposeAccess    = "access"
	PurposeTwoFactor = "2fa"
)

// TokenService issues and validates the short-lived signed tokens and the
// opaque refresh tokens. Opaque tokens are only ever stored as SHA-256
// hashes; the raw value exists once, in the response to the client.
type TokenService struct {
	cfg       config.TokenConfig
	twoFactor config.TwoFactorConfig
}

// Claims are the claims carried by signed access and challenge tokens
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg config.TokenConfig, twoFactor config.TwoFactorConfig) *TokenService {
	return &TokenService{cfg: cfg, twoFactor: twoFactor}
}

// GenerateAccessToken signs a short-lived access token for the user
func (s *TokenService) GenerateAccessToken(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Role:    role,
		Purpose: PurposeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, []byte(s.cfg.AccessTokenSecret), PurposeAccess)
}

// GenerateChallengeToken signs the opaque two-factor challenge token the
// client holds between "password verified" and "code verified". It embeds
// the user id and the challenge id but never the code itself.
func (s *TokenService) GenerateChallengeToken(userID, challengeID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.twoFactor.ChallengeTTL)),
			ID:        challengeID,
		},
		Purpose: PurposeTwoFactor,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.twoFactor.TempTokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}
	return signed, nil
}

// ValidateChallengeToken validates a two-factor challenge token
func (s *TokenService) ValidateChallengeToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, []byte(s.twoFactor.TempTokenSecret), PurposeTwoFactor)
}

func (s *TokenService) validate(tokenString string, secret []byte, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongTokenPurpose
	}
	return claims, nil
}

// GenerateOpaqueToken returns a 32-byte random hex token and its SHA-256
// hash. Used for refresh tokens and the single-use email tokens.
func GenerateOpaqueToken() (raw string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken creates a SHA-256 hash of a token for storage and lookup
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccessTokenTTL returns the configured access token lifetime
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTokenTTL
}
