package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/email"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

const (
	twoFactorKeyPrefix    = "careerstack:2fa:"
	twoFactorResendPrefix = "careerstack:2fa:resend:"
)

// challengeRecord is the Redis-side state of a pending two-factor challenge.
// Only the hash of the code is stored.
type challengeRecord struct {
	UserID    string    `json:"userId"`
	CodeHash  string    `json:"codeHash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TwoFactorService manages the emailed one-time code step of login.
// Challenges are single-use: the Redis record is consumed on lookup and only
// written back when attempts remain.
type TwoFactorService struct {
	redis    *database.Redis
	tokens   *auth.TokenService
	sender   email.Sender
	cfg      config.TwoFactorConfig
	emailCfg config.EmailConfig
	log      *logger.Logger
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(rdb *database.Redis, tokens *auth.TokenService, sender email.Sender, cfg config.TwoFactorConfig, emailCfg config.EmailConfig, log *logger.Logger) *TwoFactorService {
	return &TwoFactorService{
		redis:    rdb,
		tokens:   tokens,
		sender:   sender,
		cfg:      cfg,
		emailCfg: emailCfg,
		log:      log.WithComponent("twofactor_service"),
	}
}

// Issue starts a challenge for the user: generates a code, emails it, and
// returns the signed challenge token the client must present together with
// the code. The raw code never leaves this method except inside the email.
func (s *TwoFactorService) Issue(ctx context.Context, user *model.User) (string, error) {
	code, err := GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return "", err
	}

	challengeID := uuid.New().String()
	record := challengeRecord{
		UserID:    user.ID,
		CodeHash:  auth.HashToken(code),
		ExpiresAt: time.Now().Add(s.cfg.ChallengeTTL),
	}
	if err := s.store(ctx, challengeID, record, s.cfg.ChallengeTTL); err != nil {
		return "", err
	}

	msg := email.TwoFactorEmail(user.Email, code, s.emailCfg.AppName, s.cfg.ChallengeTTL)
	if err := s.sender.Send(ctx, msg); err != nil {
		// Without the email the challenge is unanswerable; drop it
		_ = s.redis.Delete(ctx, twoFactorKeyPrefix+challengeID)
		return "", fmt.Errorf("failed to send code email: %w", err)
	}

	token, err := s.tokens.GenerateChallengeToken(user.ID, challengeID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verify checks a submitted code against the pending challenge. Returns the
// user id on success. A consumed, expired, or exhausted challenge fails
// permanently; the client must restart login.
func (s *TwoFactorService) Verify(ctx context.Context, challengeToken, code string) (string, error) {
	claims, err := s.tokens.ValidateChallengeToken(challengeToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	challengeID := claims.ID
	userID := claims.Subject

	raw, err := s.redis.GetDelString(ctx, twoFactorKeyPrefix+challengeID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("failed to load challenge: %w", err)
	}

	var record challengeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return "", fmt.Errorf("failed to decode challenge: %w", err)
	}
	if record.UserID != userID || time.Now().After(record.ExpiresAt) {
		return "", ErrInvalidCode
	}

	submitted := auth.HashToken(auth.NormalizeCode(code))
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(record.CodeHash)) != 1 {
		// A wrong code does not burn the challenge; it stays answerable
		// until its TTL. Route-level rate limiting bounds guessing.
		record.Attempts++
		if err := s.store(ctx, challengeID, record, time.Until(record.ExpiresAt)); err != nil {
			s.log.Error().Err(err).Msg("failed to restore challenge after bad code")
		}
		return "", ErrInvalidCode
	}

	return userID, nil
}

// Resend re-issues the code for an existing challenge holder, subject to a
// cooldown keyed by user.
func (s *TwoFactorService) Resend(ctx context.Context, user *model.User, cooldown time.Duration) (string, error) {
	key := twoFactorResendPrefix + user.ID
	n, err := s.redis.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check resend cooldown: %w", err)
	}
	if n > 0 {
		return "", ErrResendTooSoon
	}
	if err := s.redis.SetWithTTL(ctx, key, "1", cooldown); err != nil {
		return "", fmt.Errorf("failed to set resend cooldown: %w", err)
	}
	return s.Issue(ctx, user)
}

func (s *TwoFactorService) store(ctx context.Context, challengeID string, record challengeRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidCode
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := s.redis.SetWithTTL(ctx, twoFactorKeyPrefix+challengeID, encoded, ttl); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// GenerateNumericCode returns a cryptographically random code of n digits
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
