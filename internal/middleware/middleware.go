package middleware

import (
	"context"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

// DeviceSessionSource resolves the device session behind an authenticated
// browser session so revocations take effect on the next request.
type DeviceSessionSource interface {
	GetByID(ctx context.Context, id string) (*model.DeviceSession, error)
	TouchActivity(ctx context.Context, id string) error
}

// Middleware holds all HTTP middleware
type Middleware struct {
	rdb      *database.Redis
	log      *logger.Logger
	cfg      *config.Config
	sessions *session.Store
	devices  DeviceSessionSource
	tokens   *auth.TokenService
}

// New creates a new Middleware instance
func New(rdb *database.Redis, sessions *session.Store, devices DeviceSessionSource, tokens *auth.TokenService, log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		rdb:      rdb,
		sessions: sessions,
		devices:  devices,
		tokens:   tokens,
		log:      log,
		cfg:      cfg,
	}
}
