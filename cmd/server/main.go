package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/config"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/database"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/email"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/geo"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/handler"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/logger"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/middleware"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/repository"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/router"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/service"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting CareerStack auth server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Email sender
	sender, err := email.NewSender(context.Background(), cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}

	// GeoIP resolver (optional)
	geoResolver, err := geo.NewResolver(cfg.Geo.MMDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open geo database")
	}
	if geoResolver != nil {
		defer geoResolver.Close()
		log.Info().Str("path", cfg.Geo.MMDBPath).Msg("geo database loaded")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Token service and browser session store
	tokenSvc := auth.NewTokenService(cfg.Security.Tokens, cfg.TwoFactor)
	sessionStore := session.NewStore(rdb, cfg.Session)

	// Services
	sessionSvc := service.NewSessionService(sessionRepo, auditRepo, rdb, log)
	twoFactorSvc := service.NewTwoFactorService(rdb, tokenSvc, sender, cfg.TwoFactor, cfg.Email, log)
	authSvc := service.NewAuthService(userRepo, sessionRepo, auditRepo, sessionSvc, twoFactorSvc, tokenSvc, sender, geoResolver, rdb, cfg, log)

	// Revocation events from any instance tear down the matching browser
	// sessions here; expired device rows are cleaned up hourly.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go func() {
		if err := sessionSvc.RunLogoutReaper(workerCtx, sessionStore); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("logout reaper stopped")
		}
	}()
	go sessionSvc.RunExpiryJanitor(workerCtx, time.Hour)

	// Handlers and middleware
	h := handler.New(db, rdb, log, cfg, authSvc, sessionSvc, sessionStore)
	mw := middleware.New(rdb, sessionStore, sessionRepo, tokenSvc, log, cfg)

	// Router
	r := router.New(h, mw, cfg.Server.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
