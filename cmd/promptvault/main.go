package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server"
	"github.com/promptvault/promptvault/internal/store/memory"
	"github.com/promptvault/promptvault/internal/store/postgres"
	redisstore "github.com/promptvault/promptvault/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("PV_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("PV_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Select the storage backend.
	var (
		store    api.DataStore
		users    domain.UserRepository
		sessions domain.SessionRepository
	)

	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		mem := memory.New()
		store, users, sessions = mem, mem.Users(), mem.Sessions()

	case config.StoragePostgres:
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		pg, pgErr := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		defer pg.Close()

		if migrateErr := pg.Migrate(ctx); migrateErr != nil {
			return migrateErr
		}
		store, users, sessions = pg, pg.Users(), pg.Sessions()
	}

	// Sessions move to Redis when an address is configured.
	if cfg.Redis.Addr != "" {
		rs, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer func() { _ = rs.Close() }()
		sessions = rs
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in redis")
	}

	// Anonymous writes attribute records to the fixed development user, whose
	// row must exist for the relational backend's owner foreign key.
	if !cfg.IdentityConfigured() && cfg.AnonymousWrites {
		if _, seedErr := users.Upsert(ctx, auth.DevUser()); seedErr != nil {
			return seedErr
		}
	}

	// Create the auth service; the provider is nil without OAuth credentials.
	var provider *auth.OAuthProvider
	if cfg.IdentityConfigured() {
		provider = auth.NewGoogleProvider(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.RedirectURL,
		)
	}
	authSvc := auth.NewService(users, sessions, provider, cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieSecure)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, store, authSvc)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("storage", cfg.Storage).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
