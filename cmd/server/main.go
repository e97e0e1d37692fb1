package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/chirpnet/chirpnet/application/usecase"
	"github.com/chirpnet/chirpnet/infrastructure/config"
	"github.com/chirpnet/chirpnet/infrastructure/housekeeping"
	apphttp "github.com/chirpnet/chirpnet/infrastructure/http"
	"github.com/chirpnet/chirpnet/infrastructure/http/handler"
	"github.com/chirpnet/chirpnet/infrastructure/http/middleware"
	"github.com/chirpnet/chirpnet/infrastructure/persistence/postgres"
	"github.com/chirpnet/chirpnet/infrastructure/service/credstore"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
	"github.com/chirpnet/chirpnet/infrastructure/service/ratelimit"
	"github.com/chirpnet/chirpnet/infrastructure/service/token"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "chirpnet",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})
	if cfg.UsingFallbackSecrets() {
		structuredLogger.Warn(ctx, "Using built-in development token secrets", nil)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		os.Exit(1)
	}
	cancel()
	structuredLogger.Info(ctx, "Database connection established", nil)

	tokenService, err := token.NewJWTService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize token service", err, nil)
		os.Exit(1)
	}

	rateLimitLogger := logrus.New()
	rateLimitService, err := ratelimit.NewRateLimitService(ratelimit.Config{
		Enabled:       cfg.RateLimitEnabled,
		RedisURL:      cfg.RedisURL,
		IPAttempts:    cfg.RateLimitIPAttempts,
		IPWindow:      cfg.RateLimitIPWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}, rateLimitLogger)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize rate limiting", err, nil)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	credentialStore := credstore.NewPostgresStore(db, cfg.BcryptCost)

	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		refreshTokenRepo,
		tokenService,
		credentialStore,
		rateLimitService,
		structuredLogger,
		usecase.Options{
			RefreshTokenTTL:        cfg.RefreshTokenTTL,
			RateLimitAttempts:      cfg.RateLimitIPAttempts,
			RateLimitWindow:        cfg.RateLimitIPWindow,
			BlockDuration:          cfg.RateLimitBlockDuration,
			RegisterRetryAttempts:  cfg.RegisterRetryAttempts,
			RegisterRetryBaseDelay: cfg.RegisterRetryBaseDelay,
		},
	)

	authHandler := handler.NewAuthHandler(authUseCase, structuredLogger)
	userHandler := handler.NewUserHandler(authUseCase, structuredLogger)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	server := apphttp.NewServer(apphttp.ServerConfig{
		Addr:           cfg.ServerAddr(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, authHandler, userHandler, authMiddleware, structuredLogger)

	sweeper := housekeeping.NewSweeper(refreshTokenRepo, structuredLogger, cfg.HousekeepingInterval)
	sweeper.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		structuredLogger.Error(ctx, "HTTP server stopped", err, nil)
	case sig := <-sigCh:
		structuredLogger.Info(ctx, "Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Graceful shutdown failed", err, nil)
	}
	sweeper.Stop()

	structuredLogger.Info(ctx, "Application stopped", nil)
}
