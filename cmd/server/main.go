// Command auth-server starts the authentication HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/secureweb/auth-service/internal/migrate"
	"github.com/secureweb/auth-service/internal/repository/postgres"
	httpserver "github.com/secureweb/auth-service/internal/server/http"
	"github.com/secureweb/auth-service/internal/service"
	"github.com/secureweb/auth-service/internal/token"
	"github.com/secureweb/auth-service/internal/totp"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration from the environment, runs migrations, wires the
// services and serves HTTP until SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	dsn := mustEnv(logger, "DATABASE_URL")
	accessSecret := mustEnv(logger, "JWT_ACCESS_SECRET")
	refreshSecret := mustEnv(logger, "JWT_REFRESH_SECRET")
	mfaSecret := mustEnv(logger, "JWT_MFA_SECRET")

	addr := envOr("ADDR", ":8080")
	issuer := envOr("TOTP_ISSUER", "Secure Web App")
	cronSecret := os.Getenv("CRON_SECRET")

	if dsnSentry := os.Getenv("SENTRY_DSN"); dsnSentry != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsnSentry,
			Environment: envOr("APP_ENV", "production"),
			Release:     version,
		})
		if err != nil {
			logger.Fatal("sentry init", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, dsn); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	refreshRepo := postgres.NewRefreshRepo(db)
	totpRepo := postgres.NewTotpRepo(db)

	codec, err := token.New(token.Config{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		MfaSecret:     []byte(mfaSecret),
	})
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	otp := totp.New(1, nil)

	authSvc := service.NewAuthService(userRepo, refreshRepo, totpRepo, codec, otp, issuer, nil)
	resolver := service.NewSessionResolver(userRepo, refreshRepo, codec)

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpserver.NewServer(logger, authSvc, resolver, db, cronSecret).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// mustEnv reads a required variable; absence is a fatal configuration error.
func mustEnv(logger *zap.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Fatal("missing required environment variable", zap.String("key", key))
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
