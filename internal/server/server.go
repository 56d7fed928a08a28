// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scaf-dev/scaf/internal/api"
	"github.com/scaf-dev/scaf/internal/api/handlers"
	"github.com/scaf-dev/scaf/internal/auth"
	"github.com/scaf-dev/scaf/internal/config"
	"github.com/scaf-dev/scaf/internal/counter"
	"github.com/scaf-dev/scaf/internal/db"
	"github.com/scaf-dev/scaf/internal/logger"
	"github.com/scaf-dev/scaf/internal/rbac"
	"github.com/scaf-dev/scaf/internal/service"
	"gorm.io/gorm"
)

// Config holds the server startup options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until
// the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting Scaf server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	downloads, err := createCounter(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize download counter: %w", err)
	}
	defer downloads.Close()
	slog.Info("Download counter initialized", "type", appCfg.Counter.Type)

	authenticator, err := createAuthenticator(ctx, appCfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	slog.Info("Authenticator initialized", "type", appCfg.Auth.Type)

	svc := service.New(database)
	router := api.NewRouter(appCfg, svc, downloads, authenticator)

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for
// graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig)
		cancel()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// createCounter creates a download counter based on configuration.
func createCounter(cfg *config.Config) (counter.Counter, error) {
	switch cfg.Counter.Type {
	case "memory":
		return counter.NewMemoryCounter(), nil
	case "valkey":
		if cfg.Counter.ValkeyAddr == "" {
			return nil, fmt.Errorf("valkey address is required when counter type is valkey")
		}
		return counter.NewValkeyCounter(cfg.Counter.ValkeyAddr)
	default:
		return nil, fmt.Errorf("unsupported counter type: %s (supported: memory, valkey)", cfg.Counter.Type)
	}
}

// createAuthenticator creates an authenticator based on configuration.
func createAuthenticator(ctx context.Context, cfg *config.Config, database *gorm.DB) (auth.Authenticator, error) {
	switch cfg.Auth.Type {
	case "local":
		return auth.NewLocalAuthenticator(database, cfg.Auth.JWTSecret), nil
	case "oidc":
		if cfg.Auth.IssuerURL == "" || cfg.Auth.ClientID == "" {
			return nil, fmt.Errorf("oidc auth requires issuer_url and client_id")
		}
		return auth.NewOIDCAuthenticator(ctx, auth.OIDCConfig{
			IssuerURL:    cfg.Auth.IssuerURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			RedirectURL:  cfg.Auth.RedirectURL,
		}, database, cfg.Auth.JWTSecret)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s (supported: local, oidc)", cfg.Auth.Type)
	}
}
