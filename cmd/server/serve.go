package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/api"
	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
	"github.com/bcnelson/sendernet-subscriptions/internal/config"
	"github.com/bcnelson/sendernet-subscriptions/internal/logging"
	"github.com/bcnelson/sendernet-subscriptions/internal/metrics"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage/memory"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage/redis"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage/sql"
	"github.com/bcnelson/sendernet-subscriptions/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v3"
)

// NewServeCommand runs the HTTP server. Configuration comes from the environment.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP server",
		Action: runServe,
	}
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client := newProviderClient(cfg, logger, m)

	settings := service.NewSettingsService(store, client, logger, m)
	directory := service.NewDirectory(store)
	deps := api.Dependencies{
		Settings:      settings,
		Groups:        service.NewGroupResolver(client, logger),
		Subscriptions: service.NewSubscriptionService(settings, client, directory, logger, m),
		Directory:     directory,
		Client:        client,
		AdminToken:    cfg.Admin.Token,
		Gatherer:      reg,
		Logger:        logger,
	}

	secret, err := cfg.Admin.GetSessionSecretBytes()
	if err != nil {
		return err
	}
	deps.Sessions, err = auth.NewSessionManager(secret, cfg.Admin.SessionDuration, cfg.Server.SecureCookies)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	if cfg.OIDC.Enabled {
		provider, err := auth.NewOIDCProvider(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret,
			cfg.OIDC.RedirectURL, cfg.OIDC.GetScopes(), cfg.OIDC.GetAllowedDomains())
		if err != nil {
			return fmt.Errorf("initializing OIDC provider: %w", err)
		}
		states, err := auth.NewStateStore(secret, cfg.Server.SecureCookies)
		if err != nil {
			return fmt.Errorf("creating OIDC state store: %w", err)
		}
		deps.OIDC = &web.OIDCComponents{Provider: provider, StateStore: states}
		logger.WithField("issuer", cfg.OIDC.IssuerURL).Info("OIDC login enabled")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr()).Info("Starting sender.net subscriptions server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage; settings are lost on restart")
		return memory.New(), nil
	case config.StorageRedis:
		store, err := redis.Open(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("initializing redis storage: %w", err)
		}
		return store, nil
	default:
		// Create data directory if needed (for SQLite)
		if cfg.Database.Driver == "sqlite3" {
			if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, fmt.Errorf("creating data directory: %w", err)
				}
			}
		}
		store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		return store, nil
	}
}

func newProviderClient(cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics) sender.ProviderClient {
	if cfg.UseFileShim() {
		logger.WithField("path", cfg.Sender.FileShim).Info("Using file shim for sender.net API")
		return sender.NewFileShim(cfg.Sender.FileShim, logger)
	}
	return sender.New(cfg.Sender.Timeout,
		sender.WithDefaultBaseURL(cfg.Sender.BaseURL),
		sender.WithLogger(logger),
		sender.WithMetrics(m),
	)
}
