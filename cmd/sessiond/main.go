package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/testerhome/ruby-china-ios/internal/api"
	"github.com/testerhome/ruby-china-ios/internal/bus"
	"github.com/testerhome/ruby-china-ios/internal/config"
	"github.com/testerhome/ruby-china-ios/internal/crypto"
	"github.com/testerhome/ruby-china-ios/internal/domain"
	"github.com/testerhome/ruby-china-ios/internal/logging"
	"github.com/testerhome/ruby-china-ios/internal/server"
	"github.com/testerhome/ruby-china-ios/internal/session"
	"github.com/testerhome/ruby-china-ios/internal/store"
	"github.com/testerhome/ruby-china-ios/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not initialized yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupCrypto(cfg *config.Config) crypto.Service {
	if cfg.CredentialEncryptionKey == "" {
		slog.Warn("CREDENTIAL_ENCRYPTION_KEY not set, credential will be persisted unencrypted")
		return crypto.NoopService{}
	}
	svc, err := crypto.NewAESGCMService(cfg.CredentialEncryptionKey)
	if err != nil {
		slog.Error("Failed to create crypto service", "error", err)
		os.Exit(1)
	}
	return svc
}

func setupStores(cfg *config.Config, cryptoSvc crypto.Service) (domain.CredentialStore, domain.ProfileCache, []server.HealthCheck, func()) {
	switch cfg.StoreBackend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		creds := store.NewRedisCredentialStore(rdb, cfg.KeyNamespace, cryptoSvc)
		profiles := store.NewRedisProfileCache(rdb, cfg.KeyNamespace)
		checks := []server.HealthCheck{
			{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		}
		return creds, profiles, checks, func() { _ = rdb.Close() }
	default:
		creds, err := store.NewFileCredentialStore(cfg.DataDir, cfg.KeyNamespace, cryptoSvc)
		if err != nil {
			slog.Error("Failed to create credential store", "error", err)
			os.Exit(1)
		}
		profiles, err := store.NewFileProfileCache(cfg.DataDir)
		if err != nil {
			slog.Error("Failed to create profile cache", "error", err)
			os.Exit(1)
		}
		return creds, profiles, nil, func() {}
	}
}

func runGracefulShutdown(srv *server.Server, cancelBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		cancelBackground()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	cryptoSvc := setupCrypto(cfg)
	creds, profiles, healthChecks, closeStores := setupStores(cfg, cryptoSvc)
	defer closeStores()

	gateway := api.New(cfg.BaseURL, cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.DevicePlatform)
	eventBus := bus.New()
	manager := session.NewManager(creds, profiles, gateway, eventBus, clock)

	manager.Initialize()

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// reconcile the rehydrated session against the server, off the startup path
	go manager.Reconcile(backgroundCtx)

	poller := session.NewUnreadPoller(manager, clock, cfg.UnreadPollInterval)
	go poller.Run(backgroundCtx)

	srv := server.NewServer(cfg, manager, eventBus, healthChecks...)
	done := runGracefulShutdown(srv, cancelBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
