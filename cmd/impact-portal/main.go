package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/terra-clan/impact-portal/internal/api"
	"github.com/terra-clan/impact-portal/internal/authflow"
	"github.com/terra-clan/impact-portal/internal/catalog"
	"github.com/terra-clan/impact-portal/internal/cleanup"
	"github.com/terra-clan/impact-portal/internal/config"
	"github.com/terra-clan/impact-portal/internal/feed"
	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/health"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/leaderboard"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/internal/metrics"
	"github.com/terra-clan/impact-portal/internal/profile"
	"github.com/terra-clan/impact-portal/internal/storage"
	"github.com/terra-clan/impact-portal/pkg/client"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting impact-portal",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"reaction_store", cfg.Store.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	registry := health.NewRegistry()

	store, err := openReactionStore(initCtx, cfg, registry)
	if err != nil {
		slog.Error("failed to open reaction store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	registry.Register("reactions", health.NewStoreChecker(cfg.Store.Backend, store))

	// Load seed catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Error("failed to load catalog", "dir", cfg.Catalog.Dir, "error", err)
		os.Exit(1)
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	portalMetrics := metrics.NewMetrics(promRegistry)

	// Backend gateway
	gateway := client.NewClient(cfg.Backend.URL,
		client.WithTimeout(cfg.Backend.Timeout),
		client.WithCallHook(portalMetrics.ObserveGatewayCall),
	)
	registry.Register("backend", health.NewBackendChecker(gateway))

	// Services
	reader := identity.NewReader(logger)
	hub := api.NewHub()

	deps := api.Deps{
		Sessions: identity.NewSessionStore(identity.SessionOptions{
			Name:   cfg.Session.Name,
			Secret: []byte(cfg.Session.Secret),
			MaxAge: cfg.Session.MaxAge,
			Secure: cfg.Session.Secure,
		}, reader),
		Auth:     authflow.NewService(gateway, logger),
		Profiles: profile.NewService(gateway, logger),
		Feed:     feed.NewService(loader, store, hub, logger),
		Catalog:  loader,
		Board:    leaderboard.NewBoard(loader),
		Embeds:   mappin.NewEmbedBuilder(cfg.Maps.EmbedURL, cfg.Maps.APIKey),
		Gateway:  gateway,
		Geocoder: geo.NewReverseGeocoder(cfg.Maps.GeocoderURL, cfg.Backend.Timeout),
		Health:   registry,
		Metrics:  portalMetrics,
		Hub:      hub,
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner := cleanup.NewCleaner(store, loader, cfg.Cleanup.Interval, cfg.Cleanup.Retention)
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, deps)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("reaction store close error", "error", err)
	}

	slog.Info("impact-portal stopped")
}

// openReactionStore connects the configured reaction store and registers the
// health checks that belong to it
func openReactionStore(ctx context.Context, cfg *config.Config, registry *health.Registry) (storage.ReactionStore, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil

	case config.StoreRedis:
		store, err := storage.NewRedisStore(ctx, storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		registry.Register("redis", health.NewRedisChecker(store.Client()))
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
		return store, nil

	case config.StorePostgres:
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: cfg.Database.DSN})
		if err != nil {
			return nil, err
		}

		migrations, err := storage.Migrations(cfg.Database.MigrationsDir)
		if err != nil {
			repo.Close()
			return nil, err
		}
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.RunMigrations(ctx, repo.Pool(), migrations); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		checker, err := health.NewPostgresChecker(cfg.Database.DSN)
		if err != nil {
			repo.Close()
			return nil, err
		}
		registry.Register("postgres", checker)
		slog.Info("database connected successfully")
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown reaction store: %q", cfg.Store.Backend)
	}
}
