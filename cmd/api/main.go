package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/handler"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/metrics"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/middleware"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/notify"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/repository"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/store"
	"github.com/AchilleasB/campus-portal/directory-service/internal/config"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("directory service stopped", zap.Error(err))
	}
}

// storage is the backend selected by store.backend together with the
// clients the readiness probe should ping.
type storage struct {
	backend ports.StoreBackend
	db      handler.DBPinger
	redis   handler.RedisPinger
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

		cb := config.NewCircuitBreaker(config.BreakerRedisStore, logger)
		return &storage{
			backend: store.NewRedisBackend(client, client, cfg.Redis.Channel, cb, logger),
			redis:   client,
			close:   func() { client.Close() },
		}, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := repository.RunMigrations(db, logger); err != nil {
			db.Close()
			return nil, err
		}

		cb := config.NewCircuitBreaker(config.BreakerPostgresStore, logger)
		return &storage{
			backend: repository.NewPostgresBackend(db, cfg.Database.URL, cfg.Database.Channel, cb, logger),
			db:      db,
			close:   func() { db.Close() },
		}, nil
	}

	logger.Warn("using the in-memory store, directory data is not persisted")
	return &storage{backend: store.NewMemoryBackend(), close: func() {}}, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	hub := notify.NewHub(logger)
	observed := store.NewObserved(st.backend, hub, ports.DefaultKeys(cfg.Store.KeyPrefix), logger)
	go func() {
		if err := observed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("remote change listener stopped", zap.Error(err))
		}
	}()

	repo := repository.NewDirectoryRepository(observed, ports.DefaultKeys(cfg.Store.KeyPrefix))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	directoryService := services.NewDirectoryService(repo, recorder, logger)

	if cfg.Store.SeedDemo {
		if _, err := services.SeedDemo(ctx, repo, logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	view := services.NewDirectoryView(repo, observed, logger)
	viewErr := make(chan error, 1)
	go func() { viewErr <- view.Run(ctx) }()

	select {
	case <-view.Ready():
	case err := <-viewErr:
		return fmt.Errorf("load directory: %w", err)
	}

	requireAdmin := middleware.NoAuth
	if cfg.Auth.Enabled {
		publicKey, err := cfg.Auth.PublicKey()
		if err != nil {
			return fmt.Errorf("load auth public key: %w", err)
		}
		requireAdmin = middleware.NewAuthMiddleware(publicKey, cfg.Auth.Roles, logger).RequireAdmin
	} else {
		logger.Warn("authentication is disabled")
	}

	healthHandler := handler.NewHealthHandler(st.db, st.redis, os.Getenv("APP_VERSION"), logger)
	directoryHandler := handler.NewDirectoryHandler(directoryService, view, logger)
	changesHandler := handler.NewChangesHandler(observed, cfg.Server.AllowOrigins, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	directoryHandler.Routes(mux, requireAdmin)
	mux.HandleFunc("GET /ws/changes", requireAdmin(changesHandler.Stream))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.CORSMiddleware(cfg.Server.AllowOrigins)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.Int("port", cfg.Server.Port), zap.String("store", cfg.Store.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
