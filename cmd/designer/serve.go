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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/config"
	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/internal/persistence"
	"github.com/pitabwire/designer/internal/session"
	"github.com/pitabwire/designer/internal/transport"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the designer HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := run(configPath); code != 0 {
				return fmt.Errorf("server exited with status %d", code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to configuration file; empty uses defaults and DESIGNER_* variables")
	return cmd
}

func run(configPath string) int {
	// Step 1: Load configuration.
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 2: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 3: Load layout templates.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directories)
	if err != nil {
		logger.Error("layout loading failed", zap.Error(err))
		return 1
	}
	registry := definition.NewRegistry(defs)
	metrics.SetDefinitionsLoaded(float64(registry.Len()))
	logger.Info("layouts loaded",
		zap.Int("count", registry.Len()),
		zap.String("checksum", registry.Checksum()),
	)

	// Step 4: Initialize the persistence backend.
	store, storeCloser, err := buildPersistence(ctx, cfg.Persistence, logger)
	if err != nil {
		logger.Error("persistence initialization failed", zap.Error(err))
		return 1
	}
	if cfg.Persistence.Driver != config.DriverMemory {
		bc := cfg.Persistence.Breaker
		store = persistence.Guard(store, persistence.NewBreaker(bc.FailureThreshold, bc.SuccessThreshold, bc.OpenTimeout))
	}
	persist := persistence.Instrument(store, cfg.Persistence.Driver, metrics, logger)

	// Step 5: Build the session manager.
	manager := session.NewManager(registry, persist,
		session.WithLimits(session.Limits{
			IdleTTL:      cfg.Session.IdleTTL,
			MaxSessions:  cfg.Session.MaxSessions,
			HistoryLimit: cfg.Designer.HistoryLimit,
			Grid:         grid.Dimensions{Rows: cfg.Designer.Grid.Rows, Cols: cfg.Designer.Grid.Cols},
			Cell:         grid.CellSize{Width: cfg.Designer.Grid.CellWidth, Height: cfg.Designer.Grid.CellHeight},
		}),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	)

	// Step 6: Build router and HTTP server.
	router := transport.NewRouter(transport.Dependencies{
		Config:   cfg,
		Sessions: manager,
		Logger:   logger,
		Readiness: []observability.Check{
			observability.LayoutsCheck(registry.Len),
			observability.BackendCheck(cfg.Persistence.Driver, persist),
		},
	})

	var handler http.Handler = router
	handler = metrics.MetricsMiddleware(observability.TracingMiddleware(handler))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 7: Start background tasks.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	go manager.Run(bgCtx, cfg.Session.SweepInterval)

	if cfg.Definitions.HotReload {
		watcher := definition.NewWatcher(loader, registry, cfg.Definitions.Directories, logger,
			definition.WithDebounce(cfg.Definitions.ReloadDebounce),
			definition.WithReloadHook(metrics.RecordDefinitionReload),
		)
		if err := watcher.Start(bgCtx); err != nil {
			logger.Error("layout watcher failed to start", zap.Error(err))
			return 1
		}
	}

	// Step 8: Start listening.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("persistence", cfg.Persistence.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return 1
		}
	}

	// Step 9: Graceful shutdown.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()
	manager.CloseAll()
	if storeCloser != nil {
		storeCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

// buildPersistence creates the configured persistence.Store. The returned
// closer releases pooled connections and may be nil.
func buildPersistence(ctx context.Context, cfg config.PersistenceConfig, logger *zap.Logger) (persistence.Store, func(), error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return persistence.NewMemoryStore(), nil, nil

	case config.DriverPostgres:
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("persistence: environment variable %q is empty", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: parsing DSN: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			poolCfg.MinConns = int32(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: creating pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("persistence: ping failed: %w", err)
		}

		store := persistence.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("persistence: schema: %w", err)
		}

		logger.Info("postgres persistence initialized",
			zap.Int("max_conns", cfg.MaxOpenConns),
		)
		return store, pool.Close, nil

	case config.DriverRedis:
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("persistence: environment variable %q is empty", cfg.AddrEnv)
		}

		client := redis.NewClient(&redis.Options{
			Addr:            addr,
			DB:              cfg.DB,
			PoolSize:        cfg.MaxOpenConns,
			MinIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("persistence: redis ping failed: %w", err)
		}

		logger.Info("redis persistence initialized",
			zap.String("addr", addr),
			zap.Int("db", cfg.DB),
		)
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}
		return persistence.NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), closer, nil

	default:
		return nil, nil, fmt.Errorf("persistence: unknown driver %q", cfg.Driver)
	}
}
