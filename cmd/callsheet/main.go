// Package main is the entry point for the callsheet server. It wires all
// dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mediaops/callsheet/internal/config"
	"github.com/mediaops/callsheet/internal/engine"
	"github.com/mediaops/callsheet/internal/notify"
	"github.com/mediaops/callsheet/internal/observability"
	"github.com/mediaops/callsheet/internal/openapi"
	"github.com/mediaops/callsheet/internal/rules"
	"github.com/mediaops/callsheet/internal/store"
	"github.com/mediaops/callsheet/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

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

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "callsheet", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Validate the embedded API document at boot so a broken document never
	// reaches a client.
	apiSpec, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("API document load failed", zap.Error(err))
		return 1
	}
	logger.Info("API document loaded",
		zap.String("title", apiSpec.Title()),
		zap.Int("operations", len(apiSpec.OperationIDs())),
	)

	ruleset, err := rules.Load(cfg.Rules.File)
	if err != nil {
		logger.Error("ruleset load failed", zap.Error(err))
		return 1
	}

	itemStore, storeCloser, err := buildItemStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("item store initialization failed", zap.Error(err))
		return 1
	}

	notifier, notifierCloser, err := buildNotifier(cfg.Notifier, logger)
	if err != nil {
		logger.Error("notifier initialization failed", zap.Error(err))
		return 1
	}

	svc := engine.NewService(ruleset, itemStore, notifier, logger, metrics, cfg.Notifier.Timeout)

	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)

	readinessChecks := observability.ReadinessChecks{
		RulesLoaded: func() bool { return ruleset != nil },
	}
	if hc, ok := itemStore.(observability.HealthChecker); ok {
		readinessChecks.ItemStore = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Service:      svc,
		Authenticate: transport.JWTAuthenticator(cfg.Identity, jwks),
		Readiness:    readinessChecks,
		OpenAPI:      openapi.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	if cfg.Claims.ReleaseEnabled {
		go runStaleClaimRelease(bgCtx, svc, cfg.Claims, logger)
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("store", cfg.Store.Driver),
		zap.String("notifier", cfg.Notifier.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()

	if notifierCloser != nil {
		notifierCloser()
	}
	if storeCloser != nil {
		storeCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildItemStore creates the item store based on config.
func buildItemStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.ItemStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory item store")
		return store.NewMemItemStore(), nil, nil
	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("item store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("item store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("item store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("item store: ping: %w", err)
		}

		pg := store.NewPgItemStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("item store: schema: %w", err)
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported item store driver: %q", cfg.Driver)
	}
}

// buildNotifier creates the transition notifier based on config.
func buildNotifier(cfg config.NotifierConfig, logger *zap.Logger) (notify.Notifier, func(), error) {
	switch cfg.Driver {
	case "none":
		return notify.NewNop(), nil, nil
	case "webhook":
		logger.Info("using webhook notifier", zap.String("url", cfg.Webhook.URL))
		return notify.NewWebhook(cfg.Webhook.URL, cfg.Timeout), nil, nil
	case "redis":
		addr := os.Getenv(cfg.Redis.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("notifier: %s environment variable not set", cfg.Redis.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Redis.DB})
		logger.Info("using redis notifier", zap.String("channel", cfg.Redis.Channel))
		n := notify.NewRedis(client, cfg.Redis.Channel)
		return n, func() { n.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notifier driver: %q", cfg.Driver)
	}
}

// runStaleClaimRelease periodically frees claim slots held longer than the
// configured age.
func runStaleClaimRelease(ctx context.Context, svc *engine.Service, cfg config.ClaimsConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.ReleaseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := svc.ReleaseStaleClaims(ctx, cfg.ReleaseAfter)
			if err != nil {
				logger.Warn("stale claim release failed", zap.Error(err))
				continue
			}
			if released > 0 {
				logger.Info("released stale claims", zap.Int("count", released))
			}
		}
	}
}
