package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/arborhq/arbor/pkg/api"
	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/auth"
	"github.com/arborhq/arbor/pkg/config"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/middleware"
	"github.com/arborhq/arbor/pkg/observability"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": observability.Version,
		"driver":  cfg.Database.Driver,
	}).Info("starting arbor")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("arbor exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	for _, migrate := range []func(context.Context, *sql.DB) error{
		auth.RunMigrations,
		tree.RunMigrations,
		invite.RunMigrations,
		media.RunMigrations,
	} {
		if err := migrate(ctx, db); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		opts.PoolSize = cfg.Redis.PoolSize
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, falling back to in-memory rate limiting")
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	auditor, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}

	trees := tree.NewStore(db)

	perms, err := perm.NewService(trees,
		perm.WithCacheSize(cfg.Permissions.CacheSize),
		perm.WithLogger(logger),
		perm.WithMetrics(metrics),
		perm.WithDecisionHook(audit.PermissionHook(auditor, logger)),
	)
	if err != nil {
		return err
	}

	invites := invite.NewService(invite.NewStore(db), trees, perms, cfg.Invitations.TTL,
		invite.WithMetrics(metrics),
		invite.WithLogger(logger),
		invite.WithAuditLogger(auditor),
	)

	blobs, err := media.NewFilesystemStore(cfg.Media.Root)
	if err != nil {
		return err
	}
	mediaSvc := media.NewService(media.NewStore(db), blobs, metrics)

	server := api.NewServer(api.Config{
		Trees:         trees,
		Perms:         perms,
		Invites:       invites,
		Media:         mediaSvc,
		Auditor:       auditor,
		AuditSearch:   auditor,
		Logger:        logger,
		Metrics:       metrics,
		MaxUploadSize: cfg.Media.MaxUploadSize,
	})

	users := auth.NewStore(db)
	authMW := middleware.NewAuthMiddleware(auth.NewTokenManager(users), users, false)

	var rateLimit func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimit = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
	} else {
		limiter := middleware.NewRateLimitMiddleware()
		rateLimit = limiter.Handler
	}

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	}
	if metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(metrics))
	}
	// Rate limiting keys off the authenticated user, so auth runs first.
	chain = append(chain, authMW.Handler, rateLimit)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      httputil.Chain(chain...)(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener so probes and scrapes skip
	// auth and rate limiting.
	probeMux := http.NewServeMux()
	observability.RegisterHealthRoutes(probeMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(probeMux, registry)
	}
	probeServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      probeMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Invitations.SweepSchedule, func() {
		defer observability.RecoverPanic(logger, "invitation sweep")
		if _, err := invites.SweepExpired(context.Background()); err != nil {
			logger.WithError(err).Error("invitation sweep failed")
		}
	})
	if err != nil {
		return err
	}
	sweeper.Start()

	go func() {
		logger.WithField("addr", probeServer.Addr).Info("health listener started")
		if err := probeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health listener failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api listener started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api listener failed")
			os.Exit(1)
		}
	}()

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := sweeper.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return probeServer.Shutdown(ctx)
	})
	sm.RegisterShutdownFunc(func(context.Context) error {
		return auditor.Close()
	})
	if redisClient != nil {
		sm.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	sm.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})

	return sm.WaitForShutdown()
}
