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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oralvis/oralvis/internal/config"
	"github.com/oralvis/oralvis/internal/dashboard"
	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/auth"
	"github.com/oralvis/oralvis/internal/platform/db"
	"github.com/oralvis/oralvis/internal/platform/middleware"
	"github.com/oralvis/oralvis/internal/platform/objectstore"
	"github.com/oralvis/oralvis/internal/platform/telemetry"
	"github.com/oralvis/oralvis/migrations"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the OralVis API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(os.Stdout, cfg.Env)
	for _, w := range cfg.Warnings() {
		logger.Warn().Str("env", cfg.Env).Msg(w)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("closing stores")
		}
	}()

	addr := ":" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("record_store", cfg.RecordStore).
			Str("object_store", cfg.ObjectStore).Str("auth_mode", cfg.ResolvedAuthMode()).
			Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		srv.revocations.Run(gctx, auth.DefaultSweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.echo.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// server is the assembled HTTP stack plus the resources it must release.
type server struct {
	echo        *echo.Echo
	scans       *scans.Service
	metrics     *telemetry.Provider
	revocations *auth.Revocations
	closers     []func() error
}

func (s *server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildServer opens the configured stores and wires every route and
// middleware. On error, anything already opened is closed.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *server, err error) {
	srv := &server{revocations: auth.NewRevocations()}
	defer func() {
		if err != nil {
			_ = srv.Close()
		}
	}()

	repo, checker, closeRepo, err := openRecordStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeRepo != nil {
		srv.closers = append(srv.closers, closeRepo)
	}

	objects, closeObjects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeObjects != nil {
		srv.closers = append(srv.closers, closeObjects)
	}

	srv.metrics = telemetry.NewProvider(telemetry.Config{
		ServiceVersion:    version,
		Environment:       cfg.Env,
		RuntimeCollectors: true,
	})
	if checker != nil {
		srv.metrics.RegisterDBStats(checker)
	}

	srv.scans = scans.NewService(repo, objects, logger)
	srv.scans.SetMetrics(srv.metrics.ScanMetrics())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv.echo = e

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(srv.metrics.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID,
			auth.DevUserHeader, auth.DevEmailHeader, auth.DevRolesHeader,
		},
	}))
	e.Use(middleware.BodyLimit("1M", cfg.MaxUploadSize))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(authMiddleware(cfg, srv.revocations))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}))
	e.Use(middleware.Audit(logger))

	// Infrastructure endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(checker))
	e.GET("/metrics", srv.metrics.Handler())
	if local, ok := objects.(*objectstore.Local); ok {
		local.RegisterRoutes(e)
	}

	api := e.Group("/api/v1")
	scans.NewHandler(srv.scans, middleware.ParseLimit(cfg.MaxUploadSize)).RegisterRoutes(api)
	dashboard.NewHandler().RegisterRoutes(api)
	auth.NewSessionHandler(srv.revocations).RegisterRoutes(api)

	return srv, nil
}

func authMiddleware(cfg *config.Config, revocations *auth.Revocations) echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Issuer:      cfg.AuthIssuer,
		Audience:    cfg.AuthAudience,
		JWKSURL:     cfg.AuthJWKSURL,
		Skipper:     auth.AuthSkipper,
		Revocations: revocations,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}

	if cfg.ResolvedAuthMode() == "development" {
		dev := auth.DevConfig{
			UserID:  cfg.DevUserID,
			Email:   cfg.DevUserEmail,
			Roles:   cfg.DevRoles,
			Skipper: auth.AuthSkipper,
		}
		if cfg.AuthIssuer != "" || cfg.AuthSigningKey != "" {
			dev.Tokens = &jwtCfg
		}
		return auth.DevAuthMiddleware(dev)
	}
	return auth.JWTMiddleware(jwtCfg)
}

// openRecordStore connects the configured record store. Postgres must be
// migrated with `oralvis migrate up`; SQLite is migrated on open.
func openRecordStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (scans.Repository, db.Checker, func() error, error) {
	switch cfg.RecordStore {
	case config.RecordStorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Msg("connected to database")
		return scans.NewRepoPG(pool), db.PGChecker{Pool: pool}, func() error { pool.Close(); return nil }, nil

	case config.RecordStoreSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		n, err := db.NewSQLiteMigrator(sqlDB, migrations.FS, migrations.SQLiteDir).Up(ctx)
		if err != nil {
			sqlDB.Close()
			return nil, nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Int("applied", n).Msg("opened sqlite record store")
		return scans.NewRepoSQLite(sqlDB), db.SQLChecker{DB: sqlDB}, sqlDB.Close, nil

	case config.RecordStoreMemory:
		return scans.NewRepoMemory(), nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

func openObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, func() error, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreLocal:
		secret := []byte(cfg.ObjectURLKey)
		if len(secret) == 0 {
			secret = []byte("oralvis-development-only")
		}
		local, err := objectstore.NewLocal(cfg.ObjectStoreDir, cfg.PublicBaseURL, secret)
		if err != nil {
			return nil, nil, err
		}
		return local, nil, nil

	case config.ObjectStoreGCS:
		gcs, err := objectstore.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil

	case config.ObjectStoreMemory:
		return objectstore.NewMemory(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}
