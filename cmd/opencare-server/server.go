package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/opencare/opencare/internal/config"
	"github.com/opencare/opencare/internal/domain/labresults"
	"github.com/opencare/opencare/internal/labextract"
	"github.com/opencare/opencare/internal/platform/auth"
	"github.com/opencare/opencare/internal/platform/cache"
	"github.com/opencare/opencare/internal/platform/db"
	"github.com/opencare/opencare/internal/platform/middleware"
)

// deps are the optional backing services. Either may be nil.
type deps struct {
	pool  *pgxpool.Pool
	cache labresults.ResultCache
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

func newServer(cfg *config.Config, logger zerolog.Logger, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}))
	}

	// Audit middleware
	var recorder middleware.AuditRecorder
	if d.pool != nil {
		recorder = db.NewPGAuditRecorder(d.pool)
	}
	e.Use(middleware.Audit(logger, recorder))

	// API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	extractor := labextract.New(labextract.WithLogger(logger.With().Str("component", "labextract").Logger()))
	svc := labresults.NewService(extractor, cfg.MaxTextBytes, logger)
	if d.cache != nil {
		svc.SetCache(d.cache)
	}
	labresults.NewHandler(svc).RegisterRoutes(apiV1, fhirGroup)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(d.pool))

	return e
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	logger := newLogger(cfg, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: unauthenticated requests are treated as admin; do not use in production")
	}

	ctx := context.Background()
	var d deps

	// Database
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if n, err := db.EnsureAuditSchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare audit schema")
		} else if n > 0 {
			logger.Info().Int("applied", n).Msg("audit schema migrated")
		}
		d.pool = pool
		logger.Info().Msg("connected to database")
	}

	// Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.Options{URL: cfg.RedisURL, TTL: cfg.CacheTTL, Logger: logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		d.cache = rc
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("result cache enabled")
	}

	e := newServer(cfg, logger, d)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
