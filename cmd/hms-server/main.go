package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicore/hms/internal/config"
	"github.com/medicore/hms/internal/domain/admin"
	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/clinical"
	"github.com/medicore/hms/internal/domain/identity"
	"github.com/medicore/hms/internal/domain/notification"
	"github.com/medicore/hms/internal/domain/scheduling"
	"github.com/medicore/hms/internal/platform/auth"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/internal/platform/jobs"
	"github.com/medicore/hms/internal/platform/lock"
	"github.com/medicore/hms/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hms-server",
		Short:        "Hospital management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// services holds the wired domain layer. Commands other than serve reuse it
// so that seeding and slot generation go through the same validation.
type services struct {
	identity     *identity.Service
	admin        *admin.Service
	notification *notification.Service
	scheduling   *scheduling.Service
	billing      *billing.Service
	clinical     *clinical.Service
}

func newServices(pool *pgxpool.Pool, locker lock.Locker, logger zerolog.Logger) *services {
	tx := db.NewTxRunner(pool)

	identitySvc := identity.NewService(
		identity.NewPatientRepo(pool),
		identity.NewDoctorRepo(pool),
		identity.NewStaffRepo(pool),
		auth.NewArgon2Hasher(),
	)
	adminSvc := admin.NewService(admin.NewDepartmentRepo(pool), identitySvc)
	notificationSvc := notification.NewService(notification.NewRepo(pool))

	schedulingSvc := scheduling.NewService(
		scheduling.NewSlotRepo(pool),
		scheduling.NewAppointmentRepo(pool),
		identitySvc, tx, locker, logger,
	)
	schedulingSvc.SetNotifier(notificationSvc)

	billingSvc := billing.NewService(billing.NewRepo(pool), identitySvc, schedulingSvc, logger)
	billingSvc.SetNotifier(notificationSvc)

	clinicalSvc := clinical.NewService(
		clinical.NewTreatmentRepo(pool),
		clinical.NewFeedbackRepo(pool),
		identitySvc, schedulingSvc, tx,
	)

	return &services{
		identity:     identitySvc,
		admin:        adminSvc,
		notification: notificationSvc,
		scheduling:   schedulingSvc,
		billing:      billingSvc,
		clinical:     clinicalSvc,
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	signingKey, generated, err := resolveSigningKey(cfg.JWTSigningKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}
	if generated {
		logger.Warn().Msg("JWT_SIGNING_KEY not set, using a random key; tokens will not survive a restart")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Slot locks
	var locker lock.Locker = lock.NoopLocker{}
	readiness := map[string]db.Pinger{}
	if cfg.RedisEnabled() {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisSlotLocker(rdb, cfg.LockTTL)
		readiness["redis"] = lock.Pinger{Client: rdb}
		logger.Info().Msg("redis slot locks enabled")
	}

	svc := newServices(pool, locker, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	// Auth middleware
	jwtCfg := auth.JWTConfig{Issuer: cfg.JWTIssuer, SigningKey: signingKey}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Tenant middleware
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Audit middleware
	e.Use(middleware.Audit(logger))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg.RateLimitRPS, cfg.RateLimitBurst)))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/health/ready", db.ReadinessHandler(pool, readiness))

	// Login gets its own, much tighter, per-client budget.
	authn := auth.NewAuthenticator(auth.NewArgon2Hasher(), logger, svc.identity.PrincipalSources()...)
	tokens := auth.NewTokenIssuer(signingKey, cfg.JWTIssuer, cfg.TokenTTL)
	loginLimit := middleware.RateLimitBy(rateLimitConfig(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst), middleware.ClientKey)
	auth.NewHandler(authn, tokens, logger).RegisterRoutes(apiV1, loginLimit)

	identity.NewHandler(svc.identity).RegisterRoutes(apiV1)
	admin.NewHandler(svc.admin).RegisterRoutes(apiV1)
	notification.NewHandler(svc.notification).RegisterRoutes(apiV1)
	scheduling.NewHandler(svc.scheduling).RegisterRoutes(apiV1)
	billing.NewHandler(svc.billing).RegisterRoutes(apiV1)
	clinical.NewHandler(svc.clinical).RegisterRoutes(apiV1)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		scheduler = jobs.NewScheduler(jobs.PoolScope(pool), cfg.JobTenants, logger)
		if err := scheduler.RegisterSlotSweep(cfg.SlotSweepSchedule, svc.scheduling); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule slot sweep")
		}
		scheduler.Start()
		logger.Info().Strs("tenants", cfg.JobTenants).Msg("background jobs started")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func rateLimitConfig(rps float64, burst int) middleware.RateLimitConfig {
	if rps <= 0 || burst <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return middleware.RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}
}

// resolveSigningKey returns the configured HMAC key or, when none is set, a
// random 32-byte key. Config.Validate has already refused an empty key
// outside development. A value prefixed with "hex:" is decoded.
func resolveSigningKey(configured string) ([]byte, bool, error) {
	if configured != "" {
		if raw, ok := strings.CutPrefix(configured, "hex:"); ok {
			decoded, err := hex.DecodeString(raw)
			if err != nil {
				return nil, false, fmt.Errorf("invalid hex JWT_SIGNING_KEY: %w", err)
			}
			return decoded, false, nil
		}
		return []byte(configured), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}
