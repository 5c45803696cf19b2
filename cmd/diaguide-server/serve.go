package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/diaguide/diaguide/internal/config"
	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/domain/interactions"
	"github.com/diaguide/diaguide/internal/platform/auth"
	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/internal/platform/middleware"
	"github.com/diaguide/diaguide/internal/platform/notification"
	"github.com/diaguide/diaguide/internal/platform/websocket"
	"github.com/diaguide/diaguide/migrations"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

// routerDeps is everything newRouter mounts.
type routerDeps struct {
	cfg           *config.Config
	logger        zerolog.Logger
	verifier      *auth.Verifier
	dbHealth      echo.HandlerFunc
	identity      *identity.Service
	interactions  *interactions.Service
	notifications notification.Repository
	live          *websocket.Hub
}

func newRouter(d routerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(d.logger)

	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevUserHeader},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: d.cfg.RateLimitRPS,
		BurstSize:         d.cfg.RateLimitBurst,
		Skipper:           auth.Skipper,
	}))
	e.Use(middleware.RequestTimeout(d.cfg.RequestTimeout))
	e.Use(auth.Middleware(d.verifier, d.cfg.IsDev(), auth.Skipper))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", d.dbHealth)

	api := e.Group("/api/v1", identity.ActorMiddleware(d.identity))
	identity.NewHandler(d.identity).RegisterRoutes(api)
	interactions.NewHandler(d.interactions).RegisterRoutes(api)
	notification.NewHandler(d.notifications).RegisterRoutes(api)
	websocket.NewHandler(d.live, d.cfg.CORSOrigins, d.logger).RegisterRoutes(api)

	return e
}

func newVerifier(ctx context.Context, cfg *config.Config) (*auth.Verifier, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	return auth.NewVerifier(ctx, auth.Config{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: key,
	})
}

func initSentry(cfg *config.Config, logger zerolog.Logger) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Env,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("sentry disabled")
		return false
	}
	return true
}

func runServer(migrate bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if initSentry(cfg, logger) {
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if migrate {
		n, err := db.NewMigrator(a.pool, migrations.FS).Up(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}
	if cfg.IsDev() {
		logger.Warn().Str("header", auth.DevUserHeader).Msg("development mode: requests without a token authenticate via header")
	}

	e := newRouter(routerDeps{
		cfg:           cfg,
		logger:        logger,
		verifier:      verifier,
		dbHealth:      db.HealthHandler(a.pool),
		identity:      a.identity,
		interactions:  a.interactions,
		notifications: a.notifyRepo,
		live:          a.live,
	})

	reminder := interactions.NewReminder(a.interactions, cfg.ReminderInterval, cfg.ReminderLeadTime,
		logger.With().Str("component", "reminder").Logger())
	if err := reminder.Start(); err != nil {
		return fmt.Errorf("start reminder: %w", err)
	}
	defer reminder.Stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
