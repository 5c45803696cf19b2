package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/config"
	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/domain/interactions"
	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/internal/platform/notification"
	"github.com/diaguide/diaguide/internal/platform/websocket"
)

// app holds what every command needs after startup.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool

	identity     *identity.Service
	interactions *interactions.Service
	notifyRepo   notification.Repository
	dispatcher   *notification.Dispatcher
	live         *websocket.Hub
}

// loadConfig reads and validates the environment and builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

// newApp wires repositories, the notification dispatcher and the domain
// services. Callers must call close.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to database")

	var push notification.PushSender
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := notification.NewFCMSender(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init firebase messaging: %w", err)
		}
		push = fcm
		logger.Info().Msg("firebase push enabled")
	}

	live := websocket.NewHub(logger.With().Str("component", "live").Logger())
	notifyRepo := notification.NewRepoPG(pool)
	dispatcher := notification.NewDispatcher(notifyRepo, push, notification.NewTemplateEngine(), logger,
		notification.DispatcherConfig{Workers: cfg.NotifyWorkers, Buffer: cfg.NotifyBuffer, Live: live})

	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		identity.NewMedecinRepoPG(pool),
	)
	interactionsSvc := interactions.NewService(
		interactions.NewAssignmentRepoPG(pool),
		interactions.NewAppointmentRepoPG(pool),
		identitySvc,
		db.NewTxRunner(pool),
		dispatcher,
		interactions.WithLocation(loc),
		interactions.WithLogger(logger.With().Str("component", "interactions").Logger()),
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		identity:     identitySvc,
		interactions: interactionsSvc,
		notifyRepo:   notifyRepo,
		dispatcher:   dispatcher,
		live:         live,
	}, nil
}

// close drains queued notifications, then releases the pool.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.dispatcher.Close(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("notifications not fully drained")
	}
	a.pool.Close()
}
