// Package app assembles the billing components from configuration. It is
// shared by the HTTP server and the scheduled jobs binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/studyon/billing/internal/core/ports"
	"github.com/studyon/billing/internal/core/service"
	"github.com/studyon/billing/internal/infrastructure/db/memory"
	"github.com/studyon/billing/internal/infrastructure/db/mongo"
	"github.com/studyon/billing/internal/infrastructure/db/postgres"
	"github.com/studyon/billing/internal/infrastructure/db/redis"
	"github.com/studyon/billing/internal/infrastructure/http/handlers"
	"github.com/studyon/billing/internal/infrastructure/notify"
	"github.com/studyon/billing/internal/infrastructure/queue"
	"github.com/studyon/billing/internal/pkg/config"
)

// App holds the long-lived collaborators built from Config.
type App struct {
	Store       ports.LedgerStore
	Engine      *service.PaymentEngine
	Idempotency ports.IdempotencyStore
	Dispatcher  *queue.Dispatcher
	Templates   *notify.TemplateRenderer

	redis   *goredis.Client
	closers []func(context.Context) error
	log     zerolog.Logger
}

// New connects the storage backend, Redis and the notification sender
// selected in cfg. The dispatcher is created but not started.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{log: log, Templates: notify.NewTemplateRenderer()}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	a.Engine = service.NewPaymentEngine(store, store, store.Accounts(), log)

	a.connectRedis(ctx, cfg.Redis)

	sender, err := a.newSender(ctx, cfg.Notify)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Dispatcher = queue.NewDispatcher(cfg.Notify.Workers, sender, log)

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (ports.LedgerStore, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case config.DriverMemory:
		a.log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil

	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongo.NewStore(client, db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		a.log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return store, nil

	default:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxOpenConns: cfg.Postgres.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.log.Info().Msg("connected to postgres")
		return postgres.NewStore(db), nil
	}
}

// connectRedis enables Idempotency-Key replay. Payments stay correct without
// it, so a failed connection is logged and not fatal.
func (a *App) connectRedis(ctx context.Context, cfg config.RedisConfig) {
	if cfg.Addr == "" {
		a.log.Info().Msg("REDIS_ADDR empty, idempotency keys disabled")
		return
	}
	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		a.log.Warn().Err(err).Msg("redis unavailable, idempotency keys disabled")
		return
	}
	a.redis = client
	a.Idempotency = redis.NewIdempotencyStore(client, cfg.IdempotencyTTL)
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
}

func (a *App) newSender(ctx context.Context, cfg config.NotifyConfig) (ports.Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.NotifySES:
		s, err := notify.NewSESSender(ctx, notify.SESConfig{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      cfg.AdminMail,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.NotifyAMQP:
		s := notify.NewAMQPSender(cfg.AMQPURL, cfg.AMQPQueue)
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		return s, nil
	default:
		return notify.NewLogSender(a.log), nil
	}
}

// Checks returns the readiness probes for the connected dependencies.
func (a *App) Checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{"store": a.Store.Ping}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("app close: %w", errors.Join(errs...))
	}
	return nil
}
