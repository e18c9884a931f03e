package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studyon/billing/internal/api"
	"github.com/studyon/billing/internal/app"
	"github.com/studyon/billing/internal/core/service"
	"github.com/studyon/billing/internal/pkg/config"
	"github.com/studyon/billing/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: "billing-api"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "billing-api"})

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dependencies")
	}

	// Workers outlive the signal context so queued receipts are flushed on shutdown.
	a.Dispatcher.Start(context.Background())

	auth := service.NewAuthService(a.Store.Accounts(), a.Engine, cfg.JWTSecret, cfg.TokenTTL, cfg.BaseDeposit(), log)
	courses := service.NewCourseService(service.CourseDeps{
		Courses:     a.Store.Courses(),
		Accounts:    a.Store.Accounts(),
		Ledger:      a.Store,
		Engine:      a.Engine,
		Idempotency: a.Idempotency,
		Notifier:    a.Dispatcher,
		Templates:   a.Templates,
	}, log)

	e := api.NewRouter(api.RouterDeps{
		Auth:         auth,
		Courses:      courses,
		Transactions: service.NewTransactionService(a.Store),
		JWTSecret:    cfg.JWTSecret,
		Checks:       a.Checks(),
		Log:          log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("db_driver", cfg.DBDriver).Msg("billing api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	a.Dispatcher.Drain()
	if err := a.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("closing dependencies")
	}
}
