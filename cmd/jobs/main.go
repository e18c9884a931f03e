// Command jobs runs one scheduled billing task and exits. It is meant to be
// driven by cron or a Kubernetes CronJob:
//
//	jobs expiring   mail accounts whose rentals expire within 24 hours
//	jobs report     mail the monthly per-course payment report
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyon/billing/internal/app"
	"github.com/studyon/billing/internal/core/service"
	"github.com/studyon/billing/internal/pkg/config"
	"github.com/studyon/billing/pkg/logger"
)

const usage = "usage: jobs <expiring|report>"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	os.Exit(run(os.Args[1]))
}

func run(job string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "billing-jobs"}).
		With().Str("job", job).Logger()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise dependencies")
		return 1
	}
	defer func() { _ = a.Close(context.Background()) }()

	a.Dispatcher.Start(context.Background())
	reports := service.NewReportService(a.Store, a.Dispatcher, a.Templates, cfg.Notify.ReportMail, log)

	err = dispatch(ctx, job, reports, log)
	a.Dispatcher.Drain()
	if err != nil {
		log.Error().Err(err).Msg("job failed")
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, job string, reports *service.ReportService, log zerolog.Logger) error {
	now := time.Now().UTC()
	switch job {
	case "expiring":
		n, err := reports.NotifyExpiringRentals(ctx, now)
		if err != nil {
			return err
		}
		log.Info().Int("notifications", n).Msg("expiring rentals job done")
		return nil
	case "report":
		lines, err := reports.SendPaymentReport(ctx, now)
		if err != nil {
			return err
		}
		log.Info().Int("courses", len(lines)).Msg("payment report job done")
		return nil
	default:
		return fmt.Errorf("unknown job %q; %s", job, usage)
	}
}
