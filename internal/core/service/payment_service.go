package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
	"github.com/studyon/billing/internal/pkg/metrics"
)

// PaymentEngine executes deposits and course payments. Every write happens
// inside the account's unit of work, so the evaluator, the ledger insert and
// the balance update are observed together or not at all.
type PaymentEngine struct {
	uow      ports.LedgerUnitOfWork
	ledger   ports.LedgerRepository
	accounts ports.AccountRepository
	now      func() time.Time
	log      zerolog.Logger
}

// EngineOption customises a PaymentEngine.
type EngineOption func(*PaymentEngine)

// WithClock replaces the wall clock used to stamp entries and evaluate rentals.
func WithClock(now func() time.Time) EngineOption {
	return func(e *PaymentEngine) { e.now = now }
}

func NewPaymentEngine(
	uow ports.LedgerUnitOfWork,
	ledger ports.LedgerRepository,
	accounts ports.AccountRepository,
	log zerolog.Logger,
	opts ...EngineOption,
) *PaymentEngine {
	e := &PaymentEngine{
		uow:      uow,
		ledger:   ledger,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits amount to the account.
func (e *PaymentEngine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() || !domain.HasMoneyScale(amount) {
		return nil, domain.ErrInvalidAmount
	}

	timer := prometheus.NewTimer(metrics.PaymentDuration.WithLabelValues("deposit"))
	defer timer.ObserveDuration()

	var entry *domain.Transaction
	err := e.uow.WithinAccountTx(ctx, accountID, func(ctx context.Context, tx ports.LedgerTx) error {
		entry = domain.NewDeposit(accountID, amount, e.now())
		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		return tx.SetBalance(ctx, tx.Account().Balance.Add(entry.SignedAmount()))
	})
	if err != nil {
		return nil, e.fail("deposit", accountID, err)
	}

	metrics.DepositsTotal.Inc()
	e.log.Info().Str("account_id", accountID).Str("amount", amount.StringFixed(2)).Msg("deposit committed")
	return entry, nil
}

// Pay charges the account for course. Business rejections are returned as
// *domain.RejectionError; storage failures wrap domain.ErrPaymentFailed.
func (e *PaymentEngine) Pay(ctx context.Context, accountID string, course *domain.Course) (*domain.Transaction, error) {
	timer := prometheus.NewTimer(metrics.PaymentDuration.WithLabelValues("pay"))
	defer timer.ObserveDuration()

	var entry *domain.Transaction
	err := e.uow.WithinAccountTx(ctx, accountID, func(ctx context.Context, tx ports.LedgerTx) error {
		now := e.now()
		account := tx.Account()

		var prior *domain.Transaction
		if course.Type.Payable() {
			var err error
			if prior, err = tx.LatestPayment(ctx, course.ID); err != nil {
				return err
			}
		}

		if err := domain.Evaluate(account, course, prior, now).Err(); err != nil {
			return err
		}

		entry = domain.NewPayment(accountID, course, now)
		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		return tx.SetBalance(ctx, account.Balance.Add(entry.SignedAmount()))
	})

	var rej *domain.RejectionError
	switch {
	case errors.As(err, &rej):
		metrics.PaymentRejectionsTotal.WithLabelValues(string(rej.Decision)).Inc()
		e.log.Info().Str("account_id", accountID).Str("course", course.Code).Str("reason", string(rej.Decision)).Msg("payment rejected")
		return nil, err
	case err != nil:
		return nil, e.fail("pay", accountID, err)
	}

	metrics.PaymentsTotal.WithLabelValues(string(course.Type)).Inc()
	e.log.Info().
		Str("account_id", accountID).
		Str("course", course.Code).
		Str("type", string(course.Type)).
		Str("amount", course.Cost.StringFixed(2)).
		Msg("payment committed")
	return entry, nil
}

// Check evaluates the access rules without taking the account lock. The
// result is advisory: Pay evaluates again under the lock.
func (e *PaymentEngine) Check(ctx context.Context, accountID string, course *domain.Course) (domain.Decision, error) {
	if course.Type == domain.CourseFree {
		return domain.DecisionCourseIsFree, nil
	}

	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("check payment: %w", err)
	}
	prior, err := e.ledger.LatestPayment(ctx, accountID, course.ID)
	if err != nil {
		return "", fmt.Errorf("check payment: %w", err)
	}
	return domain.Evaluate(account, course, prior, e.now()), nil
}

func (e *PaymentEngine) fail(op, accountID string, err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, context.Canceled) {
		return err
	}
	metrics.PaymentFailuresTotal.WithLabelValues(op).Inc()
	e.log.Error().Err(err).Str("account_id", accountID).Str("operation", op).Msg("ledger write rolled back")
	return fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
}
