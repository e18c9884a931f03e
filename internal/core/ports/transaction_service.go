package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
)

// HistoryInput is the raw query of the transaction history endpoint.
type HistoryInput struct {
	AccountID   string
	Type        string
	CourseCode  string
	SkipExpired bool
}

type TransactionService interface {
	History(ctx context.Context, input HistoryInput) ([]*domain.Transaction, error)
}

// PaymentEngine is the only writer of balances and ledger entries.
type PaymentEngine interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error)
	Pay(ctx context.Context, accountID string, course *domain.Course) (*domain.Transaction, error)
	Check(ctx context.Context, accountID string, course *domain.Course) (domain.Decision, error)
}
