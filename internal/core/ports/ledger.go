package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
)

// LedgerTx is the view of one account inside its unit of work. Every write
// made through it is committed together or not at all.
type LedgerTx interface {
	// Account returns the account as read under the lock.
	Account() *domain.Account
	// LatestPayment returns the most recent payment of the account for the
	// course, ordered by expires_at descending with nulls last, or nil when
	// the account never paid for it.
	LatestPayment(ctx context.Context, courseID string) (*domain.Transaction, error)
	Append(ctx context.Context, tx *domain.Transaction) error
	SetBalance(ctx context.Context, balance decimal.Decimal) error
}

// LedgerUnitOfWork serialises writers of a single account.
type LedgerUnitOfWork interface {
	// WithinAccountTx locks the account, runs fn and commits when fn returns
	// nil. Any error rolls back every write made through the LedgerTx.
	// Returns domain.ErrAccountNotFound when the account does not exist.
	WithinAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx LedgerTx) error) error
}

// TransactionFilter narrows a ledger query. All set predicates are ANDed.
type TransactionFilter struct {
	AccountID   string
	Type        *domain.TransactionType
	CourseCode  string
	SkipExpired bool
	// Now is the reference time for SkipExpired.
	Now time.Time
}

// LedgerRepository is the read side of the ledger.
type LedgerRepository interface {
	// List returns entries matching filter ordered by created_at ascending.
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	// LatestPayment is the unlocked counterpart of LedgerTx.LatestPayment.
	LatestPayment(ctx context.Context, accountID, courseID string) (*domain.Transaction, error)
	// ExpiringRentals returns rent payments with from < expires_at <= to.
	ExpiringRentals(ctx context.Context, from, to time.Time) ([]domain.ExpiringRental, error)
	// CourseReport aggregates payments created in [from, to] per course.
	CourseReport(ctx context.Context, from, to time.Time) ([]domain.CourseReportLine, error)
}

// LedgerStore bundles every persistence port a storage backend provides.
type LedgerStore interface {
	LedgerUnitOfWork
	LedgerRepository
	Accounts() AccountRepository
	Courses() CourseRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
