package ports

import (
	"context"

	"github.com/studyon/billing/internal/core/domain"
)

// AccountRepository defines account persistence. Balance is never written
// through this interface; it changes only inside a LedgerUnitOfWork.
type AccountRepository interface {
	// Create stores a new account. Returns domain.ErrAccountExists when the
	// email is already registered.
	Create(ctx context.Context, account *domain.Account) error
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// Delete removes an account that has no ledger entries. Returns
	// domain.ErrAccountNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error
}
