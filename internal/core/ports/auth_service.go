package ports

import (
	"context"

	"github.com/studyon/billing/internal/core/domain"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token   string
	Account *domain.Account
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Current(ctx context.Context, accountID string) (*domain.Account, error)
}
