package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/studyon/billing/internal/core/domain"
)

const accountColumns = `id, email, password_hash, roles, balance, created_at`

type AccountRepository struct {
	db querier
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	const q = `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, pq.Array(a.Roles), a.Balance, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, q, strings.ToLower(email)))
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, q, id))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM accounts WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM transactions WHERE account_id = $1)`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, pq.Array(&a.Roles), &a.Balance, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
