package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

const lockAccountQuery = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

// WithinAccountTx runs fn in a database transaction holding the account row
// lock. The transaction is rolled back unless fn and the commit succeed.
func (s *Store) WithinAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	var a domain.Account
	err = sqlTx.QueryRowContext(ctx, lockAccountQuery, accountID).
		Scan(&a.ID, &a.Email, &a.PasswordHash, pq.Array(&a.Roles), &a.Balance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	if err := fn(ctx, &ledgerTx{tx: sqlTx, account: &a}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type ledgerTx struct {
	tx      *sql.Tx
	account *domain.Account
}

func (t *ledgerTx) Account() *domain.Account { return t.account }

func (t *ledgerTx) LatestPayment(ctx context.Context, courseID string) (*domain.Transaction, error) {
	return latestPayment(ctx, t.tx, t.account.ID, courseID)
}

func (t *ledgerTx) Append(ctx context.Context, e *domain.Transaction) error {
	const q = `
INSERT INTO transactions (id, account_id, course_id, type, amount, created_at, expired_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	courseID := sql.NullString{String: e.CourseID, Valid: e.CourseID != ""}
	var expires sql.NullTime
	if e.ExpiresAt != nil {
		expires = sql.NullTime{Time: *e.ExpiresAt, Valid: true}
	}
	if _, err := t.tx.ExecContext(ctx, q, e.ID, e.AccountID, courseID, string(e.Type), e.Amount, e.CreatedAt, expires); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, t.account.ID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
