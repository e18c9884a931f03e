package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

const transactionSelect = `
SELECT t.id, t.account_id, t.type, t.course_id, c.code, t.amount, t.created_at, t.expired_at
FROM transactions t
LEFT JOIN courses c ON c.id = t.course_id`

const latestPaymentQuery = transactionSelect + `
WHERE t.account_id = $1 AND t.course_id = $2 AND t.type = 'payment'
ORDER BY t.expired_at DESC NULLS LAST, t.created_at DESC
LIMIT 1`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t        domain.Transaction
		courseID sql.NullString
		code     sql.NullString
		expires  sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Type, &courseID, &code, &t.Amount, &t.CreatedAt, &expires); err != nil {
		return nil, err
	}
	t.CourseID = courseID.String
	t.CourseCode = code.String
	t.CreatedAt = t.CreatedAt.UTC()
	if expires.Valid {
		e := expires.Time.UTC()
		t.ExpiresAt = &e
	}
	return &t, nil
}

func latestPayment(ctx context.Context, q querier, accountID, courseID string) (*domain.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, latestPaymentQuery, accountID, courseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest payment: %w", err)
	}
	return t, nil
}

func (s *Store) LatestPayment(ctx context.Context, accountID, courseID string) (*domain.Transaction, error) {
	return latestPayment(ctx, s.db, accountID, courseID)
}

// List builds the WHERE clause from the set predicates of f.
func (s *Store) List(ctx context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	where := []string{"t.account_id = $1"}
	args := []any{f.AccountID}

	if f.Type != nil {
		args = append(args, string(*f.Type))
		where = append(where, fmt.Sprintf("t.type = $%d", len(args)))
	}
	if f.CourseCode != "" {
		args = append(args, f.CourseCode)
		where = append(where, fmt.Sprintf("c.code = $%d", len(args)))
	}
	if f.SkipExpired {
		args = append(args, f.Now)
		where = append(where, fmt.Sprintf("(t.expired_at IS NULL OR t.expired_at > $%d)", len(args)))
	}

	q := transactionSelect + "\nWHERE " + strings.Join(where, " AND ") + "\nORDER BY t.created_at, t.id"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx, transactionSelect+"\nWHERE t.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ExpiringRentals(ctx context.Context, from, to time.Time) ([]domain.ExpiringRental, error) {
	const q = `
SELECT t.account_id, a.email, c.code, c.title, t.expired_at
FROM transactions t
JOIN accounts a ON a.id = t.account_id
JOIN courses c ON c.id = t.course_id
WHERE t.type = 'payment' AND t.expired_at > $1 AND t.expired_at <= $2
ORDER BY t.expired_at`

	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("expiring rentals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExpiringRental, 0)
	for rows.Next() {
		var r domain.ExpiringRental
		if err := rows.Scan(&r.AccountID, &r.AccountEmail, &r.CourseCode, &r.CourseTitle, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan rental: %w", err)
		}
		r.ExpiresAt = r.ExpiresAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CourseReport(ctx context.Context, from, to time.Time) ([]domain.CourseReportLine, error) {
	const q = `
SELECT c.code, c.title, c.type, COUNT(t.id), COALESCE(SUM(t.amount), 0)
FROM transactions t
JOIN courses c ON c.id = t.course_id
WHERE t.type = 'payment' AND c.type IN ('rent', 'buy') AND t.created_at BETWEEN $1 AND $2
GROUP BY c.code, c.title, c.type
ORDER BY c.code`

	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("course report: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CourseReportLine, 0)
	for rows.Next() {
		var l domain.CourseReportLine
		if err := rows.Scan(&l.CourseCode, &l.CourseTitle, &l.CourseType, &l.Count, &l.Total); err != nil {
			return nil, fmt.Errorf("scan report line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
