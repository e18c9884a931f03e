package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

func seed(t *testing.T) (*Store, *domain.Account, *domain.Course) {
	t.Helper()
	s := NewStore()
	acc := &domain.Account{ID: "acc-1", Email: "user@example.com", Roles: []string{domain.RoleUser}, Balance: decimal.Zero}
	course := &domain.Course{ID: "c-1", Code: "go101", Title: "Go", Type: domain.CourseRent, Cost: decimal.NewFromInt(10)}
	require.NoError(t, s.Accounts().Create(context.Background(), acc))
	require.NoError(t, s.Courses().Create(context.Background(), course))
	return s, acc, course
}

func TestWithinAccountTx_CommitsOnSuccess(t *testing.T) {
	s, acc, _ := seed(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.WithinAccountTx(ctx, acc.ID, func(ctx context.Context, tx ports.LedgerTx) error {
		if err := tx.Append(ctx, domain.NewDeposit(acc.ID, decimal.NewFromInt(50), now)); err != nil {
			return err
		}
		return tx.SetBalance(ctx, tx.Account().Balance.Add(decimal.NewFromInt(50)))
	})
	require.NoError(t, err)

	got, err := s.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)))

	entries, err := s.List(ctx, ports.TransactionFilter{AccountID: acc.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWithinAccountTx_DiscardsOnError(t *testing.T) {
	s, acc, _ := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinAccountTx(ctx, acc.ID, func(ctx context.Context, tx ports.LedgerTx) error {
		_ = tx.Append(ctx, domain.NewDeposit(acc.ID, decimal.NewFromInt(50), time.Now()))
		_ = tx.SetBalance(ctx, decimal.NewFromInt(50))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Accounts().FindByID(ctx, acc.ID)
	assert.True(t, got.Balance.IsZero())
	entries, _ := s.List(ctx, ports.TransactionFilter{AccountID: acc.ID})
	assert.Empty(t, entries)
}

func TestWithinAccountTx_UnknownAccount(t *testing.T) {
	s := NewStore()
	err := s.WithinAccountTx(context.Background(), "missing", func(context.Context, ports.LedgerTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLatestPayment_PrefersLatestExpiry(t *testing.T) {
	s, acc, course := seed(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{base, base.Add(48 * time.Hour), base.Add(24 * time.Hour)} {
		at := at
		require.NoError(t, s.WithinAccountTx(ctx, acc.ID, func(ctx context.Context, tx ports.LedgerTx) error {
			return tx.Append(ctx, domain.NewPayment(acc.ID, course, at))
		}))
	}

	got, err := s.LatestPayment(ctx, acc.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ExpiresAt.Equal(base.Add(48*time.Hour).Add(domain.RentDuration)))

	none, err := s.LatestPayment(ctx, acc.ID, "other")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestList_Filters(t *testing.T) {
	s, acc, course := seed(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithinAccountTx(ctx, acc.ID, func(ctx context.Context, tx ports.LedgerTx) error {
		_ = tx.Append(ctx, domain.NewDeposit(acc.ID, decimal.NewFromInt(100), now.Add(-30*24*time.Hour)))
		_ = tx.Append(ctx, domain.NewPayment(acc.ID, course, now.Add(-20*24*time.Hour)))
		return tx.Append(ctx, domain.NewPayment(acc.ID, course, now.Add(-time.Hour)))
	}))

	payment := domain.TransactionPayment
	all, err := s.List(ctx, ports.TransactionFilter{AccountID: acc.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, domain.TransactionDeposit, all[0].Type)

	payments, _ := s.List(ctx, ports.TransactionFilter{AccountID: acc.ID, Type: &payment, CourseCode: "go101"})
	assert.Len(t, payments, 2)
	assert.Equal(t, "go101", payments[0].CourseCode)

	active, _ := s.List(ctx, ports.TransactionFilter{AccountID: acc.ID, Type: &payment, SkipExpired: true, Now: now})
	assert.Len(t, active, 1)

	other, _ := s.List(ctx, ports.TransactionFilter{AccountID: "someone-else"})
	assert.Empty(t, other)
}

func TestExpiringRentalsAndReport(t *testing.T) {
	s, acc, course := seed(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithinAccountTx(ctx, acc.ID, func(ctx context.Context, tx ports.LedgerTx) error {
		_ = tx.Append(ctx, domain.NewPayment(acc.ID, course, now.Add(-domain.RentDuration).Add(2*time.Hour)))
		return tx.Append(ctx, domain.NewPayment(acc.ID, course, now.Add(-time.Hour)))
	}))

	rentals, err := s.ExpiringRentals(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, "user@example.com", rentals[0].AccountEmail)
	assert.Equal(t, "go101", rentals[0].CourseCode)

	report, err := s.CourseReport(ctx, now.AddDate(0, -1, 0), now)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.EqualValues(t, 2, report[0].Count)
	assert.True(t, report[0].Total.Equal(decimal.NewFromInt(20)))
}

func TestAccountRepo_Delete(t *testing.T) {
	s, acc, _ := seed(t)
	ctx := context.Background()

	require.NoError(t, s.Accounts().Delete(ctx, acc.ID))
	_, err := s.Accounts().FindByEmail(ctx, acc.Email)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, s.Accounts().Delete(ctx, acc.ID), domain.ErrAccountNotFound)

	again := &domain.Account{ID: "acc-2", Email: acc.Email, Roles: []string{domain.RoleUser}, Balance: decimal.Zero}
	require.NoError(t, s.Accounts().Create(ctx, again))
	require.NoError(t, s.WithinAccountTx(ctx, again.ID, func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.Append(ctx, domain.NewDeposit(again.ID, decimal.NewFromInt(5), time.Now().UTC()))
	}))
	assert.ErrorIs(t, s.Accounts().Delete(ctx, again.ID), domain.ErrAccountNotFound)
	_, err = s.Accounts().FindByID(ctx, again.ID)
	assert.NoError(t, err)
}

func TestCourseRepo_Uniqueness(t *testing.T) {
	s, _, course := seed(t)
	ctx := context.Background()

	dup := &domain.Course{ID: "c-2", Code: course.Code, Type: domain.CourseFree}
	assert.ErrorIs(t, s.Courses().Create(ctx, dup), domain.ErrCourseExists)

	other := &domain.Course{ID: "c-3", Code: "py101", Type: domain.CourseFree}
	require.NoError(t, s.Courses().Create(ctx, other))

	other.Code = course.Code
	assert.ErrorIs(t, s.Courses().Update(ctx, other), domain.ErrCourseExists)

	other.Code = "py102"
	require.NoError(t, s.Courses().Update(ctx, other))
	_, err := s.Courses().FindByCode(ctx, "py101")
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}
