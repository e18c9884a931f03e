package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes credits from debits in the ledger.
type TransactionType string

const (
	TransactionDeposit TransactionType = "deposit"
	TransactionPayment TransactionType = "payment"
)

// RentDuration is how long a rental grants access.
const RentDuration = 7 * 24 * time.Hour

// MoneyScale is the number of decimal places every stored amount keeps.
const MoneyScale = 2

var (
	ErrInvalidAmount          = errors.New("amount must be positive with at most 2 decimal places")
	ErrInvalidTransactionType = errors.New("transaction type must be one of: payment, deposit")
	ErrTransactionNotFound    = errors.New("transaction not found")

	// ErrPaymentFailed wraps any storage failure during Deposit or Pay.
	// The unit of work has been rolled back when it is returned.
	ErrPaymentFailed = errors.New("payment failed")
)

// HasMoneyScale reports whether d fits in MoneyScale decimal places without rounding.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// ParseTransactionType converts the wire representation into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionDeposit, TransactionPayment:
		return t, nil
	default:
		return "", ErrInvalidTransactionType
	}
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Type      TransactionType `json:"type"`
	CourseID  string          `json:"course_id,omitempty"`
	// CourseCode is populated by read queries only.
	CourseCode string          `json:"course_code,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

// NewDeposit builds a deposit entry crediting amount to the account.
func NewDeposit(accountID string, amount decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      TransactionDeposit,
		Amount:    amount,
		CreatedAt: now,
	}
}

// NewPayment builds a payment entry for course. Rentals expire RentDuration after now.
func NewPayment(accountID string, course *Course, now time.Time) *Transaction {
	t := &Transaction{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Type:       TransactionPayment,
		CourseID:   course.ID,
		CourseCode: course.Code,
		Amount:     course.Cost,
		CreatedAt:  now,
	}
	if course.Type == CourseRent {
		exp := now.Add(RentDuration)
		t.ExpiresAt = &exp
	}
	return t
}

// SignedAmount is the effect of the entry on the account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionPayment {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsActiveAt reports whether the entry is unexpired at now. Entries without
// an expiry never expire.
func (t *Transaction) IsActiveAt(now time.Time) bool {
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
