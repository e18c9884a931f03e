package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/studyon/billing/internal/core/domain"
)

const (
	collectionAccounts     = "accounts"
	collectionCourses      = "courses"
	collectionTransactions = "transactions"
)

type accountDoc struct {
	ID           string               `bson:"_id"`
	Email        string               `bson:"email"`
	PasswordHash string               `bson:"password_hash"`
	Roles        []string             `bson:"roles"`
	Balance      primitive.Decimal128 `bson:"balance"`
	CreatedAt    time.Time            `bson:"created_at"`
	// LockVersion is bumped by every unit of work so concurrent writers of
	// the same account conflict and get retried by the driver.
	LockVersion int64 `bson:"lock_version"`
}

type courseDoc struct {
	ID    string               `bson:"_id"`
	Code  string               `bson:"code"`
	Title string               `bson:"title"`
	Type  string               `bson:"type"`
	Cost  primitive.Decimal128 `bson:"cost"`
}

type transactionDoc struct {
	ID        string               `bson:"_id"`
	AccountID string               `bson:"account_id"`
	CourseID  string               `bson:"course_id,omitempty"`
	Type      string               `bson:"type"`
	Amount    primitive.Decimal128 `bson:"amount"`
	CreatedAt time.Time            `bson:"created_at"`
	ExpiresAt *time.Time           `bson:"expires_at,omitempty"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal128: %w", err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal128: %w", err)
	}
	return d, nil
}

func newAccountDoc(a *domain.Account) (*accountDoc, error) {
	balance, err := toDecimal128(a.Balance)
	if err != nil {
		return nil, err
	}
	return &accountDoc{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Roles:        a.Roles,
		Balance:      balance,
		CreatedAt:    a.CreatedAt.UTC(),
	}, nil
}

func (d *accountDoc) toDomain() (*domain.Account, error) {
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Roles:        d.Roles,
		Balance:      balance,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

func newCourseDoc(c *domain.Course) (*courseDoc, error) {
	cost, err := toDecimal128(c.Cost)
	if err != nil {
		return nil, err
	}
	return &courseDoc{ID: c.ID, Code: c.Code, Title: c.Title, Type: string(c.Type), Cost: cost}, nil
}

func (d *courseDoc) toDomain() (*domain.Course, error) {
	cost, err := fromDecimal128(d.Cost)
	if err != nil {
		return nil, err
	}
	return &domain.Course{ID: d.ID, Code: d.Code, Title: d.Title, Type: domain.CourseType(d.Type), Cost: cost}, nil
}

func newTransactionDoc(t *domain.Transaction) (*transactionDoc, error) {
	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return nil, err
	}
	doc := &transactionDoc{
		ID:        t.ID,
		AccountID: t.AccountID,
		CourseID:  t.CourseID,
		Type:      string(t.Type),
		Amount:    amount,
		CreatedAt: t.CreatedAt.UTC(),
	}
	if t.ExpiresAt != nil {
		e := t.ExpiresAt.UTC()
		doc.ExpiresAt = &e
	}
	return doc, nil
}

func (d *transactionDoc) toDomain() (*domain.Transaction, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		ID:        d.ID,
		AccountID: d.AccountID,
		CourseID:  d.CourseID,
		Type:      domain.TransactionType(d.Type),
		Amount:    amount,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ExpiresAt != nil {
		e := d.ExpiresAt.UTC()
		t.ExpiresAt = &e
	}
	return t, nil
}
