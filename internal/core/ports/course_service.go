package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
)

// CourseInput carries the editable fields of a course.
type CourseInput struct {
	Code  string
	Title string
	Type  string
	Cost  decimal.Decimal
}

// PayInput carries everything needed to pay for a course.
type PayInput struct {
	AccountID      string
	Code           string
	IdempotencyKey string
}

// PayResult is returned by CourseService.Pay.
type PayResult struct {
	Transaction *domain.Transaction
	CourseType  domain.CourseType
	ExpiresAt   *time.Time
	// Replayed is true when the Idempotency-Key matched an earlier payment.
	Replayed bool
}

// CourseService defines catalog and purchase use cases.
type CourseService interface {
	List(ctx context.Context) ([]*domain.Course, error)
	Get(ctx context.Context, code string) (*domain.Course, error)
	Create(ctx context.Context, input CourseInput) (*domain.Course, error)
	Update(ctx context.Context, code string, input CourseInput) (*domain.Course, error)
	Pay(ctx context.Context, input PayInput) (*PayResult, error)
}
