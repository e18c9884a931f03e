package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
	"github.com/studyon/billing/internal/pkg/metrics"
)

type CourseService struct {
	courses     ports.CourseRepository
	accounts    ports.AccountRepository
	ledger      ports.LedgerRepository
	engine      ports.PaymentEngine
	idempotency ports.IdempotencyStore
	notifier    ports.Notifier
	templates   ports.TemplateRenderer
	log         zerolog.Logger
}

// CourseDeps groups the collaborators of CourseService. Idempotency,
// Notifier and Templates are optional.
type CourseDeps struct {
	Courses     ports.CourseRepository
	Accounts    ports.AccountRepository
	Ledger      ports.LedgerRepository
	Engine      ports.PaymentEngine
	Idempotency ports.IdempotencyStore
	Notifier    ports.Notifier
	Templates   ports.TemplateRenderer
}

func NewCourseService(deps CourseDeps, log zerolog.Logger) *CourseService {
	return &CourseService{
		courses:     deps.Courses,
		accounts:    deps.Accounts,
		ledger:      deps.Ledger,
		engine:      deps.Engine,
		idempotency: deps.Idempotency,
		notifier:    deps.Notifier,
		templates:   deps.Templates,
		log:         log,
	}
}

func (s *CourseService) List(ctx context.Context) ([]*domain.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, code string) (*domain.Course, error) {
	course, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, in ports.CourseInput) (*domain.Course, error) {
	course, err := buildCourse(uuid.NewString(), in)
	if err != nil {
		return nil, err
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.log.Info().Str("code", course.Code).Str("type", string(course.Type)).Msg("course created")
	return course, nil
}

// Update replaces the course identified by code with in. The code itself may change.
func (s *CourseService) Update(ctx context.Context, code string, in ports.CourseInput) (*domain.Course, error) {
	current, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	if in.Code == "" {
		in.Code = current.Code
	}
	course, err := buildCourse(current.ID, in)
	if err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	s.log.Info().Str("code", code).Str("new_code", course.Code).Msg("course updated")
	return course, nil
}

func buildCourse(id string, in ports.CourseInput) (*domain.Course, error) {
	ct, err := domain.ParseCourseType(in.Type)
	if err != nil {
		return nil, err
	}
	course := &domain.Course{ID: id, Code: in.Code, Title: in.Title, Type: ct, Cost: in.Cost}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return course, nil
}

// Pay charges the account for the course identified by in.Code. When an
// idempotency key is supplied and was already answered, the original
// transaction is returned without touching the ledger.
func (s *CourseService) Pay(ctx context.Context, in ports.PayInput) (*ports.PayResult, error) {
	course, err := s.courses.FindByCode(ctx, in.Code)
	if err != nil {
		return nil, fmt.Errorf("pay course: %w", err)
	}

	if res := s.replay(ctx, in, course); res != nil {
		return res, nil
	}

	decision, err := s.engine.Check(ctx, in.AccountID, course)
	if err != nil {
		return nil, fmt.Errorf("pay course: %w", err)
	}
	if err := decision.Err(); err != nil {
		metrics.PaymentRejectionsTotal.WithLabelValues(string(decision)).Inc()
		return nil, err
	}

	entry, err := s.engine.Pay(ctx, in.AccountID, course)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, in.AccountID, in.IdempotencyKey, entry.ID); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.sendReceipt(ctx, in.AccountID, course, entry)

	return &ports.PayResult{Transaction: entry, CourseType: course.Type, ExpiresAt: entry.ExpiresAt}, nil
}

func (s *CourseService) replay(ctx context.Context, in ports.PayInput, course *domain.Course) *ports.PayResult {
	if in.IdempotencyKey == "" || s.idempotency == nil {
		return nil
	}
	txID, found, err := s.idempotency.Lookup(ctx, in.AccountID, in.IdempotencyKey)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency lookup failed, paying anyway")
		return nil
	}
	if !found {
		return nil
	}
	entry, err := s.ledger.FindByID(ctx, txID)
	if err != nil || entry.CourseID != course.ID {
		if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
			s.log.Warn().Err(err).Str("transaction_id", txID).Msg("idempotent replay lookup failed")
		}
		return nil
	}

	metrics.IdempotentReplaysTotal.Inc()
	s.log.Info().Str("idempotency_key", in.IdempotencyKey).Str("transaction_id", entry.ID).Msg("idempotent replay")
	return &ports.PayResult{Transaction: entry, CourseType: course.Type, ExpiresAt: entry.ExpiresAt, Replayed: true}
}

func (s *CourseService) sendReceipt(ctx context.Context, accountID string, course *domain.Course, entry *domain.Transaction) {
	if s.notifier == nil || s.templates == nil || s.accounts == nil {
		return
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("receipt skipped: account lookup failed")
		return
	}

	vars := map[string]any{
		"email":        account.Email,
		"course_code":  course.Code,
		"course_title": course.Title,
		"course_type":  string(course.Type),
		"amount":       entry.Amount.StringFixed(2),
		"balance":      account.Balance.StringFixed(2),
		"created_at":   entry.CreatedAt,
	}
	if entry.ExpiresAt != nil {
		vars["expires_at"] = *entry.ExpiresAt
	}

	subject, body, err := s.templates.Render(TemplatePaymentReceipt, vars)
	if err != nil {
		s.log.Warn().Err(err).Msg("receipt skipped: render failed")
		return
	}
	s.notifier.Notify(ports.Message{To: account.Email, Subject: subject, Body: body})
}

// Template names understood by the notification renderer.
const (
	TemplatePaymentReceipt = "payment_receipt"
	TemplateExpireSoon     = "expire_soon"
	TemplatePaymentReport  = "payment_report"
)
