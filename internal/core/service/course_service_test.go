package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu   sync.Mutex
	sent []ports.Message
}

func (n *stubNotifier) Notify(msg ports.Message) {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
}

type stubRenderer struct {
	calls []string
	vars  []map[string]any
	err   error
}

func (r *stubRenderer) Render(name string, vars map[string]any) (string, string, error) {
	r.calls = append(r.calls, name)
	r.vars = append(r.vars, vars)
	if r.err != nil {
		return "", "", r.err
	}
	return "subject:" + name, "body", nil
}

type stubIdempotency struct {
	keys      map[string]string
	lookupErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]string)}
}

func (s *stubIdempotency) Lookup(_ context.Context, accountID, key string) (string, bool, error) {
	if s.lookupErr != nil {
		return "", false, s.lookupErr
	}
	id, ok := s.keys[accountID+":"+key]
	return id, ok, nil
}

func (s *stubIdempotency) Remember(_ context.Context, accountID, key, txID string) error {
	if _, ok := s.keys[accountID+":"+key]; !ok {
		s.keys[accountID+":"+key] = txID
	}
	return nil
}

type courseFixture struct {
	*engineFixture
	svc      *CourseService
	notifier *stubNotifier
	renderer *stubRenderer
	idem     *stubIdempotency
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	f := newEngineFixture(t)
	cf := &courseFixture{
		engineFixture: f,
		notifier:      &stubNotifier{},
		renderer:      &stubRenderer{},
		idem:          newStubIdempotency(),
	}
	cf.svc = NewCourseService(CourseDeps{
		Courses:     f.store.Courses(),
		Accounts:    f.store.Accounts(),
		Ledger:      f.store,
		Engine:      f.engine,
		Idempotency: cf.idem,
		Notifier:    cf.notifier,
		Templates:   cf.renderer,
	}, zerolog.Nop())
	return cf
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCourseService_CreateAndUpdate(t *testing.T) {
	f := newCourseFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, ports.CourseInput{Code: "go101", Title: "Go", Type: "rent", Cost: money("19.90")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Type != domain.CourseRent {
		t.Fatalf("unexpected course: %+v", created)
	}

	if _, err := f.svc.Create(ctx, ports.CourseInput{Code: "go101", Title: "Dup", Type: "buy", Cost: money("1")}); !errors.Is(err, domain.ErrCourseExists) {
		t.Fatalf("expected ErrCourseExists, got %v", err)
	}
	if _, err := f.svc.Create(ctx, ports.CourseInput{Code: "free1", Type: "free", Cost: money("5")}); !errors.Is(err, domain.ErrInvalidCost) {
		t.Fatalf("expected ErrInvalidCost, got %v", err)
	}
	if _, err := f.svc.Create(ctx, ports.CourseInput{Code: "x1", Type: "lease", Cost: money("5")}); !errors.Is(err, domain.ErrInvalidCourseType) {
		t.Fatalf("expected ErrInvalidCourseType, got %v", err)
	}

	updated, err := f.svc.Update(ctx, "go101", ports.CourseInput{Code: "go102", Title: "Go 2", Type: "buy", Cost: money("49")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("update must keep the id")
	}
	if _, err := f.svc.Get(ctx, "go101"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("old code should be gone, got %v", err)
	}
	if _, err := f.svc.Update(ctx, "missing", ports.CourseInput{Type: "free"}); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}

	list, _ := f.svc.List(ctx)
	if len(list) != 1 || list[0].Code != "go102" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestCourseService_Pay_SendsReceipt(t *testing.T) {
	f := newCourseFixture(t)
	f.account(t, "a1", "100")
	f.course(t, "rent1", domain.CourseRent, "25")

	res, err := f.svc.Pay(context.Background(), ports.PayInput{AccountID: "a1", Code: "rent1"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.CourseType != domain.CourseRent || res.ExpiresAt == nil || res.Replayed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].To != "a1@example.com" {
		t.Fatalf("expected one receipt, got %+v", f.notifier.sent)
	}
	if f.renderer.calls[0] != TemplatePaymentReceipt {
		t.Fatalf("unexpected template %s", f.renderer.calls[0])
	}
	if f.renderer.vars[0]["balance"] != "75.00" {
		t.Fatalf("receipt must show the balance after payment, got %v", f.renderer.vars[0]["balance"])
	}
}

func TestCourseService_Pay_UnknownCourse(t *testing.T) {
	f := newCourseFixture(t)
	f.account(t, "a1", "100")

	if _, err := f.svc.Pay(context.Background(), ports.PayInput{AccountID: "a1", Code: "nope"}); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCourseService_Pay_RejectionSendsNothing(t *testing.T) {
	f := newCourseFixture(t)
	f.account(t, "a1", "10")
	f.course(t, "buy1", domain.CourseBuy, "25")

	_, err := f.svc.Pay(context.Background(), ports.PayInput{AccountID: "a1", Code: "buy1"})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("rejections must not notify")
	}
}

func TestCourseService_Pay_IdempotentReplay(t *testing.T) {
	f := newCourseFixture(t)
	f.account(t, "a1", "100")
	f.course(t, "buy1", domain.CourseBuy, "30")
	ctx := context.Background()
	in := ports.PayInput{AccountID: "a1", Code: "buy1", IdempotencyKey: "k-1"}

	first, err := f.svc.Pay(ctx, in)
	if err != nil {
		t.Fatalf("first pay: %v", err)
	}
	second, err := f.svc.Pay(ctx, in)
	if err != nil {
		t.Fatalf("replay should succeed, got %v", err)
	}
	if !second.Replayed || second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Transaction.ID, second)
	}
	if !f.balance(t, "a1").Equal(decimal.NewFromInt(70)) {
		t.Fatalf("replay must not charge again, balance %s", f.balance(t, "a1"))
	}

	// A fresh key goes through the rules again.
	in.IdempotencyKey = "k-2"
	if _, err := f.svc.Pay(ctx, in); !errors.Is(err, domain.ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}
}

func TestCourseService_Pay_IdempotencyStoreDown(t *testing.T) {
	f := newCourseFixture(t)
	f.idem.lookupErr = errors.New("redis unavailable")
	f.account(t, "a1", "100")
	f.course(t, "buy1", domain.CourseBuy, "30")

	if _, err := f.svc.Pay(context.Background(), ports.PayInput{AccountID: "a1", Code: "buy1", IdempotencyKey: "k"}); err != nil {
		t.Fatalf("payment must proceed without the idempotency store, got %v", err)
	}
}
