// Package memory is an in-process ledger backend. It serialises writers per
// account with a mutex and stages writes until the unit of work succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	emails   map[string]string
	courses  map[string]*domain.Course
	codes    map[string]string
	entries  []*domain.Transaction

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

var _ ports.LedgerStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		emails:   make(map[string]string),
		courses:  make(map[string]*domain.Course),
		codes:    make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Store) Accounts() ports.AccountRepository { return accountRepo{s} }
func (s *Store) Courses() ports.CourseRepository   { return courseRepo{s} }

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) accountLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// ── Unit of work ─────────────────────────────────────────────────────────────

func (s *Store) WithinAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	acc, ok := s.accounts[accountID]
	var snapshot *domain.Account
	if ok {
		snapshot = cloneAccount(acc)
	}
	s.mu.RUnlock()
	if !ok {
		return domain.ErrAccountNotFound
	}

	tx := &ledgerTx{store: s, account: snapshot, balance: snapshot.Balance}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, tx.staged...)
	s.accounts[accountID].Balance = tx.balance
	return nil
}

type ledgerTx struct {
	store   *Store
	account *domain.Account
	balance decimal.Decimal
	staged  []*domain.Transaction
}

func (t *ledgerTx) Account() *domain.Account { return t.account }

func (t *ledgerTx) LatestPayment(_ context.Context, courseID string) (*domain.Transaction, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	candidates := append(t.store.paymentsLocked(t.account.ID, courseID), t.staged...)
	return latest(candidates, t.account.ID, courseID), nil
}

func (t *ledgerTx) Append(_ context.Context, entry *domain.Transaction) error {
	c := *entry
	t.staged = append(t.staged, &c)
	return nil
}

func (t *ledgerTx) SetBalance(_ context.Context, balance decimal.Decimal) error {
	t.balance = balance
	return nil
}

// ── Ledger queries ───────────────────────────────────────────────────────────

func (s *Store) List(_ context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Transaction, 0)
	for _, e := range s.entries {
		if e.AccountID != f.AccountID {
			continue
		}
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		code := s.courseCodeLocked(e.CourseID)
		if f.CourseCode != "" && code != f.CourseCode {
			continue
		}
		if f.SkipExpired && !e.IsActiveAt(f.Now) {
			continue
		}
		c := *e
		c.CourseCode = code
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			c := *e
			c.CourseCode = s.courseCodeLocked(e.CourseID)
			return &c, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *Store) LatestPayment(_ context.Context, accountID, courseID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latest(s.paymentsLocked(accountID, courseID), accountID, courseID), nil
}

func (s *Store) ExpiringRentals(_ context.Context, from, to time.Time) ([]domain.ExpiringRental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ExpiringRental, 0)
	for _, e := range s.entries {
		if e.Type != domain.TransactionPayment || e.ExpiresAt == nil {
			continue
		}
		if !e.ExpiresAt.After(from) || e.ExpiresAt.After(to) {
			continue
		}
		r := domain.ExpiringRental{AccountID: e.AccountID, ExpiresAt: *e.ExpiresAt}
		if acc, ok := s.accounts[e.AccountID]; ok {
			r.AccountEmail = acc.Email
		}
		if c, ok := s.courses[e.CourseID]; ok {
			r.CourseCode, r.CourseTitle = c.Code, c.Title
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Store) CourseReport(_ context.Context, from, to time.Time) ([]domain.CourseReportLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make(map[string]*domain.CourseReportLine)
	for _, e := range s.entries {
		if e.Type != domain.TransactionPayment || e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		c, ok := s.courses[e.CourseID]
		if !ok || !c.Type.Payable() {
			continue
		}
		l, ok := lines[c.ID]
		if !ok {
			l = &domain.CourseReportLine{CourseCode: c.Code, CourseTitle: c.Title, CourseType: c.Type, Total: decimal.Zero}
			lines[c.ID] = l
		}
		l.Count++
		l.Total = l.Total.Add(e.Amount)
	}

	out := make([]domain.CourseReportLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

func (s *Store) paymentsLocked(accountID, courseID string) []*domain.Transaction {
	var out []*domain.Transaction
	for _, e := range s.entries {
		if e.AccountID == accountID && e.CourseID == courseID && e.Type == domain.TransactionPayment {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) courseCodeLocked(courseID string) string {
	if c, ok := s.courses[courseID]; ok {
		return c.Code
	}
	return ""
}

// latest orders by expires_at descending with nulls last, then created_at descending.
func latest(entries []*domain.Transaction, accountID, courseID string) *domain.Transaction {
	var best *domain.Transaction
	for _, e := range entries {
		if e.AccountID != accountID || e.CourseID != courseID || e.Type != domain.TransactionPayment {
			continue
		}
		if best == nil || after(e, best) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	c := *best
	return &c
}

func after(a, b *domain.Transaction) bool {
	switch {
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return true
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return false
	case a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.After(*b.ExpiresAt)
	default:
		return a.CreatedAt.After(b.CreatedAt)
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}
