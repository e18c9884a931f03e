package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/studyon/billing/internal/core/domain"
)

type accountRepo struct{ s *Store }

func (r accountRepo) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, exists := r.s.emails[email]; exists {
		return domain.ErrAccountExists
	}
	r.s.accounts[account.ID] = cloneAccount(account)
	r.s.emails[email] = account.ID
	return nil
}

func (r accountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(r.s.accounts[id]), nil
}

func (r accountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

func (r accountRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for _, e := range r.s.entries {
		if e.AccountID == id {
			return domain.ErrAccountNotFound
		}
	}
	delete(r.s.emails, strings.ToLower(acc.Email))
	delete(r.s.accounts, id)
	return nil
}

type courseRepo struct{ s *Store }

func (r courseRepo) List(context.Context) ([]*domain.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r courseRepo) FindByCode(_ context.Context, code string) (*domain.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.codes[code]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	c := *r.s.courses[id]
	return &c, nil
}

func (r courseRepo) Create(_ context.Context, course *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.codes[course.Code]; exists {
		return domain.ErrCourseExists
	}
	c := *course
	r.s.courses[c.ID] = &c
	r.s.codes[c.Code] = c.ID
	return nil
}

func (r courseRepo) Update(_ context.Context, course *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.courses[course.ID]
	if !ok {
		return domain.ErrCourseNotFound
	}
	if owner, exists := r.s.codes[course.Code]; exists && owner != course.ID {
		return domain.ErrCourseExists
	}
	delete(r.s.codes, current.Code)
	c := *course
	r.s.courses[c.ID] = &c
	r.s.codes[c.Code] = c.ID
	return nil
}
