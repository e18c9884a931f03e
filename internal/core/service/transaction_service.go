package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

type TransactionService struct {
	ledger ports.LedgerRepository
	now    func() time.Time
}

func NewTransactionService(ledger ports.LedgerRepository) *TransactionService {
	return &TransactionService{ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
}

// History returns the account's ledger entries matching in, oldest first.
func (s *TransactionService) History(ctx context.Context, in ports.HistoryInput) ([]*domain.Transaction, error) {
	filter := ports.TransactionFilter{
		AccountID:   in.AccountID,
		CourseCode:  in.CourseCode,
		SkipExpired: in.SkipExpired,
		Now:         s.now(),
	}
	if in.Type != "" {
		t, err := domain.ParseTransactionType(in.Type)
		if err != nil {
			return nil, err
		}
		filter.Type = &t
	}

	entries, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}
	return entries, nil
}
