package handler

import (
	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Username: a.Email,
		Roles:    a.Roles,
		Balance:  a.Balance,
	}
}

func toCourseInput(req courseRequest) ports.CourseInput {
	return ports.CourseInput{
		Code:  req.Code,
		Title: req.Title,
		Type:  req.Type,
		Cost:  req.Price,
	}
}

func toCourseResponse(c *domain.Course) courseResponse {
	return courseResponse{
		Code:  c.Code,
		Type:  string(c.Type),
		Title: c.Title,
		Price: c.Cost,
	}
}

func toTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:         t.ID,
		CreatedAt:  t.CreatedAt,
		Type:       string(t.Type),
		CourseCode: t.CourseCode,
		Amount:     t.Amount,
		ExpiresAt:  t.ExpiresAt,
	}
}
