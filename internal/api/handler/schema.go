package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Auth ---

// credentialsRequest mirrors the login form: username is the account email.
type credentialsRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,strongpassword"`
}

type accountResponse struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Roles    []string        `json:"roles"`
	Balance  decimal.Decimal `json:"balance"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

type currentUserResponse struct {
	Username string          `json:"username"`
	Roles    []string        `json:"roles"`
	Balance  decimal.Decimal `json:"balance"`
}

// --- Courses ---

type courseRequest struct {
	Code  string          `json:"code"  validate:"required,alphanum,max=255"`
	Title string          `json:"title" validate:"required,min=1,max=255"`
	Type  string          `json:"type"  validate:"required,oneof=free rent buy"`
	Price decimal.Decimal `json:"price"`
}

type courseResponse struct {
	Code  string          `json:"code"`
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type payResponse struct {
	Success    bool       `json:"success"`
	CourseType string     `json:"course_type"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// --- Transactions ---

type transactionResponse struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Type       string          `json:"type"`
	CourseCode string          `json:"course_code,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	ExpiresAt  *time.Time      `json:"expired_at,omitempty"`
}
