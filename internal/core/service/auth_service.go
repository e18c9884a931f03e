package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

// AuthService implements registration, login and token issuing.
type AuthService struct {
	accounts    ports.AccountRepository
	engine      ports.PaymentEngine
	jwtSecret   string
	tokenTTL    time.Duration
	baseBalance decimal.Decimal
	log         zerolog.Logger
}

func NewAuthService(
	accounts ports.AccountRepository,
	engine ports.PaymentEngine,
	jwtSecret string,
	tokenTTL time.Duration,
	baseBalance decimal.Decimal,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:    accounts,
		engine:      engine,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		baseBalance: baseBalance,
		log:         log,
	}
}

// Register creates a ROLE_USER account and credits it with the base balance.
func (s *AuthService) Register(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser},
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	if s.baseBalance.IsPositive() {
		if _, err := s.engine.Deposit(ctx, account.ID, s.baseBalance); err != nil {
			// The email stays free for a retry only if the account goes too.
			if delErr := s.accounts.Delete(context.WithoutCancel(ctx), account.ID); delErr != nil {
				s.log.Warn().Err(delErr).Str("account_id", account.ID).Msg("remove account after failed base deposit")
			}
			return nil, fmt.Errorf("register: base deposit: %w", err)
		}
		account.Balance = s.baseBalance
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("account registered")
	return &ports.AuthResult{Token: token, Account: account}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: token, Account: account}, nil
}

// Current returns the account with its up-to-date balance.
func (s *AuthService) Current(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("current account: %w", err)
	}
	return account, nil
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"roles": account.Roles,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
