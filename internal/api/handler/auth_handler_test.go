package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	currentFn  func(ctx context.Context, accountID string) (*domain.Account, error)
}

func (s *stubAuthService) Register(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.registerFn(ctx, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Current(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.currentFn(ctx, accountID)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "Passw0rd!" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{
				Token: "jwt",
				Account: &domain.Account{
					ID:      "acc-1",
					Email:   email,
					Roles:   []string{domain.RoleUser},
					Balance: decimal.NewFromInt(1000),
				},
			}, nil
		},
	}

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/register", `{"username":"alice@example.com","password":"Passw0rd!"}`)
	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "jwt" || resp.Account.Username != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if !resp.Account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected balance %s", resp.Account.Balance)
	}
}

func TestAuthHandler_Register_WeakPassword(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	for _, pw := range []string{"short", "alllowercase1!", "NoDigits!!", "NoSpecial123", "Bad pass1!"} {
		c, _ := jsonContext(e, http.MethodPost, "/", `{"username":"bob@example.com","password":"`+pw+`"}`)
		if code := httpStatus(t, NewAuthHandler(stub).Register(c)); code != http.StatusUnprocessableEntity {
			t.Fatalf("%q: expected 422, got %d", pw, code)
		}
	}
}

func TestAuthHandler_Register_AccountExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrAccountExists
		},
	}

	c, _ := jsonContext(e, http.MethodPost, "/", `{"username":"bob@example.com","password":"Passw0rd!"}`)
	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAuthHandler_Login_UnknownAccountLooksLikeBadPassword(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrAccountNotFound
		},
	}

	c, _ := jsonContext(e, http.MethodPost, "/", `{"username":"ghost@example.com","password":"x"}`)
	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_BadPayload(t *testing.T) {
	e := newEcho()
	c, _ := jsonContext(e, http.MethodPost, "/", `{"username":`)
	if code := httpStatus(t, NewAuthHandler(&stubAuthService{}).Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Current(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		currentFn: func(_ context.Context, id string) (*domain.Account, error) {
			return &domain.Account{ID: id, Email: "carol@example.com", Roles: []string{domain.RoleUser}, Balance: decimal.RequireFromString("12.50")}, nil
		},
	}

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/users/current", "")
	c.Set("account_id", "acc-7")
	if err := NewAuthHandler(stub).Current(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp currentUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Username != "carol@example.com" || !resp.Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Current_RequiresClaims(t *testing.T) {
	e := newEcho()
	c, _ := jsonContext(e, http.MethodGet, "/", "")
	if code := httpStatus(t, NewAuthHandler(&stubAuthService{}).Current(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
