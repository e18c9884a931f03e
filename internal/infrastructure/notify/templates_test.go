package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyon/billing/internal/core/ports"
)

var renderAt = time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

func TestRender_PaymentReceipt(t *testing.T) {
	r := NewTemplateRenderer()

	subject, body, err := r.Render("payment_receipt", map[string]any{
		"email":        "user@example.com",
		"course_code":  "go101",
		"course_title": "Go basics",
		"course_type":  "rent",
		"amount":       "99.9",
		"balance":      "0.1",
		"created_at":   renderAt,
		"expires_at":   renderAt.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Payment confirmed: Go basics", subject)
	assert.Contains(t, body, "Amount charged: 99.90")
	assert.Contains(t, body, "Access until: 2026-05-08 10:30 UTC")
	assert.Contains(t, body, "Remaining balance: 0.10")
}

func TestRender_PaymentReceiptBuy(t *testing.T) {
	r := NewTemplateRenderer()

	_, body, err := r.Render("payment_receipt", map[string]any{
		"course_code": "go101",
		"course_type": "buy",
		"amount":      "10",
		"balance":     "5",
		"created_at":  renderAt,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Access: permanent")
	assert.NotContains(t, body, "Access until")
}

func TestRender_ExpireSoon(t *testing.T) {
	r := NewTemplateRenderer()

	subject, body, err := r.Render("expire_soon", map[string]any{
		"email": "user@example.com",
		"courses": []map[string]any{
			{"code": "go101", "title": "Go basics", "expires_at": renderAt},
			{"code": "py101", "title": "", "expires_at": renderAt.Add(time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your course rentals expire soon", subject)
	assert.Contains(t, body, "Go basics (go101), until 2026-05-01 10:30 UTC")
	assert.Contains(t, body, "py101 (py101), until 2026-05-01 11:30 UTC")
}

func TestRender_PaymentReport(t *testing.T) {
	r := NewTemplateRenderer()

	_, body, err := r.Render("payment_report", map[string]any{
		"from": renderAt.AddDate(0, -1, 0),
		"to":   renderAt,
		"lines": []map[string]any{
			{"code": "go101", "title": "Go", "type": "rent", "count": int64(2), "total": "20.00"},
		},
		"total": "20",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "go101 | Go | rent | 2 | 20.00")
	assert.Contains(t, body, "Total: 20.00")

	_, empty, err := r.Render("payment_report", map[string]any{"from": renderAt, "to": renderAt, "total": "0"})
	require.NoError(t, err)
	assert.Contains(t, empty, "No payments in this period.")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := NewTemplateRenderer().Render("missing", nil)
	assert.Error(t, err)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

func TestSESSender_BuildsPlainTextEmail(t *testing.T) {
	api := &fakeSES{}
	s := &SESSender{client: api, from: "billing@example.com"}

	require.NoError(t, s.Send(context.Background(), ports.Message{To: "user@example.com", Subject: "Hi", Body: "Body"}))
	assert.Equal(t, "billing@example.com", *api.in.FromEmailAddress)
	assert.Equal(t, []string{"user@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Hi", *api.in.Content.Simple.Subject.Data)
	assert.Equal(t, "Body", *api.in.Content.Simple.Body.Text.Data)

	api.err = errors.New("throttled")
	assert.Error(t, s.Send(context.Background(), ports.Message{To: "user@example.com"}))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(zerolog.Nop()).Send(context.Background(), ports.Message{To: "x@example.com"}))
}
