package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studyon/billing/internal/core/domain"
	"github.com/studyon/billing/internal/core/ports"
)

// ExpiryWarningWindow is how far ahead NotifyExpiringRentals looks.
const ExpiryWarningWindow = 24 * time.Hour

// ReportService backs the scheduled jobs: rental expiry reminders and the
// monthly payment report.
type ReportService struct {
	ledger     ports.LedgerRepository
	notifier   ports.Notifier
	templates  ports.TemplateRenderer
	reportMail string
	log        zerolog.Logger
}

func NewReportService(
	ledger ports.LedgerRepository,
	notifier ports.Notifier,
	templates ports.TemplateRenderer,
	reportMail string,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		ledger:     ledger,
		notifier:   notifier,
		templates:  templates,
		reportMail: reportMail,
		log:        log,
	}
}

// NotifyExpiringRentals sends one reminder per account listing every rental
// that expires within the next 24 hours. It returns the number of messages queued.
func (s *ReportService) NotifyExpiringRentals(ctx context.Context, now time.Time) (int, error) {
	rentals, err := s.ledger.ExpiringRentals(ctx, now, now.Add(ExpiryWarningWindow))
	if err != nil {
		return 0, fmt.Errorf("expiring rentals: %w", err)
	}

	byAccount := make(map[string][]domain.ExpiringRental)
	var order []string
	for _, r := range rentals {
		if _, seen := byAccount[r.AccountEmail]; !seen {
			order = append(order, r.AccountEmail)
		}
		byAccount[r.AccountEmail] = append(byAccount[r.AccountEmail], r)
	}

	sent := 0
	for _, email := range order {
		courses := make([]map[string]any, 0, len(byAccount[email]))
		for _, r := range byAccount[email] {
			courses = append(courses, map[string]any{
				"code":       r.CourseCode,
				"title":      r.CourseTitle,
				"expires_at": r.ExpiresAt,
			})
		}

		subject, body, err := s.templates.Render(TemplateExpireSoon, map[string]any{
			"email":   email,
			"courses": courses,
		})
		if err != nil {
			return sent, fmt.Errorf("expiring rentals: render: %w", err)
		}
		s.notifier.Notify(ports.Message{To: email, Subject: subject, Body: body})
		sent++
	}

	s.log.Info().Int("rentals", len(rentals)).Int("notifications", sent).Msg("expiring rentals notified")
	return sent, nil
}

// SendPaymentReport mails the per-course payment summary for the month
// ending at now to the configured report address.
func (s *ReportService) SendPaymentReport(ctx context.Context, now time.Time) ([]domain.CourseReportLine, error) {
	from := now.AddDate(0, -1, 0)
	lines, err := s.ledger.CourseReport(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("payment report: %w", err)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].CourseCode < lines[j].CourseCode })

	total := decimal.Zero
	rows := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		total = total.Add(l.Total)
		rows = append(rows, map[string]any{
			"code":  l.CourseCode,
			"title": l.CourseTitle,
			"type":  string(l.CourseType),
			"count": l.Count,
			"total": l.Total.StringFixed(2),
		})
	}

	subject, body, err := s.templates.Render(TemplatePaymentReport, map[string]any{
		"from":  from,
		"to":    now,
		"lines": rows,
		"total": total.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("payment report: render: %w", err)
	}
	s.notifier.Notify(ports.Message{To: s.reportMail, Subject: subject, Body: body})

	s.log.Info().Int("courses", len(lines)).Str("total", total.StringFixed(2)).Msg("payment report queued")
	return lines, nil
}
