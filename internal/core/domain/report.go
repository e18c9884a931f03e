package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpiringRental is a rent payment about to lose access, joined with the
// data needed to notify its owner.
type ExpiringRental struct {
	AccountID    string
	AccountEmail string
	CourseCode   string
	CourseTitle  string
	ExpiresAt    time.Time
}

// CourseReportLine aggregates payments for one course over a period.
type CourseReportLine struct {
	CourseCode  string
	CourseTitle string
	CourseType  CourseType
	Count       int64
	Total       decimal.Decimal
}
