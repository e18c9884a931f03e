package domain

import "time"

// Decision is the outcome of evaluating a payment request.
type Decision string

const (
	DecisionAllowed             Decision = "allowed"
	DecisionCourseIsFree        Decision = "course_is_free"
	DecisionInsufficientBalance Decision = "insufficient_balance"
	DecisionAlreadyPurchased    Decision = "already_purchased"
	DecisionAlreadyRented       Decision = "already_rented"
)

// RejectionError carries a business-rule rejection. Rejections are data,
// never retried, and leave balance and ledger untouched.
type RejectionError struct {
	Decision Decision
	msg      string
}

func (e *RejectionError) Error() string { return e.msg }

var (
	ErrCourseIsFree = &RejectionError{
		Decision: DecisionCourseIsFree,
		msg:      "course is free and is already available",
	}
	ErrInsufficientBalance = &RejectionError{
		Decision: DecisionInsufficientBalance,
		msg:      "insufficient balance to pay for this course",
	}
	ErrAlreadyPurchased = &RejectionError{
		Decision: DecisionAlreadyPurchased,
		msg:      "course is already purchased",
	}
	ErrAlreadyRented = &RejectionError{
		Decision: DecisionAlreadyRented,
		msg:      "course is already rented and the rental has not expired",
	}
)

// Err returns the rejection error for d, or nil when d is DecisionAllowed.
func (d Decision) Err() error {
	switch d {
	case DecisionCourseIsFree:
		return ErrCourseIsFree
	case DecisionInsufficientBalance:
		return ErrInsufficientBalance
	case DecisionAlreadyPurchased:
		return ErrAlreadyPurchased
	case DecisionAlreadyRented:
		return ErrAlreadyRented
	default:
		return nil
	}
}

// Evaluate decides whether account may pay for course.
//
// prior is the most recent payment by the account for the course: any one
// for buy courses, the one with the latest ExpiresAt for rent courses, nil
// when there is none. Checks run in a fixed order: free, repeat, balance.
// A repeat attempt is reported as such even when the balance is also short.
func Evaluate(account *Account, course *Course, prior *Transaction, now time.Time) Decision {
	if course.Type == CourseFree {
		return DecisionCourseIsFree
	}

	if prior != nil {
		switch course.Type {
		case CourseBuy:
			return DecisionAlreadyPurchased
		case CourseRent:
			if prior.ExpiresAt != nil && now.Before(*prior.ExpiresAt) {
				return DecisionAlreadyRented
			}
		}
	}

	if account.Balance.LessThan(course.Cost) {
		return DecisionInsufficientBalance
	}
	return DecisionAllowed
}
