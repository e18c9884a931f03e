package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CourseType is the pricing model of a course.
type CourseType string

const (
	CourseFree CourseType = "free"
	CourseRent CourseType = "rent"
	CourseBuy  CourseType = "buy"
)

// MaxCourseCodeLength is the upper bound for Course.Code.
const MaxCourseCodeLength = 255

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrCourseExists      = errors.New("course with this code already exists")
	ErrInvalidCourseType = errors.New("course type must be one of: free, rent, buy")
	ErrInvalidCourseCode = errors.New("course code must be 1-255 alphanumeric characters")
	ErrInvalidCost       = errors.New("invalid course cost")
)

// ParseCourseType converts the wire representation into a CourseType.
func ParseCourseType(s string) (CourseType, error) {
	switch t := CourseType(strings.ToLower(strings.TrimSpace(s))); t {
	case CourseFree, CourseRent, CourseBuy:
		return t, nil
	default:
		return "", ErrInvalidCourseType
	}
}

// Payable reports whether courses of this type go through the payment engine.
func (t CourseType) Payable() bool {
	return t == CourseRent || t == CourseBuy
}

// Course is a purchasable unit of content.
type Course struct {
	ID    string          `json:"id"`
	Code  string          `json:"code"`
	Title string          `json:"title"`
	Type  CourseType      `json:"type"`
	Cost  decimal.Decimal `json:"cost"`
}

// Validate enforces the catalog invariants: free courses cost exactly zero,
// rent and buy courses cost strictly more than zero.
func (c *Course) Validate() error {
	if !validCourseCode(c.Code) {
		return ErrInvalidCourseCode
	}
	if _, err := ParseCourseType(string(c.Type)); err != nil {
		return err
	}
	if c.Cost.IsNegative() {
		return fmt.Errorf("%w: cost cannot be negative", ErrInvalidCost)
	}
	if !HasMoneyScale(c.Cost) {
		return fmt.Errorf("%w: cost cannot have more than %d decimal places", ErrInvalidCost, MoneyScale)
	}
	if c.Type == CourseFree && !c.Cost.IsZero() {
		return fmt.Errorf("%w: free course must cost 0", ErrInvalidCost)
	}
	if c.Type.Payable() && !c.Cost.IsPositive() {
		return fmt.Errorf("%w: %s course must have a positive cost", ErrInvalidCost, c.Type)
	}
	return nil
}

func validCourseCode(code string) bool {
	if len(code) == 0 || len(code) > MaxCourseCodeLength {
		return false
	}
	for _, r := range code {
		isDigit := r >= '0' && r <= '9'
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isDigit && !isLetter {
			return false
		}
	}
	return true
}
