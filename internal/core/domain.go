package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

type (
	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID             int64
		UserID         int64
		Date           Date
		Description    string
		Amount         Money
		Category       string
		SubscriptionID int64 // 0 when entered manually
	}

	// Subscription is a recurring expense template owned by a user.
	Subscription struct {
		ID          int64
		UserID      int64
		StartDate   Date
		EndDate     Date
		Every       Frequency
		Description string
		Amount      Money
		Category    string
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidFrequency   = errors.New("invalid repetition type")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("end date must be after start date")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is unset (optional end dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromDecimal rounds a currency amount to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

func validateText(description, category string) error {
	if len(strings.TrimSpace(description)) == 0 {
		return ErrEmptyDescription
	}
	if len(description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return validateText(e.Description, e.Category)
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (s Subscription) Validate() error {
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if !s.EndDate.IsEmpty() {
		if err := s.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if s.EndDate.Before(s.StartDate.Time) {
			return ErrInvalidDateRange
		}
	}

	if !s.Every.IsValid() {
		return ErrInvalidFrequency
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	return validateText(s.Description, s.Category)
}

// ActiveOn reports whether the subscription covers the given day.
func (s Subscription) ActiveOn(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(s.StartDate.Year(), time.Month(s.StartDate.Month()), s.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(start) {
		return false
	}
	if s.EndDate.IsEmpty() {
		return true
	}
	end := time.Date(s.EndDate.Year(), time.Month(s.EndDate.Month()), s.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !day.After(end)
}

var validationErrors = []error{
	ErrInvalidDay, ErrInvalidMonth, ErrInvalidAmount, ErrEmptyDescription,
	ErrEmptyCategory, ErrInvalidFrequency, ErrDescriptionTooLong, ErrInvalidDate,
	ErrInvalidDateRange, ErrInvalidEmail, ErrEmptyName, ErrWeakPassword,
	ErrInvalidBudget, ErrNameTooLong,
}

// IsValidation reports whether err wraps one of the input validation errors.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
