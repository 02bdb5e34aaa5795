package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// AlertKind identifies the notification a budget check produced.
type AlertKind string

const (
	AlertBudgetWarning   AlertKind = "budget_warning"
	AlertThresholdBreach AlertKind = "threshold_breach"
)

var (
	ErrInvalidEmail  = errors.New("invalid email")
	ErrEmptyName     = errors.New("empty name")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrInvalidBudget = errors.New("budget must be positive")
	ErrNameTooLong   = errors.New("name too long (max 100 characters)")
)

type (
	User struct {
		ID            int64
		Email         string
		Name          string
		PasswordHash  string
		MonthlyBudget *Money // personal ceiling, optional
		CreatedAt     time.Time
	}

	Family struct {
		ID            int64
		Name          string
		OwnerID       int64
		MonthlyBudget *Money
		CreatedAt     time.Time
	}

	// Member is a user as seen from inside a family.
	Member struct {
		UserID   int64
		Email    string
		Name     string
		JoinedAt time.Time
	}

	CategoryThreshold struct {
		FamilyID int64
		Category string
		Limit    Money
	}
)

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return ErrInvalidEmail
	}
	return nil
}

func (u User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if u.MonthlyBudget != nil && u.MonthlyBudget.Cents <= 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (f Family) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if len(f.Name) > 100 {
		return ErrNameTooLong
	}
	if f.MonthlyBudget != nil && f.MonthlyBudget.Cents <= 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (t CategoryThreshold) Validate() error {
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Limit.Cents <= 0 {
		return ErrInvalidBudget
	}
	return nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(p string) error {
	if len(p) < 8 {
		return ErrWeakPassword
	}
	return nil
}
