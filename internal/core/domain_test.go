package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -10}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		UserID:      1,
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Category:    "Groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Description: "a", Amount: Money{Cents: 1}, Category: "c"}, // zero date
		{Date: NewDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: -5}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: " "},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSubscriptionValidateAndActiveOn(t *testing.T) {
	s := Subscription{
		StartDate:   NewDate(2025, 1, 10),
		EndDate:     NewDate(2025, 6, 10),
		Every:       Monthly,
		Description: "Streaming",
		Amount:      Money{Cents: 1299},
		Category:    "Entertainment",
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := s
	bad.Every = "fortnightly"
	if err := bad.Validate(); err != ErrInvalidFrequency {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	bad = s
	bad.EndDate = NewDate(2024, 12, 31)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}

	if s.ActiveOn(time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)) {
		t.Error("active before start")
	}
	if !s.ActiveOn(time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)) {
		t.Error("inactive on end date")
	}
	if s.ActiveOn(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Error("active after end")
	}
}

func TestFamilyAndThresholdValidate(t *testing.T) {
	if err := (Family{Name: "Rossi"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Family{Name: " "}).Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Family{Name: "Rossi", MonthlyBudget: &Money{}}).Validate(); err != ErrInvalidBudget {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	if err := (CategoryThreshold{Category: "Food", Limit: Money{Cents: 1}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (CategoryThreshold{Category: "", Limit: Money{Cents: 1}}).Validate(); err != ErrEmptyCategory {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Email: "anna@example.com", Name: "Anna"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Email: "Anna <anna@example.com>", Name: "Anna"}).Validate(); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := ValidatePassword("short"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestNewMonthOverview(t *testing.T) {
	ov := NewMonthOverview(2025, 3, []Expense{
		{Amount: Money{Cents: 100}, Category: "Food"},
		{Amount: Money{Cents: 250}, Category: "Home"},
		{Amount: Money{Cents: 50}, Category: "Food"},
	})
	if ov.Total.Cents != 400 {
		t.Fatalf("total = %d", ov.Total.Cents)
	}
	if len(ov.ByCategory) != 2 || ov.ByCategory[0].Name != "Food" || ov.ByCategory[0].Amount.Cents != 150 {
		t.Fatalf("unexpected categories: %+v", ov.ByCategory)
	}
}

func TestIsValidation(t *testing.T) {
	s := Subscription{
		StartDate:   NewDate(2025, 3, 10),
		EndDate:     NewDate(2025, 3, 1),
		Every:       Monthly,
		Description: "gym",
		Amount:      Money{Cents: 3000},
		Category:    "Sport",
	}
	if err := s.Validate(); !IsValidation(err) {
		t.Errorf("end before start: IsValidation(%v) = false", err)
	}
	s.EndDate = Date{}
	s.StartDate = Date{}
	if err := s.Validate(); !IsValidation(err) {
		t.Errorf("zero start: IsValidation(%v) = false", err)
	}
	if IsValidation(errors.New("disk full")) {
		t.Error("unrelated error reported as validation")
	}
}
