package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateUser_UniqueViolationIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("anna@example.com", "Anna", "hash", nil).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))

	err := repo.CreateUser(context.Background(), &core.User{Email: "anna@example.com", Name: "Anna", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFamilyBudget_MissingFamily(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE families SET monthly_budget_cents").
		WithArgs(int64(5000), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetFamilyBudget(context.Background(), 7, &core.Money{Cents: 5000})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAlert_AlreadyLogged(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := AlertKey{FamilyID: 3, Kind: core.AlertThresholdBreach, Period: "2025-03", Category: "Food"}

	mock.ExpectExec("INSERT INTO alert_log").
		WithArgs(int64(3), "threshold_breach", "2025-03", "Food").
		WillReturnResult(sqlmock.NewResult(0, 0))

	fresh, err := repo.RecordAlert(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpenses_BadDateRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "date", "description", "amount_cents", "category", "subscription_id"}).
		AddRow(1, 2, "31/03/2025", "Dinner", 6000, "Food", nil)
	mock.ExpectQuery("SELECT (.+) FROM expenses").WillReturnRows(rows)

	_, err := repo.ListExpenses(context.Background(), 2, day(2025, 3, 1), day(2025, 3, 31))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
