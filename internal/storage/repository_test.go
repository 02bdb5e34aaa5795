package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "bilancio.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func createUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u := core.User{Email: email, Name: email, PasswordHash: "x"}
	require.NoError(t, repo.CreateUser(context.Background(), &u))
	return u
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMigrationVersion(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestUsers(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	u := createUser(t, repo, "anna@example.com")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	dup := core.User{Email: "anna@example.com", Name: "Anna", PasswordHash: "y"}
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), ErrConflict)

	got, err := repo.GetUserByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.MonthlyBudget)

	require.NoError(t, repo.SetUserBudget(ctx, u.ID, &core.Money{Cents: 50000}))
	got, err = repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MonthlyBudget)
	assert.Equal(t, int64(50000), got.MonthlyBudget.Cents)

	_, err = repo.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetUserBudget(ctx, 9999, nil), ErrNotFound)
}

func TestFamiliesAndMembers(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	owner := createUser(t, repo, "anna@example.com")
	other := createUser(t, repo, "marco@example.com")

	f := core.Family{Name: "Rossi", OwnerID: owner.ID, MonthlyBudget: &core.Money{Cents: 200000}}
	require.NoError(t, repo.CreateFamily(ctx, &f))
	assert.NotZero(t, f.ID)

	ok, err := repo.IsMember(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok, "owner is enrolled on creation")

	require.NoError(t, repo.AddMember(ctx, f.ID, other.ID))
	assert.ErrorIs(t, repo.AddMember(ctx, f.ID, other.ID), ErrConflict)

	members, err := repo.ListMembers(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "marco@example.com", members[1].Email)

	families, err := repo.ListFamiliesForUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, int64(200000), families[0].MonthlyBudget.Cents)

	require.NoError(t, repo.SetFamilyBudget(ctx, f.ID, nil))
	got, err := repo.GetFamily(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MonthlyBudget)

	require.NoError(t, repo.RemoveMember(ctx, f.ID, other.ID))
	assert.ErrorIs(t, repo.RemoveMember(ctx, f.ID, other.ID), ErrNotFound)

	_, err = repo.GetFamily(ctx, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenses(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "anna@example.com")
	intruder := createUser(t, repo, "eve@example.com")

	for _, e := range []core.Expense{
		{UserID: u.ID, Date: core.Date{Time: day(2025, 2, 28)}, Description: "Rent", Amount: core.Money{Cents: 90000}, Category: "Home"},
		{UserID: u.ID, Date: core.Date{Time: day(2025, 3, 1)}, Description: "Market", Amount: core.Money{Cents: 4550}, Category: "Food"},
		{UserID: u.ID, Date: core.Date{Time: day(2025, 3, 31)}, Description: "Dinner", Amount: core.Money{Cents: 6000}, Category: "Food"},
		{UserID: u.ID, Date: core.Date{Time: day(2025, 3, 15)}, Description: "Bills", Amount: core.Money{Cents: 12000}, Category: "Home"},
	} {
		require.NoError(t, repo.CreateExpense(ctx, &e))
		assert.NotZero(t, e.ID)
	}

	march, err := repo.ListExpenses(ctx, u.ID, day(2025, 3, 1), time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, march, 3)
	assert.Equal(t, "Market", march[0].Description)
	assert.Equal(t, "Dinner", march[2].Description)
	assert.Equal(t, 31, march[2].Date.Day())

	sums, err := repo.CategorySums(ctx, u.ID, day(2025, 3, 1), day(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, core.CategoryAmount{Name: "Home", Amount: core.Money{Cents: 12000}}, sums[0])
	assert.Equal(t, core.CategoryAmount{Name: "Food", Amount: core.Money{Cents: 10550}}, sums[1])

	assert.ErrorIs(t, repo.DeleteExpense(ctx, intruder.ID, march[0].ID), ErrNotFound)
	require.NoError(t, repo.DeleteExpense(ctx, u.ID, march[0].ID))
}

func TestLoadFamilyExpenses(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	anna := createUser(t, repo, "anna@example.com")
	marco := createUser(t, repo, "marco@example.com")
	outsider := createUser(t, repo, "eve@example.com")

	f := core.Family{Name: "Rossi", OwnerID: anna.ID}
	require.NoError(t, repo.CreateFamily(ctx, &f))
	require.NoError(t, repo.AddMember(ctx, f.ID, marco.ID))

	for _, e := range []core.Expense{
		{UserID: anna.ID, Date: core.Date{Time: day(2025, 3, 2)}, Description: "a", Amount: core.Money{Cents: 100}, Category: "Food"},
		{UserID: marco.ID, Date: core.Date{Time: day(2025, 3, 3)}, Description: "b", Amount: core.Money{Cents: 200}, Category: "Food"},
		{UserID: marco.ID, Date: core.Date{Time: day(2025, 3, 4)}, Description: "c", Amount: core.Money{Cents: 300}, Category: "Fun"},
		{UserID: outsider.ID, Date: core.Date{Time: day(2025, 3, 4)}, Description: "d", Amount: core.Money{Cents: 999}, Category: "Fun"},
	} {
		require.NoError(t, repo.CreateExpense(ctx, &e))
	}

	loaded, err := repo.LoadFamilyExpenses(ctx, f.ID, day(2025, 3, 1), day(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, anna.ID, loaded[0].Member.UserID)
	assert.Len(t, loaded[0].Expenses, 1)
	assert.Equal(t, marco.ID, loaded[1].Member.UserID)
	assert.Len(t, loaded[1].Expenses, 2)
}

func TestSubscriptions(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "anna@example.com")

	open := core.Subscription{UserID: u.ID, StartDate: core.Date{Time: day(2025, 1, 10)}, Every: core.Monthly,
		Description: "Streaming", Amount: core.Money{Cents: 1299}, Category: "Fun"}
	ended := core.Subscription{UserID: u.ID, StartDate: core.Date{Time: day(2024, 1, 1)}, EndDate: core.Date{Time: day(2025, 1, 31)},
		Every: core.Weekly, Description: "Gym", Amount: core.Money{Cents: 1000}, Category: "Health"}
	future := core.Subscription{UserID: u.ID, StartDate: core.Date{Time: day(2026, 1, 1)}, Every: core.Yearly,
		Description: "Insurance", Amount: core.Money{Cents: 50000}, Category: "Home"}
	for _, s := range []*core.Subscription{&open, &ended, &future} {
		require.NoError(t, repo.CreateSubscription(ctx, s))
	}

	all, err := repo.ListSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	active, err := repo.ListActiveSubscriptions(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].Subscription.ID)
	assert.True(t, active[0].LastExecution.IsZero())

	require.NoError(t, repo.UpdateLastExecution(ctx, open.ID, now))
	active, err = repo.ListActiveSubscriptions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 10), active[0].LastExecution)

	require.NoError(t, repo.DeleteSubscription(ctx, u.ID, future.ID))
	assert.ErrorIs(t, repo.DeleteSubscription(ctx, u.ID, future.ID), ErrNotFound)
}

func TestThresholdsAndAlerts(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "anna@example.com")
	f := core.Family{Name: "Rossi", OwnerID: u.ID}
	require.NoError(t, repo.CreateFamily(ctx, &f))

	require.NoError(t, repo.SetThreshold(ctx, core.CategoryThreshold{FamilyID: f.ID, Category: "Food", Limit: core.Money{Cents: 100}}))
	require.NoError(t, repo.SetThreshold(ctx, core.CategoryThreshold{FamilyID: f.ID, Category: "Food", Limit: core.Money{Cents: 300}}))
	require.NoError(t, repo.SetThreshold(ctx, core.CategoryThreshold{FamilyID: f.ID, Category: "Fun", Limit: core.Money{Cents: 50}}))

	thresholds, err := repo.ListThresholds(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, thresholds, 2)
	assert.Equal(t, int64(300), thresholds[0].Limit.Cents)

	require.NoError(t, repo.DeleteThreshold(ctx, f.ID, "Fun"))
	assert.ErrorIs(t, repo.DeleteThreshold(ctx, f.ID, "Fun"), ErrNotFound)

	key := AlertKey{FamilyID: f.ID, Kind: core.AlertBudgetWarning, Period: "2025-03"}
	fresh, err := repo.RecordAlert(ctx, key)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.RecordAlert(ctx, key)
	require.NoError(t, err)
	assert.False(t, fresh, "same family, kind and month is recorded once")

	other := key
	other.Period = "2025-04"
	fresh, err = repo.RecordAlert(ctx, other)
	require.NoError(t, err)
	assert.True(t, fresh)

	require.NoError(t, repo.ReleaseAlert(ctx, key))
	fresh, err = repo.RecordAlert(ctx, key)
	require.NoError(t, err)
	assert.True(t, fresh)
}
