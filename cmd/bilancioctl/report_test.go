package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
)

func TestExportSnapshots(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ctl.db"))
	require.NoError(t, err)
	defer repo.Close()

	anna := &core.User{Email: "anna@example.com", Name: "Anna", PasswordHash: "x"}
	require.NoError(t, repo.CreateUser(ctx, anna))
	rossi := &core.Family{Name: "Rossi", OwnerID: anna.ID, MonthlyBudget: &core.Money{Cents: 25000}}
	require.NoError(t, repo.CreateFamily(ctx, rossi))
	bianchi := &core.Family{Name: "Bianchi", OwnerID: anna.ID}
	require.NoError(t, repo.CreateFamily(ctx, bianchi))

	for _, e := range []core.Expense{
		{Date: core.NewDate(2025, 2, 10), Amount: core.Money{Cents: 40000}},
		{Date: core.NewDate(2025, 3, 2), Amount: core.Money{Cents: 15000}},
		{Date: core.NewDate(2025, 3, 20), Amount: core.Money{Cents: 15000}},
	} {
		e.UserID, e.Description, e.Category = anna.ID, "spesa", "groceries"
		require.NoError(t, repo.CreateExpense(ctx, &e))
	}

	store := memory.New()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	n, err := exportSnapshots(ctx, budget.NewService(repo), repo, store, "2025-03", now, log.New(log.Config{Output: io.Discard}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := store.Rows("2025-03")
	require.Len(t, rows, 2)
	byFamily := map[string]int{}
	for i, r := range rows {
		byFamily[r.Family] = i
		assert.Equal(t, snapshotKind, r.Kind)
		assert.Equal(t, now, r.Timestamp)
		assert.Equal(t, int64(30000), r.ProjectedCents)
	}

	withBudget := rows[byFamily["Rossi"]]
	assert.Equal(t, int64(25000), withBudget.LimitCents)
	require.NotNil(t, withBudget.BudgetHit)
	assert.Equal(t, "2025-03-20", withBudget.BudgetHit.Format("2006-01-02"))

	noBudget := rows[byFamily["Bianchi"]]
	assert.Zero(t, noBudget.LimitCents)
	assert.Nil(t, noBudget.BudgetHit)

	t.Run("invalid month", func(t *testing.T) {
		n, err := exportSnapshots(ctx, budget.NewService(repo), repo, memory.New(), "2025-13", now, log.New(log.Config{Output: io.Discard}))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	var buf bytes.Buffer
	require.NoError(t, printRows(&buf, rows))
	assert.Contains(t, buf.String(), "Budget hit")
	assert.Contains(t, buf.String(), "300.00")
}
