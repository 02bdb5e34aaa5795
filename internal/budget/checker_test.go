package budget

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) ListFamilies(ctx context.Context) ([]core.Family, error) {
	args := m.Called(ctx)
	return args.Get(0).([]core.Family), args.Error(1)
}

func (m *mockAlerts) RecordAlert(ctx context.Context, k storage.AlertKey) (bool, error) {
	args := m.Called(ctx, k)
	return args.Bool(0), args.Error(1)
}

func (m *mockAlerts) ReleaseAlert(ctx context.Context, k storage.AlertKey) error {
	return m.Called(ctx, k).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func newTestChecker(store *fakeStore, alerts *mockAlerts, pub *mockPublisher) *Checker {
	return NewChecker(newTestService(store), alerts, pub, quietLogger())
}

var warningKey = storage.AlertKey{FamilyID: 1, Kind: core.AlertBudgetWarning, Period: "2025-03"}

func TestCheckFamilies_SendsWarning(t *testing.T) {
	store := familyFixture()
	alerts := new(mockAlerts)
	pub := new(mockPublisher)

	alerts.On("ListFamilies", mock.Anything).Return([]core.Family{store.families[1]}, nil)
	alerts.On("RecordAlert", mock.Anything, warningKey).Return(true, nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg *amqp.NotificationMessage) bool {
		return msg.Kind == core.AlertBudgetWarning &&
			msg.FamilyID == 1 &&
			msg.FamilyName == "Rossi" &&
			msg.Period == "2025-03" &&
			msg.Exceeds &&
			msg.ProjectedCents == 60000 &&
			msg.BudgetCents == 50000 &&
			msg.BudgetHit != nil && msg.BudgetHit.Day() == 26 &&
			msg.Validate() == nil
	})).Return(nil)

	sum, err := newTestChecker(store, alerts, pub).CheckFamilies(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 1, Sent: 1}, sum)
	alerts.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCheckFamilies_AlreadyNotified(t *testing.T) {
	store := familyFixture()
	alerts := new(mockAlerts)
	pub := new(mockPublisher)

	alerts.On("ListFamilies", mock.Anything).Return([]core.Family{store.families[1]}, nil)
	alerts.On("RecordAlert", mock.Anything, warningKey).Return(false, nil)

	sum, err := newTestChecker(store, alerts, pub).CheckFamilies(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 1, Skipped: 1}, sum)
	pub.AssertNotCalled(t, "PublishNotification", mock.Anything, mock.Anything)
}

func TestCheckFamilies_PublishFailureReleasesAlert(t *testing.T) {
	store := familyFixture()
	alerts := new(mockAlerts)
	pub := new(mockPublisher)

	alerts.On("ListFamilies", mock.Anything).Return([]core.Family{store.families[1]}, nil)
	alerts.On("RecordAlert", mock.Anything, warningKey).Return(true, nil)
	alerts.On("ReleaseAlert", mock.Anything, warningKey).Return(nil)
	pub.On("PublishNotification", mock.Anything, mock.Anything).Return(amqp.ErrCircuitOpen)

	sum, err := newTestChecker(store, alerts, pub).CheckFamilies(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 1, Failed: 1}, sum)
	alerts.AssertExpectations(t)
}

func TestCheckFamilies_SkipsAndContinues(t *testing.T) {
	store := familyFixture()
	store.families[2] = core.Family{ID: 2, Name: "Bianchi", OwnerID: 2}                         // no budget
	store.families[3] = core.Family{ID: 3, Name: "Verdi", OwnerID: 2, MonthlyBudget: eur(100)}  // lookup fails
	store.families[4] = core.Family{ID: 4, Name: "Neri", OwnerID: 2, MonthlyBudget: eur(10000)} // within budget
	store.failFamily[3] = errors.New("disk on fire")

	alerts := new(mockAlerts)
	pub := new(mockPublisher)
	families, _ := store.ListFamilies(context.Background())
	alerts.On("ListFamilies", mock.Anything).Return(families, nil)
	alerts.On("RecordAlert", mock.Anything, warningKey).Return(true, nil)
	pub.On("PublishNotification", mock.Anything, mock.Anything).Return(nil).Once()

	sum, err := newTestChecker(store, alerts, pub).CheckFamilies(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 3, Sent: 1, Failed: 1}, sum)
	pub.AssertExpectations(t)
}

func TestCheckFamilies_ListError(t *testing.T) {
	alerts := new(mockAlerts)
	alerts.On("ListFamilies", mock.Anything).Return([]core.Family(nil), errors.New("locked"))

	_, err := newTestChecker(newFakeStore(), alerts, new(mockPublisher)).CheckFamilies(context.Background(), march15)
	assert.Error(t, err)
}

func TestCheckThresholds(t *testing.T) {
	store := familyFixture()
	store.thresholds[1] = []core.CategoryThreshold{
		{FamilyID: 1, Category: "groceries", Limit: core.Money{Cents: 10000}},
		{FamilyID: 1, Category: "fun", Limit: core.Money{Cents: 5000}},
		{FamilyID: 1, Category: "fuel", Limit: core.Money{Cents: 50000}},
	}
	alerts := new(mockAlerts)
	pub := new(mockPublisher)

	funKey := storage.AlertKey{FamilyID: 1, Kind: core.AlertThresholdBreach, Period: "2025-03", Category: "fun"}
	groceriesKey := storage.AlertKey{FamilyID: 1, Kind: core.AlertThresholdBreach, Period: "2025-03", Category: "groceries"}

	alerts.On("ListFamilies", mock.Anything).Return([]core.Family{store.families[1]}, nil)
	alerts.On("RecordAlert", mock.Anything, funKey).Return(true, nil)
	alerts.On("RecordAlert", mock.Anything, groceriesKey).Return(false, nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg *amqp.NotificationMessage) bool {
		return msg.Kind == core.AlertThresholdBreach &&
			msg.Category == "fun" &&
			msg.SpentCents == 11000 &&
			msg.LimitCents == 5000 &&
			msg.Validate() == nil
	})).Return(nil)

	sum, err := newTestChecker(store, alerts, pub).CheckThresholds(context.Background(), march15)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 1, Sent: 1, Skipped: 1}, sum)
	alerts.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCheckFamilies_UsesGivenTime(t *testing.T) {
	store := familyFixture()
	alerts := new(mockAlerts)
	pub := new(mockPublisher)
	alerts.On("ListFamilies", mock.Anything).Return([]core.Family{store.families[1]}, nil)

	// In April nothing has been spent yet: linear fallback projects zero.
	april := time.Date(2025, 4, 2, 7, 0, 0, 0, time.UTC)
	sum, err := newTestChecker(store, alerts, pub).CheckFamilies(context.Background(), april)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Families: 1}, sum)
	alerts.AssertNotCalled(t, "RecordAlert", mock.Anything, mock.Anything)
}
