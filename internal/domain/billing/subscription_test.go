package billing

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscription(t *testing.T, cycle BillingCycle, start time.Time) *Subscription {
	t.Helper()
	sub, err := NewSubscription(
		uuid.New(), uuid.New(),
		"pro-monthly",
		decimal.NewFromInt(20),
		valueobject.EUR,
		cycle,
		start,
	)
	require.NoError(t, err)
	return sub
}

func TestBillingCycleNext(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), BillingCycleMonthly.Next(start))
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), BillingCycleQuarterly.Next(start))
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), BillingCycleYearly.Next(start))
}

func TestSubscriptionRenewal(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := newTestSubscription(t, BillingCycleMonthly, start)

	firstEnd := start.AddDate(0, 1, 0)
	assert.Equal(t, firstEnd, sub.CurrentPeriodEnd)
	assert.False(t, sub.NeedsRenewal(firstEnd.Add(-time.Hour)))
	assert.True(t, sub.NeedsRenewal(firstEnd))

	require.NoError(t, sub.Renew())
	assert.Equal(t, firstEnd.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
}

func TestSubscriptionSuspendLifecycle(t *testing.T) {
	start := time.Now()
	sub := newTestSubscription(t, BillingCycleMonthly, start)
	grace := start.AddDate(0, 0, 7)

	require.NoError(t, sub.Suspend(grace))
	assert.Equal(t, SubscriptionStatusSuspended, sub.Status)
	assert.False(t, sub.NeedsRenewal(sub.CurrentPeriodEnd.Add(time.Hour)))
	assert.ErrorIs(t, sub.Renew(), shared.ErrInvalidState)

	// still inside the grace window
	assert.Error(t, sub.Expire(grace.Add(-time.Hour)))

	require.NoError(t, sub.Expire(grace.Add(time.Hour)))
	assert.Equal(t, SubscriptionStatusExpired, sub.Status)
}

func TestSubscriptionReactivate(t *testing.T) {
	sub := newTestSubscription(t, BillingCycleMonthly, time.Now())
	require.NoError(t, sub.Suspend(time.Now().AddDate(0, 0, 7)))

	newEnd := time.Now().AddDate(0, 1, 0)
	require.NoError(t, sub.Reactivate(newEnd))
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, newEnd, sub.CurrentPeriodEnd)
	assert.Nil(t, sub.GraceUntil)
}

func TestSubscriptionCancel(t *testing.T) {
	sub := newTestSubscription(t, BillingCycleYearly, time.Now())

	require.NoError(t, sub.Cancel(time.Now()))
	assert.Equal(t, SubscriptionStatusCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)
	assert.ErrorIs(t, sub.Cancel(time.Now()), shared.ErrInvalidState)
	assert.False(t, sub.NeedsRenewal(sub.CurrentPeriodEnd.Add(time.Hour)))
}
