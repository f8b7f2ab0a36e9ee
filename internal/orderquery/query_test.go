package orderquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamroyal/etsy-software/internal/model"
)

// 2025-03-12 — среда.
var now = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)

func ids(orders []model.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func allStatuses() []model.Order {
	return []model.Order{
		{ID: "pending", Status: model.OrderStatusPending},
		{ID: "overdue", Status: model.OrderStatusOverdue},
		{ID: "fulfilled", Status: model.OrderStatusFulfilled},
		{ID: "refunded", Status: model.OrderStatusRefunded},
		{ID: "issue", Status: model.OrderStatusIssueRaised},
		{ID: "flagged", Status: model.OrderStatusFlagged},
		{ID: "resolved", Status: model.OrderStatusResolved},
	}
}

func TestFilterNeedsAttention(t *testing.T) {
	got := FilterNeedsAttention(allStatuses())

	assert.Equal(t, []string{"pending", "overdue", "issue"}, ids(got))
	for _, o := range got {
		assert.NotContains(t, processedStatuses, o.Status)
	}
}

func TestSortByPriority(t *testing.T) {
	d1 := now.Add(-48 * time.Hour)
	d2 := now.Add(-time.Hour)

	t.Run("flagged first regardless of date", func(t *testing.T) {
		got := SortByPriority([]model.Order{
			{ID: "fulfilled", Status: model.OrderStatusFulfilled, ReceivedAt: d1},
			{ID: "flagged", Status: model.OrderStatusFlagged, ReceivedAt: d2},
		})

		assert.Equal(t, []string{"flagged", "fulfilled"}, ids(got))
	})

	t.Run("oldest first within group", func(t *testing.T) {
		got := SortByPriority([]model.Order{
			{ID: "new", Status: model.OrderStatusPending, ReceivedAt: d2},
			{ID: "undated", Status: model.OrderStatusPending},
			{ID: "old", Status: model.OrderStatusPending, ReceivedAt: d1},
			{ID: "flag-new", Status: model.OrderStatusFlagged, ReceivedAt: d2},
			{ID: "flag-old", Status: model.OrderStatusFlagged, ReceivedAt: d1},
		})

		assert.Equal(t, []string{"flag-old", "flag-new", "undated", "old", "new"}, ids(got))
	})

	t.Run("stable for equal keys", func(t *testing.T) {
		got := SortByPriority([]model.Order{
			{ID: "a", Status: model.OrderStatusPending, ReceivedAt: d1},
			{ID: "b", Status: model.OrderStatusIssueRaised, ReceivedAt: d1},
			{ID: "c", Status: model.OrderStatusOverdue, ReceivedAt: d1},
		})

		assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := []model.Order{
			{ID: "x", Status: model.OrderStatusPending},
			{ID: "y", Status: model.OrderStatusFlagged},
		}
		_ = SortByPriority(in)

		assert.Equal(t, []string{"x", "y"}, ids(in))
	})
}

func TestFulfilledForMonth(t *testing.T) {
	orders := []model.Order{
		{ID: "this-month", Status: model.OrderStatusFulfilled, UpdatedAt: now.AddDate(0, 0, -5)},
		{ID: "first-instant", Status: model.OrderStatusResolved, UpdatedAt: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "last-instant", Status: model.OrderStatusFlagged, UpdatedAt: time.Date(2025, time.March, 31, 23, 59, 59, 999e6, time.UTC)},
		{ID: "last-month", Status: model.OrderStatusFulfilled, UpdatedAt: time.Date(2025, time.February, 28, 23, 0, 0, 0, time.UTC)},
		{ID: "next-month", Status: model.OrderStatusRefunded, UpdatedAt: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "undated", Status: model.OrderStatusRefunded},
		{ID: "pending", Status: model.OrderStatusPending, UpdatedAt: now},
	}

	got := FulfilledForMonth(orders, now)

	assert.Equal(t, []string{"this-month", "first-instant", "last-instant", "undated"}, ids(got))
}

func TestOverdue(t *testing.T) {
	tests := []struct {
		name    string
		order   model.Order
		overdue bool
		display model.OrderStatus
		ageDays int
	}{
		{
			name:    "fresh pending",
			order:   model.Order{Status: model.OrderStatusPending, ReceivedAt: now.Add(-47 * time.Hour)},
			overdue: false, display: model.OrderStatusPending, ageDays: 1,
		},
		{
			name:    "three days pending",
			order:   model.Order{Status: model.OrderStatusPending, ReceivedAt: now.Add(-72 * time.Hour)},
			overdue: true, display: model.OrderStatusOverdue, ageDays: 3,
		},
		{
			name:    "old fulfilled",
			order:   model.Order{Status: model.OrderStatusFulfilled, ReceivedAt: now.AddDate(0, 0, -10)},
			overdue: false, display: model.OrderStatusFulfilled, ageDays: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overdue, IsOverdue(tt.order, now, DefaultOverdueDays))
			assert.Equal(t, tt.display, DisplayStatus(tt.order, now, DefaultOverdueDays))
			assert.Equal(t, tt.ageDays, AgeDays(tt.order, now))
		})
	}
}

func TestDaysSinceFulfillment(t *testing.T) {
	assert.Equal(t, 0, DaysSinceFulfillment(model.Order{UpdatedAt: now.Add(-time.Hour)}, now))
	assert.Equal(t, 1, DaysSinceFulfillment(model.Order{UpdatedAt: time.Date(2025, time.March, 11, 23, 59, 0, 0, time.UTC)}, now))
	assert.Equal(t, 12, DaysSinceFulfillment(model.Order{UpdatedAt: time.Date(2025, time.February, 28, 1, 0, 0, 0, time.UTC)}, now))
	assert.Equal(t, 0, DaysSinceFulfillment(model.Order{UpdatedAt: now.Add(time.Hour)}, now))
}

func TestDaysAgoText(t *testing.T) {
	assert.Equal(t, "Today", DaysAgoText(0))
	assert.Equal(t, "Today", DaysAgoText(-1))
	assert.Equal(t, "1 day ago", DaysAgoText(1))
	assert.Equal(t, "5 days ago", DaysAgoText(5))
}

func TestReceivedBetween(t *testing.T) {
	orders := []model.Order{
		{ID: "old", ReceivedAt: now.AddDate(0, 0, -40)},
		{ID: "recent", ReceivedAt: now.AddDate(0, 0, -3)},
		{ID: "future", ReceivedAt: now.AddDate(0, 0, 1)},
	}

	assert.Equal(t, []string{"recent"}, ids(ReceivedBetween(orders, now.AddDate(0, 0, -30), now)))
	assert.Equal(t, []string{"old", "recent"}, ids(ReceivedBetween(orders, time.Time{}, now)))
	assert.Equal(t, []string{"old", "recent", "future"}, ids(ReceivedBetween(orders, time.Time{}, time.Time{})))
}

func TestPeriodStart(t *testing.T) {
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), PeriodStart(PeriodDaily, now))
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), PeriodStart(PeriodWeekly, now))
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), PeriodStart(PeriodMonthly, now))
}

func TestForPeriod(t *testing.T) {
	orders := []model.Order{
		{ID: "today", Type: model.OrderTypeOrder, Status: model.OrderStatusPending, ReceivedAt: now.Add(-time.Hour)},
		{ID: "monday", Type: model.OrderTypeOrder, Status: model.OrderStatusFulfilled, ReceivedAt: now.AddDate(0, 0, -2)},
		{ID: "early-march", Type: model.OrderTypeOrder, Status: model.OrderStatusFulfilled, ReceivedAt: now.AddDate(0, 0, -9)},
		{ID: "refund-mail", Type: model.OrderTypeRefund, Status: model.OrderStatusPending, ReceivedAt: now.Add(-time.Hour)},
		{ID: "refunded", Type: model.OrderTypeOrder, Status: model.OrderStatusRefunded, ReceivedAt: now.Add(-time.Hour)},
		{ID: "undated", Type: model.OrderTypeOrder, Status: model.OrderStatusPending},
	}

	require.True(t, PeriodWeekly.Valid())
	assert.False(t, Period("yearly").Valid())

	assert.Equal(t, []string{"today"}, ids(ForPeriod(orders, PeriodDaily, now)))
	assert.Equal(t, []string{"today", "monday"}, ids(ForPeriod(orders, PeriodWeekly, now)))
	assert.Equal(t, []string{"today", "monday", "early-march"}, ids(ForPeriod(orders, PeriodMonthly, now)))
}
