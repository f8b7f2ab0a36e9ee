package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamroyal/etsy-software/internal/model"
)

var now = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertNull(t *testing.T, want string, got decimal.NullDecimal, field string) {
	t.Helper()
	require.Truef(t, got.Valid, "%s must be set", field)
	assert.Truef(t, d(want).Equal(got.Decimal), "%s: want %s, got %s", field, want, got.Decimal)
}

func fulfilledOrder() model.Order {
	return model.Order{
		ID:                "o1",
		OrderNumber:       "#1001",
		Status:            model.OrderStatusFulfilled,
		AmountAUD:         model.Some(d("100")),
		EtsyFeePercentage: model.Some(d("11.5")),
		EtsyFeeAmount:     model.Some(d("11.5")),
		NetRevenue:        model.Some(d("88.5")),
		FulfillmentCost:   model.Some(d("20")),
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.OrderStatus
		want     bool
	}{
		{model.OrderStatusPending, model.OrderStatusFulfilled, true},
		{"", model.OrderStatusFulfilled, true},
		{model.OrderStatusOverdue, model.OrderStatusFulfilled, true},
		{model.OrderStatusIssueRaised, model.OrderStatusFulfilled, true},
		{model.OrderStatusFulfilled, model.OrderStatusRefunded, true},
		{model.OrderStatusFulfilled, model.OrderStatusFlagged, true},
		{model.OrderStatusFlagged, model.OrderStatusResolved, true},
		{model.OrderStatusPending, model.OrderStatusRefunded, false},
		{model.OrderStatusRefunded, model.OrderStatusFulfilled, false},
		{model.OrderStatusResolved, model.OrderStatusFlagged, false},
		{model.OrderStatusFulfilled, model.OrderStatusResolved, false},
		{model.OrderStatusRefunded, model.OrderStatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFulfill(t *testing.T) {
	order := model.Order{ID: "o1", Status: model.OrderStatusPending, AmountAUD: model.Some(d("50"))}

	change, err := Fulfill(order, FulfillInput{FulfilledAt: "2025-03-14", FulfillmentCost: d("12.5")}, now)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusFulfilled, change.Order.Status)
	assert.Equal(t, "2025-03-14", change.Order.FulfilledAt)
	assertNull(t, "12.5", change.Order.FulfillmentCost, "fulfillmentCost")
	assert.Equal(t, now, change.Order.UpdatedAt)

	assert.Equal(t, "fulfilled", change.Fields[model.FieldStatus])
	assert.Equal(t, now, change.Fields[model.FieldUpdatedAt])
	assert.Len(t, change.Fields, 4)

	assert.Equal(t, model.OrderStatusPending, order.Status, "input order must stay untouched")
}

func TestFulfill_RejectsFulfilledOrder(t *testing.T) {
	_, err := Fulfill(fulfilledOrder(), FulfillInput{FulfilledAt: "x", FulfillmentCost: d("1")}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRefund_CustomerReturningItems(t *testing.T) {
	change, err := Refund(fulfilledOrder(), RefundInput{
		Reason:                 "wrong size",
		Percentage:             d("100"),
		CustomerReturningItems: true,
	}, now)
	require.NoError(t, err)

	o := change.Order
	assert.Equal(t, model.OrderStatusRefunded, o.Status)
	assertNull(t, "0", o.AmountAUD, "amountAUD")
	assertNull(t, "0", o.EtsyFeeAmount, "etsyFeeAmount")
	assertNull(t, "0", o.NetRevenue, "netRevenue")
	assertNull(t, "0", o.FulfillmentCost, "fulfillmentCost")

	assertNull(t, "100", o.OriginalAmountAUD, "originalAmountAUD")
	assertNull(t, "11.5", o.OriginalEtsyFeeAmount, "originalEtsyFeeAmount")
	assertNull(t, "88.5", o.OriginalNetRevenue, "originalNetRevenue")
	assertNull(t, "20", o.OriginalFulfillmentCost, "originalFulfillmentCost")

	assertNull(t, "100", o.RefundAmount, "refundAmount")
	assert.True(t, o.CustomerReturningItems)
	assert.Equal(t, now, o.RefundedAt)
	assert.Equal(t, "wrong size", change.Fields[model.FieldRefundReason])
}

func TestRefund_PartialWithoutReturn(t *testing.T) {
	change, err := Refund(fulfilledOrder(), RefundInput{Reason: "late", Percentage: d("50")}, now)
	require.NoError(t, err)

	o := change.Order
	assertNull(t, "50", o.RefundAmount, "refundAmount")
	assertNull(t, "50", o.AmountAUD, "adjustedRevenue")
	assertNull(t, "11.5", o.OriginalEtsyFeeAmount, "originalEtsyFeeAmount")
	assertNull(t, "5.75", o.EtsyFeeAmount, "adjustedEtsyFee")
	assertNull(t, "44.25", o.NetRevenue, "adjustedNetRevenue")
	assertNull(t, "20", o.FulfillmentCost, "fulfillmentCost")

	fee, ok := change.Fields[model.FieldEtsyFeeAmount].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, d("5.75").Equal(fee))
}

func TestRefund_UsesStandardFeeRate(t *testing.T) {
	order := fulfilledOrder()
	order.EtsyFeePercentage = model.Some(d("6.5"))
	order.EtsyFeeAmount = model.Some(d("6.5"))

	change, err := Refund(order, RefundInput{Reason: "promo", Percentage: d("10")}, now)
	require.NoError(t, err)

	assertNull(t, "11.5", change.Order.OriginalEtsyFeeAmount, "originalEtsyFeeAmount")
}

func TestRefund_KeepsExistingSnapshot(t *testing.T) {
	order := fulfilledOrder()
	order.AmountAUD = model.Some(d("60"))
	order.OriginalAmountAUD = model.Some(d("120"))
	order.OriginalEtsyFeeAmount = model.Some(d("13.8"))
	order.OriginalNetRevenue = model.Some(d("106.2"))
	order.OriginalFulfillmentCost = model.Some(d("25"))

	change, err := Refund(order, RefundInput{Reason: "again", Percentage: d("50")}, now)
	require.NoError(t, err)

	assertNull(t, "120", change.Order.OriginalAmountAUD, "originalAmountAUD")
	assertNull(t, "13.8", change.Order.OriginalEtsyFeeAmount, "originalEtsyFeeAmount")
	assertNull(t, "106.2", change.Order.OriginalNetRevenue, "originalNetRevenue")
	assertNull(t, "25", change.Order.OriginalFulfillmentCost, "originalFulfillmentCost")

	for _, f := range []string{
		model.FieldOriginalAmountAUD,
		model.FieldOriginalEtsyFeeAmount,
		model.FieldOriginalNetRevenue,
		model.FieldOriginalFulfillmentCost,
	} {
		assert.NotContains(t, change.Fields, f)
	}
}

func TestRefund_RejectsPendingOrder(t *testing.T) {
	_, err := Refund(model.Order{Status: model.OrderStatusPending}, RefundInput{Reason: "x", Percentage: d("10")}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFlagThenResolveKeepsHistory(t *testing.T) {
	flagged, err := Flag(fulfilledOrder(), FlagInput{IssueDescription: "parcel lost"}, now)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusFlagged, flagged.Order.Status)
	assert.True(t, flagged.Order.WasEverFlagged)
	assert.Equal(t, true, flagged.Fields[model.FieldWasEverFlagged])
	assert.NotContains(t, flagged.Fields, model.FieldAmountAUD)

	later := now.Add(time.Hour)
	resolved, err := Resolve(flagged.Order, ResolveInput{Confirmed: true, ResolvedDescription: "reshipped"}, later)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusResolved, resolved.Order.Status)
	assert.True(t, resolved.Order.WasEverFlagged)
	assert.Equal(t, "parcel lost", resolved.Order.IssueDescription)
	assert.Equal(t, "reshipped", resolved.Order.ResolvedDescription)
	assert.Equal(t, later, resolved.Order.UpdatedAt)
	assert.NotContains(t, resolved.Fields, model.FieldWasEverFlagged)
	assert.NotContains(t, resolved.Fields, model.FieldIssueDescription)
}

func TestResolve_Rejects(t *testing.T) {
	flagged := fulfilledOrder()
	flagged.Status = model.OrderStatusFlagged

	tests := []struct {
		name  string
		order model.Order
		in    ResolveInput
		err   error
	}{
		{name: "not confirmed", order: flagged, in: ResolveInput{ResolvedDescription: "ok"}, err: ErrInvalidInput},
		{name: "blank description", order: flagged, in: ResolveInput{Confirmed: true, ResolvedDescription: "  "}, err: ErrInvalidInput},
		{name: "not flagged", order: fulfilledOrder(), in: ResolveInput{Confirmed: true, ResolvedDescription: "ok"}, err: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.order, tt.in, now)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSetStatus(t *testing.T) {
	change, err := SetStatus(model.Order{Status: model.OrderStatusRefunded}, model.OrderStatusPending, now)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, change.Order.Status)
	assert.Equal(t, "pending", change.Fields[model.FieldStatus])

	_, err = SetStatus(model.Order{}, "shipped", now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
