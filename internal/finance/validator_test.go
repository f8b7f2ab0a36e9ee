package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamroyal/etsy-software/internal/model"
)

func cleanOrder(number string) model.Order {
	return model.Order{
		OrderNumber:       number,
		Status:            model.OrderStatusFulfilled,
		AmountAUD:         nd("100"),
		EtsyFeePercentage: nd("11.5"),
		EtsyFeeAmount:     nd("11.5"),
		NetRevenue:        nd("88.5"),
		FulfillmentCost:   nd("30"),
	}
}

func TestValidateFinancialConsistency(t *testing.T) {
	tests := []struct {
		name     string
		orders   []model.Order
		valid    bool
		errors   []string
		warnings []string
	}{
		{
			name:   "clean order",
			orders: []model.Order{cleanOrder("#1")},
			valid:  true,
		},
		{
			name:   "missing amount",
			orders: []model.Order{{OrderNumber: "#2"}},
			valid:  false,
			errors: []string{"Order #2: Missing or invalid amountAUD (missing)"},
		},
		{
			name: "legacy order without derived fields",
			orders: []model.Order{
				{OrderNumber: "#3", AmountAUD: nd("40")},
			},
			valid: true,
			warnings: []string{
				"Order #3: Missing Etsy fee calculation - may be legacy order",
				"Order #3: Missing net revenue calculation",
			},
		},
		{
			name: "fee mismatch",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#4")
				o.EtsyFeeAmount = nd("12")
				o.NetRevenue = nd("88")
				return o
			}()},
			valid:    true,
			warnings: []string{"Order #4: Etsy fee mismatch - Expected: $11.50, Actual: $12.00"},
		},
		{
			name: "difference within tolerance",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#5")
				o.NetRevenue = nd("88.495")
				return o
			}()},
			valid: true,
		},
		{
			name: "net mismatch",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#6")
				o.NetRevenue = nd("90")
				return o
			}()},
			valid:    true,
			warnings: []string{"Order #6: Net revenue mismatch - Expected: $88.50, Actual: $90.00"},
		},
		{
			name: "refunded without metadata",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#7")
				o.Status = model.OrderStatusRefunded
				return o
			}()},
			valid: true,
			warnings: []string{
				"Order #7: Refunded order missing refund reason",
				"Order #7: Refunded order missing refund percentage",
			},
		},
		{
			name: "refund amount mismatch",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#8")
				o.Status = model.OrderStatusRefunded
				o.RefundReason = "damaged"
				o.RefundPercentage = nd("50")
				o.RefundAmount = nd("40")
				o.OriginalAmountAUD = nd("100")
				return o
			}()},
			valid:    true,
			warnings: []string{"Order #8: Refund amount mismatch - Expected: $50.00, Actual: $40.00"},
		},
		{
			name: "wrong field types",
			orders: []model.Order{func() model.Order {
				o := cleanOrder("#9")
				o.TypeErrors = map[string]string{"netRevenue": "bool", "fulfillmentCost": "map"}
				return o
			}()},
			valid: false,
			errors: []string{
				"Order #9: fulfillmentCost should be number, got map",
				"Order #9: netRevenue should be number, got bool",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateFinancialConsistency(tt.orders)

			assert.Equal(t, tt.valid, res.IsValid)
			if tt.errors == nil {
				assert.Empty(t, res.Errors)
			} else {
				assert.Equal(t, tt.errors, res.Errors)
			}
			if tt.warnings == nil {
				assert.Empty(t, res.Warnings)
			} else {
				assert.Equal(t, tt.warnings, res.Warnings)
			}
		})
	}
}

func TestValidateFinancialConsistency_Summary(t *testing.T) {
	res := ValidateFinancialConsistency([]model.Order{cleanOrder("#1"), {OrderNumber: "#2"}})

	assert.Equal(t, "Validation complete: 2 orders checked, 1 errors, 0 warnings", res.Summary)
	assert.NotNil(t, res.Warnings)
}

func TestValidateStatCalculations_RoundTrip(t *testing.T) {
	orders := []model.Order{
		cleanOrder("#1"),
		{OrderNumber: "#2", Status: model.OrderStatusFulfilled, AmountAUD: nd("33.33"), FulfillmentCost: nd("12.10")},
		{OrderNumber: "#3", Status: model.OrderStatusRefunded, AmountAUD: nd("0")},
		{OrderNumber: "#4", Status: model.OrderStatusPending, AmountAUD: nd("57.2"), EtsyFeePercentage: nd("6.5")},
	}

	res := ValidateStatCalculations(orders, MonthlyFinancialStats(orders))

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Discrepancies)
	assert.Equal(t, "Stats validation: PASSED - 0 discrepancies found", res.Summary)
}

func TestValidateStatCalculations_ReportsDiscrepancy(t *testing.T) {
	orders := []model.Order{cleanOrder("#1"), cleanOrder("#2"), cleanOrder("#3")}
	stats := MonthlyFinancialStats(orders)
	stats.GrossRevenue = stats.GrossRevenue.Add(d("1"))

	res := ValidateStatCalculations(orders, stats)

	assert.False(t, res.IsValid)
	require.Len(t, res.Discrepancies, 1)
	got := res.Discrepancies[0]
	assert.Equal(t, "grossRevenue", got.Field)
	assertDecimal(t, "300", got.ExpectedValue, "expected")
	assertDecimal(t, "301", got.ActualValue, "actual")
	assertDecimal(t, "1", got.Difference, "difference")
	assert.Equal(t, "0.33", got.PercentageDiff.StringFixed(2))
	assert.Equal(t, "Stats validation: FAILED - 1 discrepancies found", res.Summary)
}

func TestValidateOrderFinancials(t *testing.T) {
	t.Run("invalid amount", func(t *testing.T) {
		res := ValidateOrderFinancials(model.Order{OrderNumber: "#1", AmountAUD: nd("0")})

		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"Invalid or missing gross revenue amount"}, res.Errors)
	})

	t.Run("healthy order", func(t *testing.T) {
		res := ValidateOrderFinancials(cleanOrder("#2"))

		assert.True(t, res.IsValid)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, "Order #2 validation: PASSED - 0 errors, 0 warnings", res.Summary)
	})

	t.Run("low margin", func(t *testing.T) {
		o := cleanOrder("#3")
		o.FulfillmentCost = nd("80")

		res := ValidateOrderFinancials(o)

		assert.True(t, res.IsValid)
		assert.Equal(t, []string{"Low profit margin: 8.5%"}, res.Warnings)
	})

	t.Run("unprofitable", func(t *testing.T) {
		o := cleanOrder("#4")
		o.FulfillmentCost = nd("95")

		res := ValidateOrderFinancials(o)

		assert.True(t, res.IsValid)
		assert.Equal(t, []string{"Order is unprofitable: Profit margin -6.5%"}, res.Warnings)
	})

	t.Run("missing derived fields", func(t *testing.T) {
		res := ValidateOrderFinancials(model.Order{OrderNumber: "#5", AmountAUD: nd("100")})

		assert.Equal(t, []string{"Missing Etsy fee calculation", "Missing net revenue calculation"}, res.Warnings)
	})
}
