package finance

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

// Tolerance — допустимое расхождение сумм при сверке ($0.01).
var Tolerance = decimal.RequireFromString("0.01")

// ValidationResult содержит результат сверки финансовых данных.
// Предупреждения не влияют на IsValid.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Summary  string   `json:"summary"`
}

// Discrepancy описывает расхождение одного агрегированного показателя.
type Discrepancy struct {
	Field          string          `json:"field"`
	ExpectedValue  decimal.Decimal `json:"expectedValue"`
	ActualValue    decimal.Decimal `json:"actualValue"`
	Difference     decimal.Decimal `json:"difference"`
	PercentageDiff decimal.Decimal `json:"percentageDiff"`
}

// StatsValidation содержит результат сверки агрегированной статистики.
type StatsValidation struct {
	IsValid       bool          `json:"isValid"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Summary       string        `json:"summary"`
}

func exceedsTolerance(expected, actual decimal.Decimal) bool {
	return expected.Sub(actual).Abs().GreaterThan(Tolerance)
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func describeAmount(v decimal.NullDecimal) string {
	if !v.Valid {
		return "missing"
	}
	return v.Decimal.String()
}

// ValidateFinancialConsistency сверяет сохранённые производные поля заказов с пересчётом.
//
// Ошибками считаются структурно некорректные записи (нет суммы, неверный тип
// поля), предупреждениями — расхождения, которые можно объяснить округлением
// или устаревшими данными. Данные не исправляются.
func ValidateFinancialConsistency(orders []model.Order) ValidationResult {
	warnings := make([]string, 0)
	errs := make([]string, 0)

	for _, o := range orders {
		amount := o.AmountAUD
		positive := amount.Valid && amount.Decimal.IsPositive()

		if !positive {
			errs = append(errs, fmt.Sprintf("Order %s: Missing or invalid amountAUD (%s)", o.OrderNumber, describeAmount(amount)))
		}

		if !model.Present(o.EtsyFeeAmount) && positive {
			warnings = append(warnings, fmt.Sprintf("Order %s: Missing Etsy fee calculation - may be legacy order", o.OrderNumber))
		}

		if !model.Present(o.NetRevenue) && positive {
			warnings = append(warnings, fmt.Sprintf("Order %s: Missing net revenue calculation", o.OrderNumber))
		}

		if model.Present(o.EtsyFeeAmount) && model.Present(amount) && model.Present(o.EtsyFeePercentage) {
			expected := CalculateEtsyFee(amount.Decimal, o.EtsyFeePercentage.Decimal)
			if exceedsTolerance(expected, o.EtsyFeeAmount.Decimal) {
				warnings = append(warnings, fmt.Sprintf("Order %s: Etsy fee mismatch - Expected: %s, Actual: %s",
					o.OrderNumber, money(expected), money(o.EtsyFeeAmount.Decimal)))
			}
		}

		if model.Present(o.NetRevenue) && model.Present(amount) && model.Present(o.EtsyFeeAmount) {
			expected := CalculateNetRevenue(amount.Decimal, o.EtsyFeeAmount.Decimal)
			if exceedsTolerance(expected, o.NetRevenue.Decimal) {
				warnings = append(warnings, fmt.Sprintf("Order %s: Net revenue mismatch - Expected: %s, Actual: %s",
					o.OrderNumber, money(expected), money(o.NetRevenue.Decimal)))
			}
		}

		if o.Status == model.OrderStatusRefunded {
			if o.RefundReason == "" {
				warnings = append(warnings, fmt.Sprintf("Order %s: Refunded order missing refund reason", o.OrderNumber))
			}
			if !model.Present(o.RefundPercentage) {
				warnings = append(warnings, fmt.Sprintf("Order %s: Refunded order missing refund percentage", o.OrderNumber))
			}
			if model.Present(o.OriginalAmountAUD) && model.Present(o.RefundPercentage) && model.Present(o.RefundAmount) {
				expected := o.OriginalAmountAUD.Decimal.Mul(o.RefundPercentage.Decimal).Div(hundred)
				if exceedsTolerance(expected, o.RefundAmount.Decimal) {
					warnings = append(warnings, fmt.Sprintf("Order %s: Refund amount mismatch - Expected: %s, Actual: %s",
						o.OrderNumber, money(expected), money(o.RefundAmount.Decimal)))
				}
			}
		}

		fields := make([]string, 0, len(o.TypeErrors))
		for field := range o.TypeErrors {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		for _, field := range fields {
			errs = append(errs, fmt.Sprintf("Order %s: %s should be number, got %s", o.OrderNumber, field, o.TypeErrors[field]))
		}
	}

	return ValidationResult{
		IsValid:  len(errs) == 0,
		Warnings: warnings,
		Errors:   errs,
		Summary: fmt.Sprintf("Validation complete: %d orders checked, %d errors, %d warnings",
			len(orders), len(errs), len(warnings)),
	}
}

// ValidateStatCalculations пересчитывает агрегаты по исходным заказам и сравнивает
// их с переданной статистикой по шести показателям.
func ValidateStatCalculations(orders []model.Order, stats model.MonthlyFinancialStats) StatsValidation {
	var gross, fees, net, costs decimal.Decimal
	for _, o := range orders {
		if !countsTowardStats(o) {
			continue
		}
		b := OrderFinancialBreakdown(o)
		gross = gross.Add(b.GrossRevenue)
		fees = fees.Add(b.EtsyFeeAmount)
		net = net.Add(b.NetRevenue)
		costs = costs.Add(b.FulfillmentCosts)
	}
	profit := net.Sub(costs)
	margin := CalculateProfitMarginPercentage(profit, gross)

	checks := []struct {
		field            string
		expected, actual decimal.Decimal
	}{
		{"grossRevenue", gross, stats.GrossRevenue},
		{"totalEtsyFees", fees, stats.TotalEtsyFees},
		{"netRevenue", net, stats.NetRevenue},
		{"totalCosts", costs, stats.TotalCosts},
		{"totalProfit", profit, stats.TotalProfit},
		{"profitMarginPercentage", margin, stats.ProfitMarginPercentage},
	}

	discrepancies := make([]Discrepancy, 0)
	for _, c := range checks {
		diff := c.expected.Sub(c.actual).Abs()
		if !diff.GreaterThan(Tolerance) {
			continue
		}
		pct := decimal.Zero
		if !c.expected.IsZero() {
			pct = diff.Div(c.expected.Abs()).Mul(hundred)
		}
		discrepancies = append(discrepancies, Discrepancy{
			Field:          c.field,
			ExpectedValue:  c.expected,
			ActualValue:    c.actual,
			Difference:     diff,
			PercentageDiff: pct,
		})
	}

	verdict := "PASSED"
	if len(discrepancies) > 0 {
		verdict = "FAILED"
	}

	return StatsValidation{
		IsValid:       len(discrepancies) == 0,
		Discrepancies: discrepancies,
		Summary:       fmt.Sprintf("Stats validation: %s - %d discrepancies found", verdict, len(discrepancies)),
	}
}

var (
	lowMarginThreshold = decimal.NewFromInt(10)
)

// ValidateOrderFinancials проверяет финансовые поля одного заказа и его доходность.
// Низкая и отрицательная маржа дают предупреждения, а не ошибки.
func ValidateOrderFinancials(order model.Order) ValidationResult {
	warnings := make([]string, 0)
	errs := make([]string, 0)

	if !order.AmountAUD.Valid || !order.AmountAUD.Decimal.IsPositive() {
		errs = append(errs, "Invalid or missing gross revenue amount")
		return ValidationResult{
			IsValid:  false,
			Warnings: warnings,
			Errors:   errs,
			Summary:  "Order validation failed: Invalid revenue data",
		}
	}

	amount := order.AmountAUD.Decimal
	expectedFee := CalculateEtsyFee(amount, DefaultEtsyFeePercentage)

	if model.Present(order.EtsyFeeAmount) {
		if exceedsTolerance(expectedFee, order.EtsyFeeAmount.Decimal) {
			warnings = append(warnings, fmt.Sprintf("Etsy fee calculation may be incorrect: Expected %s, got %s",
				money(expectedFee), money(order.EtsyFeeAmount.Decimal)))
		}
	} else {
		warnings = append(warnings, "Missing Etsy fee calculation")
	}

	expectedNet := amount.Sub(storedOr(order.EtsyFeeAmount, expectedFee))
	if model.Present(order.NetRevenue) {
		if exceedsTolerance(expectedNet, order.NetRevenue.Decimal) {
			warnings = append(warnings, fmt.Sprintf("Net revenue calculation may be incorrect: Expected %s, got %s",
				money(expectedNet), money(order.NetRevenue.Decimal)))
		}
	} else {
		warnings = append(warnings, "Missing net revenue calculation")
	}

	if order.FulfillmentCost.Valid {
		profit := expectedNet.Sub(order.FulfillmentCost.Decimal)
		margin := CalculateProfitMarginPercentage(profit, amount)
		switch {
		case margin.IsNegative():
			warnings = append(warnings, fmt.Sprintf("Order is unprofitable: Profit margin %s", FormatPercentage(margin, 1)))
		case margin.LessThan(lowMarginThreshold):
			warnings = append(warnings, fmt.Sprintf("Low profit margin: %s", FormatPercentage(margin, 1)))
		}
	}

	verdict := "PASSED"
	if len(errs) > 0 {
		verdict = "FAILED"
	}

	return ValidationResult{
		IsValid:  len(errs) == 0,
		Warnings: warnings,
		Errors:   errs,
		Summary: fmt.Sprintf("Order %s validation: %s - %d errors, %d warnings",
			order.OrderNumber, verdict, len(errs), len(warnings)),
	}
}
