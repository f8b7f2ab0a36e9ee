// Package finance содержит расчёт выручки, комиссий Etsy, себестоимости и прибыли
// по заказам, а также проверку согласованности сохранённых финансовых полей.
//
// Функции пакета чистые: они не проверяют входные данные и не обращаются к
// хранилищу. Некорректные значения выявляет валидатор уже после расчёта.
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

var (
	// DefaultEtsyFeePercentage — стандартная комиссия Etsy в процентах.
	DefaultEtsyFeePercentage = decimal.RequireFromString("11.5")

	hundred = decimal.NewFromInt(100)
)

// CalculateEtsyFee возвращает комиссию Etsy для суммы. Округление не выполняется.
func CalculateEtsyFee(grossAmount, feePercentage decimal.Decimal) decimal.Decimal {
	return grossAmount.Mul(feePercentage).Div(hundred)
}

// CalculateNetRevenue возвращает выручку за вычетом комиссии.
func CalculateNetRevenue(grossAmount, etsyFeeAmount decimal.Decimal) decimal.Decimal {
	return grossAmount.Sub(etsyFeeAmount)
}

// CalculateProfit возвращает прибыль; отрицательное значение означает убыток.
func CalculateProfit(netRevenue, costs decimal.Decimal) decimal.Decimal {
	return netRevenue.Sub(costs)
}

// CalculateProfitMarginPercentage возвращает маржу в процентах от валовой выручки
// или ноль, если выручка не положительна.
func CalculateProfitMarginPercentage(profit, grossRevenue decimal.Decimal) decimal.Decimal {
	if !grossRevenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(grossRevenue).Mul(hundred)
}

// storedOr возвращает сохранённое значение, если оно задано и не равно нулю,
// иначе fallback.
func storedOr(v decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if model.Present(v) {
		return v.Decimal
	}
	return fallback
}

// OrderFinancialBreakdown возвращает финансовую раскладку заказа.
//
// Сохранённые комиссия и чистая выручка имеют приоритет над пересчётом: для
// заказов с возвратом в них лежат скорректированные значения.
func OrderFinancialBreakdown(order model.Order) model.FinancialBreakdown {
	gross := order.AmountAUD.Decimal
	feePercentage := storedOr(order.EtsyFeePercentage, DefaultEtsyFeePercentage)
	fee := storedOr(order.EtsyFeeAmount, CalculateEtsyFee(gross, feePercentage))
	net := storedOr(order.NetRevenue, CalculateNetRevenue(gross, fee))
	costs := order.FulfillmentCost.Decimal
	profit := CalculateProfit(net, costs)

	return model.FinancialBreakdown{
		GrossRevenue:           gross,
		EtsyFeePercentage:      feePercentage,
		EtsyFeeAmount:          fee,
		NetRevenue:             net,
		FulfillmentCosts:       costs,
		Profit:                 profit,
		ProfitMarginPercentage: CalculateProfitMarginPercentage(profit, gross),
	}
}

// countsTowardStats отбирает заказы для агрегатов: без возвратов и с положительной суммой.
func countsTowardStats(order model.Order) bool {
	return order.Status != model.OrderStatusRefunded &&
		order.AmountAUD.Valid && order.AmountAUD.Decimal.IsPositive()
}

// MonthlyFinancialStats агрегирует раскладки заказов.
//
// Заказы со статусом refunded исключаются полностью, а не учитываются по
// скорректированным суммам. Средние значения делятся на число учтённых заказов.
func MonthlyFinancialStats(orders []model.Order) model.MonthlyFinancialStats {
	var (
		count                        int
		gross, fees, net, totalCosts decimal.Decimal
	)

	for _, o := range orders {
		if !countsTowardStats(o) {
			continue
		}
		b := OrderFinancialBreakdown(o)
		gross = gross.Add(b.GrossRevenue)
		fees = fees.Add(b.EtsyFeeAmount)
		net = net.Add(b.NetRevenue)
		totalCosts = totalCosts.Add(b.FulfillmentCosts)
		count++
	}

	if count == 0 {
		return model.MonthlyFinancialStats{}
	}

	profit := CalculateProfit(net, totalCosts)
	n := decimal.NewFromInt(int64(count))

	return model.MonthlyFinancialStats{
		TotalOrders:            count,
		GrossRevenue:           gross,
		TotalEtsyFees:          fees,
		NetRevenue:             net,
		TotalCosts:             totalCosts,
		TotalProfit:            profit,
		AverageCostPerOrder:    totalCosts.Div(n),
		AverageProfitPerOrder:  profit.Div(n),
		ProfitMarginPercentage: CalculateProfitMarginPercentage(profit, gross),
	}
}

// OrderFinancialFields дополняет новый заказ процентом комиссии, комиссией и
// чистой выручкой. Заказы без положительной суммы возвращаются без изменений.
func OrderFinancialFields(order model.Order) model.Order {
	if !order.AmountAUD.Valid || !order.AmountAUD.Decimal.IsPositive() {
		return order
	}

	feePercentage := storedOr(order.EtsyFeePercentage, DefaultEtsyFeePercentage)
	fee := CalculateEtsyFee(order.AmountAUD.Decimal, feePercentage)

	order.EtsyFeePercentage = model.Some(feePercentage)
	order.EtsyFeeAmount = model.Some(fee)
	order.NetRevenue = model.Some(CalculateNetRevenue(order.AmountAUD.Decimal, fee))
	return order
}

// Analytics содержит производные показатели для страницы аналитики прибыли.
type Analytics struct {
	EffectiveEtsyFeePercentage decimal.Decimal          `json:"effectiveEtsyFeePercentage"`
	CostEfficiencyRatio        decimal.Decimal          `json:"costEfficiencyRatio"`
	AverageRevenuePerOrder     decimal.Decimal          `json:"averageRevenuePerOrder"`
	AverageEtsyFeePerOrder     decimal.Decimal          `json:"averageEtsyFeePerOrder"`
	Overall                    model.FinancialBreakdown `json:"overall"`
}

// AnalyticsSummary вычисляет показатели аналитики по агрегированной статистике.
func AnalyticsSummary(stats model.MonthlyFinancialStats) Analytics {
	var a Analytics

	if stats.GrossRevenue.IsPositive() {
		a.EffectiveEtsyFeePercentage = stats.TotalEtsyFees.Div(stats.GrossRevenue).Mul(hundred)
	}
	if stats.NetRevenue.IsPositive() {
		a.CostEfficiencyRatio = stats.TotalCosts.Div(stats.NetRevenue).Mul(hundred)
	}
	if stats.TotalOrders > 0 {
		n := decimal.NewFromInt(int64(stats.TotalOrders))
		a.AverageRevenuePerOrder = stats.GrossRevenue.Div(n)
		a.AverageEtsyFeePerOrder = stats.TotalEtsyFees.Div(n)
	}

	a.Overall = model.FinancialBreakdown{
		GrossRevenue:           stats.GrossRevenue,
		EtsyFeePercentage:      DefaultEtsyFeePercentage,
		EtsyFeeAmount:          stats.TotalEtsyFees,
		NetRevenue:             stats.NetRevenue,
		FulfillmentCosts:       stats.TotalCosts,
		Profit:                 stats.TotalProfit,
		ProfitMarginPercentage: stats.ProfitMarginPercentage,
	}
	return a
}
