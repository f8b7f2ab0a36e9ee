package finance

import "github.com/shopspring/decimal"

// RefundAdjustment содержит скорректированные суммы заказа после возврата.
type RefundAdjustment struct {
	RefundAmount       decimal.Decimal
	AdjustedRevenue    decimal.Decimal
	AdjustedEtsyFee    decimal.Decimal
	AdjustedNetRevenue decimal.Decimal
	AdjustedCost       decimal.Decimal
	AdjustedProfit     decimal.Decimal
}

// RefundAdjustments пересчитывает суммы заказа при возврате refundPercentage процентов.
//
// Если покупатель возвращает товар, выручка, комиссия и себестоимость обнуляются.
// Иначе выручка и комиссия уменьшаются пропорционально, а себестоимость остаётся:
// отправка уже оплачена.
func RefundAdjustments(
	originalAmount, refundPercentage decimal.Decimal,
	customerReturningItems bool,
	originalEtsyFee, originalCost decimal.Decimal,
) RefundAdjustment {
	adj := RefundAdjustment{
		RefundAmount: originalAmount.Mul(refundPercentage).Div(hundred),
	}

	if customerReturningItems {
		return adj
	}

	adj.AdjustedRevenue = originalAmount.Sub(adj.RefundAmount)
	adj.AdjustedEtsyFee = originalEtsyFee.Sub(originalEtsyFee.Mul(refundPercentage).Div(hundred))
	adj.AdjustedNetRevenue = adj.AdjustedRevenue.Sub(adj.AdjustedEtsyFee)
	adj.AdjustedCost = originalCost
	adj.AdjustedProfit = CalculateProfit(adj.AdjustedNetRevenue, adj.AdjustedCost)
	return adj
}
