package finance

import "testing"

func TestRefundAdjustments(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		pct       string
		returning bool
		fee       string
		cost      string

		refund, revenue, adjustedFee, net, adjustedCost, profit string
	}{
		{
			name:     "half refund keeps cost",
			original: "100", pct: "50", fee: "11.5", cost: "20",
			refund: "50", revenue: "50", adjustedFee: "5.75", net: "44.25", adjustedCost: "20", profit: "24.25",
		},
		{
			name:     "returning items zeroes everything",
			original: "100", pct: "50", returning: true, fee: "11.5", cost: "20",
			refund: "50", revenue: "0", adjustedFee: "0", net: "0", adjustedCost: "0", profit: "0",
		},
		{
			name:     "full refund without return",
			original: "80", pct: "100", fee: "9.2", cost: "30",
			refund: "80", revenue: "0", adjustedFee: "0", net: "0", adjustedCost: "30", profit: "-30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := RefundAdjustments(d(tt.original), d(tt.pct), tt.returning, d(tt.fee), d(tt.cost))

			assertDecimal(t, tt.refund, adj.RefundAmount, "refund")
			assertDecimal(t, tt.revenue, adj.AdjustedRevenue, "revenue")
			assertDecimal(t, tt.adjustedFee, adj.AdjustedEtsyFee, "fee")
			assertDecimal(t, tt.net, adj.AdjustedNetRevenue, "net")
			assertDecimal(t, tt.adjustedCost, adj.AdjustedCost, "cost")
			assertDecimal(t, tt.profit, adj.AdjustedProfit, "profit")
		})
	}
}
