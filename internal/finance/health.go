package finance

import (
	"math"

	"github.com/liamroyal/etsy-software/internal/model"
)

// HealthLevel — итоговая оценка финансового состояния.
type HealthLevel string

const (
	HealthExcellent HealthLevel = "excellent"
	HealthGood      HealthLevel = "good"
	HealthWarning   HealthLevel = "warning"
	HealthCritical  HealthLevel = "critical"
)

// HealthMetrics содержит три оценки по шкале 0–100.
type HealthMetrics struct {
	DataCompleteness    float64 `json:"dataCompleteness"`
	CalculationAccuracy float64 `json:"calculationAccuracy"`
	ProfitabilityScore  float64 `json:"profitabilityScore"`
}

// HealthReport — отчёт о финансовом состоянии набора заказов.
type HealthReport struct {
	OverallHealth   HealthLevel      `json:"overallHealth"`
	Validation      ValidationResult `json:"validation"`
	Recommendations []string         `json:"recommendations"`
	Metrics         HealthMetrics    `json:"metrics"`
}

const (
	warningPenalty   = 5
	feeRatioCeiling  = 0.15
	completenessGoal = 80
	accuracyGoal     = 90
	marginGoal       = 10
)

// FinancialHealthReport оценивает полноту данных, точность расчётов и доходность.
func FinancialHealthReport(orders []model.Order) HealthReport {
	validation := ValidateFinancialConsistency(orders)
	recommendations := make([]string, 0)

	complete := 0
	for _, o := range orders {
		if model.Present(o.AmountAUD) && model.Present(o.EtsyFeeAmount) &&
			model.Present(o.NetRevenue) && o.FulfillmentCost.Valid {
			complete++
		}
	}

	var completeness float64
	if len(orders) > 0 {
		completeness = float64(complete) / float64(len(orders)) * 100
	}

	accuracy := math.Max(0, 100-float64(len(validation.Warnings)*warningPenalty))

	stats := MonthlyFinancialStats(orders)
	margin := stats.ProfitMarginPercentage.InexactFloat64()
	profitability := math.Max(0, math.Min(100, (margin+20)*2.5))

	if completeness < completenessGoal {
		recommendations = append(recommendations, "Improve data completeness - ensure all orders have complete financial data")
	}
	if accuracy < accuracyGoal {
		recommendations = append(recommendations, "Review calculation logic - several validation warnings detected")
	}
	if margin < marginGoal {
		recommendations = append(recommendations, "Consider optimizing costs or pricing to improve profit margins")
	}
	if stats.GrossRevenue.IsPositive() &&
		stats.TotalEtsyFees.Div(stats.GrossRevenue).InexactFloat64() > feeRatioCeiling {
		recommendations = append(recommendations, "Monitor Etsy fee percentage - may be higher than expected 11.5%")
	}

	return HealthReport{
		OverallHealth:   healthLevel((completeness + accuracy + profitability) / 3),
		Validation:      validation,
		Recommendations: recommendations,
		Metrics: HealthMetrics{
			DataCompleteness:    completeness,
			CalculationAccuracy: accuracy,
			ProfitabilityScore:  profitability,
		},
	}
}

func healthLevel(score float64) HealthLevel {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 50:
		return HealthWarning
	default:
		return HealthCritical
	}
}
