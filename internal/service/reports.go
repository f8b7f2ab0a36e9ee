package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/orderquery"
	"github.com/liamroyal/etsy-software/internal/repository"
)

// ErrUnknownPeriod возвращается для неизвестного периода отчёта.
var ErrUnknownPeriod = errors.New("unknown report period")

// StatsScope задаёт, какие заказы попадают в статистику.
type StatsScope string

const (
	// StatsScopeReceived — заказы, полученные за период.
	StatsScopeReceived StatsScope = "received"
	// StatsScopeFulfilled — заказы, обработанные в текущем календарном месяце,
	// как в списке выполненных заказов.
	StatsScopeFulfilled StatsScope = "fulfilled"
)

// StatsReport содержит статистику за период.
type StatsReport struct {
	Scope  StatsScope                  `json:"scope"`
	Period orderquery.Period           `json:"period"`
	From   time.Time                   `json:"from"`
	Stats  model.MonthlyFinancialStats `json:"stats"`
}

// ValidationReport содержит результаты проверки заказов и агрегатов за период.
type ValidationReport struct {
	Period      orderquery.Period        `json:"period"`
	Consistency finance.ValidationResult `json:"consistency"`
	Stats       finance.StatsValidation  `json:"stats"`
}

// periodOrders возвращает все заказы и начало периода. Пустой период
// считается месячным.
func (s *Service) periodOrders(ctx context.Context, period *orderquery.Period) ([]model.Order, time.Time, error) {
	if *period == "" {
		*period = orderquery.PeriodMonthly
	}
	if !period.Valid() {
		return nil, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, *period)
	}

	orders, err := s.loadOrders(ctx, repository.OrderListQuery{})
	if err != nil {
		return nil, time.Time{}, err
	}

	return orders, orderquery.PeriodStart(*period, s.now()), nil
}

func statsCacheKey(period orderquery.Period) string {
	return "stats:" + string(period)
}

// Stats возвращает финансовую статистику за период. Выданная статистика
// запоминается до сброса кэша заказов и проверяется в Validation.
func (s *Service) Stats(ctx context.Context, period orderquery.Period) (StatsReport, error) {
	orders, from, err := s.periodOrders(ctx, &period)
	if err != nil {
		return StatsReport{}, err
	}

	stats := finance.MonthlyFinancialStats(orderquery.ForPeriod(orders, period, s.now()))
	s.orders.Set(statsCacheKey(period), stats, cache.DefaultExpiration)

	return StatsReport{
		Scope:  StatsScopeReceived,
		Period: period,
		From:   from,
		Stats:  stats,
	}, nil
}

// FulfilledStats возвращает статистику по заказам, обработанным в текущем
// месяце. Заказы отбираются по updatedAt, помеченные и решённые учитываются.
func (s *Service) FulfilledStats(ctx context.Context) (StatsReport, error) {
	orders, err := s.loadOrders(ctx, repository.OrderListQuery{})
	if err != nil {
		return StatsReport{}, err
	}

	now := s.now()
	return StatsReport{
		Scope:  StatsScopeFulfilled,
		Period: orderquery.PeriodMonthly,
		From:   time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
		Stats:  finance.MonthlyFinancialStats(orderquery.FulfilledForMonth(orders, now)),
	}, nil
}

// Analytics возвращает показатели аналитики прибыли за период.
func (s *Service) Analytics(ctx context.Context, period orderquery.Period) (finance.Analytics, error) {
	report, err := s.Stats(ctx, period)
	if err != nil {
		return finance.Analytics{}, err
	}
	return finance.AnalyticsSummary(report.Stats), nil
}

// Validation проверяет согласованность финансовых полей заказов, полученных за
// период, и сверяет с пересчётом статистику, выданную Stats. Если статистика
// за период ещё не выдавалась, сверяется свежий расчёт.
func (s *Service) Validation(ctx context.Context, period orderquery.Period) (ValidationReport, error) {
	orders, from, err := s.periodOrders(ctx, &period)
	if err != nil {
		return ValidationReport{}, err
	}

	received := orderquery.ReceivedBetween(orders, from, time.Time{})
	counted := orderquery.ForPeriod(orders, period, s.now())

	served, ok := s.orders.Get(statsCacheKey(period))
	stats, _ := served.(model.MonthlyFinancialStats)
	if !ok {
		stats = finance.MonthlyFinancialStats(counted)
	}

	return ValidationReport{
		Period:      period,
		Consistency: finance.ValidateFinancialConsistency(received),
		Stats:       finance.ValidateStatCalculations(counted, stats),
	}, nil
}

// Health возвращает отчёт о финансовом состоянии по заказам за период.
func (s *Service) Health(ctx context.Context, period orderquery.Period) (finance.HealthReport, error) {
	orders, from, err := s.periodOrders(ctx, &period)
	if err != nil {
		return finance.HealthReport{}, err
	}
	return finance.FinancialHealthReport(orderquery.ReceivedBetween(orders, from, time.Time{})), nil
}
