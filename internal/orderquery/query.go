// Package orderquery отбирает и упорядочивает заказы для представлений
// бэк-офиса: очередь на выполнение, выполненные за месяц, статистика за период.
package orderquery

import (
	"fmt"
	"slices"
	"time"

	"github.com/liamroyal/etsy-software/internal/model"
)

// DefaultOverdueDays — возраст заказа в днях, после которого ожидающий заказ
// показывается как просроченный.
const DefaultOverdueDays = 3

const day = 24 * time.Hour

// Period — период карточки статистики.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Valid сообщает, является ли период известным значением.
func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

var (
	attentionStatuses = []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusOverdue,
		model.OrderStatusIssueRaised,
	}
	processedStatuses = []model.OrderStatus{
		model.OrderStatusFulfilled,
		model.OrderStatusRefunded,
		model.OrderStatusFlagged,
		model.OrderStatusResolved,
	}
)

// FilterNeedsAttention оставляет заказы, ожидающие действий оператора.
// Обработанные заказы сюда не попадают.
func FilterNeedsAttention(orders []model.Order) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if slices.Contains(attentionStatuses, o.Status) {
			out = append(out, o)
		}
	}
	return out
}

// orderTime возвращает момент получения заказа; отсутствующая дата считается
// самой ранней.
func orderTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0)
	}
	return t
}

func priority(o model.Order) int {
	if o.Status == model.OrderStatusFlagged {
		return 0
	}
	return 1
}

// SortByPriority возвращает копию заказов, где помеченные идут первыми, а
// внутри группы заказы упорядочены от старых к новым. Сортировка стабильная.
func SortByPriority(orders []model.Order) []model.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b model.Order) int {
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa - pb
		}
		return orderTime(a.ReceivedAt).Compare(orderTime(b.ReceivedAt))
	})
	return out
}

// IsProcessed сообщает, что заказ уже обработан оператором и относится к
// списку выполненных.
func IsProcessed(order model.Order) bool {
	return slices.Contains(processedStatuses, order.Status)
}

// FulfilledForMonth оставляет обработанные заказы, изменённые в календарном
// месяце now. Заказы без updatedAt остаются.
func FulfilledForMonth(orders []model.Order, now time.Time) []model.Order {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !IsProcessed(o) {
			continue
		}
		if o.UpdatedAt.IsZero() || (!o.UpdatedAt.Before(start) && o.UpdatedAt.Before(end)) {
			out = append(out, o)
		}
	}
	return out
}

// AgeDays возвращает число полных суток с момента получения заказа.
func AgeDays(order model.Order, now time.Time) int {
	return int(now.Sub(orderTime(order.ReceivedAt)) / day)
}

// IsOverdue сообщает, что ожидающий заказ старше thresholdDays суток.
func IsOverdue(order model.Order, now time.Time, thresholdDays int) bool {
	return order.Status == model.OrderStatusPending && AgeDays(order, now) >= thresholdDays
}

// DisplayStatus возвращает статус для отображения: старые ожидающие заказы
// показываются как overdue. Сохранённый статус не меняется.
func DisplayStatus(order model.Order, now time.Time, thresholdDays int) model.OrderStatus {
	if IsOverdue(order, now, thresholdDays) {
		return model.OrderStatusOverdue
	}
	return order.Status
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysSinceFulfillment возвращает число календарных дней между последним
// изменением заказа и now.
func DaysSinceFulfillment(order model.Order, now time.Time) int {
	updated := orderTime(order.UpdatedAt).In(now.Location())
	a, b := startOfDay(updated), startOfDay(now)

	days := 0
	for a.Before(b) {
		a = a.AddDate(0, 0, 1)
		days++
	}
	return days
}

// DaysAgoText форматирует число дней для списка выполненных заказов.
func DaysAgoText(days int) string {
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// ReceivedBetween оставляет заказы, полученные в [from, to]. Нулевая граница
// не ограничивает выборку.
func ReceivedBetween(orders []model.Order, from, to time.Time) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !from.IsZero() && o.ReceivedAt.Before(from) {
			continue
		}
		if !to.IsZero() && o.ReceivedAt.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// PeriodStart возвращает начало периода: начало суток, начало недели
// (воскресенье) или первое число месяца.
func PeriodStart(period Period, now time.Time) time.Time {
	today := startOfDay(now)
	switch period {
	case PeriodDaily:
		return today
	case PeriodWeekly:
		return today.AddDate(0, 0, -int(now.Weekday()))
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// ForPeriod оставляет заказы, полученные с начала периода. Письма о возврате
// и заказы со статусом refunded не учитываются.
func ForPeriod(orders []model.Order, period Period, now time.Time) []model.Order {
	start := PeriodStart(period, now)

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Type == model.OrderTypeRefund || o.Status == model.OrderStatusRefunded {
			continue
		}
		if !orderTime(o.ReceivedAt).Before(start) {
			out = append(out, o)
		}
	}
	return out
}
