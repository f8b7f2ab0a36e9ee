// Package lifecycle вычисляет изменения заказа при действиях оператора:
// выполнение, возврат, пометка проблемы и её решение.
//
// Функции пакета не обращаются к хранилищу. Каждая возвращает Change: новое
// состояние заказа и набор полей для записи. Применять Change можно только
// после успешной записи.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/finance"
	"github.com/liamroyal/etsy-software/internal/model"
)

var (
	ErrInvalidInput      = errors.New("invalid order action input")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Change — результат действия над заказом.
type Change struct {
	// Order — состояние заказа после записи Fields.
	Order model.Order
	// Fields — поля документа для обновления, ключи из model.Field*.
	Fields map[string]any
}

type FulfillInput struct {
	FulfilledAt     string
	FulfillmentCost decimal.Decimal
}

type RefundInput struct {
	Reason                 string
	Percentage             decimal.Decimal
	CustomerReturningItems bool
}

type FlagInput struct {
	IssueDescription string
}

type ResolveInput struct {
	Confirmed           bool
	ResolvedDescription string
}

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusFulfilled: {model.OrderStatusPending, model.OrderStatusOverdue, model.OrderStatusIssueRaised},
	model.OrderStatusRefunded:  {model.OrderStatusFulfilled},
	model.OrderStatusFlagged:   {model.OrderStatusFulfilled},
	model.OrderStatusResolved:  {model.OrderStatusFlagged},
}

// CanTransition сообщает, допустим ли переход из from в to действием оператора.
// Пустой статус считается pending.
func CanTransition(from, to model.OrderStatus) bool {
	if from == "" {
		from = model.OrderStatusPending
	}
	return slices.Contains(transitions[to], from)
}

func checkTransition(order model.Order, to model.OrderStatus) error {
	if !CanTransition(order.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}
	return nil
}

// Fulfill переводит заказ в fulfilled. Проверка стоимости и даты выполняется
// вызывающей стороной.
func Fulfill(order model.Order, in FulfillInput, now time.Time) (Change, error) {
	if err := checkTransition(order, model.OrderStatusFulfilled); err != nil {
		return Change{}, err
	}

	order.Status = model.OrderStatusFulfilled
	order.FulfilledAt = in.FulfilledAt
	order.FulfillmentCost = model.Some(in.FulfillmentCost)
	order.UpdatedAt = now

	return Change{
		Order: order,
		Fields: map[string]any{
			model.FieldStatus:          string(model.OrderStatusFulfilled),
			model.FieldFulfilledAt:     in.FulfilledAt,
			model.FieldFulfillmentCost: in.FulfillmentCost,
			model.FieldUpdatedAt:       now,
		},
	}, nil
}

// Refund переводит заказ в refunded и корректирует денежные поля.
//
// Исходная комиссия пересчитывается по ставке DefaultEtsyFeePercentage, а не
// по сохранённой etsyFeePercentage заказа. Снимок original* пишется только
// при первом возврате.
func Refund(order model.Order, in RefundInput, now time.Time) (Change, error) {
	if err := checkTransition(order, model.OrderStatusRefunded); err != nil {
		return Change{}, err
	}

	originalAmount := order.AmountAUD.Decimal
	originalCost := order.FulfillmentCost.Decimal
	originalFee := finance.CalculateEtsyFee(originalAmount, finance.DefaultEtsyFeePercentage)
	originalNet := finance.CalculateNetRevenue(originalAmount, originalFee)

	adj := finance.RefundAdjustments(originalAmount, in.Percentage, in.CustomerReturningItems, originalFee, originalCost)

	fields := map[string]any{
		model.FieldStatus:                 string(model.OrderStatusRefunded),
		model.FieldAmountAUD:              adj.AdjustedRevenue,
		model.FieldEtsyFeeAmount:          adj.AdjustedEtsyFee,
		model.FieldNetRevenue:             adj.AdjustedNetRevenue,
		model.FieldFulfillmentCost:        adj.AdjustedCost,
		model.FieldRefundReason:           in.Reason,
		model.FieldRefundPercentage:       in.Percentage,
		model.FieldCustomerReturningItems: in.CustomerReturningItems,
		model.FieldRefundAmount:           adj.RefundAmount,
		model.FieldRefundedAt:             now,
		model.FieldUpdatedAt:              now,
	}

	snapshot := []struct {
		field string
		dst   *decimal.NullDecimal
		value decimal.Decimal
	}{
		{model.FieldOriginalAmountAUD, &order.OriginalAmountAUD, originalAmount},
		{model.FieldOriginalEtsyFeeAmount, &order.OriginalEtsyFeeAmount, originalFee},
		{model.FieldOriginalNetRevenue, &order.OriginalNetRevenue, originalNet},
		{model.FieldOriginalFulfillmentCost, &order.OriginalFulfillmentCost, originalCost},
	}
	for _, s := range snapshot {
		if s.dst.Valid {
			continue
		}
		*s.dst = model.Some(s.value)
		fields[s.field] = s.value
	}

	order.Status = model.OrderStatusRefunded
	order.AmountAUD = model.Some(adj.AdjustedRevenue)
	order.EtsyFeeAmount = model.Some(adj.AdjustedEtsyFee)
	order.NetRevenue = model.Some(adj.AdjustedNetRevenue)
	order.FulfillmentCost = model.Some(adj.AdjustedCost)
	order.RefundReason = in.Reason
	order.RefundPercentage = model.Some(in.Percentage)
	order.CustomerReturningItems = in.CustomerReturningItems
	order.RefundAmount = model.Some(adj.RefundAmount)
	order.RefundedAt = now
	order.UpdatedAt = now

	return Change{Order: order, Fields: fields}, nil
}

// Flag помечает выполненный заказ как проблемный. Денежные поля не меняются.
func Flag(order model.Order, in FlagInput, now time.Time) (Change, error) {
	if err := checkTransition(order, model.OrderStatusFlagged); err != nil {
		return Change{}, err
	}

	order.Status = model.OrderStatusFlagged
	order.IssueDescription = in.IssueDescription
	order.WasEverFlagged = true
	order.UpdatedAt = now

	return Change{
		Order: order,
		Fields: map[string]any{
			model.FieldStatus:           string(model.OrderStatusFlagged),
			model.FieldIssueDescription: in.IssueDescription,
			model.FieldWasEverFlagged:   true,
			model.FieldUpdatedAt:        now,
		},
	}, nil
}

// Resolve закрывает проблему по заказу. issueDescription и wasEverFlagged
// остаются для истории.
func Resolve(order model.Order, in ResolveInput, now time.Time) (Change, error) {
	if !in.Confirmed {
		return Change{}, fmt.Errorf("%w: resolution is not confirmed", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ResolvedDescription) == "" {
		return Change{}, fmt.Errorf("%w: resolved description is required", ErrInvalidInput)
	}
	if err := checkTransition(order, model.OrderStatusResolved); err != nil {
		return Change{}, err
	}

	order.Status = model.OrderStatusResolved
	order.ResolvedDescription = in.ResolvedDescription
	order.UpdatedAt = now

	return Change{
		Order: order,
		Fields: map[string]any{
			model.FieldStatus:              string(model.OrderStatusResolved),
			model.FieldResolvedDescription: in.ResolvedDescription,
			model.FieldUpdatedAt:           now,
		},
	}, nil
}

// SetStatus задаёт статус без проверки перехода. Используется для массового
// изменения статусов администратором.
func SetStatus(order model.Order, status model.OrderStatus, now time.Time) (Change, error) {
	if !status.Valid() {
		return Change{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	order.Status = status
	order.UpdatedAt = now

	return Change{
		Order: order,
		Fields: map[string]any{
			model.FieldStatus:    string(status),
			model.FieldUpdatedAt: now,
		},
	}, nil
}
