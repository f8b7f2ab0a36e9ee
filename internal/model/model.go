// Package model содержит доменные сущности бэк-офиса магазина на Etsy.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа в жизненном цикле выполнения.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusOverdue     OrderStatus = "overdue"
	OrderStatusFulfilled   OrderStatus = "fulfilled"
	OrderStatusRefunded    OrderStatus = "refunded"
	OrderStatusIssueRaised OrderStatus = "issue_raised"
	OrderStatusFlagged     OrderStatus = "flagged"
	OrderStatusResolved    OrderStatus = "resolved"
)

// Valid сообщает, является ли статус одним из известных значений.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusOverdue, OrderStatusFulfilled, OrderStatusRefunded,
		OrderStatusIssueRaised, OrderStatusFlagged, OrderStatusResolved:
		return true
	}
	return false
}

// Label возвращает название статуса для отображения.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusOverdue:
		return "Overdue"
	case OrderStatusFulfilled:
		return "Fulfilled"
	case OrderStatusRefunded:
		return "Refunded"
	case OrderStatusIssueRaised:
		return "Issue Raised"
	case OrderStatusFlagged:
		return "Flagged"
	case OrderStatusResolved:
		return "Resolved"
	}
	return "Unknown"
}

// OrderType различает обычные заказы и письма о возврате.
type OrderType string

const (
	OrderTypeOrder  OrderType = "ORDER"
	OrderTypeRefund OrderType = "REFUND"
)

// Имена полей документа заказа в хранилище.
const (
	FieldOrderNumber             = "orderNumber"
	FieldStore                   = "store"
	FieldType                    = "type"
	FieldStatus                  = "status"
	FieldAmount                  = "amount"
	FieldOriginalCurrency        = "originalCurrency"
	FieldAmountAUD               = "amountAUD"
	FieldCustomerName            = "customerName"
	FieldMessageID               = "messageId"
	FieldShippingAddress         = "shippingAddress"
	FieldEtsyFeePercentage       = "etsyFeePercentage"
	FieldEtsyFeeAmount           = "etsyFeeAmount"
	FieldNetRevenue              = "netRevenue"
	FieldFulfillmentCost         = "fulfillmentCost"
	FieldFulfilledAt             = "fulfilledAt"
	FieldRefundReason            = "refundReason"
	FieldRefundAmount            = "refundAmount"
	FieldRefundPercentage        = "refundPercentage"
	FieldCustomerReturningItems  = "customerReturningItems"
	FieldIssueDescription        = "issueDescription"
	FieldWasEverFlagged          = "wasEverFlagged"
	FieldResolvedDescription     = "resolvedDescription"
	FieldOriginalAmountAUD       = "originalAmountAUD"
	FieldOriginalEtsyFeeAmount   = "originalEtsyFeeAmount"
	FieldOriginalNetRevenue      = "originalNetRevenue"
	FieldOriginalFulfillmentCost = "originalFulfillmentCost"
	FieldReceivedAt              = "receivedAt"
	FieldCreatedAt               = "createdAt"
	FieldUpdatedAt               = "updatedAt"
	FieldRefundedAt              = "refundedAt"
)

// Order описывает заказ, полученный из почтового парсера, вместе с финансовыми
// полями и историей обработки.
//
// Необязательные денежные поля хранятся как decimal.NullDecimal: Valid=false
// означает, что поле в документе отсутствует.
type Order struct {
	ID              string
	OrderNumber     string
	Store           string
	Type            OrderType
	Status          OrderStatus
	CustomerName    string
	MessageID       string
	ShippingAddress string

	Amount           decimal.NullDecimal
	OriginalCurrency string
	AmountAUD        decimal.NullDecimal

	EtsyFeePercentage decimal.NullDecimal
	EtsyFeeAmount     decimal.NullDecimal
	NetRevenue        decimal.NullDecimal
	FulfillmentCost   decimal.NullDecimal
	RefundAmount      decimal.NullDecimal
	RefundPercentage  decimal.NullDecimal

	// Снимок денежных полей до возврата. Заполняется один раз.
	OriginalAmountAUD       decimal.NullDecimal
	OriginalEtsyFeeAmount   decimal.NullDecimal
	OriginalNetRevenue      decimal.NullDecimal
	OriginalFulfillmentCost decimal.NullDecimal

	FulfilledAt            string
	IssueDescription       string
	WasEverFlagged         bool
	ResolvedDescription    string
	RefundReason           string
	CustomerReturningItems bool

	ReceivedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RefundedAt time.Time

	// TypeErrors содержит поля документа, значения которых имели неверный тип:
	// имя поля -> фактический тип. Заполняется при разборе документа.
	TypeErrors map[string]string
}

// Present сообщает, задано ли значение и отлично ли оно от нуля.
func Present(v decimal.NullDecimal) bool {
	return v.Valid && !v.Decimal.IsZero()
}

// Some оборачивает значение в заданный decimal.NullDecimal.
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// FinancialBreakdown содержит финансовую раскладку по одному заказу или набору заказов.
type FinancialBreakdown struct {
	GrossRevenue           decimal.Decimal `json:"grossRevenue"`
	EtsyFeePercentage      decimal.Decimal `json:"etsyFeePercentage"`
	EtsyFeeAmount          decimal.Decimal `json:"etsyFeeAmount"`
	NetRevenue             decimal.Decimal `json:"netRevenue"`
	FulfillmentCosts       decimal.Decimal `json:"fulfillmentCosts"`
	Profit                 decimal.Decimal `json:"profit"`
	ProfitMarginPercentage decimal.Decimal `json:"profitMarginPercentage"`
}

// MonthlyFinancialStats содержит агрегированную статистику за период.
type MonthlyFinancialStats struct {
	TotalOrders            int             `json:"totalOrders"`
	GrossRevenue           decimal.Decimal `json:"grossRevenue"`
	TotalEtsyFees          decimal.Decimal `json:"totalEtsyFees"`
	NetRevenue             decimal.Decimal `json:"netRevenue"`
	TotalCosts             decimal.Decimal `json:"totalCosts"`
	TotalProfit            decimal.Decimal `json:"totalProfit"`
	AverageCostPerOrder    decimal.Decimal `json:"averageCostPerOrder"`
	AverageProfitPerOrder  decimal.Decimal `json:"averageProfitPerOrder"`
	ProfitMarginPercentage decimal.Decimal `json:"profitMarginPercentage"`
}
