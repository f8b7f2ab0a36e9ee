package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

// DecodeOrderDocument разбирает документ заказа из хранилища.
//
// Числовые поля принимают числа и строки с числом. Значения другого типа не
// прерывают разбор: поле остаётся пустым, а его фактический тип попадает в
// Order.TypeErrors.
func DecodeOrderDocument(id string, data map[string]any) model.Order {
	d := docDecoder{data: data, typeErrors: make(map[string]string)}

	o := model.Order{
		ID:              id,
		OrderNumber:     d.str(model.FieldOrderNumber),
		Store:           d.str(model.FieldStore),
		Type:            model.OrderType(d.str(model.FieldType)),
		Status:          model.OrderStatus(d.str(model.FieldStatus)),
		CustomerName:    d.str(model.FieldCustomerName),
		MessageID:       d.str(model.FieldMessageID),
		ShippingAddress: d.str(model.FieldShippingAddress),

		Amount:           d.num(model.FieldAmount),
		OriginalCurrency: d.str(model.FieldOriginalCurrency),
		AmountAUD:        d.num(model.FieldAmountAUD),

		EtsyFeePercentage: d.num(model.FieldEtsyFeePercentage),
		EtsyFeeAmount:     d.num(model.FieldEtsyFeeAmount),
		NetRevenue:        d.num(model.FieldNetRevenue),
		FulfillmentCost:   d.num(model.FieldFulfillmentCost),
		RefundAmount:      d.num(model.FieldRefundAmount),
		RefundPercentage:  d.num(model.FieldRefundPercentage),

		OriginalAmountAUD:       d.num(model.FieldOriginalAmountAUD),
		OriginalEtsyFeeAmount:   d.num(model.FieldOriginalEtsyFeeAmount),
		OriginalNetRevenue:      d.num(model.FieldOriginalNetRevenue),
		OriginalFulfillmentCost: d.num(model.FieldOriginalFulfillmentCost),

		FulfilledAt:            d.str(model.FieldFulfilledAt),
		IssueDescription:       d.str(model.FieldIssueDescription),
		WasEverFlagged:         d.boolean(model.FieldWasEverFlagged),
		ResolvedDescription:    d.str(model.FieldResolvedDescription),
		RefundReason:           d.str(model.FieldRefundReason),
		CustomerReturningItems: d.boolean(model.FieldCustomerReturningItems),

		ReceivedAt: d.time(model.FieldReceivedAt),
		CreatedAt:  d.time(model.FieldCreatedAt),
		UpdatedAt:  d.time(model.FieldUpdatedAt),
		RefundedAt: d.time(model.FieldRefundedAt),
	}

	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	if o.Type == "" {
		o.Type = model.OrderTypeOrder
	}
	if len(d.typeErrors) > 0 {
		o.TypeErrors = d.typeErrors
	}
	return o
}

type docDecoder struct {
	data       map[string]any
	typeErrors map[string]string
}

func (d docDecoder) str(field string) string {
	switch v := d.data[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (d docDecoder) boolean(field string) bool {
	v, _ := d.data[field].(bool)
	return v
}

func (d docDecoder) num(field string) decimal.NullDecimal {
	v, ok := d.data[field]
	if !ok || v == nil {
		return decimal.NullDecimal{}
	}

	var (
		n   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case float64:
		n = decimal.NewFromFloat(x)
	case float32:
		n = decimal.NewFromFloat32(x)
	case int64:
		n = decimal.NewFromInt(x)
	case int:
		n = decimal.NewFromInt(int64(x))
	case json.Number:
		n, err = decimal.NewFromString(x.String())
	case string:
		n, err = decimal.NewFromString(strings.TrimSpace(x))
	case decimal.Decimal:
		n = x
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		d.typeErrors[field] = typeName(v)
		return decimal.NullDecimal{}
	}
	return model.Some(n)
}

func (d docDecoder) time(field string) time.Time {
	switch v := d.data[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case time.Time:
		return "timestamp"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// OrderDocument возвращает поля нового документа заказа. Пустые необязательные
// поля не записываются.
func OrderDocument(o model.Order) map[string]any {
	doc := map[string]any{
		model.FieldOrderNumber: o.OrderNumber,
		model.FieldType:        string(o.Type),
		model.FieldStatus:      string(o.Status),
	}

	strs := map[string]string{
		model.FieldStore:               o.Store,
		model.FieldCustomerName:        o.CustomerName,
		model.FieldMessageID:           o.MessageID,
		model.FieldShippingAddress:     o.ShippingAddress,
		model.FieldOriginalCurrency:    o.OriginalCurrency,
		model.FieldFulfilledAt:         o.FulfilledAt,
		model.FieldIssueDescription:    o.IssueDescription,
		model.FieldResolvedDescription: o.ResolvedDescription,
		model.FieldRefundReason:        o.RefundReason,
	}
	for k, v := range strs {
		if v != "" {
			doc[k] = v
		}
	}

	nums := map[string]decimal.NullDecimal{
		model.FieldAmount:                  o.Amount,
		model.FieldAmountAUD:               o.AmountAUD,
		model.FieldEtsyFeePercentage:       o.EtsyFeePercentage,
		model.FieldEtsyFeeAmount:           o.EtsyFeeAmount,
		model.FieldNetRevenue:              o.NetRevenue,
		model.FieldFulfillmentCost:         o.FulfillmentCost,
		model.FieldRefundAmount:            o.RefundAmount,
		model.FieldRefundPercentage:        o.RefundPercentage,
		model.FieldOriginalAmountAUD:       o.OriginalAmountAUD,
		model.FieldOriginalEtsyFeeAmount:   o.OriginalEtsyFeeAmount,
		model.FieldOriginalNetRevenue:      o.OriginalNetRevenue,
		model.FieldOriginalFulfillmentCost: o.OriginalFulfillmentCost,
	}
	for k, v := range nums {
		if v.Valid {
			doc[k] = v.Decimal
		}
	}

	times := map[string]time.Time{
		model.FieldReceivedAt: o.ReceivedAt,
		model.FieldCreatedAt:  o.CreatedAt,
		model.FieldUpdatedAt:  o.UpdatedAt,
		model.FieldRefundedAt: o.RefundedAt,
	}
	for k, v := range times {
		if !v.IsZero() {
			doc[k] = v
		}
	}

	if o.WasEverFlagged {
		doc[model.FieldWasEverFlagged] = true
	}
	if o.CustomerReturningItems {
		doc[model.FieldCustomerReturningItems] = true
	}
	return doc
}

// encodeFields приводит значения полей к типам конкретного хранилища.
func encodeFields(fields map[string]any, conv func(any) any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = conv(v)
	}
	return out
}

// firestoreValue хранит суммы как числа с плавающей точкой, как и почтовый парсер.
func firestoreValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}
		return x.Decimal.InexactFloat64()
	default:
		return v
	}
}

// jsonValue сохраняет суммы без потери точности для JSONB.
func jsonValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return json.Number(x.String())
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}
		return json.Number(x.Decimal.String())
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
