// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

// ErrValidation возвращается для некорректных входных данных оператора.
var ErrValidation = errors.New("validation failed")

var (
	hundred = decimal.NewFromInt(100)

	strictPolicy = bluemonday.StrictPolicy()
)

// SanitizeText удаляет HTML-разметку и обрезает пробелы по краям.
func SanitizeText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// IsValidOrderNumber проверяет номер заказа Etsy: "#" и далее непустая
// последовательность без пробельных символов.
func IsValidOrderNumber(number string) bool {
	rest, ok := strings.CutPrefix(number, "#")
	if !ok || rest == "" {
		return false
	}
	return strings.IndexFunc(rest, unicode.IsSpace) < 0
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ValidateFulfillment проверяет данные о выполнении заказа.
func ValidateFulfillment(confirmed bool, fulfilledAt string, cost decimal.Decimal) error {
	if !confirmed {
		return invalid("please confirm the order has been fulfilled")
	}
	if strings.TrimSpace(fulfilledAt) == "" {
		return invalid("please specify where it was fulfilled")
	}
	if !cost.IsPositive() {
		return invalid("fulfillment cost must be greater than 0")
	}
	return nil
}

// ValidateRefund проверяет причину и процент возврата (0 < pct <= 100).
func ValidateRefund(reason string, percentage decimal.Decimal) error {
	if strings.TrimSpace(reason) == "" {
		return invalid("refund reason is required")
	}
	if !percentage.IsPositive() || percentage.GreaterThan(hundred) {
		return invalid("refund percentage must be between 1 and 100")
	}
	return nil
}

// ValidateFlag проверяет описание проблемы.
func ValidateFlag(issueDescription string) error {
	if strings.TrimSpace(issueDescription) == "" {
		return invalid("issue description is required")
	}
	return nil
}

// ValidateResolve проверяет подтверждение и описание решения.
func ValidateResolve(confirmed bool, resolvedDescription string) error {
	if !confirmed {
		return invalid("please confirm the issue has been resolved")
	}
	if strings.TrimSpace(resolvedDescription) == "" {
		return invalid("resolution description is required")
	}
	return nil
}

// ValidateProduct проверяет обязательные поля товара.
func ValidateProduct(p model.Product) error {
	required := []struct {
		value, message string
	}{
		{p.Name, "name is required"},
		{p.Store, "store name is required"},
		{p.Currency, "currency is required"},
		{p.FulfillmentLink, "fulfillment link is required"},
		{p.ListingLink, "listing link is required"},
		{p.FulfillmentMethod, "fulfillment method is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid("%s", r.message)
		}
	}
	if !p.Price.IsPositive() {
		return invalid("price must be greater than 0")
	}
	return nil
}

// ValidateNote проверяет заметку: нужен заголовок или текст.
func ValidateNote(n model.Note) error {
	if strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Body) == "" {
		return invalid("note title or body is required")
	}
	return nil
}

// TrackingRowErrors возвращает ошибки строки таблицы трек-номеров.
func TrackingRowErrors(orderNumber, trackingNumber string) []string {
	var errs []string
	switch {
	case orderNumber == "":
		errs = append(errs, "Missing order number")
	case !strings.HasPrefix(orderNumber, "#"):
		errs = append(errs, "Order number must start with #")
	}
	if trackingNumber == "" {
		errs = append(errs, "Missing tracking number")
	}
	return errs
}
