package finance

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount форматирует сумму с двумя знаками после запятой и разделителями
// разрядов, например "$1,234.50" для AUD или "USD 12.00".
func FormatAmount(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "AUD"
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	return sign + currencySymbol(currency) + amountPrinter.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

// FormatPercentage форматирует процент с заданным числом знаков после запятой.
func FormatPercentage(percentage decimal.Decimal, decimals int32) string {
	return percentage.StringFixed(decimals) + "%"
}

func currencySymbol(code string) string {
	switch code {
	case "AUD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return code + " "
	}
}
