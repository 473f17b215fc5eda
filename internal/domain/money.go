package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Storefront prices are quoted in Bangladeshi taka without minor units in
// the catalog; derived totals may carry two decimal places.
const CurrencyCode = "BDT"

var moneyPrinter = message.NewPrinter(language.English)

// FormatBDT renders an amount with thousands separators and the currency
// suffix used across the storefront, e.g. "1,299.00 BDT".
func FormatBDT(amount float64) string {
	return moneyPrinter.Sprintf("%.2f %s", amount, CurrencyCode)
}

// FormatBDTWhole renders a whole-unit amount, e.g. catalog prices.
func FormatBDTWhole(amount int64) string {
	return moneyPrinter.Sprintf("%d %s", amount, CurrencyCode)
}
