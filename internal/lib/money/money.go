// Package money formats amounts the way the order events present them
// (Polish locale, PLN).
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	space    = " "
	currency = "zł"

	// Polish grouping starts at five integer digits: 1234,00 but 12 345,00.
	minGroupingDigits = 5
)

// FormatPLN renders d as "12 345,67 zł" with two decimal places.
func FormatPLN(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteString("-")
	}
	b.WriteString(group(intPart))
	b.WriteString(",")
	b.WriteString(fracPart)
	b.WriteString(space)
	b.WriteString(currency)

	return b.String()
}

func group(digits string) string {
	if len(digits) < minGroupingDigits {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(space)
		}
		b.WriteString(digits[i : i+3])
	}

	return b.String()
}
