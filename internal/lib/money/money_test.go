package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatPLN(t *testing.T) {
	tCases := []struct {
		name  string
		input decimal.Decimal
		want  string
	}{
		{name: "zero", input: decimal.Zero, want: "0,00 zł"},
		{name: "small", input: decimal.NewFromInt(300), want: "300,00 zł"},
		{name: "four_digits_not_grouped", input: decimal.NewFromInt(1234), want: "1234,00 zł"},
		{name: "five_digits", input: decimal.NewFromInt(12345), want: "12 345,00 zł"},
		{name: "six_digits", input: decimal.RequireFromString("123456.5"), want: "123 456,50 zł"},
		{name: "seven_digits", input: decimal.RequireFromString("1234567.891"), want: "1 234 567,89 zł"},
		{name: "negative", input: decimal.NewFromInt(-50), want: "-50,00 zł"},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.Equal(t, tCase.want, FormatPLN(tCase.input))
		})
	}
}
