package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Percent converts a fraction to a percentage rounded to two decimals
// (0.05341 becomes 5.34).
func Percent(fraction float64) float64 {
	f, _ := decimal.NewFromFloat(fraction).Shift(2).Round(2).Float64()
	return f
}

// FormatMoney renders amount in currency using the currency's minor unit and
// symbol. Codes unknown to go-money are rendered with two decimals followed by
// the code.
func FormatMoney(amount float64, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return decimal.NewFromFloat(amount).StringFixed(2) + " " + currency
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}
