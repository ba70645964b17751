package nav

import "fmt"

// RebaseBenchmarks scales every column of prices so that its first row equals
// BaseValue: value / first * 100. The input is left untouched.
func RebaseBenchmarks(prices PriceTable) (PriceTable, error) {
	if prices.Empty() {
		return PriceTable{}, ErrNoPriceData
	}

	out := PriceTable{
		Dates:   prices.Dates,
		Tickers: prices.Tickers,
		Closes:  make(map[string][]float64, len(prices.Tickers)),
	}
	for _, ticker := range prices.Tickers {
		col := prices.Closes[ticker]
		first := col[0]
		if first == 0 {
			return PriceTable{}, fmt.Errorf("%w: %s", ErrZeroBase, ticker)
		}
		rebased := make([]float64, len(col))
		for i, v := range col {
			rebased[i] = v / first * BaseValue
		}
		out.Closes[ticker] = rebased
	}
	return out, nil
}
