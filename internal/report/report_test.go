package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/report"
)

func TestHoldingsWorkbook(t *testing.T) {
	d0 := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, 1)
	w := report.Workbook{
		Portfolio: model.Portfolio{Name: "Growth", Currency: "MAD"},
		Summary: []nav.HoldingSummary{
			{Ticker: "IAM", EntryDate: d0, EntryPrice: 100, Quantity: 10, CurrentPrice: 110, Value: 1100, PnL: 100, Return: 0.1, Weight: 1},
		},
		Totals: nav.Totals{
			Balance: 1100, Cost: 1000, PnL: 100, PnLReturn: 0.1, Performance: 0.1,
			Risk: nav.Risk{AnnualReturn: 0.25, Volatility: 0.2, Sharpe: 1.23456},
		},
		NAV:    []nav.Point{{Date: d0, Value: 100}, {Date: d1, Value: 110}},
		Benchmarks: nav.PriceTable{
			Dates:   []time.Time{d0, d1},
			Tickers: []string{"MASI"},
			Closes:  map[string][]float64{"MASI": {100, 105}},
		},
	}

	b, err := report.HoldingsWorkbook(w)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Holdings", "NAV"}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	get := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis, raw)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Growth (MAD)", get("Holdings", "A1"))
	assert.Equal(t, "Ticker", get("Holdings", "A2"))
	assert.Equal(t, "IAM", get("Holdings", "A3"))
	assert.Equal(t, "1100", get("Holdings", "F3"))
	assert.Equal(t, "Total", get("Holdings", "A4"))
	assert.Equal(t, "Performance", get("Holdings", "A5"))
	assert.Equal(t, "Annual return", get("Holdings", "A6"))
	assert.Equal(t, "0.25", get("Holdings", "B6"))
	assert.Equal(t, "Volatility", get("Holdings", "A7"))
	assert.Equal(t, "Sharpe", get("Holdings", "A8"))
	assert.Equal(t, "1.2346", get("Holdings", "B8"))

	assert.Equal(t, "MASI", get("NAV", "C1"))
	assert.Equal(t, "110", get("NAV", "B3"))
	assert.Equal(t, "105", get("NAV", "C3"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.57", report.FormatMoney(1234.567, "USD"))
	assert.Equal(t, "12.50 XYZ", report.FormatMoney(12.5, "XYZ"))
}

func TestRoundAndPercent(t *testing.T) {
	assert.Equal(t, 2.35, report.Round(2.345, 2))
	assert.Equal(t, 5.34, report.Percent(0.05341))
	assert.Equal(t, -12.5, report.Percent(-0.125))
}
