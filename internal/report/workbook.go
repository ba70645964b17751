// Package report renders portfolio figures for download.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
)

const (
	holdingsSheet = "Holdings"
	navSheet      = "NAV"
)

// Built-in excelize number format IDs.
const (
	numFmtPercent = 10 // 0.00%
	numFmtDate    = 14 // m/d/yy
	numFmtAmount  = 4  // #,##0.00
)

// Workbook is everything rendered into a portfolio export.
type Workbook struct {
	Portfolio  model.Portfolio
	Summary    []nav.HoldingSummary
	Totals     nav.Totals
	NAV        []nav.Point
	Benchmarks nav.PriceTable
}

type styles struct {
	title, header, amount, percent, date int
}

// HoldingsWorkbook renders w as an xlsx file with a holdings sheet and a NAV
// sheet. Benchmark columns are placed next to the NAV on matching dates.
func HoldingsWorkbook(w Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(navSheet); err != nil {
		return nil, err
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	if err := fillHoldings(f, st, w); err != nil {
		return nil, fmt.Errorf("failed to fill holdings sheet: %w", err)
	}
	if err := fillNAV(f, st, w); err != nil {
		return nil, fmt.Errorf("failed to fill NAV sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 13},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	}); err != nil {
		return st, err
	}
	if st.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return st, err
	}
	if st.percent, err = f.NewStyle(&excelize.Style{NumFmt: numFmtPercent}); err != nil {
		return st, err
	}
	if st.date, err = f.NewStyle(&excelize.Style{NumFmt: numFmtDate}); err != nil {
		return st, err
	}
	return st, nil
}

var holdingsHeader = []any{
	"Ticker", "Entry date", "Entry price", "Quantity", "Current price",
	"Value", "P&L", "Return", "Weight",
}

func fillHoldings(f *excelize.File, st styles, w Workbook) error {
	title := fmt.Sprintf("%s (%s)", w.Portfolio.Name, w.Portfolio.Currency)
	if err := f.SetCellStr(holdingsSheet, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(holdingsSheet, "A1", "I1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(holdingsSheet, "A1", "A1", st.title); err != nil {
		return err
	}

	if err := f.SetSheetRow(holdingsSheet, "A2", &holdingsHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(holdingsSheet, "A2", "I2", st.header); err != nil {
		return err
	}

	row := 3
	for _, h := range w.Summary {
		cells := []any{
			h.Ticker, h.EntryDate, h.EntryPrice, h.Quantity, h.CurrentPrice,
			Round(h.Value, 2), Round(h.PnL, 2), h.Return, h.Weight,
		}
		if err := f.SetSheetRow(holdingsSheet, cell("A", row), &cells); err != nil {
			return err
		}
		row++
	}
	last := row - 1

	totals := []any{"Total", nil, nil, nil, nil, Round(w.Totals.Balance, 2), Round(w.Totals.PnL, 2), w.Totals.PnLReturn, nil}
	if err := f.SetSheetRow(holdingsSheet, cell("A", row), &totals); err != nil {
		return err
	}
	if err := f.SetCellStyle(holdingsSheet, cell("A", row), cell("A", row), st.header); err != nil {
		return err
	}

	if len(w.Summary) > 0 {
		if err := f.SetCellStyle(holdingsSheet, "B3", cell("B", last), st.date); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(holdingsSheet, "C3", cell("G", row), st.amount); err != nil {
		return err
	}
	if err := f.SetCellStyle(holdingsSheet, "H3", cell("I", row), st.percent); err != nil {
		return err
	}

	risk := w.Totals.Risk
	figures := [][]any{
		{"Performance", w.Totals.Performance},
		{"Annual return", risk.AnnualReturn},
		{"Volatility", risk.Volatility},
		{"Sharpe", Round(risk.Sharpe, 4)},
	}
	for i, fig := range figures {
		if err := f.SetSheetRow(holdingsSheet, cell("A", row+1+i), &fig); err != nil {
			return err
		}
	}
	// the Sharpe row stays a plain number
	if err := f.SetCellStyle(holdingsSheet, cell("B", row+1), cell("B", row+3), st.percent); err != nil {
		return err
	}

	return f.SetColWidth(holdingsSheet, "A", "I", 14)
}

func fillNAV(f *excelize.File, st styles, w Workbook) error {
	header := []any{"Date", "NAV"}
	for _, t := range w.Benchmarks.Tickers {
		header = append(header, t)
	}
	if err := f.SetSheetRow(navSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(navSheet, "A1", lastCol+"1", st.header); err != nil {
		return err
	}

	benchRow := make(map[time.Time]int, w.Benchmarks.Len())
	for i, d := range w.Benchmarks.Dates {
		benchRow[d] = i
	}

	for i, p := range w.NAV {
		cells := []any{p.Date, Round(p.Value, 4)}
		if j, ok := benchRow[nav.Day(p.Date)]; ok {
			for _, t := range w.Benchmarks.Tickers {
				cells = append(cells, Round(w.Benchmarks.Closes[t][j], 4))
			}
		}
		if err := f.SetSheetRow(navSheet, cell("A", i+2), &cells); err != nil {
			return err
		}
	}
	if len(w.NAV) > 0 {
		if err := f.SetCellStyle(navSheet, "A2", cell("A", len(w.NAV)+1), st.date); err != nil {
			return err
		}
	}
	return f.SetColWidth(navSheet, "A", lastCol, 14)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
