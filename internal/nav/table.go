// Package nav reconstructs time-weighted net asset value series from buy-and-hold
// holdings and daily closing prices. Every function in this package is a pure
// function of its arguments; nothing is cached between calls.
package nav

import (
	"math"
	"slices"
	"time"
)

// PricePoint is one daily close for a ticker.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Series is the raw, possibly unsorted and gappy price history of one ticker.
type Series struct {
	Ticker string
	Points []PricePoint
}

// PriceTable is a date-indexed, ticker-columned matrix of daily closes.
//
// Dates are strictly increasing and every column in Closes has len(Dates)
// entries. Tables built by Align carry no gaps: missing values are forward
// filled and leading gaps are zero.
type PriceTable struct {
	Dates   []time.Time
	Tickers []string
	Closes  map[string][]float64
}

// Day truncates t to midnight UTC, the granularity used for every date in this package.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Len returns the number of rows.
func (t PriceTable) Len() int {
	return len(t.Dates)
}

// Empty reports whether the table has no rows or no columns.
func (t PriceTable) Empty() bool {
	return len(t.Dates) == 0 || len(t.Tickers) == 0
}

// Column returns the closes of ticker.
func (t PriceTable) Column(ticker string) ([]float64, bool) {
	col, ok := t.Closes[ticker]
	return col, ok
}

// Last returns the final row as ticker -> close.
func (t PriceTable) Last() map[string]float64 {
	row := make(map[string]float64, len(t.Tickers))
	if t.Len() == 0 {
		return row
	}
	last := t.Len() - 1
	for _, ticker := range t.Tickers {
		row[ticker] = t.Closes[ticker][last]
	}
	return row
}

// IndexOnOrAfter returns the first row whose date is on or after d, or Len() if
// every row is earlier.
func (t PriceTable) IndexOnOrAfter(d time.Time) int {
	day := Day(d)
	i, _ := slices.BinarySearchFunc(t.Dates, day, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return i
}

// Select returns a table restricted to the given tickers, keeping the order in
// which they are listed. Unknown tickers are ignored.
func (t PriceTable) Select(tickers ...string) PriceTable {
	out := PriceTable{
		Dates:  t.Dates,
		Closes: make(map[string][]float64, len(tickers)),
	}
	for _, ticker := range tickers {
		col, ok := t.Closes[ticker]
		if !ok {
			continue
		}
		if _, dup := out.Closes[ticker]; dup {
			continue
		}
		out.Tickers = append(out.Tickers, ticker)
		out.Closes[ticker] = col
	}
	return out
}

// Align outer-joins the series on date and returns a gap-free table.
//
// The stages run in a fixed order: join, sort ascending, forward fill, zero
// fill of values that have no earlier observation, then trim to rows on or
// after start. Trimming last means the first kept row inherits the most recent
// close observed before start. A zero start disables trimming. When a ticker
// reports the same date twice the later point wins.
func Align(series []Series, start time.Time) PriceTable {
	observed := make(map[string]map[time.Time]float64)
	var tickers []string
	dateSet := make(map[time.Time]struct{})

	// join
	for _, s := range series {
		byDate, ok := observed[s.Ticker]
		if !ok {
			byDate = make(map[time.Time]float64, len(s.Points))
			observed[s.Ticker] = byDate
			tickers = append(tickers, s.Ticker)
		}
		for _, p := range s.Points {
			d := Day(p.Date)
			byDate[d] = p.Close
			dateSet[d] = struct{}{}
		}
	}
	if len(dateSet) == 0 {
		return PriceTable{}
	}

	// sort
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	slices.Sort(tickers)

	// fill
	closes := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		col := make([]float64, len(dates))
		byDate := observed[ticker]
		last := math.NaN()
		for i, d := range dates {
			if v, ok := byDate[d]; ok && !math.IsNaN(v) {
				last = v
			}
			col[i] = last
		}
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = 0
			}
		}
		closes[ticker] = col
	}

	table := PriceTable{Dates: dates, Tickers: tickers, Closes: closes}
	if start.IsZero() {
		return table
	}
	return table.trim(start)
}

// trim drops the rows before start.
func (t PriceTable) trim(start time.Time) PriceTable {
	from := t.IndexOnOrAfter(start)
	if from == t.Len() {
		return PriceTable{Tickers: t.Tickers, Closes: emptyColumns(t.Tickers)}
	}
	out := PriceTable{
		Dates:   t.Dates[from:],
		Tickers: t.Tickers,
		Closes:  make(map[string][]float64, len(t.Tickers)),
	}
	for _, ticker := range t.Tickers {
		out.Closes[ticker] = t.Closes[ticker][from:]
	}
	return out
}

func emptyColumns(tickers []string) map[string][]float64 {
	m := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		m[ticker] = []float64{}
	}
	return m
}

// DailyReturns computes the simple return of every column:
// close[t]/close[t-1] - 1. The first row is 0, and so is any row whose previous
// close is not positive (a zero-filled leading gap has no meaningful return).
func DailyReturns(t PriceTable) map[string][]float64 {
	returns := make(map[string][]float64, len(t.Tickers))
	for _, ticker := range t.Tickers {
		col := t.Closes[ticker]
		r := make([]float64, len(col))
		for i := 1; i < len(col); i++ {
			if col[i-1] > 0 {
				r[i] = col[i]/col[i-1] - 1
			}
		}
		returns[ticker] = r
	}
	return returns
}
