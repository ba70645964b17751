package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
)

// pandasVersion is written into the schema of every encoded blob.
const pandasVersion = "1.4.0"

const blobDateLayout = "2006-01-02T15:04:05.000"

// priceBlob is the pandas DataFrame.to_json(orient="table") layout: a table
// schema followed by one object per row keyed by column name.
type priceBlob struct {
	Schema blobSchema                  `json:"schema"`
	Data   []map[string]json.RawMessage `json:"data"`
}

type blobSchema struct {
	Fields        []blobField `json:"fields"`
	PrimaryKey    []string    `json:"primaryKey"`
	PandasVersion string      `json:"pandas_version,omitempty"`
}

type blobField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

var blobDateLayouts = []string{
	blobDateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodePriceBlob parses a stored price blob into the history of ticker.
//
// The index column is the schema's primary key ("date" when none is declared).
// The value column is the one named after ticker, or the only non-index column
// when the blob was written under another name. Rows with a null close are
// dropped. Points are returned in the order they appear in the blob.
func DecodePriceBlob(ticker string, blob []byte) (nav.Series, error) {
	var b priceBlob
	dec := json.NewDecoder(bytes.NewReader(blob))
	if err := dec.Decode(&b); err != nil {
		return nav.Series{}, fmt.Errorf("%w for %s: %w", apperrors.ErrMalformedPriceBlob, ticker, err)
	}

	index := "date"
	if len(b.Schema.PrimaryKey) > 0 {
		index = b.Schema.PrimaryKey[0]
	}
	column, err := valueColumn(b.Schema.Fields, index, ticker)
	if err != nil {
		return nav.Series{}, err
	}

	series := nav.Series{Ticker: ticker, Points: make([]nav.PricePoint, 0, len(b.Data))}
	for i, row := range b.Data {
		rawDate, ok := row[index]
		if !ok {
			return nav.Series{}, fmt.Errorf("%w for %s: row %d has no %q", apperrors.ErrMalformedPriceBlob, ticker, i, index)
		}
		date, err := parseBlobDate(rawDate)
		if err != nil {
			return nav.Series{}, fmt.Errorf("%w for %s: row %d: %w", apperrors.ErrMalformedPriceBlob, ticker, i, err)
		}

		rawClose, ok := row[column]
		if !ok || string(rawClose) == "null" {
			continue
		}
		var price float64
		if err := json.Unmarshal(rawClose, &price); err != nil {
			return nav.Series{}, fmt.Errorf("%w for %s: row %d close: %w", apperrors.ErrMalformedPriceBlob, ticker, i, err)
		}
		series.Points = append(series.Points, nav.PricePoint{Date: date, Close: price})
	}
	return series, nil
}

func valueColumn(fields []blobField, index, ticker string) (string, error) {
	var others []string
	for _, f := range fields {
		if f.Name == index {
			continue
		}
		if f.Name == ticker {
			return f.Name, nil
		}
		others = append(others, f.Name)
	}
	if len(others) != 1 {
		return "", fmt.Errorf("%w for %s: expected one value column, found [%s]",
			apperrors.ErrMalformedPriceBlob, ticker, strings.Join(others, ", "))
	}
	return others[0], nil
}

func parseBlobDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// epoch milliseconds, pandas' default date_format outside the table orient
		var ms int64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, fmt.Errorf("unrecognised date %s", raw)
		}
		return nav.Day(time.UnixMilli(ms)), nil
	}
	for _, layout := range blobDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return nav.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// EncodePriceBlob writes series in the table orient, sorted by date with one row
// per day. Non-finite closes are written as null.
func EncodePriceBlob(series nav.Series) ([]byte, error) {
	if series.Ticker == "" || series.Ticker == "date" {
		return nil, fmt.Errorf("invalid column name %q", series.Ticker)
	}
	points := sortedUnique(series.Points)

	b := priceBlob{
		Schema: blobSchema{
			Fields: []blobField{
				{Name: "date", Type: "datetime"},
				{Name: series.Ticker, Type: "number"},
			},
			PrimaryKey:    []string{"date"},
			PandasVersion: pandasVersion,
		},
		Data: make([]map[string]json.RawMessage, len(points)),
	}
	for i, p := range points {
		date, err := json.Marshal(p.Date.Format(blobDateLayout))
		if err != nil {
			return nil, err
		}
		value := json.RawMessage("null")
		if !math.IsNaN(p.Close) && !math.IsInf(p.Close, 0) {
			if value, err = json.Marshal(p.Close); err != nil {
				return nil, err
			}
		}
		b.Data[i] = map[string]json.RawMessage{"date": date, series.Ticker: value}
	}
	return json.Marshal(b)
}

// MergePoints adds points to series, replacing any existing close on the same
// day. It returns the merged series sorted by date and the number of days that
// were not present before.
func MergePoints(series nav.Series, points ...nav.PricePoint) (nav.Series, int) {
	known := make(map[time.Time]struct{}, len(series.Points))
	for _, p := range series.Points {
		known[nav.Day(p.Date)] = struct{}{}
	}
	added := 0
	for _, p := range points {
		if _, ok := known[nav.Day(p.Date)]; !ok {
			known[nav.Day(p.Date)] = struct{}{}
			added++
		}
	}

	all := make([]nav.PricePoint, 0, len(series.Points)+len(points))
	all = append(all, series.Points...)
	all = append(all, points...)
	return nav.Series{Ticker: series.Ticker, Points: sortedUnique(all)}, added
}

// sortedUnique normalizes dates to days, keeps the last point seen for each
// day and sorts ascending.
func sortedUnique(points []nav.PricePoint) []nav.PricePoint {
	byDay := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDay[nav.Day(p.Date)] = p.Close
	}
	out := make([]nav.PricePoint, 0, len(byDay))
	for d, c := range byDay {
		out = append(out, nav.PricePoint{Date: d, Close: c})
	}
	slices.SortFunc(out, func(a, b nav.PricePoint) int { return a.Date.Compare(b.Date) })
	return out
}
