// Package cse reads end-of-day quotes from the Casablanca Stock Exchange live
// market page.
package cse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// DefaultMarketURL is the grouped equities page of the live market.
const DefaultMarketURL = "https://www.casablanca-bourse.com/fr/live-market/marche-actions-groupement"

// Column headers looked up on the market page. The reference price is the
// session's official close; the last traded price is used when it is absent.
const (
	instrumentHeader = "Instrument"
	referenceHeader  = "Cours de référence"
	lastPriceHeader  = "Dernier cours"
)

// ErrNoQuoteTable is returned when the page holds no table with an instrument
// and a price column.
var ErrNoQuoteTable = errors.New("no quote table found")

// Scraper fetches and parses the live market page.
type Scraper struct {
	http *resty.Client
	url  string
}

// NewScraper creates a Scraper for marketURL.
func NewScraper(marketURL string, timeout time.Duration) *Scraper {
	if marketURL == "" {
		marketURL = DefaultMarketURL
	}
	return &Scraper{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
			SetHeader("Accept", "text/html"),
		url: marketURL,
	}
}

// FetchQuotes downloads the market page and returns one quote per instrument.
func (s *Scraper) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	resp, err := s.http.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market page: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch market page: %s", resp.Status())
	}
	return ParseQuotes(bytes.NewReader(resp.Body()))
}

// ParseQuotes extracts quotes from every table on the page that has an
// instrument column and a price column. Rows whose price is not a number
// (suspended instruments show "-") are skipped. A company listed twice keeps
// its last quote.
func ParseQuotes(r io.Reader) ([]model.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse market page: %w", err)
	}

	var quotes []model.Quote
	seen := make(map[string]int)
	found := false

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		nameCol, priceCol := columns(table)
		if nameCol < 0 || priceCol < 0 {
			return
		}
		found = true

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= max(nameCol, priceCol) {
				return
			}
			name := cleanText(cells.Eq(nameCol).Text())
			price, ok := ParsePrice(cells.Eq(priceCol).Text())
			if name == "" || !ok {
				return
			}
			if i, dup := seen[name]; dup {
				quotes[i].Price = price
				return
			}
			seen[name] = len(quotes)
			quotes = append(quotes, model.Quote{Company: name, Price: price})
		})
	})

	if !found {
		return nil, ErrNoQuoteTable
	}
	return quotes, nil
}

// columns returns the index of the instrument and price columns of table, or
// -1 for a column that is absent.
func columns(table *goquery.Selection) (int, int) {
	nameCol, refCol, lastCol := -1, -1, -1
	table.Find("thead tr").First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
		switch cleanText(cell.Text()) {
		case instrumentHeader:
			nameCol = i
		case referenceHeader:
			refCol = i
		case lastPriceHeader:
			lastCol = i
		}
	})
	if refCol >= 0 {
		return nameCol, refCol
	}
	return nameCol, lastCol
}

// ParsePrice reads a French-formatted number such as "1 234,50".
func ParsePrice(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t', '\n':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
