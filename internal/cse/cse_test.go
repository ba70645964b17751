package cse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/cse"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

const marketPage = `<html><body>
<table><thead><tr><th>Indice</th><th>Valeur</th></tr></thead>
<tbody><tr><td>MASI</td><td>18 033,08</td></tr></tbody></table>
<table>
  <thead><tr><th>Instrument</th><th>Dernier cours</th><th>Cours de référence</th><th>Variation</th></tr></thead>
  <tbody>
    <tr><td>ATTIJARIWAFA BANK</td><td>560,00</td><td>555,50</td><td>0,81%</td></tr>
    <tr><td> ITISSALAT  AL-MAGHRIB </td><td>98,00</td><td>97,90</td><td>0,10%</td></tr>
    <tr><td>LABEL VIE</td><td>-</td><td>4&#160;100,00</td><td>0,00%</td></tr>
    <tr><td>SUSPENDED</td><td>-</td><td>-</td><td>-</td></tr>
  </tbody>
</table>
<table>
  <thead><tr><th>Instrument</th><th>Dernier cours</th></tr></thead>
  <tbody><tr><td>AFRIQUIA GAZ</td><td>4 000,00</td></tr></tbody>
</table>
</body></html>`

// TestParseQuotes tests extraction of quotes from the market page.
//
// WHY: The page mixes index and equity tables and uses French number
// formatting; a mis-parse would silently write wrong closes into histories.
func TestParseQuotes(t *testing.T) {
	quotes, err := cse.ParseQuotes(strings.NewReader(marketPage))
	require.NoError(t, err)

	assert.Equal(t, []model.Quote{
		{Company: "ATTIJARIWAFA BANK", Price: 555.5},
		{Company: "ITISSALAT AL-MAGHRIB", Price: 97.9},
		{Company: "LABEL VIE", Price: 4100},
		{Company: "AFRIQUIA GAZ", Price: 4000},
	}, quotes)
}

func TestParseQuotes_NoTable(t *testing.T) {
	_, err := cse.ParseQuotes(strings.NewReader(`<html><body><p>maintenance</p></body></html>`))
	assert.ErrorIs(t, err, cse.ErrNoQuoteTable)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1 234,50", 1234.5, true},
		{"1\u00a0234,50", 1234.5, true},
		{"18033.08", 18033.08, true},
		{"-", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := cse.ParsePrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScraper_FetchQuotes(t *testing.T) {
	t.Run("parses the served page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(marketPage))
		}))
		defer srv.Close()

		quotes, err := cse.NewScraper(srv.URL, time.Second).FetchQuotes(context.Background())
		require.NoError(t, err)
		assert.Len(t, quotes, 4)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := cse.NewScraper(srv.URL, time.Second).FetchQuotes(context.Background())
		assert.ErrorContains(t, err, "503")
	})
}
