package repository_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
)

var d0 = time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)

const pandasBlob = `{
  "schema": {
    "fields": [{"name": "date", "type": "datetime"}, {"name": "IAM", "type": "number"}],
    "primaryKey": ["date"],
    "pandas_version": "1.4.0"
  },
  "data": [
    {"date": "2024-08-12T00:00:00.000", "IAM": 100.5},
    {"date": "2024-08-13T00:00:00.000", "IAM": null},
    {"date": "2024-08-14T00:00:00.000", "IAM": 102}
  ]
}`

// TestDecodePriceBlob tests reading stored price histories.
//
// WHY: Blobs were written by an earlier pandas based job and by this service.
// Both layouts, with their null closes and index naming, must decode the same.
func TestDecodePriceBlob(t *testing.T) {
	t.Run("pandas table orient", func(t *testing.T) {
		s, err := repository.DecodePriceBlob("IAM", []byte(pandasBlob))
		require.NoError(t, err)

		assert.Equal(t, "IAM", s.Ticker)
		require.Len(t, s.Points, 2)
		assert.True(t, s.Points[0].Date.Equal(d0))
		assert.Equal(t, 100.5, s.Points[0].Close)
		assert.True(t, s.Points[1].Date.Equal(d0.AddDate(0, 0, 2)))
	})

	t.Run("value column under another name", func(t *testing.T) {
		blob := `{"schema":{"fields":[{"name":"Date"},{"name":"close"}],"primaryKey":["Date"]},
			"data":[{"Date":"2024-08-12","close":7}]}`
		s, err := repository.DecodePriceBlob("ATW", []byte(blob))
		require.NoError(t, err)
		require.Len(t, s.Points, 1)
		assert.Equal(t, 7.0, s.Points[0].Close)
	})

	t.Run("epoch millisecond dates", func(t *testing.T) {
		blob := `{"schema":{"fields":[{"name":"date"},{"name":"IAM"}]},
			"data":[{"date":` + jsonInt(d0.UnixMilli()) + `,"IAM":1}]}`
		s, err := repository.DecodePriceBlob("IAM", []byte(blob))
		require.NoError(t, err)
		assert.True(t, s.Points[0].Date.Equal(d0))
	})

	malformed := map[string]string{
		"not json":          `{"schema":`,
		"array":             `[]`,
		"two value columns": `{"schema":{"fields":[{"name":"date"},{"name":"A"},{"name":"B"}]},"data":[]}`,
		"bad date":          `{"schema":{"fields":[{"name":"date"},{"name":"IAM"}]},"data":[{"date":"yesterday","IAM":1}]}`,
		"missing date":      `{"schema":{"fields":[{"name":"date"},{"name":"IAM"}]},"data":[{"IAM":1}]}`,
		"string close":      `{"schema":{"fields":[{"name":"date"},{"name":"IAM"}]},"data":[{"date":"2024-08-12","IAM":"1"}]}`,
	}
	for name, blob := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := repository.DecodePriceBlob("IAM", []byte(blob))
			assert.ErrorIs(t, err, apperrors.ErrMalformedPriceBlob)
		})
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestEncodePriceBlob(t *testing.T) {
	t.Run("sorted, one row per day, pandas schema", func(t *testing.T) {
		blob, err := repository.EncodePriceBlob(nav.Series{Ticker: "IAM", Points: []nav.PricePoint{
			{Date: d0.AddDate(0, 0, 1), Close: 101},
			{Date: d0.Add(15 * time.Hour), Close: 99},
			{Date: d0, Close: 100},
			{Date: d0.AddDate(0, 0, 2), Close: math.NaN()},
		}})
		require.NoError(t, err)

		var raw struct {
			Schema struct {
				Fields        []map[string]string `json:"fields"`
				PrimaryKey    []string            `json:"primaryKey"`
				PandasVersion string              `json:"pandas_version"`
			} `json:"schema"`
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(blob, &raw))

		assert.Equal(t, []string{"date"}, raw.Schema.PrimaryKey)
		assert.Equal(t, "IAM", raw.Schema.Fields[1]["name"])
		assert.NotEmpty(t, raw.Schema.PandasVersion)
		require.Len(t, raw.Data, 3)
		assert.Equal(t, "2024-08-12T00:00:00.000", raw.Data[0]["date"])
		assert.Equal(t, 100.0, raw.Data[0]["IAM"])
		assert.Nil(t, raw.Data[2]["IAM"])

		back, err := repository.DecodePriceBlob("IAM", blob)
		require.NoError(t, err)
		assert.Len(t, back.Points, 2)
	})

	t.Run("rejects the index name as ticker", func(t *testing.T) {
		_, err := repository.EncodePriceBlob(nav.Series{Ticker: "date"})
		assert.Error(t, err)
	})
}

func TestMergePoints(t *testing.T) {
	base := nav.Series{Ticker: "IAM", Points: []nav.PricePoint{
		{Date: d0, Close: 100},
		{Date: d0.AddDate(0, 0, 1), Close: 101},
	}}

	merged, added := repository.MergePoints(base,
		nav.PricePoint{Date: d0.AddDate(0, 0, 1), Close: 111},
		nav.PricePoint{Date: d0.AddDate(0, 0, -1), Close: 99},
	)

	assert.Equal(t, 1, added)
	require.Len(t, merged.Points, 3)
	assert.Equal(t, []float64{99, 100, 111}, []float64{merged.Points[0].Close, merged.Points[1].Close, merged.Points[2].Close})
	assert.Len(t, base.Points, 2, "input is not modified")
}
