package nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// TestRebalance_ZeroAllocation tests the guard against a zero capital base.
//
// WHY: Holdings are validated before the walk so this cannot be reached through
// Walk, but a zero total would otherwise divide into NaN weights.
func TestRebalance_ZeroAllocation(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	w := &walker{prices: PriceTable{
		Dates:   []time.Time{d},
		Tickers: []string{"A"},
		Closes:  map[string][]float64{"A": {0}},
	}}

	t.Run("entry price zero on entry row", func(t *testing.T) {
		active := []position{{Holding: model.Holding{Ticker: "A", EntryPrice: 0, Quantity: 1}, entryRow: 0}}

		_, err := w.rebalance(active, 0)
		require.ErrorIs(t, err, ErrZeroAllocation)
		assert.Contains(t, err.Error(), "2024-01-02")
	})

	t.Run("market close zero after entry", func(t *testing.T) {
		active := []position{{Holding: model.Holding{Ticker: "A", EntryPrice: 5, Quantity: 1}, entryRow: -1}}

		_, err := w.rebalance(active, 0)
		assert.ErrorIs(t, err, ErrZeroAllocation)
	})
}

func TestStateNext_DoesNotAlias(t *testing.T) {
	s := State{
		ActiveQuantity: map[string]float64{"A": 1},
		EntryPriceOf:   map[string]float64{"A": 10},
		Weights:        map[string]float64{"A": 1},
	}

	n := s.next()
	n.ActiveQuantity["A"] = 5
	n.EntryPriceOf["B"] = 3

	assert.Equal(t, 1.0, s.ActiveQuantity["A"])
	assert.NotContains(t, s.EntryPriceOf, "B")
}
