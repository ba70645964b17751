package nav

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// BaseValue is the NAV of the first row of every series.
const BaseValue = 100.0

// Point is one value of a NAV series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// position is a holding that has entered the walk, together with the table row
// it entered on.
type position struct {
	model.Holding
	entryRow int
}

// State is the running state of the NAV walk after one row.
// A State is never mutated once returned.
type State struct {
	Row            int
	Date           time.Time
	Rebalanced     bool
	ActiveQuantity map[string]float64
	EntryPriceOf   map[string]float64
	Weights        map[string]float64
	Return         float64
	NAV            float64

	active []position
}

func (s State) next() State {
	return State{
		ActiveQuantity: maps.Clone(s.ActiveQuantity),
		EntryPriceOf:   maps.Clone(s.EntryPriceOf),
		Weights:        s.Weights,
		NAV:            s.NAV,
		active:         slices.Clone(s.active),
	}
}

// walker holds the read-only inputs of one NAV reconstruction.
type walker struct {
	prices  PriceTable
	returns map[string][]float64
	entries map[int][]model.Holding
}

func newWalker(prices PriceTable, holdings []model.Holding) (*walker, error) {
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}
	if prices.Empty() {
		return nil, ErrNoPriceData
	}

	entries := make(map[int][]model.Holding)
	for _, h := range holdings {
		if err := validateHolding(h); err != nil {
			return nil, err
		}
		if _, ok := prices.Column(h.Ticker); !ok {
			return nil, fmt.Errorf("%w: %s", ErrTickerMissing, h.Ticker)
		}
		row := prices.IndexOnOrAfter(h.EntryDate)
		if row == prices.Len() {
			// bought after the last known close
			continue
		}
		entries[row] = append(entries[row], h)
	}

	return &walker{
		prices:  prices,
		returns: DailyReturns(prices),
		entries: entries,
	}, nil
}

func validateHolding(h model.Holding) error {
	switch {
	case strings.TrimSpace(h.Ticker) == "":
		return fmt.Errorf("%w: empty ticker", ErrInvalidHolding)
	case !(h.EntryPrice > 0) || math.IsInf(h.EntryPrice, 0):
		return fmt.Errorf("%w: %s entry price must be positive, got %v", ErrInvalidHolding, h.Ticker, h.EntryPrice)
	case !(h.Quantity > 0) || math.IsInf(h.Quantity, 0):
		return fmt.Errorf("%w: %s quantity must be positive, got %v", ErrInvalidHolding, h.Ticker, h.Quantity)
	}
	return nil
}

// step folds one table row into prev and returns the resulting state.
//
// Positions entering on row are added first. If any entered, weights are
// recomputed over every active position: a position is valued at its declared
// entry price on its own entry row and at the market close otherwise, and
// values are summed per ticker. The row's portfolio return is the weighted sum
// of ticker returns using the latest weights. Row 0 seeds NAV with BaseValue;
// its return is never applied.
func (w *walker) step(prev State, row int) (State, error) {
	s := prev.next()
	s.Row = row
	s.Date = w.prices.Dates[row]

	if opened := w.entries[row]; len(opened) > 0 {
		for _, h := range opened {
			s.ActiveQuantity[h.Ticker] += h.Quantity
			s.EntryPriceOf[h.Ticker] = h.EntryPrice
			s.active = append(s.active, position{Holding: h, entryRow: row})
		}
		weights, err := w.rebalance(s.active, row)
		if err != nil {
			return State{}, err
		}
		s.Weights = weights
		s.Rebalanced = true
	}

	for _, ticker := range w.prices.Tickers {
		if weight, ok := s.Weights[ticker]; ok {
			s.Return += weight * w.returns[ticker][row]
		}
	}

	if row == 0 {
		s.NAV = BaseValue
	} else {
		s.NAV = prev.NAV * (1 + s.Return)
	}
	return s, nil
}

// rebalance weights the active positions by value on row. The zero-total
// check is defensive: every position entering on row contributes a positive
// entry value.
func (w *walker) rebalance(active []position, row int) (map[string]float64, error) {
	values := make(map[string]float64)
	var total float64
	for _, p := range active {
		price := w.prices.Closes[p.Ticker][row]
		if p.entryRow == row {
			price = p.EntryPrice
		}
		v := p.Quantity * price
		values[p.Ticker] += v
		total += v
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w on %s", ErrZeroAllocation, w.prices.Dates[row].Format("2006-01-02"))
	}

	weights := make(map[string]float64, len(values))
	for ticker, v := range values {
		weights[ticker] = v / total
	}
	return weights, nil
}

// Walk runs the NAV fold over every row of prices and returns the state after
// each row. holdings must reference only tickers present in prices.
func Walk(prices PriceTable, holdings []model.Holding) ([]State, error) {
	w, err := newWalker(prices, holdings)
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, prices.Len())
	s := State{
		ActiveQuantity: map[string]float64{},
		EntryPriceOf:   map[string]float64{},
		Weights:        map[string]float64{},
	}
	for row := range prices.Dates {
		s, err = w.step(s, row)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}

// ComputeWeightedNav returns the time-weighted NAV series of holdings, one
// point per row of prices, starting at BaseValue.
func ComputeWeightedNav(prices PriceTable, holdings []model.Holding) ([]Point, error) {
	states, err := Walk(prices, holdings)
	if err != nil {
		return nil, err
	}
	series := make([]Point, len(states))
	for i, s := range states {
		series[i] = Point{Date: s.Date, Value: s.NAV}
	}
	return series, nil
}
