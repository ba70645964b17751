package nav

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/optimize"
)

// Goal selects what Optimize searches for.
type Goal string

const (
	// MaxSharpe maximizes the annualized Sharpe ratio.
	MaxSharpe Goal = "sharpe"
	// MinVolatility minimizes the annualized volatility.
	MinVolatility Goal = "min_vol"
)

var (
	// ErrUnknownGoal indicates an optimization goal other than MaxSharpe or MinVolatility.
	ErrUnknownGoal = errors.New("unknown optimization goal")

	// ErrInsufficientHistory indicates fewer than two days on which every
	// ticker has a return.
	ErrInsufficientHistory = errors.New("not enough common price history")

	// ErrOptimizationFailed indicates the optimizer did not produce a result.
	ErrOptimizationFailed = errors.New("optimization failed")
)

// Allocation is a long-only set of weights summing to 1 and the risk figures
// it would have had over the price table.
type Allocation struct {
	Goal    Goal               `json:"goal"`
	Weights map[string]float64 `json:"weights"`
	Risk    Risk               `json:"risk"`
	Days    int                `json:"days"`
}

// Optimize finds the weights over the tickers of prices that best meet goal,
// starting from equal weights.
//
// Only rows after the first one on which every ticker has a positive close
// are used, so zero-filled leading gaps do not count as returns. Weights are
// searched through a softmax so every candidate is long-only and fully
// invested.
func Optimize(prices PriceTable, goal Goal, freq int) (Allocation, error) {
	if goal != MaxSharpe && goal != MinVolatility {
		return Allocation{}, fmt.Errorf("%w: %q", ErrUnknownGoal, goal)
	}
	if prices.Empty() || len(prices.Tickers) == 0 {
		return Allocation{}, ErrNoPriceData
	}
	rows := commonReturns(prices)
	if len(rows) < 2 {
		return Allocation{}, fmt.Errorf("%w: %d days", ErrInsufficientHistory, len(rows))
	}

	n := len(prices.Tickers)
	weights := []float64{1}
	if n > 1 {
		// the last ticker's logit is pinned at 0
		objective := func(x []float64) float64 {
			r := portfolioRisk(rows, softmax(x), freq)
			if goal == MaxSharpe {
				return -r.Sharpe
			}
			return r.Volatility
		}
		result, err := optimize.Minimize(optimize.Problem{Func: objective}, make([]float64, n-1), nil, &optimize.NelderMead{})
		if err != nil {
			return Allocation{}, fmt.Errorf("%w: %w", ErrOptimizationFailed, err)
		}
		weights = softmax(result.X)
	}

	alloc := Allocation{
		Goal:    goal,
		Weights: make(map[string]float64, n),
		Risk:    portfolioRisk(rows, weights, freq),
		Days:    len(rows),
	}
	for i, ticker := range prices.Tickers {
		alloc.Weights[ticker] = weights[i]
	}
	return alloc, nil
}

// commonReturns returns one row of ticker returns, in prices.Tickers order,
// for every row after the first on which all closes are positive.
func commonReturns(prices PriceTable) [][]float64 {
	first := -1
	for row := range prices.Dates {
		ready := true
		for _, ticker := range prices.Tickers {
			if !(prices.Closes[ticker][row] > 0) {
				ready = false
				break
			}
		}
		if ready {
			first = row
			break
		}
	}
	if first < 0 {
		return nil
	}

	returns := DailyReturns(prices)
	rows := make([][]float64, 0, prices.Len()-first-1)
	for row := first + 1; row < prices.Len(); row++ {
		r := make([]float64, len(prices.Tickers))
		for j, ticker := range prices.Tickers {
			r[j] = returns[ticker][row]
		}
		rows = append(rows, r)
	}
	return rows
}

// softmax maps n-1 free logits, plus an implicit last logit of 0, onto n
// non-negative weights summing to 1.
func softmax(x []float64) []float64 {
	logits := append(slices.Clone(x), 0)
	peak := slices.Max(logits)
	w := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		w[i] = math.Exp(v - peak)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
