package nav

import "errors"

// Input errors. All of them are fatal to the computation that raised them.
var (
	// ErrNoHoldings indicates the engine was called with an empty holding set.
	ErrNoHoldings = errors.New("no holdings")

	// ErrNoPriceData indicates the price table has no rows.
	ErrNoPriceData = errors.New("no price data available")

	// ErrInvalidHolding indicates a holding with an empty ticker or a non-positive
	// entry price or quantity.
	ErrInvalidHolding = errors.New("invalid holding")

	// ErrTickerMissing indicates a held ticker has no column in the price table.
	ErrTickerMissing = errors.New("ticker missing from price data")

	// ErrZeroAllocation indicates the total capital of the active positions was
	// zero (or not finite) on a rebalancing date. Holdings that pass validation
	// always add a positive entry value on their entry row, so Walk cannot reach
	// it; the guard in rebalance is defensive.
	ErrZeroAllocation = errors.New("total allocation value is zero")

	// ErrZeroBase indicates a benchmark series whose first value is zero.
	ErrZeroBase = errors.New("benchmark series starts at zero")
)

// IsValidation reports whether err is an input problem the caller can fix,
// as opposed to a missing-data condition.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidHolding) ||
		errors.Is(err, ErrTickerMissing) ||
		errors.Is(err, ErrZeroAllocation) ||
		errors.Is(err, ErrUnknownGoal) ||
		errors.Is(err, ErrZeroBase)
}
