package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// tickerPattern accepts exchange tickers and index names, optionally with a
// market suffix (IAM, MASI, ATW.CS).
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._&-]{0,49}$`)

func ValidateCreatePortfolio(req request.CreatePortfolioRequest) error {
	errors := make(map[string]string)

	// Required field
	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	} else if len(req.Name) > 100 {
		errors["name"] = "name must be 100 characters or less"
	}

	if strings.TrimSpace(req.Currency) == "" {
		errors["currency"] = "currency is required"
	} else if !currencyPattern.MatchString(strings.ToUpper(req.Currency)) {
		errors["currency"] = "currency must be a 3 letter code (MAD, EUR)"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateCreateHolding checks a buy. now bounds the entry date: a buy cannot
// be recorded in the future.
func ValidateCreateHolding(req request.CreateHoldingRequest, now time.Time) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Ticker) == "" {
		errors["ticker"] = "ticker is required"
	} else if !tickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(req.Ticker))) {
		errors["ticker"] = "ticker contains invalid characters"
	}

	entry := checkDate(errors, "entryDate", req.EntryDate, true)
	if !entry.IsZero() && entry.After(now) {
		errors["entryDate"] = "entryDate cannot be in the future"
	}

	if !positive(req.EntryPrice) {
		errors["entryPrice"] = "entryPrice must be greater than 0"
	}
	if !positive(req.Quantity) {
		errors["quantity"] = "quantity must be greater than 0"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateTicker checks a ticker passed as a query parameter.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(ticker))) {
		return &Error{Fields: map[string]string{"ticker": "ticker is required and may only contain letters, digits and . _ & -"}}
	}
	return nil
}

// ValidateOptimizationGoal checks the goal query parameter of an optimization.
// An empty goal is accepted and means max Sharpe.
func ValidateOptimizationGoal(goal string) error {
	switch goal {
	case "", "sharpe", "min_vol":
		return nil
	}
	return &Error{Fields: map[string]string{"goal": "goal must be sharpe or min_vol"}}
}
