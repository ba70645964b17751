package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
)

func ValidateCreateStock(req request.CreateStockRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Ticker) == "" {
		errors["ticker"] = "ticker is required"
	} else if !tickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(req.Ticker))) {
		errors["ticker"] = "ticker contains invalid characters"
	} else if strings.EqualFold(req.Ticker, "date") {
		errors["ticker"] = "ticker cannot be \"date\""
	}

	if strings.TrimSpace(req.Company) == "" {
		errors["company"] = "company is required"
	} else if len(req.Company) > 100 {
		errors["company"] = "company must be 100 characters or less"
	}

	for i, p := range req.Prices {
		field := fmt.Sprintf("prices[%d]", i)
		checkDate(errors, field+".date", p.Date, true)
		if !(p.Close >= 0) {
			errors[field+".close"] = "close cannot be negative"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateImportQuotes(req request.ImportQuotesRequest) error {
	errors := make(map[string]string)

	checkDate(errors, "date", req.Date, true)

	if len(req.Quotes) == 0 {
		errors["quotes"] = "at least one quote is required"
	}
	for i, q := range req.Quotes {
		field := fmt.Sprintf("quotes[%d]", i)
		if strings.TrimSpace(q.Company) == "" {
			errors[field+".company"] = "company is required"
		}
		if !positive(q.Price) {
			errors[field+".price"] = "price must be greater than 0"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateBackfill(req request.BackfillRequest) error {
	errors := make(map[string]string)

	start := checkDate(errors, "startDate", req.StartDate, true)
	end := checkDate(errors, "endDate", req.EndDate, false)
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errors["endDate"] = "endDate must be on or after startDate"
	}

	for i, t := range req.Tickers {
		if !tickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(t))) {
			errors[fmt.Sprintf("tickers[%d]", i)] = "ticker contains invalid characters"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
