package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not
	// exist or is not owned by the requesting user.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrHoldingNotFound indicates that a holding with the given ID does not exist.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrStockNotFound indicates that no stock is stored under the given ticker or company.
	ErrStockNotFound = errors.New("stock not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Validation errors for required fields
	ErrMissingUserID = errors.New("X-User-ID header is required")
	ErrInvalidDate   = errors.New("invalid date")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Portfolio operation errors
	ErrFailedToRetrievePortfolios = errors.New("failed to retrieve portfolios")
	ErrFailedToRetrieveHoldings   = errors.New("failed to retrieve holdings")
	ErrFailedToGetPerformance     = errors.New("failed to get portfolio performance")
	ErrFailedToExportSummary      = errors.New("failed to export holdings summary")
	ErrFailedToOptimize           = errors.New("failed to optimize portfolio")

	// Price operation errors
	ErrFailedToRetrieveStocks = errors.New("failed to retrieve stocks")
	ErrPriceFetchFailed       = errors.New("price data could not be loaded")
	ErrFailedToImportQuotes   = errors.New("failed to import quotes")
	ErrFailedToScrapeMarket   = errors.New("failed to scrape market quotes")
	ErrFailedToBackfill       = errors.New("failed to backfill stock prices")

	// System operation errors
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrMalformedPriceBlob indicates a stored price history that cannot be decoded.
	ErrMalformedPriceBlob = errors.New("malformed price blob")
)
