package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata" // Africa/Casablanca on hosts without zoneinfo

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
)

// TestPriceFetchTimeout bounds price reads in test services.
const TestPriceFetchTimeout = 5 * time.Second

func NewTestPortfolioService(t *testing.T, db *sql.DB) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
	)
}

func NewTestPriceService(t *testing.T, db *sql.DB) *service.PriceService {
	t.Helper()

	return service.NewPriceService(
		repository.NewStockRepository(db),
		TestPriceFetchTimeout,
		zaptest.NewLogger(t),
	)
}

// NewTestPerformanceService wires a PerformanceService with benchmarks as the
// default benchmark list.
func NewTestPerformanceService(t *testing.T, db *sql.DB, benchmarks ...string) *service.PerformanceService {
	t.Helper()

	return service.NewPerformanceService(
		NewTestPortfolioService(t, db),
		NewTestPriceService(t, db),
		benchmarks,
		zaptest.NewLogger(t),
	)
}

// NewTestIngestionService wires an IngestionService on the Casablanca time
// zone with a concurrency of 2.
func NewTestIngestionService(t *testing.T, db *sql.DB, yahooClient *MockYahooClient, quotes *MockQuoteSource) *service.IngestionService {
	t.Helper()

	loc, err := time.LoadLocation("Africa/Casablanca")
	if err != nil {
		t.Fatalf("Failed to load time zone: %v", err)
	}

	return service.NewIngestionService(
		repository.NewStockRepository(db),
		yahooClient,
		quotes,
		loc,
		2,
		zaptest.NewLogger(t),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, map[string]bool{"ingestion": true})
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakePortfolioName generates a unique portfolio name for testing.
//
// Example usage:
//
//	name := testutil.MakePortfolioName("MyPortfolio")
//	// Returns: "MyPortfolio ABC123"
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeCompanyName generates a unique company name for testing.
//
// Example usage:
//
//	name := testutil.MakeCompanyName("IAM")
//	// Returns: "IAM Company XYZ789"
func MakeCompanyName(base string) string {
	if base == "" {
		base = "Company"
	}
	return base + " Company " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
