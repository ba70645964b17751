package service_test

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/testutil"
)

// TestPerformanceService_GetPerformance tests the full dashboard pass.
//
// WHY: This is the path every dashboard view takes: holdings, stored prices,
// the NAV walk, the summary and the benchmarks. The figures must match a hand
// computed walk and a missing input must map to the right outcome.
func TestPerformanceService_GetPerformance(t *testing.T) {
	ctx := context.Background()

	t.Run("later entry and benchmark", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db, "MASI")

		testutil.NewStock("A").WithCloses(monday, 10, 11, 12, 12).Build(t, db)
		testutil.NewStock("B").WithCloses(monday.AddDate(0, 0, 2), 20, 22).Build(t, db)
		testutil.NewStock("MASI").WithCloses(monday, 18000, 18900, 17100, 18000).Build(t, db)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).WithQuantity(1).Build(t, db)
		testutil.NewHolding(p.ID, "B").WithEntry(monday.AddDate(0, 0, 2), 20).WithQuantity(1).Build(t, db)

		perf, err := svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		require.NoError(t, err)

		require.Equal(t, service.PerformanceOK, perf.Status)
		assert.True(t, perf.StartDate.Equal(monday))
		require.Len(t, perf.NAV, 4)
		assert.Equal(t, nav.BaseValue, perf.NAV[0].Value)
		assert.InDelta(t, 110, perf.NAV[1].Value, 1e-9)
		assert.InDelta(t, 120.859375, perf.NAV[3].Value, 1e-9)

		require.Len(t, perf.Summary, 2)
		assert.Equal(t, 12.0, perf.Summary[0].CurrentPrice)
		assert.Equal(t, 22.0, perf.Summary[1].CurrentPrice)
		assert.InDelta(t, 34, perf.Totals.Balance, 1e-9)
		assert.InDelta(t, 30, perf.Totals.Cost, 1e-9)
		assert.InDelta(t, 4, perf.Totals.PnL, 1e-9)
		assert.InDelta(t, 0.20859375, perf.Totals.Performance, 1e-9)
		assert.Equal(t, p.Currency, perf.Totals.Currency)
		assert.Equal(t, nav.RiskMetrics(perf.NAV, nav.TradingDaysPerYear), perf.Totals.Risk)
		assert.Greater(t, perf.Totals.Risk.Volatility, 0.0)

		assert.InDeltaSlice(t, []float64{100, 105, 95, 100}, perf.Benchmarks.Closes["MASI"], 1e-9)
		assert.Empty(t, perf.Skipped)
	})

	t.Run("requested benchmark overrides the default", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db, "MASI")

		testutil.NewStock("A").WithCloses(monday, 10, 11).Build(t, db)
		testutil.NewStock("MSI20").WithCloses(monday, 1000, 1010).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).Build(t, db)

		perf, err := svc.GetPerformance(ctx, p.UserID, p.ID, []string{"msi20"})
		require.NoError(t, err)

		assert.Equal(t, []string{"MSI20"}, perf.Benchmarks.Tickers)
		assert.InDeltaSlice(t, []float64{100, 101}, perf.Benchmarks.Closes["MSI20"], 1e-9)
	})

	t.Run("missing benchmark is reported, not fatal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db, "MASI")

		testutil.NewStock("A").WithCloses(monday, 10, 11).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).Build(t, db)

		perf, err := svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		require.NoError(t, err)

		assert.Equal(t, service.PerformanceOK, perf.Status)
		assert.True(t, perf.Benchmarks.Empty())
		require.Len(t, perf.Skipped, 1)
		assert.Equal(t, "MASI", perf.Skipped[0].Ticker)
	})

	t.Run("no holdings is no data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := testutil.NewPortfolio().Build(t, db)

		perf, err := svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		require.NoError(t, err)

		assert.Equal(t, service.PerformanceNoData, perf.Status)
		assert.Nil(t, perf.NAV)
		assert.Equal(t, p.ID, perf.Portfolio.ID)
	})

	t.Run("prices ending before the first entry is no data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)

		testutil.NewStock("A").WithCloses(monday, 10, 11).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday.AddDate(0, 0, 30), 10).Build(t, db)

		perf, err := svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, service.PerformanceNoData, perf.Status)
	})

	t.Run("holding with no stored prices is a validation error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)

		testutil.NewStock("A").WithCloses(monday, 10, 11).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).Build(t, db)
		testutil.NewHolding(p.ID, "GHOST").WithEntry(monday, 10).Build(t, db)

		_, err := svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		assert.ErrorIs(t, err, nav.ErrTickerMissing)
		assert.True(t, nav.IsValidation(err))
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)

		_, err := svc.GetPerformance(ctx, testutil.MakeID(), testutil.MakeID(), nil)
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})

	t.Run("unreadable price store", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).Build(t, db)

		_, err := db.Exec(`DROP TABLE stock`)
		require.NoError(t, err)

		_, err = svc.GetPerformance(ctx, p.UserID, p.ID, nil)
		assert.ErrorIs(t, err, apperrors.ErrPriceFetchFailed)
	})
}

// TestPerformanceService_Optimize tests the suggested allocation of a portfolio.
//
// WHY: The optimizer only sees the tickers the user holds, over the history
// they have in common. Too little history is an empty answer, not an error.
func TestPerformanceService_Optimize(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, db *sql.DB) model.Portfolio {
		t.Helper()
		// B moves half as much as A, the other way
		testutil.NewStock("A").WithCloses(monday, 100, 110, 99, 108.9, 98.01).Build(t, db)
		testutil.NewStock("B").WithCloses(monday, 100, 95, 99.75, 94.7625, 99.500625).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 100).Build(t, db)
		testutil.NewHolding(p.ID, "B").WithEntry(monday.AddDate(0, 0, 1), 95).Build(t, db)
		return p
	}

	t.Run("minimum volatility", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := seed(t, db)

		opt, err := svc.Optimize(ctx, p.UserID, p.ID, nav.MinVolatility)
		require.NoError(t, err)

		require.Equal(t, service.PerformanceOK, opt.Status)
		assert.True(t, opt.StartDate.Equal(monday))
		assert.Equal(t, 4, opt.Allocation.Days)
		assert.InDelta(t, 1.0/3, opt.Allocation.Weights["A"], 1e-3)
		assert.InDelta(t, 2.0/3, opt.Allocation.Weights["B"], 1e-3)
		assert.Empty(t, opt.Skipped)
	})

	t.Run("one common day is no data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)

		testutil.NewStock("A").WithCloses(monday, 10, 11, 12).Build(t, db)
		testutil.NewStock("B").WithPoint(monday.AddDate(0, 0, 2), 5).Build(t, db)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).Build(t, db)
		testutil.NewHolding(p.ID, "B").WithEntry(monday, 5).Build(t, db)

		opt, err := svc.Optimize(ctx, p.UserID, p.ID, nav.MaxSharpe)
		require.NoError(t, err)
		assert.Equal(t, service.PerformanceNoData, opt.Status)
		assert.Equal(t, nav.MaxSharpe, opt.Goal)
	})

	t.Run("no holdings is no data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := testutil.NewPortfolio().Build(t, db)

		opt, err := svc.Optimize(ctx, p.UserID, p.ID, nav.MaxSharpe)
		require.NoError(t, err)
		assert.Equal(t, service.PerformanceNoData, opt.Status)
		assert.Nil(t, opt.Allocation.Weights)
	})

	t.Run("unknown goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := seed(t, db)

		_, err := svc.Optimize(ctx, p.UserID, p.ID, nav.Goal("yolo"))
		assert.ErrorIs(t, err, nav.ErrUnknownGoal)
	})

	t.Run("another user's portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := seed(t, db)

		_, err := svc.Optimize(ctx, "mallory", p.ID, nav.MaxSharpe)
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})
}

func TestPerformanceService_ExportSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("renders the workbook", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)

		testutil.NewStock("A").WithCloses(monday, 10, 11, 12).Build(t, db)
		p := testutil.NewPortfolio().WithName("Long term / MAD").Build(t, db)
		testutil.NewHolding(p.ID, "A").WithEntry(monday, 10).WithQuantity(3).Build(t, db)

		data, filename, err := svc.ExportSummary(ctx, p.UserID, p.ID)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(filename, "Long_term_MAD_"), filename)
		assert.True(t, strings.HasSuffix(filename, ".xlsx"), filename)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		ticker, err := f.GetCellValue("Holdings", "A3")
		require.NoError(t, err)
		assert.Equal(t, "A", ticker)

		rows, err := f.GetRows("NAV")
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("portfolio without holdings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db)
		p := testutil.NewPortfolio().Build(t, db)

		data, _, err := svc.ExportSummary(ctx, p.UserID, p.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})
}
