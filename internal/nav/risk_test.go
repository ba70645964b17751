package nav_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
)

func navSeries(values ...float64) []nav.Point {
	series := make([]nav.Point, len(values))
	for i, v := range values {
		series[i] = nav.Point{Date: day(i), Value: v}
	}
	return series
}

// TestRiskMetrics tests the annualized figures of a NAV series.
//
// WHY: The dashboard header shows these next to the performance figure. They
// must annualize over 252 trading days, use the sample deviation and never
// divide by a zero volatility.
func TestRiskMetrics(t *testing.T) {
	t.Run("annualizes daily returns", func(t *testing.T) {
		// returns +10%, -10%, +10%
		risk := nav.RiskMetrics(navSeries(100, 110, 99, 108.9), nav.TradingDaysPerYear)

		vol := math.Sqrt(0.04/3) * math.Sqrt(252)
		assert.InDelta(t, 8.4, risk.AnnualReturn, 1e-9)
		assert.InDelta(t, vol, risk.Volatility, 1e-9)
		assert.InDelta(t, 8.4/vol, risk.Sharpe, 1e-9)
	})

	t.Run("flat returns have no sharpe", func(t *testing.T) {
		risk := nav.RiskMetrics(navSeries(100, 110, 121, 133.1), nav.TradingDaysPerYear)

		assert.InDelta(t, 25.2, risk.AnnualReturn, 1e-9)
		assert.Equal(t, 0.0, risk.Volatility)
		assert.Equal(t, 0.0, risk.Sharpe)
	})

	t.Run("one return has no volatility", func(t *testing.T) {
		risk := nav.RiskMetrics(navSeries(100, 105), nav.TradingDaysPerYear)

		assert.InDelta(t, 12.6, risk.AnnualReturn, 1e-9)
		assert.Equal(t, 0.0, risk.Volatility)
		assert.Equal(t, 0.0, risk.Sharpe)
	})

	t.Run("short series are zero", func(t *testing.T) {
		assert.Equal(t, nav.Risk{}, nav.RiskMetrics(nil, nav.TradingDaysPerYear))
		assert.Equal(t, nav.Risk{}, nav.RiskMetrics(navSeries(100), nav.TradingDaysPerYear))
	})

	t.Run("frequency scales the figures", func(t *testing.T) {
		series := navSeries(100, 110, 99, 108.9)
		daily := nav.RiskMetrics(series, 1)
		yearly := nav.RiskMetrics(series, 252)

		assert.InDelta(t, daily.AnnualReturn*252, yearly.AnnualReturn, 1e-9)
		assert.InDelta(t, daily.Volatility*math.Sqrt(252), yearly.Volatility, 1e-9)
	})
}
