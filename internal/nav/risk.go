package nav

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily figures.
const TradingDaysPerYear = 252

// flatVolatility is the volatility below which a series is treated as flat.
const flatVolatility = 1e-12

// Risk holds annualized figures of a daily return series. Sharpe is the
// annual return over the volatility with no risk-free rate, and 0 when the
// series is flat.
type Risk struct {
	AnnualReturn float64 `json:"annualReturn"`
	Volatility   float64 `json:"volatility"`
	Sharpe       float64 `json:"sharpe"`
}

// RiskMetrics annualizes the daily returns of a NAV series over freq periods
// per year. Volatility is the sample standard deviation; a series with fewer
// than two returns has none.
func RiskMetrics(series []Point, freq int) Risk {
	if len(series) < 2 {
		return Risk{}
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1].Value != 0 {
			returns = append(returns, series[i].Value/series[i-1].Value-1)
		}
	}
	switch len(returns) {
	case 0:
		return Risk{}
	case 1:
		return Risk{AnnualReturn: returns[0] * float64(freq)}
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return annualize(mean, std, freq)
}

// portfolioRisk annualizes the weighted daily returns of rows, one slice of
// asset returns per day. Volatility is the population standard deviation.
func portfolioRisk(rows [][]float64, weights []float64, freq int) Risk {
	daily := make([]float64, len(rows))
	for i, row := range rows {
		for j, r := range row {
			daily[i] += weights[j] * r
		}
	}
	mean, std := stat.MeanStdDev(daily, nil)
	// rescale the sample deviation to the population one
	n := float64(len(daily))
	return annualize(mean, std*math.Sqrt((n-1)/n), freq)
}

func annualize(mean, std float64, freq int) Risk {
	r := Risk{
		AnnualReturn: mean * float64(freq),
		Volatility:   std * math.Sqrt(float64(freq)),
	}
	if r.Volatility < flatVolatility {
		r.Volatility = 0
	} else {
		r.Sharpe = r.AnnualReturn / r.Volatility
	}
	return r
}
