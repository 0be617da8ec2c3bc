package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/paxarima/timeseries"
)

// DecompositionResult represents the decomposition of a time series.
// Trend and Residual are NaN for the period/2 observations at either end.
type DecompositionResult struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
}

// Decompose performs classical additive decomposition (Y = T + S + R) with a
// centered moving average trend.
// Returns nil when the series covers fewer than two periods.
func Decompose(series *timeseries.Series, period int) *DecompositionResult {
	n := series.Len()
	if period < 2 || n < 2*period {
		return nil
	}

	trend := movingAverageTrend(series.Values, period)

	detrended := make([]float64, n)
	for i, v := range series.Values {
		detrended[i] = v - trend[i]
	}

	// Average the detrended values by position in the cycle, then center.
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		if !math.IsNaN(v) {
			pattern[i%period] += v
			counts[i%period]++
		}
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}
	center := stat.Mean(pattern, nil)
	for i := range pattern {
		pattern[i] -= center
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range series.Values {
		seasonal[i] = pattern[i%period]
		residual[i] = v - trend[i] - seasonal[i]
	}

	component := func(name string, values []float64) *timeseries.Series {
		return &timeseries.Series{
			Name:       name,
			Timestamps: series.Timestamps,
			Values:     values,
			Frequency:  series.Frequency,
		}
	}

	return &DecompositionResult{
		Original: series,
		Trend:    component("trend", trend),
		Seasonal: component("seasonal", seasonal),
		Residual: component("residual", residual),
		Period:   period,
	}
}

// movingAverageTrend returns the centered moving average of values.
// Even periods use the 2xperiod average with half weights at the ends.
func movingAverageTrend(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		trend[i] = sum / float64(period)
	}
	return trend
}

// SeasonalStrength returns F_S = max(0, 1 - Var(R) / Var(S+R)) of an
// additive decomposition. Values near 1 indicate strong seasonality.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	decomp := Decompose(series, period)
	if decomp == nil {
		return 0
	}
	return decomp.SeasonalStrength()
}

// SeasonalStrength computes F_S over the observations where the residual is defined.
func (d *DecompositionResult) SeasonalStrength() float64 {
	var resid, seasonalPlusResid []float64
	for i, r := range d.Residual.Values {
		if math.IsNaN(r) {
			continue
		}
		resid = append(resid, r)
		seasonalPlusResid = append(seasonalPlusResid, d.Seasonal.Values[i]+r)
	}
	if len(resid) < 2 {
		return 0
	}

	varSR := stat.Variance(seasonalPlusResid, nil)
	if varSR == 0 {
		return 0
	}
	return math.Max(0, 1-stat.Variance(resid, nil)/varSR)
}
