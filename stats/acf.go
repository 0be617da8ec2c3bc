// Package stats provides statistical tests and functions for time series analysis.
package stats

import (
	"math"

	"github.com/sartorproj/paxarima/timeseries"
)

// ConfidenceZ is the two-sided 95% normal quantile used for correlogram bands.
const ConfidenceZ = 1.96

// ACF calculates the Autocorrelation Function for the given series.
// Returns ACF values for lags 0 to maxLag, or nil for a constant series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := series.Mean()
	variance := 0.0
	for _, v := range series.Values {
		diff := v - mean
		variance += diff * diff
	}

	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (series.Values[i] - mean) * (series.Values[i-k] - mean)
		}
		acf[k] = sum / variance
	}

	return acf
}

// PACF calculates the Partial Autocorrelation Function using the Durbin-Levinson algorithm.
// Returns PACF values for lags 0 to maxLag; lag 0 is 1 by convention.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1.0

	prev := make([]float64, maxLag+1)
	curr := make([]float64, maxLag+1)
	prev[1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= prev[j] * acf[k-j]
			den -= prev[j] * acf[j]
		}
		if den == 0 {
			break
		}

		curr[k] = num / den
		for j := 1; j < k; j++ {
			curr[j] = prev[j] - curr[k]*prev[k-j]
		}
		pacf[k] = curr[k]
		prev, curr = curr, prev
	}

	return pacf
}

// Correlogram holds ACF or PACF values for lags 1..MaxLag with a 95% band.
type Correlogram struct {
	Lags        []int
	Values      []float64
	Band        float64 // ±1.96/sqrt(n)
	Significant []int   // lags whose |value| exceeds Band
}

// ACFCorrelogram returns ACF values at lags 1..maxLag with confidence band.
func ACFCorrelogram(series *timeseries.Series, maxLag int) *Correlogram {
	return newCorrelogram(ACF(series, maxLag), series.Len())
}

// PACFCorrelogram returns PACF values at lags 1..maxLag with confidence band.
func PACFCorrelogram(series *timeseries.Series, maxLag int) *Correlogram {
	return newCorrelogram(PACF(series, maxLag), series.Len())
}

func newCorrelogram(values []float64, n int) *Correlogram {
	if len(values) < 2 {
		return nil
	}

	band := Band(n)
	c := &Correlogram{
		Lags:   make([]int, len(values)-1),
		Values: values[1:],
		Band:   band,
	}
	for i := range c.Lags {
		c.Lags[i] = i + 1
	}
	c.Significant = SignificantLags(values, band)
	return c
}

// At returns the correlogram value at lag k (k >= 1).
func (c *Correlogram) At(k int) float64 {
	if k < 1 || k > len(c.Values) {
		return math.NaN()
	}
	return c.Values[k-1]
}

// Band returns the 95% significance band ±1.96/sqrt(n).
func Band(n int) float64 {
	if n <= 0 {
		return math.Inf(1)
	}
	return ConfidenceZ / math.Sqrt(float64(n))
}

// SignificantLags returns the lags where ACF/PACF values exceed confidence bounds.
// values is indexed by lag, starting at lag 0, which is skipped.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
