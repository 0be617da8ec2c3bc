// Package stats provides statistical tests and analysis functions for monthly
// passenger series.
//
// # Stationarity Tests
//
//	// Augmented Dickey-Fuller test with a constant
//	// H0: Series has unit root (non-stationary)
//	adf := stats.ADF(series, 0)
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, stationary=%v\n",
//	    adf.Statistic, adf.PValue, adf.IsStationary)
//
//	// KPSS test
//	// H0: Series is stationary
//	kpss := stats.KPSS(series, "c", 0)
//
// ADF p-values come from the MacKinnon (1994) response surface. Both tests
// report evidence only; choosing differencing orders is left to the caller.
//
// # Autocorrelation Functions
//
//	acf := stats.ACFCorrelogram(series, 36)
//	for _, lag := range acf.Significant {
//	    fmt.Printf("lag %d: %.3f (band ±%.3f)\n", lag, acf.At(lag), acf.Band)
//	}
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 24, p+q+P+Q)
//	if lb.WhiteNoise() {
//	    // Residuals are white noise (good)
//	}
//
// # Time Series Decomposition
//
//	decomp := stats.Decompose(series, 12)
//	// decomp.Trend, decomp.Seasonal, decomp.Residual
//	fs := decomp.SeasonalStrength()
package stats
