// Package paxarima forecasts monthly airport passenger traffic with seasonal
// ARIMA models.
//
// A run loads a long or wide passenger table, builds one monthly series per
// airport, gathers stationarity evidence, searches the SARIMA order grid by
// AIC and BIC, and forecasts the selected order with confidence intervals and
// residual diagnostics.
//
// # Quick Start
//
//	paxarima run --config paxarima.yaml
//
// Or from Go:
//
//	tbl, _ := traffic.LoadFile("passengers.csv", false, traffic.DefaultLoadOptions())
//	s, _ := tbl.Series("LHR", traffic.Window{}, traffic.Drop)
//	res, _ := search.NewSearcher(search.DefaultBounds()).Search(ctx, s)
//	out, _ := forecast.NewRunner(search.SARIMAFitter{}).Run(ctx, s, res.ByAIC.Order, 12)
//
// # Packages
//
//   - timeseries: monthly series, differencing and integration
//   - stats: ACF/PACF, ADF, KPSS, Ljung-Box, decomposition, information criteria
//   - sarima: the SARIMA estimator and forecaster
//   - traffic: passenger tables, country mappings and travel indicators
//   - analysis: stationarity evidence and reversible differencing
//   - search: concurrent order grid search
//   - forecast: forecasts, diagnostics and holdout accuracy
//   - report: the per-airport pipeline and its artifacts
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package paxarima
