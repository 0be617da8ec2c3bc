// Package sarima implements Seasonal ARIMA (SARIMA) models for monthly series.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model includes:
//   - Non-seasonal components: AR(p), I(d), MA(q)
//   - Seasonal components: SAR(P), SI(D), SMA(Q) at seasonal period m
//
// Coefficients are estimated by conditional sum of squares. The search
// and forecast packages treat Fit as an opaque routine and compare models by
// the AIC and BIC it reports.
//
// # Basic Usage
//
//	// Airline model: SARIMA(0,1,1)(0,1,1)[12]
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12)
//
//	if err := model.Fit(series); err != nil {
//	    if errors.Is(err, sarima.ErrNotConverged) {
//	        // try another order
//	    }
//	    return err
//	}
//
//	forecasts, lower, upper, _ := model.PredictWithInterval(12, 0.95)
//
// Orders round-trip through their string form:
//
//	o, _ := sarima.ParseOrder("(1,1,1)(0,1,1)[12]")
//	model := sarima.NewFromOrder(o)
//
// # Prediction Intervals
//
// Interval half-widths are z * sigma * sqrt(sum(psi_j^2)), where psi are the
// MA(inf) weights of the full model including its differencing operators
// (see PsiWeights).
package sarima
