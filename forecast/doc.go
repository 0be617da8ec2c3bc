// Package forecast fits one SARIMA order and produces interval forecasts
// with residual diagnostics.
//
// The fit goes through a search.Fitter, so a caching fitter shared with the
// order search serves the forecast without refitting.
//
//	r := forecast.NewRunner(search.SARIMAFitter{})
//	out, err := r.Run(ctx, series, order, 12)
//	if err != nil {
//	    return err
//	}
//	for _, p := range out.Points {
//	    fmt.Println(p.Time, p.Value, p.Lower, p.Upper)
//	}
//
// Diagnostics carry the Ljung-Box test of the residuals with one degree of
// freedom removed per estimated coefficient. Evaluate refits on all but a
// holdout tail and scores the forecast of that tail.
package forecast
