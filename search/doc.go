// Package search selects SARIMA orders by exhaustive grid search.
//
// Every candidate in the grid bounded by Bounds is fitted, scored by AIC and
// BIC, and the minimizing order for each criterion is reported. Candidates
// are fitted concurrently, but the result never depends on scheduling: the
// scores are folded in enumeration order and ties keep the earlier candidate.
//
// # Basic Usage
//
//	s := search.NewSearcher(search.DefaultBounds())
//	res, err := s.Search(ctx, series)
//	if err != nil {
//	    var fce *sarima.FitConvergenceError
//	    if errors.As(err, &fce) {
//	        // no candidate could be fitted
//	    }
//	    return err
//	}
//	fmt.Println(res.ByAIC.Order, res.ByBIC.Order)
//
// A candidate that fails to fit is kept in Result.Failed and never wins.
//
// AIC and BIC only compare when every candidate is scored on the same
// months. NewSearcher conditions each fit on Bounds.Condition, the longest
// differencing plus AR span of the grid, so the likelihood of every
// candidate sums the one-step errors of the same observations.
//
// # Caching
//
// Wrapping the estimator in a CachingFitter lets a forecast of the winning
// order reuse the fit the search already computed:
//
//	fitter := search.SARIMAFitter{Condition: s.Bounds.Condition()}
//	cached, _ := search.NewCachingFitter(fitter, 1024)
//	s.Fitter = cached
package search
