// Package analysis characterizes a monthly series before order selection.
//
// It reports evidence only: a classical decomposition, ADF and KPSS tests,
// ACF/PACF correlograms with 95% bands and the seasonal strength. Choosing the
// differencing orders d and D is left to the caller.
//
// # Basic Usage
//
//	rep, err := analysis.Analyze(series, analysis.Options{})
//	if err != nil {
//	    return err
//	}
//	if !rep.UnitRootRejected() {
//	    // difference before fitting
//	}
//	if rep.SeasonalPeak() {
//	    // the ACF peaks at the seasonal lag
//	}
//
// Difference applies the chosen differencing and keeps the seeds needed to
// undo it:
//
//	d, err := analysis.Difference(series, true, true, 12)
//	levels, err := d.Undo()
package analysis
