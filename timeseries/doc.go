// Package timeseries provides the monthly Series type and its transformations.
//
// # Creating a Series
//
//	series := timeseries.NewMonthly(start, values)
//	next := series.NextMonths(12) // the 12 months after the last observation
//
// # Differencing
//
//	diff := series.Diff()            // y[t] - y[t-1]
//	sdiff := series.SeasonalDiff(12) // y[t] - y[t-12]
//
// Integrate reverses a difference given the seed values that preceded it:
//
//	restored, _ := timeseries.Integrate(diff.Values, series.Values[:1], 1)
//
// # Months
//
// Dates are month resolution. ParseMonth accepts 2006-01, 2006-01-02 and
// the Eurostat 2006M01 form; FormatMonth renders 2006-01.
package timeseries
