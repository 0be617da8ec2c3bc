package traffic

import (
	"fmt"
	"time"

	"github.com/sartorproj/paxarima/timeseries"
)

// MinObservations is the shortest series the pipeline accepts: two seasons.
const MinObservations = 2 * timeseries.Monthly

// MissingPolicy decides what happens to months without a defined count.
type MissingPolicy string

const (
	// Drop removes undefined months; the remaining timestamps keep their gaps.
	Drop MissingPolicy = "drop"
	// Interpolate fills interior gaps linearly and drops leading and trailing ones.
	Interpolate MissingPolicy = "interpolate"
	// Zero treats undefined months as zero traffic.
	Zero MissingPolicy = "zero"
)

// ParseMissingPolicy parses a policy name; the empty string means Drop.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(s); p {
	case "":
		return Drop, nil
	case Drop, Interpolate, Zero:
		return p, nil
	}
	return "", fmt.Errorf("unknown missing-value policy %q", s)
}

// Window restricts a series to [Start, End] at month resolution. A zero
// bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the month of t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	m := timeseries.MonthStart(t)
	if !w.Start.IsZero() && m.Before(timeseries.MonthStart(w.Start)) {
		return false
	}
	if !w.End.IsZero() && m.After(timeseries.MonthStart(w.End)) {
		return false
	}
	return true
}

// Series builds the monthly series of airport inside w. Months between the
// first and last row that are absent from the table count as missing, and
// policy decides their fate. A duplicate (airport, month) row is an error,
// and fewer than MinObservations remaining observations yield
// *timeseries.InsufficientDataError.
func (t *Table) Series(airport string, w Window, policy MissingPolicy) (*timeseries.Series, error) {
	var rows []Record
	for _, r := range t.Records {
		if r.Airport == airport && w.Contains(r.Date) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, &timeseries.InsufficientDataError{Series: airport, Op: "build series", Need: MinObservations}
	}

	// Records are sorted by airport then month, so rows is in month order.
	first := timeseries.MonthStart(rows[0].Date)
	last := timeseries.MonthStart(rows[len(rows)-1].Date)
	span := monthsBetween(first, last) + 1

	values := make([]float64, span)
	defined := make([]bool, span)
	seen := make([]int, span)
	for _, r := range rows {
		k := monthsBetween(first, r.Date)
		if seen[k] != 0 {
			return nil, fmt.Errorf("airport %s: duplicate row for %s (rows %d and %d)",
				airport, timeseries.FormatMonth(r.Date), seen[k], r.Row)
		}
		seen[k] = max(r.Row, 1)
		if !r.Missing {
			values[k], defined[k] = r.Passengers, true
		}
	}

	months := make([]time.Time, span)
	for k := range months {
		months[k] = first.AddDate(0, k, 0)
	}

	var times []time.Time
	var vals []float64
	switch policy {
	case Drop, "":
		for k := range values {
			if defined[k] {
				times = append(times, months[k])
				vals = append(vals, values[k])
			}
		}
	case Zero:
		times, vals = months, values
	case Interpolate:
		lo, hi := -1, -1
		for k := range defined {
			if defined[k] {
				if lo < 0 {
					lo = k
				}
				hi = k
			}
		}
		if lo >= 0 {
			interpolate(values[lo:hi+1], defined[lo:hi+1])
			times, vals = months[lo:hi+1], values[lo:hi+1]
		}
	default:
		return nil, fmt.Errorf("unknown missing-value policy %q", policy)
	}

	s, err := timeseries.NewWithTimestamps(times, vals)
	if err != nil {
		return nil, fmt.Errorf("airport %s: %w", airport, err)
	}
	s.Name = airport
	if err := timeseries.RequireLen(s, "build series", MinObservations); err != nil {
		return nil, err
	}
	return s, nil
}

// interpolate fills undefined entries between defined neighbors. The first
// and last entries must be defined.
func interpolate(values []float64, defined []bool) {
	prev := 0
	for k := 1; k < len(values); k++ {
		if !defined[k] {
			continue
		}
		if gap := k - prev; gap > 1 {
			step := (values[k] - values[prev]) / float64(gap)
			for j := prev + 1; j < k; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = k
	}
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
