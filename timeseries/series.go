// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Monthly is the frequency of a series with one observation per calendar month.
const Monthly = 12

// Series represents a time series with timestamps and values.
type Series struct {
	Name       string
	Timestamps []time.Time
	Values     []float64
	Frequency  int // Observations per year (12 for monthly data)
}

var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New creates a monthly series from values, starting January 2000.
func New(values []float64) *Series {
	return NewMonthly(epoch, values)
}

// NewMonthly creates a monthly series whose first observation falls in the month of start.
func NewMonthly(start time.Time, values []float64) *Series {
	first := MonthStart(start)
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = first.AddDate(0, i, 0)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Frequency:  Monthly,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, errors.New("timestamps must be strictly increasing")
		}
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Frequency:  Monthly,
	}, nil
}

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Period returns the seasonal period, defaulting to Monthly.
func (s *Series) Period() int {
	if s.Frequency <= 0 {
		return Monthly
	}
	return s.Frequency
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the unbiased sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// IsConstant reports whether every value equals the first one.
func (s *Series) IsConstant() bool {
	for _, v := range s.Values {
		if v != s.Values[0] {
			return false
		}
	}
	return true
}

// LastTimestamp returns the timestamp of the final observation.
func (s *Series) LastTimestamp() (time.Time, bool) {
	if len(s.Timestamps) == 0 {
		return time.Time{}, false
	}
	return s.Timestamps[len(s.Timestamps)-1], true
}

// NextMonths returns the h month starts following the last observation.
func (s *Series) NextMonths(h int) []time.Time {
	last, ok := s.LastTimestamp()
	if !ok || h <= 0 {
		return nil
	}
	last = MonthStart(last)
	out := make([]time.Time, h)
	for i := range out {
		out[i] = last.AddDate(0, i+1, 0)
	}
	return out
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	d := s.DiffLag(1)
	d.Name = s.Name + "_diff"
	return d
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	d := s.DiffLag(m)
	d.Name = s.Name + "_seasonal_diff"
	return d
}

// DiffLag returns y[t] - y[t-lag]. The first lag observations are consumed.
func (s *Series) DiffLag(lag int) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Name: s.Name, Values: []float64{}, Frequency: s.Frequency}
	}

	result := make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		result[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	var timestamps []time.Time
	if len(s.Timestamps) == len(s.Values) {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[lag:])
	}

	return &Series{
		Name:       s.Name,
		Timestamps: timestamps,
		Values:     result,
		Frequency:  s.Frequency,
	}
}

// Integrate inverts a lag difference. seeds are the last lag values of the
// undifferenced series that precede diffs; the result continues from them.
// Values produced earlier in the result feed later ones, so forecasts of a
// differenced series integrate to forecasts of the original.
func Integrate(diffs, seeds []float64, lag int) ([]float64, error) {
	if lag <= 0 {
		return nil, errors.New("lag must be positive")
	}
	if len(seeds) < lag {
		return nil, errors.New("need at least lag seed values")
	}

	hist := make([]float64, lag, lag+len(diffs))
	copy(hist, seeds[len(seeds)-lag:])
	for _, d := range diffs {
		hist = append(hist, d+hist[len(hist)-lag])
	}
	return hist[lag:], nil
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Name: s.Name, Values: []float64{}, Frequency: s.Frequency}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	var timestamps []time.Time
	if len(s.Timestamps) >= end {
		timestamps = make([]time.Time, len(values))
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Name:       s.Name,
		Timestamps: timestamps,
		Values:     values,
		Frequency:  s.Frequency,
	}
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	return s.Slice(0, len(s.Values))
}

// Consecutive reports whether every timestamp is exactly one month after the previous.
func (s *Series) Consecutive() bool {
	for i := 1; i < len(s.Timestamps); i++ {
		if !MonthStart(s.Timestamps[i-1]).AddDate(0, 1, 0).Equal(MonthStart(s.Timestamps[i])) {
			return false
		}
	}
	return true
}

// MissingMonths counts the calendar months absent between the first and last
// timestamp. It is 0 exactly when the series is Consecutive.
func (s *Series) MissingMonths() int {
	missing := 0
	for i := 1; i < len(s.Timestamps); i++ {
		prev, cur := s.Timestamps[i-1], s.Timestamps[i]
		step := (cur.Year()-prev.Year())*12 + int(cur.Month()) - int(prev.Month())
		if step > 1 {
			missing += step - 1
		}
	}
	return missing
}
